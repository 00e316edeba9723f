package shutdown

import (
	"os"
	"os/signal"
	"testing"
)

func TestSignalsIncludeInterrupt(t *testing.T) {
	for _, s := range signals {
		if s == os.Interrupt {
			return
		}
	}
	t.Fatal("os.Interrupt is not handled")
}

func TestNotifyRegisters(t *testing.T) {
	ch := make(chan os.Signal, 1)
	Notify(ch)
	defer signal.Stop(ch)
	if cap(ch) != 1 {
		t.Fatal("channel replaced")
	}
}
