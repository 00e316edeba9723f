//go:build windows

package doctor

import (
	"os"

	"voxverify/shutdown"
)

func resetTerminal() {
	// Not needed on Windows
}

func setupInterruptHandler() {
	shutdown.Handle(func(os.Signal) {
		println("\nInterrupted")
		os.Exit(1)
	})
}
