//go:build !windows

package doctor

import (
	"os"
	"os/exec"

	"voxverify/shutdown"
)

func resetTerminal() {
	exec.Command("stty", "sane").Run()
}

func setupInterruptHandler() {
	shutdown.Handle(func(os.Signal) {
		resetTerminal()
		println("\nInterrupted")
		os.Exit(1)
	})
}
