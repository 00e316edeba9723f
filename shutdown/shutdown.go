// Package shutdown turns termination signals into a single callback.
package shutdown

import (
	"os"
	"os/signal"
)

func Notify(ch chan os.Signal) {
	signal.Notify(ch, signals...)
}

// Handle runs fn once, on its own goroutine, when the first termination
// signal arrives.
func Handle(fn func(os.Signal)) {
	ch := make(chan os.Signal, 1)
	Notify(ch)
	go func() {
		fn(<-ch)
	}()
}
