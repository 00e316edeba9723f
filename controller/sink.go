package controller

import (
	"time"

	"voxverify/validate"
	"voxverify/visualizer"
)

// Sink abstracts the display layer so the TUI, the desktop window and the
// headless test mode all receive the same controller events. Calls may come
// from any goroutine.
type Sink interface {
	StateChanged(s State)
	Status(text string)
	LogEntry(e Entry)
	Outcome(o Outcome)
	Frame(f *visualizer.Frame)
}

// Outcome summarizes one processed recording.
type Outcome struct {
	SessionID string
	Duration  time.Duration
	Text      string // decoded text, empty when nothing was decoded
	Raw       bool   // Text is the comma-separated byte rendering
	Result    *validate.Result
	Status    string
	Verified  bool
	Err       error
}

type NopSink struct{}

func (NopSink) StateChanged(State)      {}
func (NopSink) Status(string)           {}
func (NopSink) LogEntry(Entry)          {}
func (NopSink) Outcome(Outcome)         {}
func (NopSink) Frame(*visualizer.Frame) {}
