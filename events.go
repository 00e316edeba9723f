package main

import (
	"sync"

	"voxverify/beep"
	"voxverify/controller"
	"voxverify/visualizer"
)

// sinks fans controller events out to every display layer: the Bubble Tea
// TUI, the desktop window and the headless test printer.
type sinks struct {
	mu  sync.RWMutex
	all []controller.Sink
}

func (s *sinks) add(sk controller.Sink) {
	s.mu.Lock()
	s.all = append(s.all, sk)
	s.mu.Unlock()
}

func (s *sinks) each(fn func(controller.Sink)) {
	s.mu.RLock()
	all := s.all
	s.mu.RUnlock()
	for _, sk := range all {
		fn(sk)
	}
}

func (s *sinks) StateChanged(st controller.State) {
	s.each(func(sk controller.Sink) { sk.StateChanged(st) })
}
func (s *sinks) Status(text string) { s.each(func(sk controller.Sink) { sk.Status(text) }) }
func (s *sinks) LogEntry(e controller.Entry) {
	s.each(func(sk controller.Sink) { sk.LogEntry(e) })
}
func (s *sinks) Outcome(o controller.Outcome) { s.each(func(sk controller.Sink) { sk.Outcome(o) }) }
func (s *sinks) Frame(f *visualizer.Frame)    { s.each(func(sk controller.Sink) { sk.Frame(f) }) }

// cueSink plays the audio cues for recording start, stop and the verdict.
type cueSink struct {
	controller.NopSink
}

func (cueSink) StateChanged(st controller.State) {
	switch st {
	case controller.Recording:
		beep.PlayStart()
	case controller.Processing:
		beep.PlayEnd()
	}
}

func (cueSink) Outcome(o controller.Outcome) {
	if o.Verified {
		beep.PlaySuccess()
		return
	}
	beep.PlayError()
}
