//go:build !linux

package hotkey

import (
	"golang.design/x/hotkey"
)

// chordHotkey registers Ctrl+Shift+V through the OS hotkey API.
type chordHotkey struct {
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	stop    chan struct{}
}

func New() Hotkey {
	return &chordHotkey{
		hk:      hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeyV),
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *chordHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	h.stop = make(chan struct{})
	go h.forward(h.stop)
	return nil
}

// forward relays OS events until stop closes. A press still pending in
// keydown is not queued twice.
func (h *chordHotkey) forward(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-h.hk.Keydown():
			notify(h.keydown)
		case <-h.hk.Keyup():
			notify(h.keyup)
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *chordHotkey) Unregister() {
	if h.stop != nil {
		close(h.stop)
		h.stop = nil
	}
	h.hk.Unregister()
}

func (h *chordHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *chordHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func Diagnose() (string, error) {
	return "OS hotkey API available, validate with " + Label, nil
}
