package hotkey

import (
	"sync"
	"time"
)

// DefaultDebounce drops chord presses that follow the previous one too
// closely, e.g. keyboard bounce or a double tap.
const DefaultDebounce = 300 * time.Millisecond

// Toggler turns chord presses into toggle requests; every accepted press
// starts a recording or stops the running one.
type Toggler struct {
	ch   chan struct{}
	stop chan struct{}
	once sync.Once
}

func NewToggler(hk Hotkey, debounce time.Duration) *Toggler {
	t := &Toggler{
		ch:   make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	go t.run(hk, debounce)
	return t
}

// C delivers one value per accepted press.
func (t *Toggler) C() <-chan struct{} { return t.ch }

func (t *Toggler) Close() {
	t.once.Do(func() { close(t.stop) })
}

func (t *Toggler) run(hk Hotkey, debounce time.Duration) {
	var last time.Time
	for {
		select {
		case <-t.stop:
			return
		case <-hk.Keyup():
			// releases carry no meaning for a toggle
		case <-hk.Keydown():
			now := time.Now()
			if !last.IsZero() && now.Sub(last) < debounce {
				continue
			}
			last = now
			select {
			case t.ch <- struct{}{}:
			default:
			}
		}
	}
}
