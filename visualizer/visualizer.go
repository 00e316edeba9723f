package visualizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrUnavailable = errors.New("primary visualizer unavailable")
	ErrDisposed    = errors.New("renderer disposed")
)

type Kind int

const (
	KindNone Kind = iota
	KindPrimary
	KindFallback
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "sphere"
	case KindFallback:
		return "pulse"
	}
	return "none"
}

// Renderer draws one visualization style. Start and Stop switch between
// recording and idle behaviour; Update receives the latest byte spectrum.
type Renderer interface {
	Start() error
	Stop() error
	Update(spectrum []uint8) error
	Draw(elapsed time.Duration) (*Frame, error)
	Dispose()
}

type Logger interface {
	Info(msg string)
	Error(msg string)
}

type nopLogger struct{}

func (nopLogger) Info(string)  {}
func (nopLogger) Error(string) {}

// SpectrumSource is satisfied by *audio.Analyser.
type SpectrumSource interface {
	ByteFrequencyData(dst []uint8) int
	FrequencyBinCount() int
}

// Visualizer fronts the active renderer. Any failure in the primary
// renderer switches to the fallback for the rest of its life; callers never
// see renderer errors.
type Visualizer struct {
	mu       sync.Mutex
	active   Renderer
	kind     Kind
	fallback func() Renderer
	log      Logger
	running  bool
	disposed bool
	frame    *Frame
	done     chan struct{}
}

// Setup tries primary and falls back when it errors or panics.
func Setup(primary func() (Renderer, error), fallback func() Renderer, log Logger) *Visualizer {
	if log == nil {
		log = nopLogger{}
	}
	v := &Visualizer{fallback: fallback, log: log, done: make(chan struct{})}

	r, err := construct(primary)
	if err != nil {
		log.Info(fmt.Sprintf("3D visualizer unavailable, using pulse fallback: %v", err))
		v.active = fallback()
		v.kind = KindFallback
		return v
	}
	v.active = r
	v.kind = KindPrimary
	log.Info("3D visualizer initialized")
	return v
}

func construct(primary func() (Renderer, error)) (r Renderer, err error) {
	if primary == nil {
		return nil, ErrUnavailable
	}
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("%w: panic: %v", ErrUnavailable, p)
		}
	}()
	r, err = primary()
	if err == nil && r == nil {
		err = ErrUnavailable
	}
	return r, err
}

// guard runs fn against the active renderer, recovering panics.
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

// failover must be called with mu held.
func (v *Visualizer) failover(op string, err error) {
	if v.kind != KindPrimary {
		v.log.Error(fmt.Sprintf("pulse visualizer %s failed: %v", op, err))
		return
	}
	v.log.Error(fmt.Sprintf("3D visualizer %s failed, switching to fallback: %v", op, err))
	old := v.active
	go guard(func() error { old.Dispose(); return nil })

	v.active = v.fallback()
	v.kind = KindFallback
	if v.running && op != "start" {
		guard(v.active.Start)
	}
}

func (v *Visualizer) call(op string, fn func(Renderer) error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return
	}
	r := v.active
	if err := guard(func() error { return fn(r) }); err != nil {
		v.failover(op, err)
		if v.kind == KindFallback && r != v.active {
			if err := guard(func() error { return fn(v.active) }); err != nil {
				v.log.Error(fmt.Sprintf("pulse visualizer %s failed: %v", op, err))
			}
		}
	}
}

func (v *Visualizer) Start() {
	v.mu.Lock()
	v.running = true
	v.mu.Unlock()
	v.call("start", Renderer.Start)
}

func (v *Visualizer) Stop() {
	v.mu.Lock()
	v.running = false
	v.mu.Unlock()
	v.call("stop", Renderer.Stop)
}

func (v *Visualizer) Update(spectrum []uint8) {
	v.call("update", func(r Renderer) error { return r.Update(spectrum) })
}

// Render draws the next frame, keeping the previous one on failure.
func (v *Visualizer) Render(elapsed time.Duration) *Frame {
	v.call("draw", func(r Renderer) error {
		f, err := r.Draw(elapsed)
		if err != nil {
			return err
		}
		v.frame = f
		return nil
	})
	return v.Frame()
}

func (v *Visualizer) Frame() *Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame
}

func (v *Visualizer) Kind() Kind {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.kind
}

func (v *Visualizer) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.running
}

// Dispose stops the loop and releases the renderer. Safe to call twice.
func (v *Visualizer) Dispose() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return
	}
	v.disposed = true
	v.running = false
	guard(func() error { v.active.Dispose(); return nil })
	close(v.done)
}

// Run samples src while recording and draws a frame every interval until
// ctx ends or the visualizer is disposed.
func (v *Visualizer) Run(ctx context.Context, src SpectrumSource, interval time.Duration, onFrame func(*Frame)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	start := time.Now()
	var buf []uint8

	for {
		select {
		case <-ctx.Done():
			return
		case <-v.done:
			return
		case <-ticker.C:
		}
		if src != nil && v.Active() {
			if n := src.FrequencyBinCount(); len(buf) != n {
				buf = make([]uint8, n)
			}
			n := src.ByteFrequencyData(buf)
			v.Update(buf[:n])
		}
		if f := v.Render(time.Since(start)); f != nil && onFrame != nil {
			onFrame(f)
		}
	}
}
