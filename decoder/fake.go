package decoder

import (
	"context"
	"fmt"
	"sync"
)

// Fake returns a fixed payload from every Decode call.
type Fake struct {
	payload []byte
	err     error

	// InitErr makes Init fail.
	InitErr error
	// Defaults, when non-nil, are offered by DefaultParameters.
	Defaults *Parameters

	mu     sync.Mutex
	next   Instance
	live   map[Instance]Parameters
	calls  int
	inputs [][]byte
	inits  []Parameters
}

func NewFake(payload []byte, err error) *Fake {
	return &Fake{payload: payload, err: err, live: make(map[Instance]Parameters)}
}

// Factory hands out f, or factoryErr when set.
func (f *Fake) Factory(factoryErr error) Factory {
	return func(context.Context) (Module, error) {
		if factoryErr != nil {
			return nil, factoryErr
		}
		return f, nil
	}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) DefaultParameters() (Parameters, bool) {
	if f.Defaults == nil {
		return Parameters{}, false
	}
	return *f.Defaults, true
}

func (f *Fake) Init(p Parameters) (Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits = append(f.inits, p)
	if f.InitErr != nil {
		return 0, f.InitErr
	}
	f.next++
	f.live[f.next] = p
	return f.next, nil
}

func (f *Fake) Decode(inst Instance, samples []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live[inst]; !ok {
		return nil, ErrBadInstance
	}
	f.calls++
	f.inputs = append(f.inputs, samples)
	if f.err != nil {
		return nil, fmt.Errorf("fake decoder error: %w", f.err)
	}
	return f.payload, nil
}

func (f *Fake) Free(inst Instance) {
	f.mu.Lock()
	delete(f.live, inst)
	f.mu.Unlock()
}

func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Fake) LastInput() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return nil
	}
	return f.inputs[len(f.inputs)-1]
}

func (f *Fake) Inits() []Parameters {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Parameters(nil), f.inits...)
}

func (f *Fake) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}
