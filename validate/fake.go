package validate

import (
	"context"
	"sync"
)

// Fake answers every Validate call with a fixed result or error.
type Fake struct {
	result *Result
	err    error

	mu    sync.Mutex
	texts []string
}

func NewFake(result *Result, err error) *Fake {
	return &Fake{result: result, err: err}
}

func (f *Fake) Validate(_ context.Context, text string) (*Result, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	return &r, nil
}

// Texts returns every submitted text in call order.
func (f *Fake) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}
