package decoder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrNoEngine    = errors.New("decode engine unavailable")
	ErrBadInstance = errors.New("unknown decoder instance")
)

// FallbackSampleRate is used when an engine offers no defaults.
const FallbackSampleRate = 48000

// Parameters configure one engine instance. Input and output rates must
// match the capture context.
type Parameters struct {
	SampleRateInp   float64
	SampleRateOut   float64
	SamplesPerFrame int
}

func FallbackParameters() Parameters {
	return Parameters{SampleRateInp: FallbackSampleRate, SampleRateOut: FallbackSampleRate}
}

// WithSampleRate overrides both rates with the capture context's rate.
func (p Parameters) WithSampleRate(rate float64) Parameters {
	p.SampleRateInp = rate
	p.SampleRateOut = rate
	return p
}

func (p Parameters) Validate() error {
	if p.SampleRateInp <= 0 || p.SampleRateOut <= 0 {
		return fmt.Errorf("sample rates must be positive (inp=%g out=%g)", p.SampleRateInp, p.SampleRateOut)
	}
	if p.SampleRateInp != p.SampleRateOut {
		return fmt.Errorf("sample rate mismatch: inp=%g out=%g", p.SampleRateInp, p.SampleRateOut)
	}
	return nil
}

// Instance is an opaque engine handle.
type Instance int

// Module is the boundary to an acoustic-modem decode engine. Decode takes
// float32 little-endian samples and returns the raw payload, empty when no
// message was found.
type Module interface {
	Name() string
	DefaultParameters() (Parameters, bool)
	Init(p Parameters) (Instance, error)
	Decode(inst Instance, samples []byte) ([]byte, error)
	Free(inst Instance)
}

// Factory loads a Module. It fails when the engine cannot be reached.
type Factory func(ctx context.Context) (Module, error)

// Setup resolves parameters for rate and initializes an instance.
func Setup(m Module, rate float64) (Instance, Parameters, error) {
	params, ok := m.DefaultParameters()
	if !ok {
		params = FallbackParameters()
	}
	params = params.WithSampleRate(rate)
	if err := params.Validate(); err != nil {
		return 0, params, err
	}
	inst, err := m.Init(params)
	if err != nil {
		return 0, params, fmt.Errorf("%s init: %w", m.Name(), err)
	}
	return inst, params, nil
}

// PayloadText interprets a decoded payload as UTF-8. Invalid UTF-8 falls
// back to the payload's raw rendering, comma-separated byte values, and
// reports false.
func PayloadText(payload []byte) (string, bool) {
	if utf8.Valid(payload) {
		return string(payload), true
	}
	parts := make([]string, len(payload))
	for i, b := range payload {
		parts[i] = strconv.Itoa(int(b))
	}
	return strings.Join(parts, ","), false
}

// Truncate shortens s to n runes followed by "..." when longer.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
