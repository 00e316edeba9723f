package visualizer

import (
	"fmt"

	"github.com/muesli/termenv"
)

// Modes accepted by VOXVERIFY_VISUALIZER and the -visualizer flag.
const (
	ModeAuto   = "auto"
	ModeSphere = "sphere"
	ModePulse  = "pulse"
)

// PrimaryAvailable reports why the sphere cannot run, or nil. The sphere
// needs colour to separate its depth shades; a monochrome terminal gets the
// pulse.
func PrimaryAvailable(mode string, profile termenv.Profile) error {
	switch mode {
	case ModePulse:
		return fmt.Errorf("%w: pulse visualizer requested", ErrUnavailable)
	case ModeSphere:
		return nil
	}
	if profile == termenv.Ascii {
		return fmt.Errorf("%w: terminal has no colour support", ErrUnavailable)
	}
	return nil
}

// Constructors wires the standard sphere and pulse renderers for a mode.
func Constructors(mode string, profile termenv.Profile, opts SphereOptions) (func() (Renderer, error), func() Renderer) {
	primary := func() (Renderer, error) {
		if err := PrimaryAvailable(mode, profile); err != nil {
			return nil, err
		}
		s, err := NewSphere(opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	fallback := func() Renderer {
		return NewPulse(opts.Width, opts.Height)
	}
	return primary, fallback
}
