package clipboard

import (
	"errors"

	cb "github.com/atotto/clipboard"
)

// ErrUnsupported is returned when no clipboard utility is installed
// (xclip, xsel or wl-clipboard on Linux).
var ErrUnsupported = errors.New("clipboard unavailable: install xclip, xsel or wl-clipboard")

func Available() error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	return nil
}

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnsupported
	}
	return cb.ReadAll()
}

func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	return cb.WriteAll(text)
}
