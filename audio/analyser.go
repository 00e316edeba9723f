package audio

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Analyser defaults, matching a WebAudio AnalyserNode.
const (
	DefaultFFTSize           = 256
	DefaultSmoothingConstant = 0.8
	DefaultMinDecibels       = -100.0
	DefaultMaxDecibels       = -30.0
)

// Analyser keeps the most recent FFTSize samples of the capture stream and
// reports a smoothed magnitude spectrum on demand. Safe for one writer (the
// capture callback) and any number of readers. Only one reader should call
// ByteFrequencyData, which advances the smoothing; the rest use
// LastByteFrequencyData.
type Analyser struct {
	mu        sync.Mutex
	size      int
	ring      []float64
	pos       int
	fft       *fourier.FFT
	frame     []float64
	coeffs    []complex128
	smoothed  []float64
	smoothing float64
	minDB     float64
	maxDB     float64
}

func NewAnalyser(fftSize int) (*Analyser, error) {
	a := &Analyser{
		smoothing: DefaultSmoothingConstant,
		minDB:     DefaultMinDecibels,
		maxDB:     DefaultMaxDecibels,
	}
	if err := a.SetFFTSize(fftSize); err != nil {
		return nil, err
	}
	return a, nil
}

// SetFFTSize resizes the window and resets history.
func (a *Analyser) SetFFTSize(n int) error {
	if n < 32 || n > 32768 || n&(n-1) != 0 {
		return fmt.Errorf("fft size %d: must be a power of two in [32, 32768]", n)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.size = n
	a.ring = make([]float64, n)
	a.pos = 0
	a.fft = fourier.NewFFT(n)
	a.frame = make([]float64, n)
	a.coeffs = make([]complex128, n/2+1)
	a.smoothed = make([]float64, n/2)
	return nil
}

func (a *Analyser) FFTSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.size
}

// FrequencyBinCount is half the FFT size.
func (a *Analyser) FrequencyBinCount() int {
	return a.FFTSize() / 2
}

// setSmoothing sets the averaging constant, clamped to [0, 1].
func (a *Analyser) setSmoothing(tau float64) {
	a.mu.Lock()
	a.smoothing = math.Min(math.Max(tau, 0), 1)
	a.mu.Unlock()
}

// Write appends samples to the analysis window.
func (a *Analyser) Write(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.pos] = float64(s)
		a.pos = (a.pos + 1) % a.size
	}
}

// WritePCM16 is Write for raw capture bytes.
func (a *Analyser) WritePCM16(data []byte) {
	a.Write(PCM16ToFloat32(data))
}

// Reset clears history, as when a new recording starts.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.ring)
	clear(a.smoothed)
	a.pos = 0
}

// ByteFrequencyData takes a new analysis frame, folds it into the smoothed
// spectrum and fills dst with the result scaled into 0..255 over
// [minDB, maxDB]. It returns the number of bins written.
func (a *Analyser) ByteFrequencyData(dst []uint8) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.size
	for i := 0; i < n; i++ {
		a.frame[i] = a.ring[(a.pos+i)%n]
	}
	window.Blackman(a.frame)
	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)
	for k := range a.smoothed {
		mag := cmplxAbs(a.coeffs[k]) / float64(n)
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
	}
	return a.fill(dst)
}

// LastByteFrequencyData fills dst from the spectrum computed by the most
// recent ByteFrequencyData call without advancing the smoothing.
func (a *Analyser) LastByteFrequencyData(dst []uint8) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fill(dst)
}

func (a *Analyser) fill(dst []uint8) int {
	bins := min(len(dst), len(a.smoothed))
	span := a.maxDB - a.minDB
	for k := 0; k < bins; k++ {
		db := math.Inf(-1)
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		v := 255 / span * (db - a.minDB)
		switch {
		case v < 0 || math.IsNaN(v):
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = uint8(v)
		}
	}
	return bins
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
