package visualizer

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultDecay is the fall rate toward a lower target.
const DefaultDecay = 0.05

// IdleLevel is the target while no recording is active.
const IdleLevel = 6.0

// Smoother rises instantly and falls exponentially.
type Smoother struct {
	Decay float64
	value float64
}

func NewSmoother(decay float64) *Smoother {
	return &Smoother{Decay: decay}
}

// Next moves toward target and returns the new value.
func (s *Smoother) Next(target float64) float64 {
	if target > s.value {
		s.value = target
	} else {
		s.value = s.value*(1-s.Decay) + target*s.Decay
	}
	return s.value
}

func (s *Smoother) Value() float64 { return s.value }

func (s *Smoother) Reset(v float64) { s.value = v }

// BandAverage is the mean of spectrum[floor(n*lo):floor(n*hi)].
func BandAverage(spectrum []uint8, lo, hi float64) float64 {
	n := len(spectrum)
	start := int(math.Floor(float64(n) * lo))
	end := int(math.Floor(float64(n) * hi))
	start = max(0, min(start, n))
	end = max(start, min(end, n))
	if end == start {
		return 0
	}
	sum := 0
	for _, v := range spectrum[start:end] {
		sum += int(v)
	}
	return float64(sum) / float64(end-start)
}

func Mean(spectrum []uint8) float64 {
	return BandAverage(spectrum, 0, 1)
}

// SegmentAverages splits spectrum into n equal parts and averages each.
func SegmentAverages(spectrum []uint8, n int) []float64 {
	out := make([]float64, n)
	if len(spectrum) == 0 || n <= 0 {
		return out
	}
	size := len(spectrum) / n
	if size == 0 {
		size = 1
	}
	for i := range out {
		start := i * size
		if start >= len(spectrum) {
			break
		}
		end := min(start+size, len(spectrum))
		sum := 0
		for _, v := range spectrum[start:end] {
			sum += int(v)
		}
		out[i] = float64(sum) / float64(end-start)
	}
	return out
}

// Noise is the surface ripple at p after elapsed seconds.
func Noise(p r3.Vec, elapsed float64) float64 {
	t := elapsed * 0.5
	return math.Sin(p.X*10+t) * math.Cos(p.Y*10+t) * math.Sin(p.Z*10+t)
}

// DisplacementFactor divides the smoothed level before it scales noise.
func DisplacementFactor(active bool) float64 {
	if active {
		return 15
	}
	return 20
}

// Displace pushes base outward along its normal on a sphere of radius.
func Displace(base r3.Vec, radius, level float64, active bool, elapsed float64) r3.Vec {
	d := (level / DisplacementFactor(active)) * (Noise(base, elapsed) / 8)
	return r3.Add(base, r3.Scale(d/radius, base))
}
