package visualizer

import (
	"math"
	"time"
)

const (
	PulseBars     = 8
	barMinHeight  = 40.0
	barSpan       = 80.0
	pulseUnitPx   = 20.0 // layout pixels per grid pixel
	circleRadius  = 100.0
	barInnerRadii = 130.0
)

var pulsePalette = []Color{
	{},
	{"46", 0, 255, 0},
	{"40", 0, 215, 0},
	{"34", 0, 175, 0},
	{"28", 0, 135, 0},
	{"22", 0, 95, 0},
	// bars, low to high
	{"34", 0, 170, 0},
	{"106", 135, 175, 0},
	{"172", 215, 135, 0},
	{"160", 215, 0, 0},
}

// CircleScale maps a spectrum average onto [1, 1.3].
func CircleScale(avg float64) float64 {
	return 1 + avg/255*0.3
}

// BarHeight maps a segment average onto [40, 120] layout pixels.
func BarHeight(seg float64) float64 {
	return barMinHeight + seg/255*barSpan
}

// Pulse is the lightweight fallback: a green disc that swells with the
// overall level, ringed by eight radial bars, one per spectrum segment.
type Pulse struct {
	w, h   int
	scale  float64
	bars   [PulseBars]float64
	levels [PulseBars]float64
	active bool
}

func NewPulse(w, h int) *Pulse {
	p := &Pulse{w: w, h: h}
	p.reset()
	return p
}

func (p *Pulse) reset() {
	p.scale = 1
	for i := range p.bars {
		p.bars[i] = barMinHeight
		p.levels[i] = 0
	}
}

func (p *Pulse) Scale() float64 { return p.scale }

func (p *Pulse) Bars() [PulseBars]float64 { return p.bars }

func (p *Pulse) Start() error {
	p.active = true
	return nil
}

// Stop returns the disc and bars to rest.
func (p *Pulse) Stop() error {
	p.active = false
	p.reset()
	return nil
}

func (p *Pulse) Update(spectrum []uint8) error {
	if !p.active || len(spectrum) == 0 {
		return nil
	}
	p.scale = CircleScale(Mean(spectrum))
	for i, seg := range SegmentAverages(spectrum, PulseBars) {
		p.bars[i] = BarHeight(seg)
		p.levels[i] = seg
	}
	return nil
}

func (p *Pulse) Draw(time.Duration) (*Frame, error) {
	f := NewFrame(p.w, p.h, pulsePalette)
	centerX := float64(p.w) / 2
	centerY := float64(p.h) / 2

	type ring struct {
		radius   float64
		colorIdx uint8
	}
	// radial gradient, bright core to dark rim
	rings := []ring{
		{0.25, 1},
		{0.45, 2},
		{0.65, 3},
		{0.85, 4},
		{1.0, 5},
	}
	disc := circleRadius * p.scale / pulseUnitPx

	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			dx := float64(x) + 0.5 - centerX
			dy := float64(y) + 0.5 - centerY
			dist := math.Sqrt(dx*dx+dy*dy) / disc
			for _, r := range rings {
				if dist < r.radius {
					f.Set(x, y, r.colorIdx)
					break
				}
			}
		}
	}

	inner := barInnerRadii / pulseUnitPx
	for i, height := range p.bars {
		angle := float64(i) * math.Pi / 4
		dirX, dirY := math.Sin(angle), -math.Cos(angle)
		length := height / pulseUnitPx
		c := barColor(p.levels[i])
		for t := 0.0; t <= length; t += 0.5 {
			r := inner + t
			f.Set(int(math.Floor(centerX+dirX*r)), int(math.Floor(centerY+dirY*r)), c)
		}
	}
	return f, nil
}

// barColor goes green to red with the segment level.
func barColor(seg float64) uint8 {
	switch {
	case seg > 191:
		return 9
	case seg > 127:
		return 8
	case seg > 63:
		return 7
	}
	return 6
}

func (p *Pulse) Dispose() {
	p.active = false
	p.reset()
}
