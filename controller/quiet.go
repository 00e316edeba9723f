package controller

import "time"

const (
	tickInterval     = 100 * time.Millisecond
	quietWarnAfter   = 8 * time.Second
	signalMinRatio   = 0.10
	signalClearRatio = 0.25 // higher threshold to clear warning (hysteresis)

	// quietLevel is the 20-80% band average, on the byte spectrum scale,
	// above which a tick counts as carrying signal.
	quietLevel = 8.0
)

type QuietEvent int

const (
	QuietNone  QuietEvent = iota
	QuietWarn             // no signal for the warning window
	QuietClear            // signal resumed after warning
	QuietLimit            // maximum recording length reached
)

type quietMonitor struct {
	warnAt  int
	limitAt int

	ticks  int
	window []bool
	warned bool
}

// newQuietMonitor watches one recording. A zero limit never stops it.
func newQuietMonitor(limit time.Duration) *quietMonitor {
	warnAt := int(quietWarnAfter / tickInterval)
	return &quietMonitor{
		warnAt:  warnAt,
		limitAt: int(limit / tickInterval),
		window:  make([]bool, warnAt),
	}
}

func (m *quietMonitor) ratio() float64 {
	n := min(m.ticks, m.warnAt)
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.warnAt)%m.warnAt] {
			count++
		}
	}
	return float64(count) / float64(n)
}

func (m *quietMonitor) Tick(hasSignal bool) QuietEvent {
	m.window[m.ticks%m.warnAt] = hasSignal
	m.ticks++

	if m.limitAt > 0 && m.ticks >= m.limitAt {
		return QuietLimit
	}

	r := m.ratio()
	if m.ticks >= m.warnAt && r < signalMinRatio && !m.warned {
		m.warned = true
		return QuietWarn
	}
	if m.warned && r >= signalClearRatio {
		m.warned = false
		return QuietClear
	}
	return QuietNone
}
