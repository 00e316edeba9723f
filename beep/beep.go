package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

var disabled atomic.Bool

// Disable silences every cue, for headless runs.
func Disable() { disabled.Store(true) }

func Disabled() bool { return disabled.Load() }

const (
	sampleRate = 44100

	// Start: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30

	// Success: rising two-note chime
	successLow    = 880
	successHigh   = 1320
	successVolume = 0.4
	successDecay  = 25
)

type Cue int

const (
	CueStart Cue = iota
	CueEnd
	CueError
	CueSuccess
)

var (
	cueOnce    sync.Once
	cueSamples map[Cue][]int16
)

func initCues() {
	cueSamples = map[Cue][]int16{
		CueStart:   tick(startFreq, 0.2, startVolume, startDecay),
		CueEnd:     tick(endFreq, 0.2, endVolume, endDecay),
		CueError:   doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay),
		CueSuccess: append(tick(successLow, 0.1, successVolume, successDecay), tick(successHigh, 0.2, successVolume, successDecay)...),
	}
}

// Samples returns the mono 16-bit samples of a cue at 44.1 kHz.
func Samples(c Cue) []int16 {
	cueOnce.Do(initCues)
	return cueSamples[c]
}

func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	result := make([]int16, 0, len(b)*2+len(gap))
	result = append(result, b...)
	result = append(result, gap...)
	result = append(result, b...)
	return result
}

// Init prepares the cue samples and the output device.
func Init() {
	cueOnce.Do(initCues)
	initOutput()
}

// Play sounds a cue without blocking.
func Play(c Cue) {
	if disabled.Load() {
		return
	}
	go play(Samples(c))
}

func PlayStart()   { Play(CueStart) }
func PlayEnd()     { Play(CueEnd) }
func PlayError()   { Play(CueError) }
func PlaySuccess() { Play(CueSuccess) }
