package audio

import (
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays fixed PCM instead of opening a microphone.
type FakeContext struct {
	pcm        []byte
	sampleRate int
	realtime   bool

	// CaptureErr, when set, is returned by NewCapture to emulate a
	// denied microphone.
	CaptureErr error

	mu       sync.Mutex
	captures []*FakeCapture
	closed   bool
}

// NewFakeContext loads a WAV file. With realtime set the samples are paced
// at the file's sample rate, otherwise they are delivered in one burst.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	pcm, rate, err := ReadWAV(wavPath)
	if err != nil {
		return nil, err
	}
	return NewFakeContextPCM(pcm, rate, realtime), nil
}

func NewFakeContextPCM(pcm []byte, sampleRate int, realtime bool) *FakeContext {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &FakeContext{pcm: pcm, sampleRate: sampleRate, realtime: realtime}
}

func (f *FakeContext) SampleRate() int                { return f.sampleRate }
func (f *FakeContext) Devices() ([]DeviceInfo, error) { return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil }

func (f *FakeContext) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *FakeContext) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	c := &FakeCapture{pcm: f.pcm, sampleRate: f.sampleRate, realtime: f.realtime, audioDone: make(chan struct{})}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

// Captures returns every capture handed out so far.
func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

type FakeCapture struct {
	pcm        []byte
	sampleRate int
	realtime   bool
	audioDone  chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
	started  bool
	closed   bool
}

func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	return end
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.started = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stopCh, feedDone, audioDone := f.stopCh, f.feedDone, f.audioDone
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * fakeBytesPerFrame

	if !f.realtime {
		if cb := f.callback(); cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(cb, pos, chunkBytes)
			}
		}
		close(audioDone)
		close(feedDone)
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(f.sampleRate)
	go func() {
		defer close(feedDone)
		pos := 0
		finished := false
		silence := make([]byte, chunkBytes)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if cb := f.callback(); cb != nil {
				if pos < len(f.pcm) {
					pos = f.feedChunk(cb, pos, chunkBytes)
				} else {
					cb(silence, fakeFrameSize)
				}
			}
			if pos >= len(f.pcm) && !finished {
				finished = true
				close(audioDone)
			}
			select {
			case <-stopCh:
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stopCh, feedDone := f.stopCh, f.feedDone
	f.mu.Unlock()
	if stopCh == nil {
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	<-feedDone

	f.mu.Lock()
	select {
	case <-f.audioDone:
		f.audioDone = make(chan struct{}) // reset for replay
	default:
	}
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}
