package recorder

import (
	"errors"
	"sync"
	"time"
)

var ErrRecording = errors.New("recorder already running")

// Recorder slices a continuous PCM stream into chunks, emitting one every
// timeslice while data is arriving. Empty slices are never emitted.
type Recorder struct {
	timeslice time.Duration

	// OnChunk is called from the flush goroutine with each new chunk size.
	OnChunk func(index, size int)

	mu      sync.Mutex
	pending []byte
	chunks  [][]byte
	bytes   int
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func New(timeslice time.Duration) *Recorder {
	if timeslice <= 0 {
		timeslice = time.Second
	}
	return &Recorder{timeslice: timeslice}
}

func (r *Recorder) Timeslice() time.Duration { return r.timeslice }

// Start clears previous chunks and begins slicing.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRecording
	}
	r.pending = nil
	r.chunks = nil
	r.bytes = 0
	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.loop(r.stop, r.done)
	return nil
}

func (r *Recorder) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.timeslice)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.flush()
		}
	}
}

func (r *Recorder) flush() {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return
	}
	chunk := r.pending
	r.pending = nil
	r.chunks = append(r.chunks, chunk)
	index := len(r.chunks) - 1
	cb := r.OnChunk
	r.mu.Unlock()

	if cb != nil {
		cb(index, len(chunk))
	}
}

// Write buffers capture data. It is a no-op while stopped.
func (r *Recorder) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.pending = append(r.pending, p...)
	r.bytes += len(p)
}

func (r *Recorder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Bytes is the total captured since Start, flushed or not.
func (r *Recorder) Bytes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytes
}

// Stop ends slicing, emits what is left as a final chunk and returns every
// chunk in order. Calling Stop on an idle recorder returns the last result.
func (r *Recorder) Stop() [][]byte {
	r.mu.Lock()
	if !r.running {
		chunks := r.chunks
		r.mu.Unlock()
		return chunks
	}
	r.running = false
	stop, done := r.stop, r.done
	r.mu.Unlock()

	close(stop)
	<-done
	r.flush()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chunks
}

// Assemble concatenates chunks in order; the result length is the sum of
// the chunk lengths.
func Assemble(chunks [][]byte) []byte {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
