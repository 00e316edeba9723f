package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voxverify/audio"
	"voxverify/decoder"
	"voxverify/log"
	"voxverify/recorder"
	"voxverify/validate"
	"voxverify/visualizer"
)

var ErrClosed = errors.New("controller closed")

type Config struct {
	SampleRate    int
	FFTSize       int
	Timeslice     time.Duration // chunk length of the recorder
	MaxRecording  time.Duration // zero disables the automatic stop
	FrameInterval time.Duration
	Device        *audio.DeviceInfo
	Server        string // for the session log only
}

func DefaultConfig() Config {
	return Config{
		SampleRate:    audio.DefaultSampleRate,
		FFTSize:       audio.DefaultFFTSize,
		Timeslice:     time.Second,
		MaxRecording:  30 * time.Second,
		FrameInterval: 33 * time.Millisecond,
	}
}

// Deps are the collaborators the controller drives. NewAudio, Decoder and
// Validator are required.
type Deps struct {
	NewAudio   func() (audio.Context, error)
	Decoder    decoder.Factory
	Validator  validate.Validator
	Visualizer func(log visualizer.Logger) *visualizer.Visualizer
	// Archive, when set, receives every assembled recording as 16-bit PCM.
	Archive func(pcm []byte, sampleRate int) error
}

// Controller is the recording state machine: one recording at a time,
// processed to a validation outcome before the next may start.
type Controller struct {
	cfg  Config
	deps Deps
	sink Sink
	log  *DebugLog

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	starting bool
	closed   bool
	sess     *Session
	capture  audio.CaptureDevice
	rec      *recorder.Recorder
	began    time.Time
	stopMon  chan struct{}
	done     chan struct{}
	last     Outcome
}

func New(cfg Config, deps Deps, sink Sink) *Controller {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = def.FFTSize
	}
	if cfg.Timeslice <= 0 {
		cfg.Timeslice = def.Timeslice
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if sink == nil {
		sink = NopSink{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:    cfg,
		deps:   deps,
		sink:   sink,
		ctx:    ctx,
		cancel: cancel,
	}
	c.log = NewDebugLog(DefaultLogEntries, sink.LogEntry)
	return c
}

func (c *Controller) Log() *DebugLog { return c.log }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the live session, nil before the first toggle.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Counts returns the recordings processed and signatures verified in the
// current session. The processing goroutine updates both under c.mu.
func (c *Controller) Counts() (recordings, verified int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return 0, 0
	}
	return c.sess.recordings, c.sess.verified
}

// LastOutcome is the most recent processed recording.
func (c *Controller) LastOutcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.sink.StateChanged(s)
}

func (c *Controller) status(text string) {
	c.sink.Status(text)
}

// Toggle stops a running recording or starts a new one. The returned channel
// closes once the triggered action has settled.
func (c *Controller) Toggle(ctx context.Context) (<-chan struct{}, error) {
	if c.State() == Recording {
		return c.Stop(), nil
	}
	err := c.Start(ctx)
	return closedChan(), err
}

// Start begins a recording, initializing the session on first use. It is a
// no-op while initializing, recording or processing.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.starting || c.state == Initializing || c.state == Recording || c.state == Processing {
		st := c.state
		c.mu.Unlock()
		c.log.Warnf("Start ignored while %s", st)
		return nil
	}
	c.starting = true
	sess := c.sess
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	if !sess.Initialized() {
		var err error
		if sess, err = c.initialize(ctx); err != nil {
			return err
		}
	}
	return c.beginRecording(sess)
}

// initialize brings up audio, analysis, the decode engine and the
// visualizer. On failure everything acquired is released and the state
// returns to Idle.
func (c *Controller) initialize(ctx context.Context) (*Session, error) {
	c.setState(Initializing)
	c.status(StatusInitializing)
	c.log.Info("Initializing audio system...")

	sess := newSession()
	fail := func(status string, err error) (*Session, error) {
		sess.release()
		c.setState(Idle)
		c.status(status)
		return nil, err
	}

	if c.deps.NewAudio == nil {
		c.log.Error("Error initializing audio context: no audio host")
		return fail(StatusAudioInit, errors.New("no audio host"))
	}
	actx, err := c.deps.NewAudio()
	if err != nil {
		c.log.Errorf("Error initializing audio context: %v", err)
		return fail(StatusAudioInit, fmt.Errorf("audio context: %w", err))
	}
	sess.Audio = actx
	c.log.Infof("Audio context created with sample rate: %dHz", c.cfg.SampleRate)

	an, err := audio.NewAnalyser(c.cfg.FFTSize)
	if err != nil {
		c.log.Errorf("Error initializing audio context: %v", err)
		return fail(StatusAudioInit, err)
	}
	sess.Analyser = an
	c.log.Info("Analyser node created for visualizations")

	c.log.Info("Initializing decoder...")
	if err := sess.setupDecoder(ctx, c.deps.Decoder, c.cfg.SampleRate); err != nil {
		c.log.Errorf("Failed to initialize decoder: %v", err)
		return fail(StatusDecoderInit, fmt.Errorf("decoder: %w", err))
	}
	c.log.Infof("%s instance initialized (inp=%gHz out=%gHz)", sess.Module.Name(), sess.Params.SampleRateInp, sess.Params.SampleRateOut)

	if c.deps.Visualizer != nil {
		sess.Visualizer = c.deps.Visualizer(c.log)
	} else {
		sess.Visualizer = visualizer.Setup(nil, func() visualizer.Renderer {
			opts := visualizer.DefaultSphereOptions()
			return visualizer.NewPulse(opts.Width, opts.Height)
		}, c.log)
	}
	go sess.Visualizer.Run(c.ctx, sess.Analyser, c.cfg.FrameInterval, c.sink.Frame)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sess.release()
		return nil, ErrClosed
	}
	c.sess = sess
	c.mu.Unlock()

	log.SessionStart(sess.ID, c.cfg.Server, c.cfg.SampleRate)
	c.setState(Ready)
	c.status(StatusReady)
	return sess, nil
}

func (c *Controller) beginRecording(sess *Session) error {
	c.log.Info("Requesting microphone access...")
	capture, err := sess.Audio.NewCapture(c.cfg.Device, audio.DefaultCaptureConfig(c.cfg.SampleRate))
	if err != nil {
		c.log.Errorf("Error starting recording: %v", err)
		c.status(StatusMicrophone)
		return fmt.Errorf("open microphone: %w", err)
	}
	c.log.Infof("Microphone access granted: %s", capture.DeviceName())

	rec := recorder.New(c.cfg.Timeslice)
	rec.OnChunk = func(_, size int) {
		c.log.Infof("Received audio chunk: %d bytes", size)
	}
	an := sess.Analyser
	an.Reset()
	capture.SetCallback(func(data []byte, _ uint32) {
		rec.Write(data)
		an.WritePCM16(data)
	})

	if err := rec.Start(); err != nil {
		capture.Close()
		c.log.Errorf("Error starting recording: %v", err)
		c.status(StatusMicrophone)
		return err
	}
	if err := capture.Start(); err != nil {
		rec.Stop()
		capture.ClearCallback()
		capture.Close()
		c.log.Errorf("Error starting recording: %v", err)
		c.status(StatusMicrophone)
		return fmt.Errorf("start capture: %w", err)
	}
	c.log.Infof("Started recording with %dms chunks", c.cfg.Timeslice.Milliseconds())

	stopMon := make(chan struct{})
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.release(sess, capture, rec)
		return ErrClosed
	}
	c.capture = capture
	c.rec = rec
	c.began = time.Now()
	c.stopMon = stopMon
	c.state = Recording
	c.mu.Unlock()

	sess.Visualizer.Start()
	c.log.Info("Audio visualizer started")
	go c.monitor(an, stopMon)

	c.sink.StateChanged(Recording)
	c.status(StatusListening)
	return nil
}

// monitor warns about long quiet stretches and enforces MaxRecording.
func (c *Controller) monitor(an *audio.Analyser, stop <-chan struct{}) {
	mon := newQuietMonitor(c.cfg.MaxRecording)
	buf := make([]uint8, an.FrequencyBinCount())
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		// the visualizer loop owns the smoothing; only read its last frame
		n := an.LastByteFrequencyData(buf)
		level := visualizer.BandAverage(buf[:n], 0.2, 0.8)
		switch mon.Tick(level >= quietLevel) {
		case QuietWarn:
			c.log.Warnf("No acoustic signal for %s. Move closer to the source.", quietWarnAfter)
		case QuietClear:
			c.log.Info("Acoustic signal resumed")
		case QuietLimit:
			c.log.Infof("Maximum recording length %s reached, stopping", c.cfg.MaxRecording)
			c.Stop()
			return
		}
	}
}

// Stop ends the recording and processes it. Outside Recording it returns a
// closed channel.
func (c *Controller) Stop() <-chan struct{} {
	c.mu.Lock()
	if c.state != Recording {
		c.mu.Unlock()
		return closedChan()
	}
	c.state = Processing
	done := make(chan struct{})
	c.done = done
	sess, capture, rec, stopMon := c.sess, c.capture, c.rec, c.stopMon
	dur := time.Since(c.began)
	c.capture, c.rec, c.stopMon = nil, nil, nil
	c.mu.Unlock()

	c.log.Info("Stopping recording...")
	c.sink.StateChanged(Processing)
	c.status(StatusProcessing)
	close(stopMon)

	go func() {
		defer close(done)
		chunks := c.release(sess, capture, rec)
		out := c.run(sess, chunks, dur)

		c.mu.Lock()
		c.last = out
		sess.recordings++
		if out.Verified {
			sess.verified++
		}
		closed := c.closed
		c.mu.Unlock()

		c.sink.Outcome(out)
		if !closed {
			c.setState(Ready)
		}
	}()
	return done
}

// release stops capture and the visualizer and frees the microphone.
func (c *Controller) release(sess *Session, capture audio.CaptureDevice, rec *recorder.Recorder) [][]byte {
	capture.Stop()
	capture.ClearCallback()
	chunks := rec.Stop()
	sess.Visualizer.Stop()
	c.log.Info("Audio visualizer stopped")
	capture.Close()
	return chunks
}

// run guards process against panics so the controller always returns to
// Ready.
func (c *Controller) run(sess *Session, chunks [][]byte, dur time.Duration) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			c.log.Errorf("Error processing recording: %v", p)
			out = Outcome{SessionID: sess.ID, Duration: dur, Status: StatusProcessFailed, Err: fmt.Errorf("panic: %v", p)}
			c.status(out.Status)
		}
	}()
	return c.process(c.ctx, sess, chunks, dur)
}

// Close abandons any recording without processing and releases the
// session. It waits for in-flight processing, whose server call is
// cancelled.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	capture, rec, stopMon, done, sess := c.capture, c.rec, c.stopMon, c.done, c.sess
	wasRecording := c.state == Recording
	c.capture, c.rec, c.stopMon = nil, nil, nil
	c.state = Idle
	c.mu.Unlock()

	c.cancel()
	if wasRecording {
		close(stopMon)
		c.release(sess, capture, rec)
	}
	if done != nil {
		<-done
	}
	if sess != nil {
		log.SessionEnd(c.Counts())
		sess.release()
	}
	c.sink.StateChanged(Idle)
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
