package controller

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"voxverify/audio"
	"voxverify/decoder"
	"voxverify/validate"
	"voxverify/visualizer"
)

type recordSink struct {
	mu       sync.Mutex
	states   []State
	statuses []string
	entries  []Entry
	outcomes []Outcome
	outCh    chan Outcome
}

func newRecordSink() *recordSink {
	return &recordSink{outCh: make(chan Outcome, 16)}
}

func (s *recordSink) StateChanged(st State) {
	s.mu.Lock()
	s.states = append(s.states, st)
	s.mu.Unlock()
}

func (s *recordSink) Status(text string) {
	s.mu.Lock()
	s.statuses = append(s.statuses, text)
	s.mu.Unlock()
}

func (s *recordSink) LogEntry(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

func (s *recordSink) Outcome(o Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
	s.outCh <- o
}

func (s *recordSink) Frame(*visualizer.Frame) {}

func (s *recordSink) lastStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

func (s *recordSink) hasStatus(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.statuses, text)
}

func (s *recordSink) countLevel(level Level) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// tone returns d of a 1 kHz sine as 16-bit PCM.
func tone(d time.Duration) []byte {
	n := int(d.Seconds() * audio.DefaultSampleRate)
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*1000*float64(i)/audio.DefaultSampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

type harness struct {
	c    *Controller
	ctx  *audio.FakeContext
	dec  *decoder.Fake
	val  *validate.Fake
	sink *recordSink
}

func newHarness(t *testing.T, payload []byte, result *validate.Result) *harness {
	t.Helper()
	h := &harness{
		ctx:  audio.NewFakeContextPCM(tone(500*time.Millisecond), audio.DefaultSampleRate, false),
		dec:  decoder.NewFake(payload, nil),
		val:  validate.NewFake(result, nil),
		sink: newRecordSink(),
	}
	h.c = New(Config{Timeslice: 50 * time.Millisecond}, h.deps(), h.sink)
	t.Cleanup(h.c.Close)
	return h
}

func (h *harness) deps() Deps {
	return Deps{
		NewAudio:  func() (audio.Context, error) { return h.ctx, nil },
		Decoder:   h.dec.Factory(nil),
		Validator: h.val,
	}
}

// record runs one full recording and waits for its outcome.
func (h *harness) record(t *testing.T) Outcome {
	t.Helper()
	if err := h.c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if st := h.c.State(); st != Recording {
		t.Fatalf("state after Start = %s, want recording", st)
	}
	select {
	case <-h.c.Stop():
	case <-time.After(5 * time.Second):
		t.Fatal("processing did not finish")
	}
	return h.c.LastOutcome()
}

func verifiedResult(msg string) *validate.Result {
	return &validate.Result{Status: "success", Verified: true, ExtractedMessage: msg}
}

func TestVerifiedSignatureAgainstServer(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/validate" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","verified":true,"extracted_message":"Agent A"}`))
	}))
	defer srv.Close()

	h := newHarness(t, []byte("hello"), nil)
	deps := h.deps()
	deps.Validator = validate.New(srv.URL, time.Second)
	h.c = New(Config{Timeslice: 50 * time.Millisecond}, deps, h.sink)
	defer h.c.Close()

	out := h.record(t)

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 {
		t.Fatalf("validate calls = %d, want 1", len(bodies))
	}
	if bodies[0]["decoded_text"] != "hello" {
		t.Errorf("decoded_text = %q, want hello", bodies[0]["decoded_text"])
	}
	if got := h.sink.lastStatus(); got != "Agent A" {
		t.Errorf("status = %q, want Agent A", got)
	}
	if !out.Verified || out.Text != "hello" || out.Result == nil {
		t.Errorf("outcome = %+v", out)
	}
	if h.c.State() != Ready {
		t.Errorf("state = %s, want ready", h.c.State())
	}
	for _, want := range []string{StatusInitializing, StatusReady, StatusListening, StatusProcessing, "hello"} {
		if !h.sink.hasStatus(want) {
			t.Errorf("missing status %q", want)
		}
	}
}

func TestStateSequence(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("Agent A"))
	h.record(t)

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	want := []State{Initializing, Ready, Recording, Processing, Ready}
	if !slices.Equal(h.sink.states, want) {
		t.Errorf("states = %v, want %v", h.sink.states, want)
	}
}

func TestUnverifiedSignature(t *testing.T) {
	h := newHarness(t, []byte("hello"), &validate.Result{Status: "success", Verified: false})
	out := h.record(t)
	if got := h.sink.lastStatus(); got != StatusUnverified {
		t.Errorf("status = %q, want %q", got, StatusUnverified)
	}
	if out.Verified {
		t.Error("outcome marked verified")
	}
}

func TestServerMessageWithoutStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"No decoded text provided"}`))
	}))
	defer srv.Close()

	h := newHarness(t, []byte("hello"), nil)
	deps := h.deps()
	deps.Validator = validate.New(srv.URL, time.Second)
	h.c = New(Config{Timeslice: 50 * time.Millisecond}, deps, h.sink)
	defer h.c.Close()

	out := h.record(t)
	if got := h.sink.lastStatus(); got != "No decoded text provided" {
		t.Errorf("status = %q, want server message", got)
	}
	if out.Verified || h.sink.hasStatus(StatusServer) {
		t.Errorf("outcome = %+v, statuses include transport error", out)
	}
}

func TestServerErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		result *validate.Result
		want   string
	}{
		{"with message", &validate.Result{Status: "error", Message: "Invalid signature format"}, "Invalid signature format"},
		{"without message", &validate.Result{Status: "error"}, StatusInvalid},
		{"unknown status", &validate.Result{Status: "pending", Verified: true}, StatusInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, []byte("hello"), tt.result)
			h.record(t)
			if got := h.sink.lastStatus(); got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	h := newHarness(t, []byte("hello"), nil)
	h.val = validate.NewFake(nil, validate.ErrTransport)
	h.c = New(Config{}, h.deps(), h.sink)
	defer h.c.Close()

	out := h.record(t)
	if got := h.sink.lastStatus(); got != StatusServer {
		t.Errorf("status = %q, want %q", got, StatusServer)
	}
	if !errors.Is(out.Err, validate.ErrTransport) {
		t.Errorf("outcome err = %v", out.Err)
	}
	if h.c.State() != Ready {
		t.Errorf("state = %s, want ready", h.c.State())
	}
}

func TestNoSignalSkipsValidation(t *testing.T) {
	h := newHarness(t, nil, verifiedResult("Agent A"))
	h.record(t)
	if got := h.sink.lastStatus(); got != StatusNoSignal {
		t.Errorf("status = %q, want %q", got, StatusNoSignal)
	}
	if n := len(h.val.Texts()); n != 0 {
		t.Errorf("validate called %d times", n)
	}
	if h.dec.Calls() != 1 {
		t.Errorf("decode calls = %d, want 1", h.dec.Calls())
	}
}

func TestDecodeError(t *testing.T) {
	h := newHarness(t, nil, verifiedResult("x"))
	h.dec = decoder.NewFake(nil, errors.New("bad frame"))
	h.c = New(Config{}, h.deps(), h.sink)
	defer h.c.Close()

	h.record(t)
	if got := h.sink.lastStatus(); got != StatusDecode {
		t.Errorf("status = %q, want %q", got, StatusDecode)
	}
	if len(h.val.Texts()) != 0 {
		t.Error("validation ran after decode error")
	}
}

func TestEmptyRecordingIsFormatError(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("x"))
	h.ctx = audio.NewFakeContextPCM(nil, audio.DefaultSampleRate, false)
	h.c = New(Config{}, h.deps(), h.sink)
	defer h.c.Close()

	h.record(t)
	if got := h.sink.lastStatus(); got != StatusFormat {
		t.Errorf("status = %q, want %q", got, StatusFormat)
	}
	if h.dec.Calls() != 0 {
		t.Error("decoder ran on empty audio")
	}
}

func TestStartWhileRecordingIsNoop(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("Agent A"))
	ctx := context.Background()
	if err := h.c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	warnings := h.sink.countLevel(LevelWarning)
	if err := h.c.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if h.c.State() != Recording {
		t.Errorf("state = %s, want recording", h.c.State())
	}
	if n := len(h.ctx.Captures()); n != 1 {
		t.Errorf("captures opened = %d, want 1", n)
	}
	if h.sink.countLevel(LevelWarning) != warnings+1 {
		t.Error("ignored Start not logged as warning")
	}
	<-h.c.Stop()
	if n := len(h.val.Texts()); n != 1 {
		t.Errorf("validate calls = %d, want 1", n)
	}
}

// gatedValidator holds every Validate call until release is closed.
type gatedValidator struct {
	*validate.Fake
	entered chan struct{}
	release chan struct{}
}

func (g *gatedValidator) Validate(ctx context.Context, text string) (*validate.Result, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.Fake.Validate(ctx, text)
}

func TestStartWhileProcessingIsNoop(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("Agent A"))
	gate := &gatedValidator{Fake: h.val, entered: make(chan struct{}, 1), release: make(chan struct{})}
	deps := h.deps()
	deps.Validator = gate
	h.c = New(Config{Timeslice: 50 * time.Millisecond}, deps, h.sink)
	t.Cleanup(h.c.Close)

	ctx := context.Background()
	if err := h.c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	done := h.c.Stop()
	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("validator never called")
	}

	if err := h.c.Start(ctx); err != nil {
		t.Fatalf("Start while processing: %v", err)
	}
	if st := h.c.State(); st != Processing {
		t.Errorf("state = %s, want processing", st)
	}
	if n := len(h.ctx.Captures()); n != 1 {
		t.Errorf("captures opened = %d, want 1", n)
	}
	if recordings, _ := h.c.Counts(); recordings != 0 {
		t.Errorf("recordings = %d before processing finished", recordings)
	}

	close(gate.release)
	<-done
	if st := h.c.State(); st != Ready {
		t.Errorf("final state = %s, want ready", st)
	}
	if n := len(h.val.Texts()); n != 1 {
		t.Errorf("validate calls = %d, want 1", n)
	}
	if recordings, verified := h.c.Counts(); recordings != 1 || verified != 1 {
		t.Errorf("recordings=%d verified=%d", recordings, verified)
	}
}

func TestStopOutsideRecording(t *testing.T) {
	h := newHarness(t, nil, nil)
	select {
	case <-h.c.Stop():
	default:
		t.Fatal("Stop on idle controller returned an open channel")
	}
	if h.c.State() != Idle {
		t.Errorf("state = %s, want idle", h.c.State())
	}
}

func TestToggle(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("Agent A"))
	ctx := context.Background()

	done, err := h.c.Toggle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	<-done
	if h.c.State() != Recording {
		t.Fatalf("state = %s, want recording", h.c.State())
	}
	done, err = h.c.Toggle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	<-done
	if h.c.State() != Ready || h.sink.lastStatus() != "Agent A" {
		t.Errorf("state = %s status = %q", h.c.State(), h.sink.lastStatus())
	}

	// a second round reuses the session
	sess := h.c.Session()
	h.record(t)
	if h.c.Session() != sess {
		t.Error("session recreated")
	}
	if len(h.dec.Inits()) != 1 {
		t.Errorf("decoder inits = %d, want 1", len(h.dec.Inits()))
	}
	if recordings, verified := h.c.Counts(); recordings != 2 || verified != 2 {
		t.Errorf("recordings=%d verified=%d", recordings, verified)
	}
}

func TestAudioInitFailure(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("x"))
	deps := h.deps()
	deps.NewAudio = func() (audio.Context, error) { return nil, errors.New("no host") }
	h.c = New(Config{}, deps, h.sink)
	defer h.c.Close()

	if err := h.c.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if h.c.State() != Idle {
		t.Errorf("state = %s, want idle", h.c.State())
	}
	if got := h.sink.lastStatus(); got != StatusAudioInit {
		t.Errorf("status = %q, want %q", got, StatusAudioInit)
	}
}

func TestDecoderInitFailure(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("Agent A"))
	h.dec.InitErr = errors.New("out of memory")

	if err := h.c.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if h.c.State() != Idle {
		t.Errorf("state = %s, want idle", h.c.State())
	}
	if got := h.sink.lastStatus(); got != StatusDecoderInit {
		t.Errorf("status = %q, want %q", got, StatusDecoderInit)
	}
	if !h.ctx.Closed() {
		t.Error("audio context not released")
	}
	if len(h.ctx.Captures()) != 0 {
		t.Error("microphone opened after failed init")
	}

	// the next toggle retries from scratch
	h.dec.InitErr = nil
	h.record(t)
	if got := h.sink.lastStatus(); got != "Agent A" {
		t.Errorf("status after retry = %q", got)
	}
}

func TestDecoderFactoryFailure(t *testing.T) {
	h := newHarness(t, nil, nil)
	deps := h.deps()
	deps.Decoder = h.dec.Factory(decoder.ErrNoEngine)
	h.c = New(Config{}, deps, h.sink)
	defer h.c.Close()

	err := h.c.Start(context.Background())
	if !errors.Is(err, decoder.ErrNoEngine) {
		t.Errorf("err = %v, want ErrNoEngine", err)
	}
	if got := h.sink.lastStatus(); got != StatusDecoderInit {
		t.Errorf("status = %q", got)
	}
}

func TestMicrophoneFailure(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("x"))
	h.ctx.CaptureErr = errors.New("permission denied")

	if err := h.c.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if h.c.State() != Ready {
		t.Errorf("state = %s, want ready", h.c.State())
	}
	if got := h.sink.lastStatus(); got != StatusMicrophone {
		t.Errorf("status = %q, want %q", got, StatusMicrophone)
	}
	if !h.c.Session().Initialized() {
		t.Error("session torn down after capture failure")
	}
}

func TestParametersFollowSampleRate(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("x"))
	h.dec.Defaults = &decoder.Parameters{SampleRateInp: 44100, SampleRateOut: 44100, SamplesPerFrame: 1024}
	h.record(t)

	inits := h.dec.Inits()
	if len(inits) != 1 {
		t.Fatalf("inits = %d", len(inits))
	}
	want := decoder.Parameters{SampleRateInp: 48000, SampleRateOut: 48000, SamplesPerFrame: 1024}
	if inits[0] != want {
		t.Errorf("params = %+v, want %+v", inits[0], want)
	}
}

func TestDecoderReceivesFloat32Samples(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("x"))
	h.record(t)

	in := h.dec.LastInput()
	samples := len(tone(500*time.Millisecond)) / 2
	if len(in) != samples*4 {
		t.Fatalf("decoder input = %d bytes, want %d", len(in), samples*4)
	}
	got, err := audio.BytesToFloat32(in)
	if err != nil {
		t.Fatal(err)
	}
	peak, _ := audio.Stats(got)
	if peak < 0.2 || peak > 0.3 {
		t.Errorf("peak = %v, want ~0.244", peak)
	}
}

func TestDecoderReinitDuringProcessing(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("Agent A"))
	h.record(t)
	h.c.Session().freeDecoder()

	h.record(t)
	if len(h.dec.Inits()) != 2 {
		t.Errorf("inits = %d, want 2", len(h.dec.Inits()))
	}
	if got := h.sink.lastStatus(); got != "Agent A" {
		t.Errorf("status = %q", got)
	}

	h.c.Session().freeDecoder()
	h.dec.InitErr = errors.New("gone")
	h.record(t)
	if got := h.sink.lastStatus(); got != StatusDecoderRefresh {
		t.Errorf("status = %q, want %q", got, StatusDecoderRefresh)
	}
	if h.c.State() != Ready {
		t.Errorf("state = %s, want ready", h.c.State())
	}
}

func TestRawPayloadRendering(t *testing.T) {
	h := newHarness(t, []byte{0xff, 0xfe, 0x41}, verifiedResult("x"))
	out := h.record(t)
	if texts := h.val.Texts(); len(texts) != 1 || texts[0] != "255,254,65" {
		t.Errorf("submitted = %v", texts)
	}
	if !out.Raw {
		t.Error("outcome not marked raw")
	}
	if h.sink.countLevel(LevelWarning) == 0 {
		t.Error("invalid UTF-8 not logged as warning")
	}
}

func TestLongTextTruncatedInStatus(t *testing.T) {
	long := strings.Repeat("a", 50)
	h := newHarness(t, []byte(long), verifiedResult("Agent A"))
	h.record(t)
	if !h.sink.hasStatus(strings.Repeat("a", 40) + "...") {
		t.Error("truncated text not shown")
	}
	if texts := h.val.Texts(); len(texts) != 1 || texts[0] != long {
		t.Errorf("server got %v, want full text", texts)
	}
}

func TestArchiveHook(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("x"))
	var got []byte
	var rate int
	deps := h.deps()
	deps.Archive = func(pcm []byte, sampleRate int) error {
		got, rate = pcm, sampleRate
		return errors.New("disk full")
	}
	h.c = New(Config{}, deps, h.sink)
	defer h.c.Close()

	h.record(t)
	if len(got) != len(tone(500*time.Millisecond)) || rate != 48000 {
		t.Errorf("archive got %d bytes at %d Hz", len(got), rate)
	}
	// archive failures never fail the recording
	if h.sink.lastStatus() != "x" {
		t.Errorf("status = %q", h.sink.lastStatus())
	}
}

func TestMaxRecordingStopsAutomatically(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("Agent A"))
	h.c = New(Config{MaxRecording: 300 * time.Millisecond}, h.deps(), h.sink)
	defer h.c.Close()

	if err := h.c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case out := <-h.sink.outCh:
		if out.Status != "Agent A" {
			t.Errorf("status = %q", out.Status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("recording did not stop on its own")
	}
}

func TestVisualizerFallback(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("Agent A"))
	deps := h.deps()
	deps.Visualizer = func(l visualizer.Logger) *visualizer.Visualizer {
		return visualizer.Setup(func() (visualizer.Renderer, error) {
			return nil, errors.New("no colour")
		}, func() visualizer.Renderer { return visualizer.NewPulse(44, 30) }, l)
	}
	h.c = New(Config{}, deps, h.sink)
	defer h.c.Close()

	h.record(t)
	sess := h.c.Session()
	if sess.UsingPrimaryVisualizer() {
		t.Error("primary reported active")
	}
	if h.sink.lastStatus() != "Agent A" {
		t.Errorf("status = %q", h.sink.lastStatus())
	}
}

func TestCloseReleasesSession(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("Agent A"))
	h.record(t)
	h.c.Close()
	h.c.Close()

	if !h.ctx.Closed() {
		t.Error("audio context still open")
	}
	if h.dec.Live() != 0 {
		t.Errorf("decoder instances live = %d", h.dec.Live())
	}
	if err := h.c.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close: err = %v", err)
	}
}

func TestCloseWhileRecordingSkipsProcessing(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("Agent A"))
	if err := h.c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.c.Close()

	if len(h.val.Texts()) != 0 || h.dec.Calls() != 0 {
		t.Error("recording processed on close")
	}
	caps := h.ctx.Captures()
	if len(caps) != 1 || !caps[0].Closed() {
		t.Error("microphone not released")
	}
	if h.c.State() != Idle {
		t.Errorf("state = %s, want idle", h.c.State())
	}
}

func TestMicrophoneReleasedAfterEachRecording(t *testing.T) {
	h := newHarness(t, []byte("hello"), verifiedResult("Agent A"))
	h.record(t)
	h.record(t)
	caps := h.ctx.Captures()
	if len(caps) != 2 {
		t.Fatalf("captures = %d, want 2", len(caps))
	}
	for i, c := range caps {
		if !c.Closed() {
			t.Errorf("capture %d left open", i)
		}
	}
}

func TestDebugLogBounded(t *testing.T) {
	var seen []Entry
	l := NewDebugLog(3, func(e Entry) { seen = append(seen, e) })
	for i := 0; i < 5; i++ {
		l.Infof("entry %d", i)
	}
	l.Error("boom")

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Message != "entry 3" || entries[2].Message != "boom" {
		t.Errorf("entries = %v", entries)
	}
	if entries[2].Level != LevelError {
		t.Errorf("level = %s", entries[2].Level)
	}
	if len(seen) != 6 {
		t.Errorf("callback saw %d entries, want 6", len(seen))
	}
	if !strings.HasSuffix(entries[2].String(), "] boom") {
		t.Errorf("String() = %q", entries[2].String())
	}
}
