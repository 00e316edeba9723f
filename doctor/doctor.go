package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"voxverify/audio"
	"voxverify/config"
	"voxverify/decoder"
	"voxverify/hotkey"
	"voxverify/validate"
	"voxverify/visualizer"
)

const micDuration = 2 * time.Second

// Checks lets tests replace the hardware-facing parts.
type Checks struct {
	NewAudio func() (audio.Context, error)
	Decoder  decoder.Factory
	Client   *validate.Client
	Hotkey   func() hotkey.Hotkey
	In       io.Reader
	Out      io.Writer

	MicDuration time.Duration
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(cfg *config.Config, withHotkey bool) int {
	resetTerminal()
	setupInterruptHandler()

	c := Checks{
		NewAudio: audio.NewContext,
		Decoder:  decoder.NewExec(cfg.DecoderCmd),
		Client:   validate.New(cfg.ServerURL, cfg.RequestTimeout),
		In:       os.Stdin,
		Out:      os.Stdout,
	}
	if withHotkey {
		c.Hotkey = hotkey.New
	}
	return c.Run(cfg)
}

func (c Checks) Run(cfg *config.Config) int {
	fmt.Fprintln(c.Out, "voxverify doctor - interactive system diagnostics")
	fmt.Fprintln(c.Out, "=================================================")

	steps := []func(*config.Config, string) bool{c.checkMic, c.checkDecoder, c.checkServer}
	if c.Hotkey != nil {
		steps = append(steps, c.checkHotkey)
	}

	allPass := true
	for i, step := range steps {
		if !step(cfg, fmt.Sprintf("[%d/%d]", i+1, len(steps))) {
			allPass = false
		}
	}

	fmt.Fprintln(c.Out)
	if allPass {
		fmt.Fprintln(c.Out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(c.Out, "Some checks failed. See details above.")
	return 1
}

func (c Checks) checkMic(cfg *config.Config, n string) bool {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, n, "Microphone")

	actx, err := c.NewAudio()
	if err != nil {
		fmt.Fprintf(c.Out, "  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer actx.Close()

	devices, err := actx.Devices()
	if err != nil {
		fmt.Fprintf(c.Out, "  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Fprintln(c.Out, "  FAIL: no capture devices found")
		return false
	}

	device, ok := c.pickDevice(devices)
	if !ok {
		return false
	}
	if audio.IsBluetooth(device.Name) {
		fmt.Fprintln(c.Out, "  Warning: Bluetooth microphones usually cut off ultrasonic frequencies")
	}

	d := c.MicDuration
	if d <= 0 {
		d = micDuration
	}
	stop := make(chan struct{})
	go func() {
		time.Sleep(d)
		close(stop)
	}()
	pcm, err := c.record(actx, device, cfg.SampleRate, stop)
	if err != nil {
		fmt.Fprintf(c.Out, "  FAIL: recording error: %v\n", err)
		return false
	}
	if len(pcm) == 0 {
		fmt.Fprintln(c.Out, "  FAIL: no audio captured")
		return false
	}

	samples := audio.PCM16ToFloat32(pcm)
	peak, mean := audio.Stats(samples)
	fmt.Fprintf(c.Out, "  Recorded %.1f KB, max amplitude %.4f, avg amplitude %.4f\n",
		float64(len(pcm))/1024, peak, mean)

	an, err := audio.NewAnalyser(cfg.FFTSize)
	if err != nil {
		fmt.Fprintf(c.Out, "  FAIL: analyser: %v\n", err)
		return false
	}
	an.Write(samples)
	spectrum := make([]uint8, an.FrequencyBinCount())
	an.ByteFrequencyData(spectrum)
	fmt.Fprintf(c.Out, "  Band energy %.1f (upper band %.1f)\n",
		visualizer.Mean(spectrum), visualizer.BandAverage(spectrum, 0.5, 1))

	if peak == 0 {
		fmt.Fprintln(c.Out, "  FAIL: microphone delivered only silence")
		return false
	}
	fmt.Fprintln(c.Out, "  PASS: microphone captured audio")
	return true
}

func (c Checks) pickDevice(devices []audio.DeviceInfo) (*audio.DeviceInfo, bool) {
	if len(devices) == 1 {
		fmt.Fprintf(c.Out, "Using device: %s\n", devices[0].Name)
		return &devices[0], true
	}
	fmt.Fprintln(c.Out, "Select input device:")
	for i, d := range devices {
		fmt.Fprintf(c.Out, "  %d. %s\n", i+1, d.Name)
	}
	fmt.Fprintf(c.Out, "Choice [1-%d]: ", len(devices))

	line, _ := bufio.NewReader(c.In).ReadString('\n')
	line = strings.TrimSpace(line)
	idx := 0
	if line != "" {
		fmt.Sscanf(line, "%d", &idx)
		idx--
	}
	if idx < 0 || idx >= len(devices) {
		fmt.Fprintln(c.Out, "  FAIL: invalid choice")
		return nil, false
	}
	fmt.Fprintf(c.Out, "Selected: %s\n", devices[idx].Name)
	return &devices[idx], true
}

func (c Checks) record(actx audio.Context, device *audio.DeviceInfo, rate int, stop <-chan struct{}) ([]byte, error) {
	var pcmBuf []byte
	var bufMu sync.Mutex
	var stopped bool
	done := make(chan struct{})

	captureDevice, err := actx.NewCapture(device, audio.DefaultCaptureConfig(rate))
	if err != nil {
		return nil, err
	}

	captureDevice.SetCallback(func(data []byte, frameCount uint32) {
		bufMu.Lock()
		if !stopped {
			pcmBuf = append(pcmBuf, data...)
		}
		bufMu.Unlock()
	})

	if err := captureDevice.Start(); err != nil {
		captureDevice.Close()
		return nil, err
	}

	fmt.Fprint(c.Out, "  Recording")
	ticker := time.NewTicker(500 * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Fprint(c.Out, ".")
			}
		}
	}()

	<-stop
	close(done)

	captureDevice.Stop()
	fmt.Fprintln(c.Out, " done")
	captureDevice.Close()

	bufMu.Lock()
	stopped = true
	raw := pcmBuf
	bufMu.Unlock()

	return raw, nil
}

func (c Checks) checkDecoder(cfg *config.Config, n string) bool {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, n, "Decode engine")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c.Decoder == nil {
		fmt.Fprintf(c.Out, "  FAIL: %v\n", decoder.ErrNoEngine)
		return false
	}
	m, err := c.Decoder(ctx)
	if err != nil {
		fmt.Fprintf(c.Out, "  FAIL: cannot load decoder: %v\n", err)
		return false
	}
	inst, params, err := decoder.Setup(m, float64(cfg.SampleRate))
	if err != nil {
		fmt.Fprintf(c.Out, "  FAIL: decoder init: %v\n", err)
		return false
	}
	m.Free(inst)
	fmt.Fprintf(c.Out, "  PASS: %s ready (input %.0fHz, %d samples/frame)\n",
		m.Name(), params.SampleRateInp, params.SamplesPerFrame)
	return true
}

func (c Checks) checkServer(cfg *config.Config, n string) bool {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, n, "Validation server")

	if c.Client == nil {
		fmt.Fprintln(c.Out, "  FAIL: no server configured")
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	sigs, err := c.Client.Signatures(ctx)
	if err != nil {
		fmt.Fprintf(c.Out, "  FAIL: %s: %v\n", c.Client.BaseURL(), err)
		return false
	}
	fmt.Fprintf(c.Out, "  PASS: %s knows %d signature(s)\n", c.Client.BaseURL(), len(sigs))
	return true
}

func (c Checks) checkHotkey(_ *config.Config, n string) bool {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, n, "Hotkey detection")

	if info, err := hotkey.Diagnose(); err != nil {
		fmt.Fprintf(c.Out, "  FAIL: %v\n", err)
		return false
	} else if info != "" {
		fmt.Fprintf(c.Out, "  %s\n", info)
	}
	fmt.Fprintf(c.Out, "Press %s...\n", hotkey.Label)

	hk := c.Hotkey()
	if err := hk.Register(); err != nil {
		fmt.Fprintf(c.Out, "  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Fprintln(c.Out, "  PASS: hotkey detected")
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// the evdev reader can leave the terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Fprintln(c.Out, "  FAIL: timeout waiting for hotkey")
		return false
	}
}
