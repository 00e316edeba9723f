package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"

	"voxverify/audio"
	"voxverify/beep"
	"voxverify/clipboard"
	"voxverify/config"
	"voxverify/controller"
	"voxverify/decoder"
	"voxverify/doctor"
	"voxverify/encoder"
	"voxverify/hotkey"
	"voxverify/log"
	"voxverify/shutdown"
	"voxverify/validate"
	"voxverify/visualizer"
)

var version = "dev"

var (
	guiMode bool
	sink    = &sinks{}
	ctrl    *controller.Controller
)

var shutdownOnce sync.Once

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		if ctrl != nil {
			ctrl.Close()
		}
		log.Close()
		quitGUI()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

// argValue finds -name value or -name=value before flag parsing.
func argValue(args []string, name string) string {
	for i, a := range args {
		a = strings.TrimLeft(a, "-")
		if a == name && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, name+"="); ok {
			return v
		}
	}
	return ""
}

func hasArg(args []string, name string) bool {
	for _, a := range args {
		if strings.TrimLeft(a, "-") == name {
			return true
		}
	}
	return false
}

// initCrashLog routes fatal runtime output to crash_log.txt.
func initCrashLog() {
	dir, err := log.ResolveDir(argValue(os.Args[1:], "logpath"))
	if err != nil {
		return
	}
	log.SetDir(dir)
	crashFile, err := log.CrashFile()
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT! ultrasonic band likely cut)"
		}
	}
	return "mic: " + name + suffix
}

func controllerConfig(cfg *config.Config, dev *audio.DeviceInfo) controller.Config {
	return controller.Config{
		SampleRate:   cfg.SampleRate,
		FFTSize:      cfg.FFTSize,
		Timeslice:    cfg.Timeslice(),
		MaxRecording: cfg.MaxRecording,
		Device:       dev,
		Server:       cfg.ServerURL,
	}
}

func buildDeps(cfg *config.Config, saveDir string, newAudio func() (audio.Context, error)) controller.Deps {
	primary, fallback := visualizer.Constructors(cfg.Visualizer, termenv.ColorProfile(), visualizer.DefaultSphereOptions())
	return controller.Deps{
		NewAudio:  newAudio,
		Decoder:   decoder.NewExec(cfg.DecoderCmd),
		Validator: validate.New(cfg.ServerURL, cfg.RequestTimeout),
		Visualizer: func(l visualizer.Logger) *visualizer.Visualizer {
			return visualizer.Setup(primary, fallback, l)
		},
		Archive: archiver(cfg.ArchiveDir, saveDir),
	}
}

// archiver stores each recording as FLAC under flacDir and as WAV under
// wavDir. Either may be empty.
func archiver(flacDir, wavDir string) func(pcm []byte, sampleRate int) error {
	if flacDir == "" && wavDir == "" {
		return nil
	}
	return func(pcm []byte, sampleRate int) error {
		var errs []error
		if flacDir != "" {
			path, err := encoder.WriteArchive(flacDir, pcm, sampleRate)
			if err != nil {
				errs = append(errs, err)
			} else {
				log.Info("archived recording: " + path)
			}
		}
		if wavDir != "" {
			if err := saveWAV(wavDir, pcm, sampleRate); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func saveWAV(dir string, pcm []byte, sampleRate int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	name := strings.TrimSuffix(encoder.ArchiveName(time.Now()), ".flac") + ".wav"
	path := filepath.Join(dir, name)
	if err := audio.WriteWAVFile(path, audio.PCM16ToFloat32(pcm), sampleRate); err != nil {
		return err
	}
	log.Info("saved recording: " + path)
	return nil
}

func resolveDevice(setup bool, name string) *audio.DeviceInfo {
	if !setup && name == "" {
		return nil
	}
	actx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	if name != "" {
		devices, err := actx.Devices()
		if err == nil {
			for i := range devices {
				if devices[i].Name == name {
					return &devices[i]
				}
			}
		}
		fmt.Printf("Warning: device %q not found, using default\n", name)
		return nil
	}
	dev, err := audio.SelectDevice(actx)
	if err != nil {
		log.Warnf("device selection failed: %v", err)
		fmt.Printf("Warning: device selection failed: %v\n", err)
		fmt.Println("Falling back to default device")
		return nil
	}
	return dev
}

func run() {
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	serverFlag := flag.String("server", "", "Validation server base URL (overrides VOXVERIFY_SERVER_URL)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	visFlag := flag.String("visualizer", "", "Visualizer: auto, sphere, or pulse")
	constrainedFlag := flag.Bool("constrained", false, "Use 500ms recorder chunks")
	saveFlag := flag.String("save", "", "Directory to save every recording as WAV")
	fileFlag := flag.String("file", "", "Decode and validate a WAV file, then exit")
	hotkeyFlag := flag.Bool("hotkey", false, "Toggle recording with "+hotkey.Label)
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	flag.Bool("gui", false, "Run the desktop window (requires -tags gui)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("voxverify %s\n", version)
		os.Exit(0)
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if *serverFlag != "" {
		cfg.ServerURL = strings.TrimRight(*serverFlag, "/")
	}
	if *visFlag != "" {
		cfg.Visualizer = *visFlag
	}
	if *constrainedFlag {
		cfg.Constrained = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if *doctorFlag {
		os.Exit(doctor.Run(cfg, *hotkeyFlag))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: voxverify -test <wav-file>")
			os.Exit(1)
		}
		os.Exit(runTestMode(cfg, args[0], *saveFlag, os.Stdin, os.Stdout))
	}
	if *fileFlag != "" {
		os.Exit(runFileMode(cfg, *fileFlag, *saveFlag, os.Stdout))
	}

	device := resolveDevice(*setupFlag, *deviceFlag)

	ctrl = controller.New(controllerConfig(cfg, device), buildDeps(cfg, *saveFlag, audio.NewContext), sink)
	sink.add(cueSink{})
	go beep.Init()

	toggle := func() {
		if _, err := ctrl.Toggle(context.Background()); err != nil {
			log.Errorf("toggle error: %v", err)
		}
	}
	copyLast := func() error {
		o := ctrl.LastOutcome()
		if !o.Verified {
			return errors.New("no verified message")
		}
		return clipboard.Copy(o.Status)
	}

	shutdown.Handle(func(sig os.Signal) {
		log.Info("signal: " + sig.String())
		gracefulShutdown()
	})

	if *hotkeyFlag {
		hk := hotkey.New()
		if err := hk.Register(); err != nil {
			log.Errorf("hotkey register error: %v", err)
			fmt.Printf("Error registering hotkey: %v\n", err)
			os.Exit(1)
		}
		defer hk.Unregister()
		toggler := hotkey.NewToggler(hk, hotkey.DefaultDebounce)
		defer toggler.Close()
		go func() {
			for range toggler.C() {
				toggle()
			}
		}()
	}

	if guiMode {
		attachGUI(toggle, gracefulShutdown)
		select {}
	}

	tuiMu.Lock()
	tuiProgram = NewTUIProgram(tuiActions{Toggle: toggle, Copy: copyLast, Quit: gracefulShutdown})
	tuiMu.Unlock()
	sink.add(tuiSink{c: ctrl})

	go func() {
		tuiSend(deviceLineMsg{Text: deviceLineText(device)})
		if err := visualizer.PrimaryAvailable(cfg.Visualizer, termenv.ColorProfile()); err != nil {
			tuiSend(visualizerLineMsg{Text: "visualizer: pulse (" + err.Error() + ")"})
		}
	}()

	if _, err := tuiProgram.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		os.Exit(1)
	}
	gracefulShutdown()
}
