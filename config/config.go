package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"voxverify/visualizer"
)

// Config holds runtime settings. Flags in main override these values.
type Config struct {
	ServerURL      string
	SampleRate     int
	FFTSize        int
	Constrained    bool // 500ms timeslice instead of 1000ms
	MaxRecording   time.Duration
	DecoderCmd     string
	Visualizer     string
	ArchiveDir     string // FLAC copy of every recording when set
	RequestTimeout time.Duration
}

func Default() *Config {
	return &Config{
		ServerURL:      "http://localhost:6000",
		SampleRate:     48000,
		FFTSize:        256,
		MaxRecording:   30 * time.Second,
		DecoderCmd:     "ggwave-from-file {wav}",
		Visualizer:     visualizer.ModeAuto,
		RequestTimeout: 15 * time.Second,
	}
}

// Load reads an optional .env file, then environment variables, on top of Default.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	config := Default()

	if server := getenv("VOXVERIFY_SERVER_URL"); server != "" {
		config.ServerURL = strings.TrimRight(server, "/")
	}

	if rate := getenv("VOXVERIFY_SAMPLE_RATE"); rate != "" {
		r, err := strconv.Atoi(rate)
		if err != nil {
			return nil, fmt.Errorf("invalid VOXVERIFY_SAMPLE_RATE: %w", err)
		}
		config.SampleRate = r
	}

	if size := getenv("VOXVERIFY_FFT_SIZE"); size != "" {
		s, err := strconv.Atoi(size)
		if err != nil {
			return nil, fmt.Errorf("invalid VOXVERIFY_FFT_SIZE: %w", err)
		}
		config.FFTSize = s
	}

	if constrained := getenv("VOXVERIFY_CONSTRAINED"); constrained != "" {
		c, err := strconv.ParseBool(constrained)
		if err != nil {
			return nil, fmt.Errorf("invalid VOXVERIFY_CONSTRAINED: %w", err)
		}
		config.Constrained = c
	}

	if maxRec := getenv("VOXVERIFY_MAX_RECORDING"); maxRec != "" {
		d, err := time.ParseDuration(maxRec)
		if err != nil {
			return nil, fmt.Errorf("invalid VOXVERIFY_MAX_RECORDING: %w", err)
		}
		config.MaxRecording = d
	}

	if cmd := getenv("VOXVERIFY_DECODER_CMD"); cmd != "" {
		config.DecoderCmd = cmd
	}

	if vis := getenv("VOXVERIFY_VISUALIZER"); vis != "" {
		config.Visualizer = vis
	}

	if archive := getenv("VOXVERIFY_ARCHIVE_DIR"); archive != "" {
		config.ArchiveDir = archive
	}

	if timeout := getenv("VOXVERIFY_REQUEST_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid VOXVERIFY_REQUEST_TIMEOUT: %w", err)
		}
		config.RequestTimeout = d
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q: must be http(s)://host[:port]", c.ServerURL)
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	// Analyser sizes follow the power-of-two range of an AnalyserNode.
	if c.FFTSize < 32 || c.FFTSize > 32768 || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("invalid FFT size %d: must be a power of two in [32, 32768]", c.FFTSize)
	}
	if c.MaxRecording < 0 {
		return fmt.Errorf("invalid max recording %s", c.MaxRecording)
	}
	if strings.TrimSpace(c.DecoderCmd) == "" {
		return fmt.Errorf("decoder command is empty")
	}
	switch c.Visualizer {
	case visualizer.ModeAuto, visualizer.ModeSphere, visualizer.ModePulse:
	default:
		return fmt.Errorf("invalid visualizer %q: must be 'auto', 'sphere', or 'pulse'", c.Visualizer)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout %s", c.RequestTimeout)
	}
	return nil
}

// Timeslice is the chunk interval for the recorder.
func (c *Config) Timeslice() time.Duration {
	if c.Constrained {
		return 500 * time.Millisecond
	}
	return time.Second
}
