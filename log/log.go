package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	diagLog       zerolog.Logger
	diagWriter    *lumberjack.Logger
	signatureFile *os.File
	logMu         sync.Mutex
	logReady      bool
	pid           int
	dir           string
)

// Rotation limits for diagnostics_log.txt.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

type Metrics struct {
	AudioLengthS float64
	ChunkCount   int
	RawSizeKB    float64
	DecodeTimeMs float64
	DNSTimeMs    float64
	TLSTimeMs    float64
	TTFBMs       float64
	TotalTimeMs  float64
	StatusCode   int
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: VOXVERIFY_LOG_PATH environment variable
	if envPath := os.Getenv("VOXVERIFY_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	signaturePath := filepath.Join(dir, "signatures_log.txt")
	signatureFile, err = os.OpenFile(signaturePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	diagWriter = &lumberjack.Logger{
		Filename:   filepath.Join(dir, "diagnostics_log.txt"),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	// lumberjack creates the file lazily; touch it so the path exists after Init.
	if _, err := diagWriter.Write(nil); err != nil {
		signatureFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagWriter,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagWriter != nil {
		diagWriter.Close()
		diagWriter = nil
	}
	if signatureFile != nil {
		signatureFile.Close()
		signatureFile = nil
	}
	logReady = false
}

// CrashFile opens crash_log.txt in the log directory for appending.
func CrashFile() (*os.File, error) {
	if dir == "" {
		return nil, fmt.Errorf("log directory not set")
	}
	if err := EnsureDir(); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func ValidationMetrics(m Metrics, requestID string, connReused bool, tlsProto string) {
	if !logReady {
		return
	}

	connStatus := "new"
	if connReused {
		connStatus = "reused"
	}

	ev := diagLog.Info().
		Str("request_id", requestID).
		Str("conn", connStatus)
	if tlsProto != "" {
		ev = ev.Str("tls_proto", tlsProto)
	}
	ev.Int("status", m.StatusCode).
		Float64("audio_s", m.AudioLengthS).
		Int("chunks", m.ChunkCount).
		Float64("raw_kb", m.RawSizeKB).
		Float64("decode_ms", m.DecodeTimeMs).
		Float64("dns_ms", m.DNSTimeMs).
		Float64("tls_ms", m.TLSTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalTimeMs).
		Msg("validation")
}

// Signature appends a verified message to signatures_log.txt.
func Signature(text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	signatureFile.WriteString(line)
}

func SessionStart(sessionID, server string, sampleRate int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", sessionID).
		Str("server", server).
		Int("sample_rate", sampleRate).
		Msg("session_start")
}

func SessionEnd(recordings, verified int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("recordings", recordings).
		Int("verified", verified).
		Msg("session_end")
}
