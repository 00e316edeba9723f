package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("VOXVERIFY_LOG_PATH", "/tmp/voxverify-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/voxverify-env-log" {
		t.Errorf("got %q, want /tmp/voxverify-env-log", got)
	}
}

func TestResolveDirFlagBeatsEnv(t *testing.T) {
	t.Setenv("VOXVERIFY_LOG_PATH", "/tmp/from-env")
	got, err := ResolveDir("/tmp/from-flag")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/from-flag" {
		t.Errorf("got %q, want /tmp/from-flag", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("VOXVERIFY_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "voxverify") {
		t.Errorf("default dir %q does not mention voxverify", got)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"diagnostics_log.txt", "signatures_log.txt"} {
		path := filepath.Join(tmp, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestDiagnosticsWritten(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Warnf("quiet for %d ms", 8000)
	SessionStart("abc", "http://localhost:6000", 48000)
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"quiet for 8000 ms", "session_start", "sample_rate=48000"} {
		if !strings.Contains(out, want) {
			t.Errorf("diagnostics missing %q, got: %q", want, out)
		}
	}
}

func TestSignature(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Signature("Agent A")

	data, err := os.ReadFile(filepath.Join(tmp, "signatures_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, "Agent A") {
		t.Errorf("signatures_log.txt missing text, got: %q", line)
	}
	// format: "2006-01-02 15:04:05\t[pid]\ttext\n"
	if strings.Count(line, "\t") != 2 {
		t.Errorf("expected tab-separated format, got: %q", line)
	}
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	setupLogDir(t)
	Info("dropped")
	Signature("dropped")
	SessionEnd(1, 0)
}

func TestCrashFile(t *testing.T) {
	tmp := setupLogDir(t)

	f, err := CrashFile()
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("boom\n")
	f.Close()

	if _, err := os.Stat(filepath.Join(tmp, "crash_log.txt")); err != nil {
		t.Errorf("crash_log.txt not created: %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
