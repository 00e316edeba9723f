package decoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"voxverify/audio"
)

func TestSetupOverridesSampleRate(t *testing.T) {
	f := NewFake(nil, nil)
	f.Defaults = &Parameters{SampleRateInp: 16000, SampleRateOut: 16000, SamplesPerFrame: 1024}
	_, p, err := Setup(f, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if p.SampleRateInp != 44100 || p.SampleRateOut != 44100 {
		t.Errorf("params = %+v, want both rates 44100", p)
	}
	if p.SamplesPerFrame != 1024 {
		t.Errorf("engine defaults lost: %+v", p)
	}
}

func TestSetupFallbackParameters(t *testing.T) {
	f := NewFake(nil, nil)
	if _, _, err := Setup(f, 48000); err != nil {
		t.Fatal(err)
	}
	inits := f.Inits()
	if len(inits) != 1 || inits[0].SampleRateInp != 48000 {
		t.Errorf("inits = %+v", inits)
	}
}

func TestSetupInitError(t *testing.T) {
	f := NewFake(nil, nil)
	f.InitErr = errors.New("no memory")
	if _, _, err := Setup(f, 48000); err == nil || !strings.Contains(err.Error(), "no memory") {
		t.Errorf("err = %v", err)
	}
	if _, _, err := Setup(NewFake(nil, nil), 0); err == nil {
		t.Error("zero rate accepted")
	}
}

func TestParametersValidate(t *testing.T) {
	if err := (Parameters{SampleRateInp: 48000, SampleRateOut: 44100}).Validate(); err == nil {
		t.Error("mismatched rates accepted")
	}
	if err := FallbackParameters().Validate(); err != nil {
		t.Error(err)
	}
}

func TestFakeDecode(t *testing.T) {
	f := NewFake([]byte("hello"), nil)
	inst, _, _ := Setup(f, 48000)
	got, err := f.Decode(inst, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" || f.Calls() != 1 {
		t.Errorf("got %q after %d calls", got, f.Calls())
	}
	f.Free(inst)
	if _, err := f.Decode(inst, nil); !errors.Is(err, ErrBadInstance) {
		t.Errorf("decode after free: err = %v", err)
	}
}

func TestPayloadText(t *testing.T) {
	text, ok := PayloadText([]byte("héllo"))
	if !ok || text != "héllo" {
		t.Errorf("got %q ok=%v", text, ok)
	}
	text, ok = PayloadText([]byte{0xff, 0x41})
	if ok {
		t.Error("invalid utf-8 reported as text")
	}
	if text != "255,65" {
		t.Errorf("raw rendering = %q, want 255,65", text)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 45)
	if got := Truncate(long, 40); got != strings.Repeat("a", 40)+"..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("short", 40); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Truncate(strings.Repeat("é", 41), 40); got != strings.Repeat("é", 40)+"..." {
		t.Errorf("multibyte truncation = %q", got)
	}
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name, out, want string
	}{
		{"ggwave", "[+] Number of channels: 1\n[+] Decoded message with length 10: 'it's me \n!'\n", "it's me \n!"},
		{"ggwave no message", "[+] Number of channels: 1\n[+] Sample rate: 48000\n", ""},
		{"plain", "  hello world \n", "hello world"},
		{"empty", "", ""},
		{"bad length", "Decoded message with length 99: 'hi'", "Decoded message with length 99: 'hi'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(ParseOutput([]byte(tt.out))); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecFactoryMissingBinary(t *testing.T) {
	_, err := NewExec("voxverify-no-such-decoder {wav}")(context.Background())
	if !errors.Is(err, ErrNoEngine) {
		t.Errorf("err = %v, want ErrNoEngine", err)
	}
	if _, err := NewExec("   ")(context.Background()); !errors.Is(err, ErrNoEngine) {
		t.Errorf("empty command: err = %v", err)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable")
	}
	path := filepath.Join(t.TempDir(), "fake-ggwave")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecDecode(t *testing.T) {
	// The script checks it was handed a readable WAV at the right rate.
	script := writeScript(t, `test -s "$1" || exit 3
test "$2" = 48000 || exit 4
echo "[+] Decoded message with length 5: 'hello'"
`)
	m, err := NewExec(script + " {wav} {rate}")(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	inst, _, err := Setup(m, 48000)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Free(inst)

	samples := audio.Float32Bytes(make([]float32, 4800))
	got, err := m.Decode(inst, samples)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("payload = %q, want hello", got)
	}
}

func TestExecDecodeNoMessage(t *testing.T) {
	script := writeScript(t, "echo '[+] Sample rate: 48000'\n")
	m, err := NewExec(script)(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	inst, _, _ := Setup(m, 48000)
	got, err := m.Decode(inst, audio.Float32Bytes(make([]float32, 10)))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("payload = %q, want empty", got)
	}
}

func TestExecDecodeFailure(t *testing.T) {
	script := writeScript(t, "echo 'corrupt input' >&2\nexit 2\n")
	m, _ := NewExec(script + " {wav}")(context.Background())
	inst, _, _ := Setup(m, 48000)
	_, err := m.Decode(inst, audio.Float32Bytes(make([]float32, 10)))
	if err == nil || !strings.Contains(err.Error(), "corrupt input") {
		t.Errorf("err = %v, want stderr in message", err)
	}
	if _, err := m.Decode(inst+100, nil); !errors.Is(err, ErrBadInstance) {
		t.Errorf("unknown instance: err = %v", err)
	}
}
