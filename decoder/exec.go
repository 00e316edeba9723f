package decoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voxverify/audio"
)

// DefaultCommand decodes a WAV with the reference ggwave tool.
const DefaultCommand = "ggwave-from-file {wav}"

const defaultExecTimeout = 30 * time.Second

var decodedLine = regexp.MustCompile(`Decoded message with length (\d+): '`)

// ExecModule runs an external decoder once per Decode call. The command
// template is split on whitespace; {wav} is replaced with the path of a
// temporary WAV holding the samples and {rate} with the sample rate. When
// no {wav} token is present the path is appended.
type ExecModule struct {
	argv    []string
	tempDir string
	timeout time.Duration

	mu   sync.Mutex
	next Instance
	live map[Instance]Parameters
}

// NewExec returns a Factory that fails when the command's binary is not
// on PATH.
func NewExec(command string) Factory {
	return func(ctx context.Context) (Module, error) {
		argv := strings.Fields(command)
		if len(argv) == 0 {
			return nil, fmt.Errorf("%w: empty decoder command", ErrNoEngine)
		}
		if _, err := exec.LookPath(argv[0]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoEngine, err)
		}
		return &ExecModule{
			argv:    argv,
			tempDir: os.TempDir(),
			timeout: defaultExecTimeout,
			live:    make(map[Instance]Parameters),
		}, nil
	}
}

func (e *ExecModule) Name() string { return filepath.Base(e.argv[0]) }

func (e *ExecModule) DefaultParameters() (Parameters, bool) {
	return FallbackParameters(), true
}

func (e *ExecModule) Init(p Parameters) (Instance, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.live[e.next] = p
	return e.next, nil
}

func (e *ExecModule) Free(inst Instance) {
	e.mu.Lock()
	delete(e.live, inst)
	e.mu.Unlock()
}

func (e *ExecModule) params(inst Instance) (Parameters, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.live[inst]
	return p, ok
}

func (e *ExecModule) Decode(inst Instance, samples []byte) ([]byte, error) {
	p, ok := e.params(inst)
	if !ok {
		return nil, ErrBadInstance
	}
	floats, err := audio.BytesToFloat32(samples)
	if err != nil {
		return nil, err
	}

	rate := int(p.SampleRateInp)
	wavPath := filepath.Join(e.tempDir, "voxverify-"+uuid.New().String()+".wav")
	if err := audio.WriteWAVFile(wavPath, floats, rate); err != nil {
		return nil, fmt.Errorf("writing decoder input: %w", err)
	}
	defer os.Remove(wavPath)

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	args := e.expand(wavPath, rate)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		return nil, fmt.Errorf("%s: %w: %s", e.Name(), err, msg)
	}
	return ParseOutput(stdout.Bytes()), nil
}

func (e *ExecModule) expand(wavPath string, rate int) []string {
	args := make([]string, 0, len(e.argv)+1)
	sawWav := false
	for _, a := range e.argv {
		if strings.Contains(a, "{wav}") {
			sawWav = true
		}
		a = strings.ReplaceAll(a, "{wav}", wavPath)
		a = strings.ReplaceAll(a, "{rate}", strconv.Itoa(rate))
		args = append(args, a)
	}
	if !sawWav {
		args = append(args, wavPath)
	}
	return args
}

// ParseOutput extracts the payload from decoder stdout. ggwave style
// output ("Decoded message with length N: '...'") yields exactly N bytes.
// Output made only of bracketed status lines ("[+] ...") means no message.
// Anything else is taken verbatim, trimmed.
func ParseOutput(out []byte) []byte {
	if loc := decodedLine.FindSubmatchIndex(out); loc != nil {
		n, err := strconv.Atoi(string(out[loc[2]:loc[3]]))
		start := loc[1]
		if err == nil && start+n <= len(out) {
			return append([]byte(nil), out[start:start+n]...)
		}
	}
	var kept [][]byte
	for _, line := range bytes.Split(out, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte("[")) {
			continue
		}
		kept = append(kept, line)
	}
	return bytes.TrimSpace(bytes.Join(kept, []byte("\n")))
}
