package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"voxverify/audio"
	"voxverify/beep"
	"voxverify/config"
	"voxverify/controller"
	"voxverify/log"
	"voxverify/visualizer"
)

// printSink writes controller events as plain lines for headless runs.
type printSink struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printSink) println(format string, args ...any) {
	p.mu.Lock()
	fmt.Fprintf(p.out, format+"\n", args...)
	p.mu.Unlock()
}

func (p *printSink) StateChanged(s controller.State) { p.println("STATE %s", s) }
func (p *printSink) Status(text string)              { p.println("STATUS %s", text) }
func (p *printSink) LogEntry(controller.Entry)       {}
func (p *printSink) Frame(*visualizer.Frame)         {}

func (p *printSink) Outcome(o controller.Outcome) {
	if o.Verified {
		p.println("VERIFIED %s", o.Status)
		return
	}
	p.println("RESULT %s", o.Status)
}

// headless builds a controller that captures from wavPath instead of a
// microphone.
func headless(cfg *config.Config, wavPath, saveDir string, realtime bool, ps *printSink) (*controller.Controller, *audio.FakeContext, error) {
	beep.Disable()

	fakeCtx, err := audio.NewFakeContext(wavPath, realtime)
	if err != nil {
		return nil, nil, fmt.Errorf("loading WAV: %w", err)
	}
	cc := controllerConfig(cfg, nil)
	cc.SampleRate = fakeCtx.SampleRate()
	cc.MaxRecording = 0
	deps := buildDeps(cfg, saveDir, func() (audio.Context, error) { return fakeCtx, nil })
	return controller.New(cc, deps, ps), fakeCtx, nil
}

// runTestMode drives the controller from stdin commands: CLICK toggles,
// WAIT blocks until the last toggle settled, WAIT_AUDIO_DONE until the WAV
// has been delivered, SLEEP n pauses n ms, QUIT exits.
func runTestMode(cfg *config.Config, wavPath, saveDir string, in io.Reader, out io.Writer) int {
	defer log.Close()

	ps := &printSink{out: out}
	c, fakeCtx, err := headless(cfg, wavPath, saveDir, true, ps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	ps.println("STATUS %s", controller.StatusWelcome)

	var last <-chan struct{}
	quit := func() int {
		c.Close()
		if c.Session() != nil {
			recordings, verified := c.Counts()
			ps.println("SESSION %d recordings, %d verified", recordings, verified)
		}
		return 0
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "":
		case "CLICK":
			done, err := c.Toggle(context.Background())
			if err != nil {
				ps.println("ERROR %v", err)
				continue
			}
			last = done
		case "WAIT":
			if last != nil {
				<-last
			}
		case "WAIT_AUDIO_DONE":
			if caps := fakeCtx.Captures(); len(caps) > 0 {
				<-caps[len(caps)-1].AudioDone()
			}
		case "QUIT":
			return quit()
		default:
			if ms, ok := strings.CutPrefix(cmd, "SLEEP "); ok {
				if n, err := strconv.Atoi(ms); err == nil {
					time.Sleep(time.Duration(n) * time.Millisecond)
				}
				continue
			}
			ps.println("ERROR unknown command %q", cmd)
		}
	}
	return quit()
}

// runFileMode records a WAV file in one burst, decodes and validates it.
// The exit code is 0 only for a verified signature.
func runFileMode(cfg *config.Config, wavPath, saveDir string, out io.Writer) int {
	defer log.Close()

	ps := &printSink{out: out}
	c, fakeCtx, err := headless(cfg, wavPath, saveDir, false, ps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if c.State() != controller.Recording {
		return 1
	}
	if caps := fakeCtx.Captures(); len(caps) > 0 {
		<-caps[len(caps)-1].AudioDone()
	}
	<-c.Stop()

	if c.LastOutcome().Verified {
		return 0
	}
	return 1
}
