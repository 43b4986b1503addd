package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	logx "github.com/nepthar/smart-party/pkg/logx"
)

// Defaults match the recorder invocation the daemon has always used: raw
// mono S16LE at 12kHz from the default device.
const (
	defaultCommand    = "arecord"
	defaultSampleRate = 12000

	// maxPending bounds the staging buffer. At 12kHz mono S16LE this is a
	// bit over two seconds of audio; if the loop stalls longer than that we
	// prefer fresh samples over a complete record.
	maxPending = 64 << 10
)

// Config selects the external capture command.
type Config struct {
	Command    string
	SampleRate int
	Device     string
	// Args overrides the generated argument list entirely when non-nil.
	Args []string
}

// CaptureSource spawns a PCM recorder process and stages its output so the
// frame loop can drain loudness readings without ever blocking on the pipe.
type CaptureSource struct {
	cfg   Config
	log   logx.Logger
	spawn Spawner

	cancel context.CancelFunc
	cmd    *exec.Cmd

	mu      sync.Mutex
	pending []byte
	odd     []byte // held-back trailing byte of a torn sample
}

func NewCaptureSource(cfg Config, spawn Spawner, log logx.Logger) *CaptureSource {
	return &CaptureSource{
		cfg:   cfg,
		spawn: spawn,
		log:   log.With(logx.String("comp", "audio")),
	}
}

func (c *CaptureSource) args() (string, []string) {
	name := c.cfg.Command
	if name == "" {
		name = defaultCommand
	}
	if c.cfg.Args != nil {
		return name, c.cfg.Args
	}
	rate := c.cfg.SampleRate
	if rate <= 0 {
		rate = defaultSampleRate
	}
	args := []string{"-q", "-f", "S16_LE", "-c", "1", "-r", strconv.Itoa(rate), "-t", "raw"}
	if c.cfg.Device != "" {
		args = append(args, "-D", c.cfg.Device)
	}
	return name, args
}

// Start launches the recorder and begins pumping its stdout.
func (c *CaptureSource) Start() error {
	if c.cancel != nil {
		return fmt.Errorf("audio: capture already started")
	}
	ctx, cancel := context.WithCancel(context.Background())

	name, args := c.args()
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("audio: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("audio: start %s: %w", name, err)
	}

	c.cancel = cancel
	c.cmd = cmd
	c.log.Info("capture started", logx.String("cmd", name), logx.Int("pid", cmd.Process.Pid))

	c.pump(out)
	return nil
}

// pump drains r into the staging buffer on its own goroutine. The goroutine
// exits when the pipe closes (process exit or Close).
func (c *CaptureSource) pump(r io.Reader) {
	run := func() {
		buf := make([]byte, 4096)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				c.stash(buf[:n])
			}
			if err != nil {
				if err != io.EOF {
					c.log.Debug("capture pipe closed", logx.Err(err))
				}
				return
			}
		}
	}
	if c.spawn != nil {
		c.spawn.Go("audio-capture-pump", run)
	} else {
		go run()
	}
}

func (c *CaptureSource) stash(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, chunk...)
	if over := len(c.pending) - maxPending; over > 0 {
		// Drop the oldest audio; keep sample alignment by trimming an even
		// number of bytes.
		if over%2 != 0 {
			over++
		}
		c.pending = append(c.pending[:0], c.pending[over:]...)
	}
}

// Level drains the staged audio and returns its L2 norm. No staged audio
// means 0, mirroring a stream with nothing available to read.
func (c *CaptureSource) Level() float64 {
	c.mu.Lock()
	raw := append(c.odd, c.pending...)
	c.pending = nil
	if len(raw)%2 != 0 {
		c.odd = []byte{raw[len(raw)-1]}
		raw = raw[:len(raw)-1]
	} else {
		c.odd = nil
	}
	c.mu.Unlock()

	if len(raw) == 0 {
		return 0
	}
	return Norm(DecodeS16LE(raw))
}

// Close stops the recorder. Safe to call once after a successful Start.
func (c *CaptureSource) Close() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	err := c.cmd.Wait()
	c.cancel = nil
	c.cmd = nil
	// The recorder dying of our own cancel is the expected way down.
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return nil
	}
	return err
}
