package audio

import (
	"io"
	"math"
	"strings"
	"testing"
	"time"

	logx "github.com/nepthar/smart-party/pkg/logx"
)

// feed pushes raw bytes through the same pump Start wires to the recorder's
// stdout, then waits for the pump goroutine to stage them.
func feed(t *testing.T, c *CaptureSource, raw []byte) {
	t.Helper()
	pr, pw := io.Pipe()
	c.pump(pr)
	if _, err := pw.Write(raw); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = pw.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		n := len(c.pending)
		c.mu.Unlock()
		if n >= len(raw) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("pump did not stage the audio in time")
}

func TestLevelDrainsStagedAudio(t *testing.T) {
	c := NewCaptureSource(Config{}, nil, logx.Nop())

	feed(t, c, s16le(16384, 16384, 16384, 16384)) // four 0.5 samples
	got := c.Level()
	want := math.Sqrt(4 * 0.25)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Level = %v, want %v", got, want)
	}

	// Drained: a second read with no new audio is 0.
	if got := c.Level(); got != 0 {
		t.Fatalf("Level after drain = %v, want 0", got)
	}
}

func TestLevelHoldsTornSample(t *testing.T) {
	c := NewCaptureSource(Config{}, nil, logx.Nop())

	raw := append(s16le(16384), 0x00) // one whole sample plus half of the next
	feed(t, c, raw)
	if got := c.Level(); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("Level = %v, want 0.5 (torn byte held back)", got)
	}

	// The held byte pairs with the next one: 0x00 0x40 = 16384 -> 0.5.
	feed(t, c, []byte{0x40})
	if got := c.Level(); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("Level = %v, want 0.5 from the reassembled sample", got)
	}
}

func TestStashBoundsPending(t *testing.T) {
	c := NewCaptureSource(Config{}, nil, logx.Nop())
	chunk := make([]byte, 8192)
	for i := 0; i < 20; i++ {
		c.stash(chunk)
	}
	c.mu.Lock()
	n := len(c.pending)
	c.mu.Unlock()
	if n > maxPending {
		t.Fatalf("pending = %d bytes, want <= %d", n, maxPending)
	}
	if n%2 != 0 {
		t.Fatalf("pending = %d bytes, want even (sample aligned)", n)
	}
}

func TestSpawnerOwnsPumpGoroutine(t *testing.T) {
	var spawnedName string
	done := make(chan struct{})
	sp := SpawnerFunc(func(name string, fn func()) {
		spawnedName = name
		go func() { fn(); close(done) }()
	})

	c := NewCaptureSource(Config{}, sp, logx.Nop())
	pr, pw := io.Pipe()
	c.pump(pr)
	_ = pw.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump goroutine did not run through the spawner")
	}
	if spawnedName == "" {
		t.Fatal("pump goroutine must be named for the supervisor")
	}
}

func TestCaptureArgs(t *testing.T) {
	c := NewCaptureSource(Config{SampleRate: 8000, Device: "hw:1"}, nil, logx.Nop())
	name, args := c.args()
	if name != "arecord" {
		t.Fatalf("command = %q, want arecord", name)
	}
	joined := strings.Join(args, " ")
	for _, frag := range []string{"-r 8000", "-D hw:1", "-f S16_LE"} {
		if !strings.Contains(joined, frag) {
			t.Fatalf("args %q missing %q", joined, frag)
		}
	}

	override := NewCaptureSource(Config{Command: "parec", Args: []string{"--raw"}}, nil, logx.Nop())
	name, args = override.args()
	if name != "parec" || len(args) != 1 || args[0] != "--raw" {
		t.Fatalf("override = %q %v", name, args)
	}
}

func TestCloseBeforeStartIsNoop(t *testing.T) {
	c := NewCaptureSource(Config{}, nil, logx.Nop())
	if err := c.Close(); err != nil {
		t.Fatalf("Close before Start: %v", err)
	}
}
