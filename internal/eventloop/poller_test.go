package eventloop

import (
	"context"
	"math"
	"testing"

	logx "github.com/nepthar/smart-party/pkg/logx"
)

// Scenario: a poller producing incrementing integers and a consumer behind
// it in the tick order. The consumer must see the value produced earlier in
// the very same frame.
func TestPollerConsumerOrderDependency(t *testing.T) {
	n := 0.0
	src := &PollFunc{Sample: func() (float64, error) {
		n++
		return n, nil
	}}

	var (
		observed []float64
		l        *Loop
	)
	consumer := &probe{}
	consumer.onTick = func(p *probe) {
		observed = append(observed, src.Value())
		if p.ticks >= 6 {
			l.Stop()
		}
	}

	l, err := New(1000, logx.Nop(), src, consumer)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(observed) != 6 {
		t.Fatalf("observed %d samples, want 6", len(observed))
	}
	for i, v := range observed {
		if want := float64(i + 1); v != want {
			t.Fatalf("frame %d observed %v, want %v (poller ticks first)", i, v, want)
		}
		if i > 0 && v < observed[i-1] {
			t.Fatalf("observed values not monotonic: %v", observed)
		}
	}
}

func TestPollFuncKeepsLastValueOnError(t *testing.T) {
	fail := false
	src := &PollFunc{Sample: func() (float64, error) {
		if fail {
			return -1, errTestSample
		}
		return 7, nil
	}}

	if cont, err := src.Tick(); !cont || err != nil {
		t.Fatalf("Tick = (%v, %v), want (true, nil)", cont, err)
	}
	fail = true
	cont, err := src.Tick()
	if !cont {
		t.Fatal("a poller never stops on its own")
	}
	if err == nil {
		t.Fatal("expected the sampling error to surface")
	}
	if src.Value() != 7 {
		t.Fatalf("Value = %v, want last good sample 7", src.Value())
	}
}

var errTestSample = errSample{}

type errSample struct{}

func (errSample) Error() string { return "sample failed" }

func TestMovingAverageWindow(t *testing.T) {
	if _, err := NewMovingAverage(nil, 4, 0); err == nil {
		t.Fatal("nil sample func must be rejected")
	}
	if _, err := NewMovingAverage(func() float64 { return 0 }, 0, 0); err == nil {
		t.Fatal("non-positive window must be rejected")
	}

	n := 0.0
	ma, err := NewMovingAverage(func() float64 {
		n += 2
		return n
	}, 4, 0)
	if err != nil {
		t.Fatalf("NewMovingAverage: %v", err)
	}

	var l *Loop
	watcher := &probe{}
	watcher.onTick = func(p *probe) {
		if p.ticks >= 4 {
			l.Stop()
		}
	}
	l, err = New(1000, logx.Nop(), ma, watcher)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Samples 2,4,6,8 fill the whole window: mean is 5.
	if got := ma.Value(); math.Abs(got-5) > 1e-9 {
		t.Fatalf("Value = %v, want 5", got)
	}
}

func TestMovingAveragePrefill(t *testing.T) {
	ma, err := NewMovingAverage(func() float64 { return 10 }, 5, 10)
	if err != nil {
		t.Fatalf("NewMovingAverage: %v", err)
	}
	if _, err := ma.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	// One real sample plus four prefilled defaults, all equal.
	if ma.Value() != 10 {
		t.Fatalf("Value = %v, want 10", ma.Value())
	}
}
