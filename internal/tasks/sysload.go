package tasks

import (
	"fmt"
	"io"
	"time"

	"github.com/nepthar/smart-party/internal/eventloop"
)

// SysLoad tracks how much of each frame budget the loop spends working
// versus sleeping and prints an averaged load percentage once per window.
type SysLoad struct {
	loop   *eventloop.Loop
	window int
	data   []time.Duration
	w      io.Writer
}

func NewSysLoad(window int, w io.Writer) *SysLoad {
	if window < 1 {
		window = 1
	}
	return &SysLoad{window: window, w: w}
}

func (s *SysLoad) AttachLoop(l *eventloop.Loop) { s.loop = l }

func (s *SysLoad) Setup() error {
	// Prefill with full-budget sleeps so the first window reads near idle
	// instead of pinned at 100%.
	s.data = make([]time.Duration, s.window)
	for i := range s.data {
		s.data[i] = s.loop.SecondsPerFrame()
	}
	return nil
}

func (s *SysLoad) Tick() (bool, error) {
	idx := int(s.loop.Frame() % uint64(s.window))
	s.data[idx] = s.loop.SleepTime()

	if idx == 0 {
		var sum time.Duration
		for _, v := range s.data {
			sum += v
		}
		avgSleep := float64(sum) / float64(s.window)
		load := (1.0 - avgSleep/float64(s.loop.SecondsPerFrame())) * 100
		if _, err := fmt.Fprintf(s.w, "System Load: %.2f%%\n", load); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (s *SysLoad) Finish() error { return nil }
