package tasks

import (
	"errors"
	"math"
	"time"

	"github.com/nepthar/smart-party/internal/eventloop"
	"github.com/nepthar/smart-party/pkg/kasa"
	logx "github.com/nepthar/smart-party/pkg/logx"
)

// Dimmer is the slice of the bulb client the show needs. Tests substitute
// fakes; production passes *kasa.Bulb.
type Dimmer interface {
	Alias() string
	SetBrightness(pct int, transition time.Duration) error
}

// LightShowOptions tunes the level-to-brightness mapping.
type LightShowOptions struct {
	// Gain scales the sampled level into percent. 0 uses a default of 100.
	Gain float64

	// Transition is the fade period sent with each command.
	Transition time.Duration
}

// LightShow drives bulb brightness from the sampled sound level, once per
// frame. A bulb that is over its command rate simply keeps its last
// brightness for the frame; the show never blocks the loop.
type LightShow struct {
	eventloop.NopSetup

	sample func() float64
	bulbs  []Dimmer
	opts   LightShowOptions
	errLog *logx.Throttle

	last int
}

func NewLightShow(sample func() float64, bulbs []Dimmer, opts LightShowOptions, log logx.Logger) *LightShow {
	if opts.Gain <= 0 {
		opts.Gain = 100
	}
	return &LightShow{
		sample: sample,
		bulbs:  bulbs,
		opts:   opts,
		errLog: logx.NewThrottle(log, 1, 3),
		last:   -1,
	}
}

func (s *LightShow) Tick() (bool, error) {
	pct := int(math.Round(s.sample() * s.opts.Gain))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct == s.last {
		return true, nil
	}
	s.last = pct

	for _, b := range s.bulbs {
		err := b.SetBrightness(pct, s.opts.Transition)
		switch {
		case err == nil:
		case errors.Is(err, kasa.ErrRateLimited):
			// bulb keeps its previous brightness this frame
		default:
			s.errLog.Warn("bulb command failed",
				logx.String("bulb", b.Alias()),
				logx.Err(err),
			)
		}
	}
	return true, nil
}

func (s *LightShow) Finish() error { return nil }
