package tasks

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/nepthar/smart-party/internal/eventloop"
)

// meterMaxBars caps the meter width so a loud spike cannot spray an
// arbitrarily long line.
const meterMaxBars = 80

// LevelMeter prints a '#' bar per frame sized from the sampled level. It is
// the console VU meter.
type LevelMeter struct {
	eventloop.NopSetup

	sample func() float64
	scale  float64
	w      io.Writer
}

// NewLevelMeter builds a meter over a level sample. scale converts the
// level (roughly 0..1 for quiet rooms) into bar count.
func NewLevelMeter(sample func() float64, scale float64, w io.Writer) *LevelMeter {
	if scale <= 0 {
		scale = 10
	}
	return &LevelMeter{sample: sample, scale: scale, w: w}
}

func (m *LevelMeter) Tick() (bool, error) {
	bars := int(math.Round(m.sample() * m.scale))
	if bars < 0 {
		bars = 0
	}
	if bars > meterMaxBars {
		bars = meterMaxBars
	}
	if _, err := fmt.Fprintln(m.w, strings.Repeat("#", bars)); err != nil {
		return true, err
	}
	return true, nil
}

func (m *LevelMeter) Finish() error { return nil }
