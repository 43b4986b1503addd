package eventloop

import (
	"fmt"
)

// Poller is a pure-producer task: its Tick always continues and its only job
// is to refresh Value by sampling some external source every frame. Tasks
// later in the tick order read Value within the same frame.
type Poller interface {
	Task
	Value() float64
}

// PollFunc adapts a sampling function to the Poller contract. The function
// is called once per frame; a sampling error keeps the previous value and is
// reported through the loop's error collection without stopping the task.
type PollFunc struct {
	NopSetup
	Sample func() (float64, error)

	value float64
}

func (p *PollFunc) Tick() (bool, error) {
	v, err := p.Sample()
	if err == nil {
		p.value = v
	}
	return true, err
}

func (p *PollFunc) Value() float64 { return p.value }

// MovingAverage smooths another sample stream over a fixed window. The ring
// slot for each frame is frame % window, so a full pass over the window takes
// exactly window frames.
type MovingAverage struct {
	NopSetup

	sample func() float64
	window []float64

	loop  *Loop
	value float64
}

// NewMovingAverage builds a window-sized ring pre-filled with def so the
// average is well-defined before the first full pass.
func NewMovingAverage(sample func() float64, window int, def float64) (*MovingAverage, error) {
	if sample == nil {
		return nil, fmt.Errorf("eventloop: moving average needs a sample func")
	}
	if window <= 0 {
		return nil, fmt.Errorf("eventloop: moving average window must be positive, got %d", window)
	}
	m := &MovingAverage{sample: sample, window: make([]float64, window)}
	for i := range m.window {
		m.window[i] = def
	}
	return m, nil
}

func (m *MovingAverage) AttachLoop(l *Loop) { m.loop = l }

func (m *MovingAverage) Tick() (bool, error) {
	idx := 0
	if m.loop != nil {
		idx = int(m.loop.Frame() % uint64(len(m.window)))
	}
	m.window[idx] = m.sample()

	sum := 0.0
	for _, v := range m.window {
		sum += v
	}
	m.value = sum / float64(len(m.window))
	return true, nil
}

func (m *MovingAverage) Value() float64 { return m.value }
