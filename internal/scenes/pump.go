package scenes

import (
	"errors"
	"strings"
	"time"

	"github.com/nepthar/smart-party/internal/config"
	"github.com/nepthar/smart-party/internal/eventloop"
	"github.com/nepthar/smart-party/pkg/kasa"
	logx "github.com/nepthar/smart-party/pkg/logx"
)

// StateSetter is the slice of the bulb client that scene application needs.
type StateSetter interface {
	Alias() string
	SetState(tr kasa.Transition) error
}

// Pump is the frame-loop task that applies queued scene firings to bulbs.
// Commands happen here rather than in cron callbacks so they share the
// loop's thread with the light show.
type Pump struct {
	eventloop.NopSetup

	svc   *Service
	bulbs func() []StateSetter
	log   logx.Logger
}

// NewPump wires the pump to a service and a bulb provider. The provider is
// called per firing so hot-plugged bulbs are picked up.
func NewPump(svc *Service, bulbs func() []StateSetter, log logx.Logger) *Pump {
	return &Pump{svc: svc, bulbs: bulbs, log: log}
}

func (p *Pump) Tick() (bool, error) {
	firings := p.svc.Drain()
	if len(firings) == 0 {
		return true, nil
	}

	var retry []Firing
	for _, f := range firings {
		tr, err := transitionFromAction(f.Action)
		if err != nil {
			p.log.Warn("scene dropped", logx.String("scene", f.Name), logx.Err(err))
			continue
		}
		if p.applyFiring(f, tr) {
			retry = append(retry, f)
		}
	}
	// Rate-limited bulbs get the scene again next frame instead of losing it.
	p.svc.Requeue(retry)
	return true, nil
}

func (p *Pump) Finish() error { return nil }

// applyFiring sends the transition to every targeted bulb. It reports
// whether the firing should be retried.
func (p *Pump) applyFiring(f Firing, tr kasa.Transition) bool {
	limited := false
	for _, b := range p.bulbs() {
		if !targeted(f.Action.Aliases, b.Alias()) {
			continue
		}
		err := b.SetState(tr)
		switch {
		case err == nil:
			p.log.Debug("scene applied",
				logx.String("scene", f.Name),
				logx.String("bulb", b.Alias()),
			)
		case errors.Is(err, kasa.ErrRateLimited):
			limited = true
		default:
			p.log.Warn("scene command failed",
				logx.String("scene", f.Name),
				logx.String("bulb", b.Alias()),
				logx.Err(err),
			)
		}
	}
	return limited
}

func targeted(aliases []string, alias string) bool {
	if len(aliases) == 0 {
		return true
	}
	for _, a := range aliases {
		if strings.EqualFold(strings.TrimSpace(a), alias) {
			return true
		}
	}
	return false
}

// transitionFromAction converts the config action into the wire transition.
func transitionFromAction(a config.SceneAction) (kasa.Transition, error) {
	var tr kasa.Transition
	if a.Power != nil {
		v := 0
		if *a.Power {
			v = 1
		}
		tr.OnOff = kasa.IntP(v)
	}
	if a.Brightness != nil {
		tr.Brightness = kasa.IntP(*a.Brightness)
	}
	if a.Hue != nil {
		tr.Hue = kasa.IntP(*a.Hue % 360)
	}
	if a.ColorTemp != nil {
		tr.ColorTemp = kasa.IntP(*a.ColorTemp)
	}
	if a.Transition != "" {
		d, err := config.ParseDurationField("action.transition", a.Transition)
		if err != nil {
			return kasa.Transition{}, err
		}
		tr.TransitionPeriod = kasa.IntP(int(d / time.Millisecond))
	}
	return tr, nil
}
