// Package scenes runs cron-scheduled lighting changes. Cron fires on its
// own goroutine, but firings are only queued there; the frame loop's pump
// task applies them, so bulb commands stay on the loop's single thread.
package scenes

import (
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/nepthar/smart-party/internal/config"
	logx "github.com/nepthar/smart-party/pkg/logx"
)

// Firing is one scheduled scene trigger waiting for the pump.
type Firing struct {
	Name   string
	Action config.SceneAction
}

type Service struct {
	mu sync.Mutex

	log    logx.Logger
	parser cron.Parser
	c      *cron.Cron

	specs   []config.SceneConfig
	started bool

	pending []Firing
}

func New(log logx.Logger) *Service {
	return &Service{
		log:    log,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// ValidateSpecs checks every scene schedule against the cron parser. It is
// the scenes half of the config validator.
func (s *Service) ValidateSpecs(scenes []config.SceneConfig) error {
	for i, sc := range scenes {
		if _, err := s.parser.Parse(strings.TrimSpace(sc.Schedule)); err != nil {
			return fmt.Errorf("scenes[%d] %q: bad schedule %q: %w", i, sc.Name, sc.Schedule, err)
		}
	}
	return nil
}

// Apply replaces the scene table. Safe to call while running; the cron
// runner is rebuilt so removed scenes stop firing.
func (s *Service) Apply(scenes []config.SceneConfig) error {
	if err := s.ValidateSpecs(scenes); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = append([]config.SceneConfig(nil), scenes...)
	if s.started {
		s.restartLocked()
	}
	return nil
}

func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.restartLocked()
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	if s.c != nil {
		<-s.c.Stop().Done()
		s.c = nil
	}
}

func (s *Service) restartLocked() {
	if s.c != nil {
		<-s.c.Stop().Done()
	}
	s.c = cron.New(cron.WithParser(s.parser))
	for _, sc := range s.specs {
		sc := sc
		_, err := s.c.AddFunc(sc.Schedule, func() {
			s.enqueue(Firing{Name: sc.Name, Action: sc.Action})
		})
		if err != nil {
			// Apply validated the spec already; only a parser mismatch
			// could land here.
			s.log.Warn("scene not scheduled", logx.String("scene", sc.Name), logx.Err(err))
			continue
		}
		s.log.Debug("scene scheduled",
			logx.String("scene", sc.Name),
			logx.String("schedule", sc.Schedule),
		)
	}
	s.c.Start()
}

func (s *Service) enqueue(f Firing) {
	s.mu.Lock()
	s.pending = append(s.pending, f)
	n := len(s.pending)
	s.mu.Unlock()
	s.log.Info("scene fired", logx.String("scene", f.Name), logx.Int("queued", n))
}

// Drain hands all pending firings to the caller in fire order.
func (s *Service) Drain() []Firing {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// Requeue puts firings back at the head of the queue, keeping their order
// ahead of anything that fired meanwhile.
func (s *Service) Requeue(fs []Firing) {
	if len(fs) == 0 {
		return
	}
	s.mu.Lock()
	s.pending = append(append([]Firing(nil), fs...), s.pending...)
	s.mu.Unlock()
}
