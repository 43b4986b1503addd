// Package tasks holds the concrete frame-loop tasks the daemon schedules:
// microphone polling, console reporters and the sound-reactive light show.
package tasks

import (
	"fmt"

	"github.com/nepthar/smart-party/internal/audio"
	"github.com/nepthar/smart-party/internal/eventloop"
	logx "github.com/nepthar/smart-party/pkg/logx"
)

// SoundLevel polls a capture source once per frame and exposes the latest
// level to downstream tasks. Sampling never blocks; a frame with no new
// audio reads as zero.
type SoundLevel struct {
	src audio.LevelSource
	log logx.Logger

	value float64
}

func NewSoundLevel(src audio.LevelSource, log logx.Logger) *SoundLevel {
	return &SoundLevel{src: src, log: log}
}

func (s *SoundLevel) Setup() error {
	if err := s.src.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	s.log.Debug("sound level task started")
	return nil
}

func (s *SoundLevel) Tick() (bool, error) {
	s.value = s.src.Level()
	return true, nil
}

func (s *SoundLevel) Finish() error {
	return s.src.Close()
}

// Value returns the level sampled this frame.
func (s *SoundLevel) Value() float64 { return s.value }

var _ eventloop.Poller = (*SoundLevel)(nil)
