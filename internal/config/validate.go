package config

import (
	"fmt"
	"strings"
)

// Validate checks everything that can be checked without reaching the
// network or the cron parser. Scene schedules are validated by the scenes
// service where the parser lives.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.Loop.TargetFPS <= 0 {
		return fmt.Errorf("loop.target_fps: must be > 0, got %v", c.Loop.TargetFPS)
	}
	if c.Loop.SysLoadWindow < 0 {
		return fmt.Errorf("loop.sysload_window: must be >= 0")
	}
	if c.Audio.SampleRate < 0 {
		return fmt.Errorf("audio.sample_rate: must be >= 0")
	}
	if c.Audio.SmoothWindow < 0 {
		return fmt.Errorf("audio.smooth_window: must be >= 0")
	}
	if c.Lights.RatePerSec < 0 {
		return fmt.Errorf("lights.rate_per_sec: must be >= 0")
	}
	if c.Lights.Gain < 0 {
		return fmt.Errorf("lights.gain: must be >= 0")
	}
	if _, err := ParseDurationField("lights.discover_timeout", c.Lights.DiscoverTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("lights.command_timeout", c.Lights.CommandTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("lights.transition", c.Lights.Transition); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Scenes))
	for i, sc := range c.Scenes {
		name := strings.TrimSpace(sc.Name)
		if name == "" {
			return fmt.Errorf("scenes[%d].name: must not be empty", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("scenes[%d].name: duplicate scene %q", i, name)
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(sc.Schedule) == "" {
			return fmt.Errorf("scenes[%d].schedule: must not be empty", i)
		}
		if b := sc.Action.Brightness; b != nil && (*b < 0 || *b > 100) {
			return fmt.Errorf("scenes[%d].action.brightness: must be 0..100", i)
		}
		if h := sc.Action.Hue; h != nil && (*h < 0 || *h > 360) {
			return fmt.Errorf("scenes[%d].action.hue: must be 0..360", i)
		}
		if _, err := ParseDurationField(fmt.Sprintf("scenes[%d].action.transition", i), sc.Action.Transition); err != nil {
			return err
		}
	}
	return nil
}
