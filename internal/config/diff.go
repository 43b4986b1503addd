package config

import (
	"reflect"
	"sort"
	"strings"

	logx "github.com/nepthar/smart-party/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus structured
// attrs suitable for a single "config changed" log line.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	// Loop. TargetFPS is construction-time only; flag it so the operator
	// knows a restart is needed for it to take effect.
	if oldCfg.Loop != newCfg.Loop {
		changed = append(changed, "loop")
		attrs = append(attrs,
			logx.Float64("loop.target_fps", newCfg.Loop.TargetFPS),
			logx.Int("loop.sysload_window", newCfg.Loop.SysLoadWindow),
			logx.Bool("loop.restart_required", oldCfg.Loop.TargetFPS != newCfg.Loop.TargetFPS),
		)
	}

	// Logging
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Audio
	if oldCfg.Audio != newCfg.Audio {
		changed = append(changed, "audio")
		attrs = append(attrs,
			logx.Bool("audio.enabled", newCfg.Audio.Enabled),
			logx.String("audio.device", strings.TrimSpace(newCfg.Audio.Device)),
			logx.Int("audio.sample_rate", newCfg.Audio.SampleRate),
			logx.Bool("audio.meter", newCfg.Audio.Meter),
		)
	}

	// Lights. Aliases is a slice so DeepEqual the whole section.
	if !reflect.DeepEqual(oldCfg.Lights, newCfg.Lights) {
		changed = append(changed, "lights")
		attrs = append(attrs,
			logx.Bool("lights.enabled", newCfg.Lights.Enabled),
			logx.String("lights.broadcast", strings.TrimSpace(newCfg.Lights.Broadcast)),
			logx.Float64("lights.rate_per_sec", newCfg.Lights.RatePerSec),
			logx.Float64("lights.gain", newCfg.Lights.Gain),
			logx.Int("lights.alias_count", len(newCfg.Lights.Aliases)),
		)
	}

	// Scenes (summarize only)
	if !reflect.DeepEqual(oldCfg.Scenes, newCfg.Scenes) {
		changed = append(changed, "scenes")
		attrs = append(attrs,
			logx.Int("scenes.count", len(newCfg.Scenes)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
