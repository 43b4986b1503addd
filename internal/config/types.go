package config

// Config is the daemon's whole configuration. JSON tags are the source of
// truth; YAML configs are coerced to JSON before the strict decode.
type Config struct {
	Loop    LoopConfig    `json:"loop"`
	Logging LoggingConfig `json:"logging"`
	Audio   AudioConfig   `json:"audio"`
	Lights  LightsConfig  `json:"lights"`
	Scenes  []SceneConfig `json:"scenes,omitempty"`
}

// LoopConfig controls the frame loop.
type LoopConfig struct {
	// TargetFPS is the fixed frame rate. It is construction-time only: hot
	// reload never changes a running loop's budget.
	TargetFPS float64 `json:"target_fps"`

	// SysLoadWindow is how many frames the load reporter averages over
	// before printing. 0 disables the reporter.
	SysLoadWindow int `json:"sysload_window,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level"`
	Console bool       `json:"console"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// AudioConfig controls the microphone capture task.
type AudioConfig struct {
	Enabled    bool   `json:"enabled"`
	Command    string `json:"command,omitempty"` // default: arecord
	Device     string `json:"device,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`

	// Meter renders a console VU meter from the sampled level.
	Meter bool `json:"meter,omitempty"`

	// SmoothWindow averages the raw level over this many frames before the
	// light show consumes it. 0 means no smoothing.
	SmoothWindow int `json:"smooth_window,omitempty"`
}

// LightsConfig controls bulb discovery and the sound-reactive light show.
type LightsConfig struct {
	Enabled bool `json:"enabled"`

	// Broadcast is the discovery destination. Default 255.255.255.255:9999.
	Broadcast string `json:"broadcast,omitempty"`

	// DiscoverTimeout / CommandTimeout are Go duration strings.
	DiscoverTimeout string `json:"discover_timeout,omitempty"`
	CommandTimeout  string `json:"command_timeout,omitempty"`

	// RatePerSec caps commands per bulb so a fast loop cannot flood the
	// firmware. Zero keeps the client default.
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
	Burst      int     `json:"burst,omitempty"`

	// Gain scales the audio level into brightness percent.
	Gain float64 `json:"gain,omitempty"`

	// Transition is the fade period per command (Go duration string).
	Transition string `json:"transition,omitempty"`

	// Aliases restricts the show to the named bulbs. Empty means all found.
	Aliases []string `json:"aliases,omitempty"`
}

// SceneConfig declares a cron-scheduled lighting change.
type SceneConfig struct {
	Name     string      `json:"name"`
	Schedule string      `json:"schedule"` // cron spec or @every descriptor
	Action   SceneAction `json:"action"`
}

// SceneAction is a partial light state applied when a scene fires. Nil
// fields keep the bulb's current value.
type SceneAction struct {
	Power      *bool  `json:"power,omitempty"`
	Brightness *int   `json:"brightness,omitempty"`
	Hue        *int   `json:"hue,omitempty"`
	ColorTemp  *int   `json:"color_temp,omitempty"`
	Transition string `json:"transition,omitempty"` // Go duration string
	Aliases    []string `json:"aliases,omitempty"`
}

// Default fills in everything a minimal config file may omit.
func Default() *Config {
	return &Config{
		Loop: LoopConfig{
			TargetFPS:     30,
			SysLoadWindow: 100,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 12000,
			Meter:      true,
		},
		Lights: LightsConfig{
			Enabled:         true,
			Broadcast:       "255.255.255.255:9999",
			DiscoverTimeout: "1s",
			CommandTimeout:  "1s",
			RatePerSec:      20,
			Gain:            10,
			Transition:      "100ms",
		},
	}
}
