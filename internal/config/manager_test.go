package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const sampleYAML = `
loop:
  target_fps: 20
  sysload_window: 50
logging:
  level: debug
  console: true
audio:
  enabled: true
  sample_rate: 12000
  meter: true
lights:
  enabled: true
  broadcast: "255.255.255.255:9999"
  gain: 12.5
  aliases: [porch, mantle]
scenes:
  - name: sunset
    schedule: "0 19 * * *"
    action:
      power: true
      brightness: 40
      transition: 2s
`

func TestParseYAML(t *testing.T) {
	m := NewManager(writeFile(t, "party.yaml", sampleYAML))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Loop.TargetFPS != 20 {
		t.Fatalf("target_fps = %v, want 20", cfg.Loop.TargetFPS)
	}
	if cfg.Lights.Gain != 12.5 {
		t.Fatalf("gain = %v, want 12.5", cfg.Lights.Gain)
	}
	if len(cfg.Lights.Aliases) != 2 || cfg.Lights.Aliases[1] != "mantle" {
		t.Fatalf("aliases = %v", cfg.Lights.Aliases)
	}
	if len(cfg.Scenes) != 1 || cfg.Scenes[0].Name != "sunset" {
		t.Fatalf("scenes = %+v", cfg.Scenes)
	}
	if cfg.Scenes[0].Action.Brightness == nil || *cfg.Scenes[0].Action.Brightness != 40 {
		t.Fatalf("brightness = %v", cfg.Scenes[0].Action.Brightness)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseJSON(t *testing.T) {
	m := NewManager(writeFile(t, "party.json", `{"loop":{"target_fps":30},"logging":{"level":"info","console":true},"audio":{"enabled":false},"lights":{"enabled":false}}`))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Loop.TargetFPS != 30 {
		t.Fatalf("target_fps = %v", cfg.Loop.TargetFPS)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	m := NewManager(writeFile(t, "party.yaml", "loop:\n  target_fps: 30\n  frames: 9\n"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	m := NewManager(writeFile(t, "party.json", `{"loop":{"target_fps":30}}{"extra":1}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected trailing-data error")
	}
}

func TestValidate(t *testing.T) {
	bad := func(mut func(*Config)) *Config {
		cfg := Default()
		mut(cfg)
		return cfg
	}
	cases := []struct {
		name string
		cfg  *Config
		frag string
	}{
		{"zero fps", bad(func(c *Config) { c.Loop.TargetFPS = 0 }), "target_fps"},
		{"negative gain", bad(func(c *Config) { c.Lights.Gain = -1 }), "gain"},
		{"bad duration", bad(func(c *Config) { c.Lights.Transition = "soon" }), "transition"},
		{"unnamed scene", bad(func(c *Config) {
			c.Scenes = []SceneConfig{{Schedule: "@hourly"}}
		}), "scenes[0].name"},
		{"duplicate scene", bad(func(c *Config) {
			c.Scenes = []SceneConfig{
				{Name: "a", Schedule: "@hourly"},
				{Name: "a", Schedule: "@daily"},
			}
		}), "duplicate"},
		{"brightness range", bad(func(c *Config) {
			b := 150
			c.Scenes = []SceneConfig{{Name: "a", Schedule: "@hourly", Action: SceneAction{Brightness: &b}}}
		}), "brightness"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.frag) {
				t.Fatalf("error %q does not mention %q", err, tc.frag)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	d, err := ParseDurationOrDefault("x", "", 3*time.Second)
	if err != nil || d != 3*time.Second {
		t.Fatalf("got %v, %v", d, err)
	}
	d, err = ParseDurationOrDefault("x", "250ms", 3*time.Second)
	if err != nil || d != 250*time.Millisecond {
		t.Fatalf("got %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestSubscribeDropOldest(t *testing.T) {
	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	a := &Config{Loop: LoopConfig{TargetFPS: 1}}
	b := &Config{Loop: LoopConfig{TargetFPS: 2}}
	m.publish(a)
	m.publish(b)

	got := <-ch
	if got.Loop.TargetFPS != 2 {
		t.Fatalf("got fps %v, want newest (2)", got.Loop.TargetFPS)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra config %+v", extra)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := NewManager("unused")
	ch := m.Subscribe(1)
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	// publishing after unsubscribe must not panic
	m.publish(&Config{})
}

func TestReloadSkipsUnchangedAndRejected(t *testing.T) {
	path := writeFile(t, "party.yaml", sampleYAML)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := m.Subscribe(2)
	defer m.Unsubscribe(ch)

	// identical content: no publish
	m.reload(context.Background())
	select {
	case <-ch:
		t.Fatal("unchanged config was published")
	default:
	}

	// changed but rejected by validator: no publish
	m.SetValidator(func(ctx context.Context, cfg *Config) error {
		return cfg.Validate()
	})
	if err := os.WriteFile(path, []byte("loop:\n  target_fps: -5\nlogging:\n  level: info\n  console: true\naudio:\n  enabled: false\nlights:\n  enabled: false\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	m.reload(context.Background())
	select {
	case <-ch:
		t.Fatal("rejected config was published")
	default:
	}
	if m.Get().Loop.TargetFPS != 20 {
		t.Fatalf("rejected config was committed: fps=%v", m.Get().Loop.TargetFPS)
	}

	// changed and valid: published
	if err := os.WriteFile(path, []byte("loop:\n  target_fps: 15\nlogging:\n  level: info\n  console: true\naudio:\n  enabled: false\nlights:\n  enabled: false\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	m.reload(context.Background())
	select {
	case got := <-ch:
		if got.Loop.TargetFPS != 15 {
			t.Fatalf("published fps = %v, want 15", got.Loop.TargetFPS)
		}
	case <-time.After(time.Second):
		t.Fatal("valid config was not published")
	}
}

func TestSummarizeChange(t *testing.T) {
	oldCfg := Default()
	newCfg := Default()
	newCfg.Loop.TargetFPS = 60
	newCfg.Lights.Gain = 5
	newCfg.Scenes = []SceneConfig{{Name: "a", Schedule: "@hourly"}}

	changed, attrs := SummarizeChange(oldCfg, newCfg)
	want := []string{"lights", "loop", "scenes"}
	if len(changed) != len(want) {
		t.Fatalf("changed = %v, want %v", changed, want)
	}
	for i := range want {
		if changed[i] != want[i] {
			t.Fatalf("changed = %v, want %v", changed, want)
		}
	}
	if len(attrs) == 0 {
		t.Fatal("expected log attrs for changed sections")
	}

	changed, _ = SummarizeChange(oldCfg, oldCfg)
	if len(changed) != 0 {
		t.Fatalf("identical configs reported changes: %v", changed)
	}
}
