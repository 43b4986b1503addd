package logx

import (
	"bytes"
	"strings"
	"testing"
)

func TestThrottleSuppressesAndCounts(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "info")
	th := NewThrottle(log, 1, 1)

	th.Warn("budget overrun")
	th.Warn("budget overrun")
	th.Warn("budget overrun")

	lines := strings.Count(buf.String(), "\n")
	if lines != 1 {
		t.Fatalf("emitted %d lines, want 1", lines)
	}
	if got := th.Suppressed(); got != 2 {
		t.Fatalf("suppressed = %d, want 2", got)
	}
}

func TestWithFieldsApplied(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("comp", "loop"))
	log.Info("hello", Int("frame", 3))

	out := buf.String()
	if !strings.Contains(out, `"comp":"loop"`) {
		t.Fatalf("missing fixed field: %s", out)
	}
	if !strings.Contains(out, `"frame":3`) {
		t.Fatalf("missing call-site field: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn")
	log.Debug("invisible")
	log.Info("invisible")
	log.Warn("visible")

	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Fatalf("emitted %d lines, want 1: %s", got, buf.String())
	}
}

func TestParseLevelFallback(t *testing.T) {
	if ParseLevel("nonsense", LevelInfo) != LevelInfo {
		t.Fatal("unknown level should fall back to default")
	}
	if ParseLevel("WARN", LevelInfo) != LevelWarn {
		t.Fatal("level parse should be case-insensitive")
	}
}
