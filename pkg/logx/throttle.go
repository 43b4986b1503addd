package logx

import (
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Throttle wraps a Logger with a token-bucket limiter so hot paths (e.g. a
// frame loop that overruns its budget every single frame) cannot flood the
// sinks. Suppressed lines are counted and the count is attached to the next
// line that makes it through.
type Throttle struct {
	log     Logger
	limiter *rate.Limiter

	suppressed atomic.Uint64
}

// NewThrottle allows at most perSec lines per second with the given burst.
func NewThrottle(log Logger, perSec float64, burst int) *Throttle {
	if perSec <= 0 {
		perSec = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttle{log: log, limiter: rate.NewLimiter(rate.Limit(perSec), burst)}
}

func (t *Throttle) Warn(msg string, fields ...Field) { t.emit(LevelWarn, msg, fields...) }
func (t *Throttle) Info(msg string, fields ...Field) { t.emit(LevelInfo, msg, fields...) }

// Suppressed returns how many lines have been dropped since the last
// successful emit.
func (t *Throttle) Suppressed() uint64 { return t.suppressed.Load() }

func (t *Throttle) emit(level Level, msg string, fields ...Field) {
	if !t.limiter.Allow() {
		t.suppressed.Add(1)
		return
	}
	if n := t.suppressed.Swap(0); n > 0 {
		fields = append(fields, Uint64("suppressed", n))
	}
	switch level {
	case LevelWarn:
		t.log.Warn(msg, fields...)
	default:
		t.log.Info(msg, fields...)
	}
}
