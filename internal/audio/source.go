// Package audio supplies microphone loudness readings to the frame loop.
//
// The capture path is dependency-injected end to end: a CaptureSource spawns
// an external PCM recorder and owns the pipe, while tests feed the same pump
// from an in-memory reader. Nothing here blocks the caller: Level always
// returns immediately with whatever audio arrived since the previous call.
package audio

// LevelSource produces an instantaneous loudness reading.
//
// Level is non-blocking by contract: it drains the samples that accumulated
// since the last call and returns their L2 norm, or 0 when nothing arrived.
// The frame loop calls it once per frame and must never be made to wait on
// the audio device.
type LevelSource interface {
	Start() error
	Level() float64
	Close() error
}

// Spawner allows callers (e.g. the daemon supervisor) to own goroutines
// created by a capture source. When nil, the source falls back to plain `go`.
type Spawner interface {
	Go(name string, fn func())
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(name string, fn func())

func (f SpawnerFunc) Go(name string, fn func()) { f(name, fn) }
