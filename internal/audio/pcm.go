package audio

import (
	"encoding/binary"
	"math"
)

// DecodeS16LE converts raw little-endian signed 16-bit samples to floats in
// [-1, 1). A trailing odd byte is ignored; callers should hold it back for
// the next chunk.
func DecodeS16LE(raw []byte) []float64 {
	n := len(raw) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		out[i] = float64(s) / 32768.0
	}
	return out
}

// Norm returns the L2 norm of the sample block. Silence and an empty block
// both give 0.
func Norm(samples []float64) float64 {
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum)
}
