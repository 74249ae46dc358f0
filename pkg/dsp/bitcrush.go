package dsp

import "math"

// applyBitCrush quantizes every sample to bits of precision, a lo-fi
// "precision-limiting" effect rather than true sample-rate reduction.
func applyBitCrush(buffer []float32, bits int) {
	if bits < 1 {
		bits = 1
	} else if bits > 24 {
		bits = 24
	}
	levels := float32(math.Pow(2, float64(bits-1)))
	for i, v := range buffer {
		buffer[i] = clamp1(float32(math.Round(float64(v*levels))) / levels)
	}
}
