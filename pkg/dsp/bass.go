package dsp

import "math"

// bassFilter is a low-shelf boost: a one-pole lowpass tracks the signal's
// bottom end, and a Depth-scaled fraction of that lowpassed signal is added
// back on top of the original sample. Range selects the shelf's cutoff —
// higher reaches further up from the very bottom.
type bassFilter struct {
	sampleRate int
	rangeParam int
	alpha      float32
	state      [2]float32
}

func (b *bassFilter) reset(sampleRate int) {
	b.sampleRate = sampleRate
	b.rangeParam = -1
	b.state = [2]float32{}
}

func (b *bassFilter) configure(rangeParam int) {
	if rangeParam < 5 {
		rangeParam = 5
	} else if rangeParam > 21 {
		rangeParam = 21
	}
	// Range 5..21 maps to a shelf cutoff from ~60Hz to ~320Hz.
	cutoffHz := 60.0 + float64(rangeParam-5)*16.25
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	dt := 1.0 / float64(b.sampleRate)
	b.alpha = float32(dt / (rc + dt))
	b.rangeParam = rangeParam
}

func (b *bassFilter) process(buffer []float32, channels int, params BassParams) {
	if params.Range != b.rangeParam {
		b.configure(params.Range)
	}
	depth := params.Depth
	if depth < 4 {
		depth = 4
	} else if depth > 8 {
		depth = 8
	}
	boost := float32(depth) / 8.0

	frames := len(buffer) / channels
	for i := 0; i < frames; i++ {
		base := i * channels
		for c := 0; c < channels && c < 2; c++ {
			idx := base + c
			lp := b.state[c] + b.alpha*(buffer[idx]-b.state[c])
			b.state[c] = lp
			buffer[idx] = clamp1(buffer[idx] + lp*boost)
		}
	}
}
