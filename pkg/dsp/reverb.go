package dsp

import "math"

// reverbEffect is a two-comb-per-channel Schroeder reverb. Each comb is a
// feedback delay line with a damping lowpass in the loop; delay lengths are
// derived from the upstream bank's tank-delay constants (683/773 samples
// for the left comb pair, 811/1013 for the right), scaled to the current
// sample rate. Comb feedback comes from the selected preset's decay time;
// the damping coefficient comes from its high-frequency decay ratio.
type reverbEffect struct {
	sampleRate int
	preset     int

	combL1, combL2 []float32
	combR1, combR2 []float32
	posL1, posL2   int
	posR1, posR2   int

	fbL1, fbL2, fbR1, fbR2     float32
	dampL1, dampL2             float32
	dampR1, dampR2             float32
	filtL1, filtL2             float32
	filtR1, filtR2             float32
}

// Reference comb lengths in samples at 44100Hz, derived from the upstream
// tank's kRvbDly1LLen/kRvbDly2LLen/kRvbDly1RLen/kRvbDly2RLen constants
// (which carry a x2 headroom factor for modulation the simplified bank
// here doesn't need).
const (
	refSampleRate  = 44100
	refCombL1Len   = 683
	refCombL2Len   = 773
	refCombR1Len   = 811
	refCombR2Len   = 1013
)

func (r *reverbEffect) reset(sampleRate int) {
	r.sampleRate = sampleRate
	r.preset = -1

	scale := float64(sampleRate) / refSampleRate
	r.combL1 = make([]float32, scaledLen(refCombL1Len, scale))
	r.combL2 = make([]float32, scaledLen(refCombL2Len, scale))
	r.combR1 = make([]float32, scaledLen(refCombR1Len, scale))
	r.combR2 = make([]float32, scaledLen(refCombR2Len, scale))
	r.posL1, r.posL2, r.posR1, r.posR2 = 0, 0, 0, 0
	r.filtL1, r.filtL2, r.filtR1, r.filtR2 = 0, 0, 0, 0
}

func scaledLen(refLen int, scale float64) int {
	n := int(math.Round(float64(refLen) * scale))
	if n < 1 {
		n = 1
	}
	return n
}

func (r *reverbEffect) configure(preset int) {
	if preset < 0 {
		preset = 0
	} else if preset > 28 {
		preset = 28
	}
	p := reverbPresets[preset]

	delaySecL1 := float64(len(r.combL1)) / float64(r.sampleRate)
	delaySecL2 := float64(len(r.combL2)) / float64(r.sampleRate)
	delaySecR1 := float64(len(r.combR1)) / float64(r.sampleRate)
	delaySecR2 := float64(len(r.combR2)) / float64(r.sampleRate)

	decay := float64(p.decayTime)
	if decay < 0.05 {
		decay = 0.05
	}
	r.fbL1 = combFeedback(delaySecL1, decay)
	r.fbL2 = combFeedback(delaySecL2, decay)
	r.fbR1 = combFeedback(delaySecR1, decay)
	r.fbR2 = combFeedback(delaySecR2, decay)

	// Lower decayHFRatio means the tail loses high end faster; map that to
	// a stronger damping lowpass inside each comb's feedback loop.
	damp := 1 - clampFloat(float64(p.decayHFRatio), 0.05, 1.5)/1.5
	r.dampL1, r.dampL2 = float32(damp), float32(damp)
	r.dampR1, r.dampR2 = float32(damp), float32(damp)

	r.preset = preset
}

func combFeedback(delaySeconds, decayTime float64) float32 {
	fb := math.Pow(10, -3*delaySeconds/decayTime)
	return float32(clampFloat(fb, 0, 0.98))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (r *reverbEffect) process(buffer []float32, channels int, params ReverbParams) {
	if params.Preset != r.preset {
		r.configure(params.Preset)
	}
	p := reverbPresets[r.preset]
	depth := params.Depth
	if depth < 1 {
		depth = 1
	} else if depth > 16 {
		depth = 16
	}
	wet := float32(depth) / 16.0 * (p.diffusion / 100.0) * (p.density / 100.0)

	frames := len(buffer) / channels
	for i := 0; i < frames; i++ {
		base := i * channels
		dry := buffer[base]
		var dryR float32
		if channels > 1 {
			dryR = buffer[base+1]
		} else {
			dryR = dry
		}

		wetL := r.tapComb(&r.combL1, &r.posL1, &r.filtL1, r.fbL1, r.dampL1, dry) +
			r.tapComb(&r.combL2, &r.posL2, &r.filtL2, r.fbL2, r.dampL2, dry)
		wetRch := r.tapComb(&r.combR1, &r.posR1, &r.filtR1, r.fbR1, r.dampR1, dryR) +
			r.tapComb(&r.combR2, &r.posR2, &r.filtR2, r.fbR2, r.dampR2, dryR)

		buffer[base] = clamp1(dry + wet*wetL*0.5)
		if channels > 1 {
			buffer[base+1] = clamp1(dryR + wet*wetRch*0.5)
		}
	}
}

// tapComb reads the current output of a feedback comb delay, advances it by
// one sample fed with input plus the damped feedback, and returns the
// output that was read.
func (r *reverbEffect) tapComb(line *[]float32, pos *int, filtState *float32, feedback, damp float32, input float32) float32 {
	buf := *line
	n := len(buf)
	out := buf[*pos]

	*filtState += damp * (out - *filtState)
	fed := input + feedback*(*filtState)
	buf[*pos] = clamp1(fed)

	*pos++
	if *pos >= n {
		*pos = 0
	}
	return out
}
