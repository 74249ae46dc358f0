package dsp

import "math"

const (
	limiterSoftClipStart = 0.92
	limiterSoftClipDrive = 1.45
	limiterAttack        = 0.45
	limiterRelease       = 0.04
	limiterMinGain       = 0.1
)

// limiter is a peak-based attack/release envelope follower feeding a
// soft-knee tanh saturator above limiterSoftClipStart, with a hard clamp to
// [-1, 1] as the last line of defense. Its gain state persists across
// Process calls so the envelope doesn't reset every chunk.
type limiter struct {
	gain float32
}

func (l *limiter) reset() {
	l.gain = 1
}

func (l *limiter) process(buffer []float32) {
	if l.gain == 0 {
		l.gain = 1
	}

	peak := float32(0)
	for _, v := range buffer {
		a := float32(math.Abs(float64(v)))
		if a > peak {
			peak = a
		}
	}
	target := float32(1)
	if peak > 1 {
		target = 1 / peak
	}
	coeff := float32(limiterRelease)
	if target < l.gain {
		coeff = limiterAttack
	}
	l.gain += (target - l.gain) * coeff
	if l.gain < limiterMinGain {
		l.gain = limiterMinGain
	} else if l.gain > 1 {
		l.gain = 1
	}

	tanhNorm := float32(math.Tanh(limiterSoftClipDrive))
	for i, v := range buffer {
		sample := v * l.gain
		if sample < 0 && -sample > limiterSoftClipStart || sample >= limiterSoftClipStart {
			sample = float32(math.Tanh(float64(sample*limiterSoftClipDrive))) / tanhNorm
		}
		buffer[i] = clamp1(sample)
	}
}
