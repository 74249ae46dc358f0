package dsp

import (
	"math"

	"github.com/drgolem/audioengine/pkg/types"
)

// EndFadeCurve shapes how gain falls from 1.0 to 0.0 across the fade
// window.
type EndFadeCurve int

const (
	EndFadeLinear  EndFadeCurve = iota // constant rate of attenuation
	EndFadeEaseIn                      // gentle at fade start, steep near the end
	EndFadeEaseOut                     // steep at fade start, gentle near the end
)

// EndFadeConfig is the user-facing end-fade configuration.
type EndFadeConfig struct {
	DurationMs     int
	Curve          EndFadeCurve
	ApplyToAllTracks bool
}

// EndFadeGain computes the end-of-track fade multiplier for the current
// playback position. It returns 1.0 (no attenuation) whenever the fade
// doesn't apply: repeat mode LOOP_POINT never fades (a loop point has no
// "end"), and a decoder that reports a reliable duration is skipped unless
// the user opted into fading every track via ApplyToAllTracks — without
// that opt-in, only tracks with unreliable/estimated durations (where the
// fade exists to mask an uncertain end) get one.
func EndFadeGain(positionSeconds, durationSeconds float64, cfg EndFadeConfig, repeatMode types.RepeatMode, reliableDuration bool) float32 {
	if repeatMode == types.RepeatLoopPoint {
		return 1
	}
	if !(durationSeconds > 0) || math.IsInf(durationSeconds, 0) || math.IsNaN(durationSeconds) {
		return 1
	}
	if cfg.DurationMs <= 0 {
		return 1
	}
	fadeSeconds := float64(cfg.DurationMs) / 1000.0
	if !(fadeSeconds > 0) {
		return 1
	}
	if reliableDuration && !cfg.ApplyToAllTracks {
		return 1
	}

	fadeStart := durationSeconds - fadeSeconds
	if fadeStart < 0 {
		fadeStart = 0
	}
	if positionSeconds <= fadeStart {
		return 1
	}
	if positionSeconds >= durationSeconds {
		return 0
	}

	progress := (positionSeconds - fadeStart) / math.Max(0.001, fadeSeconds)
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}

	gain := 1 - progress
	switch cfg.Curve {
	case EndFadeEaseIn:
		gain = 1 - (progress * progress)
	case EndFadeEaseOut:
		g := 1 - progress
		gain = g * g
	}
	if gain < 0 {
		gain = 0
	} else if gain > 1 {
		gain = 1
	}
	return float32(gain)
}
