package engine

import "github.com/drgolem/audioengine/pkg/types"

// timelineCorrectionFactor is how aggressively a Discontinuous decoder's
// reported position pulls the smoothed UI position toward it each render
// step.
const timelineCorrectionFactor = 0.12

// timelineCorrectionClamp bounds a single step's correction so a noisy
// decoder-reported position can't cause a visible UI jump.
const timelineCorrectionClamp = 0.25

// loopPointSnapThreshold is the backward-jump size, in LOOP_POINT mode,
// past which the smoothed position snaps instead of correcting gently.
const loopPointSnapThreshold = 0.5

// restartSnapThreshold is the backward-jump size, within the first two
// seconds of a repeat-track/subtune restart, past which the smoothed
// position snaps.
const restartSnapThreshold = 1.0
const restartSnapWindow = 2.0

// timeline reconciles a decoder's reported position with the engine's own
// render-driven clock. It is guarded by decoderMu: the render worker
// advances and reconciles it under that lock, and SetSource and the seek
// paths reset it under the same lock.
type timeline struct {
	mode types.TimelineMode

	// ContinuousLinear bookkeeping.
	baseSeconds          float64
	absoluteInputFrames  uint64
	decoderRate          int

	// Discontinuous bookkeeping.
	smoothed    float64
	initialized bool
}

// Reset rebases the timeline to startSeconds, as done after a seek or a
// decoder swap.
func (t *timeline) Reset(mode types.TimelineMode, decoderRate int, startSeconds float64) {
	t.mode = mode
	t.decoderRate = decoderRate
	t.baseSeconds = startSeconds
	t.absoluteInputFrames = 0
	t.smoothed = startSeconds
	t.initialized = true
}

// AdvanceContinuous accounts for frames newly consumed from a
// ContinuousLinear (or Unknown) decoder.
func (t *timeline) AdvanceContinuous(framesConsumed uint64) {
	t.absoluteInputFrames += framesConsumed
}

// ContinuousPosition returns base + absolute_frames/decoder_rate, the
// position for a ContinuousLinear decoder.
func (t *timeline) ContinuousPosition() float64 {
	if t.decoderRate <= 0 {
		return t.baseSeconds
	}
	return t.baseSeconds + float64(t.absoluteInputFrames)/float64(t.decoderRate)
}

// ReconcileDiscontinuous advances the smoothed position by elapsedSeconds
// of render time, then gently corrects it toward the decoder's own
// reported position, snapping instead when the jump is large enough to
// indicate a loop wrap or a restart rather than drift.
func (t *timeline) ReconcileDiscontinuous(elapsedSeconds, decoderReported float64, repeatMode types.RepeatMode) float64 {
	if !t.initialized {
		t.smoothed = decoderReported
		t.initialized = true
		return t.smoothed
	}

	previous := t.smoothed
	t.smoothed += elapsedSeconds

	delta := decoderReported - t.smoothed
	backwardJump := previous - decoderReported

	switch {
	case repeatMode == types.RepeatLoopPoint && backwardJump > loopPointSnapThreshold:
		t.smoothed = decoderReported
	case (repeatMode == types.RepeatSet || repeatMode == types.RepeatCurrentTrack) &&
		backwardJump > restartSnapThreshold && decoderReported < restartSnapWindow:
		t.smoothed = decoderReported
	default:
		correction := delta * timelineCorrectionFactor
		if correction > timelineCorrectionClamp {
			correction = timelineCorrectionClamp
		} else if correction < -timelineCorrectionClamp {
			correction = -timelineCorrectionClamp
		}
		t.smoothed += correction
	}

	return t.smoothed
}
