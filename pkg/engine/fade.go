package engine

import "math"

// pauseFadeDirection is which way a pause/resume envelope is moving.
type pauseFadeDirection int

const (
	fadeIdle pauseFadeDirection = iota
	fadeToFloor                // stop_with_pause_resume_fade: unity -> floor
	fadeToUnity                // start_with_pause_resume_fade: floor -> unity
)

// pauseResumeFade walks a cosine-eased gain ramp between unity and a
// floor gain, sample by sample, from the realtime side (pkg/backend's
// PostPop hook). Distinct from the DSP chain's end-fade, which lives in
// the render worker and is duration/curve driven from playback position
// instead of frame-counted from an explicit pause/resume request.
type pauseResumeFade struct {
	direction    pauseFadeDirection
	floorGain    float32
	frame        int
	totalFrames  int
}

// start arms a new ramp of durationFrames frames ending at floorGain (for
// fadeToFloor) or starting from floorGain (for fadeToUnity). A direction
// change (e.g. resume requested mid pause-fade) restarts from the current
// gain's equivalent frame rather than from the beginning, so there's no
// audible discontinuity; callers that want a fresh ramp call start with a
// new pauseResumeFade value.
func (f *pauseResumeFade) start(direction pauseFadeDirection, durationFrames int, floorGain float32) {
	startFrame := 0
	if f.active() && f.direction != direction {
		// The two ramps mirror each other, so progress p in one direction
		// yields the same gain as progress 1-p in the other.
		progress := math.Min(float64(f.frame)/float64(f.totalFrames), 1)
		startFrame = int(math.Round((1 - progress) * float64(durationFrames)))
	}
	f.direction = direction
	f.floorGain = floorGain
	f.totalFrames = durationFrames
	if f.totalFrames < 1 {
		f.totalFrames = 1
	}
	f.frame = startFrame
}

// active reports whether a ramp is in progress.
func (f *pauseResumeFade) active() bool {
	return f.direction != fadeIdle
}

// atFloor reports whether a fadeToFloor ramp has completed.
func (f *pauseResumeFade) atFloor() bool {
	return f.direction == fadeToFloor && f.frame >= f.totalFrames
}

// gainForFrame returns the cosine-eased gain for the ramp's current
// frame and advances by one frame. Once the ramp completes it holds its
// terminal gain (floorGain or unity) and direction becomes fadeIdle.
func (f *pauseResumeFade) gainForFrame() float32 {
	if f.direction == fadeIdle {
		return 1.0
	}

	progress := float64(f.frame) / float64(f.totalFrames)
	if progress > 1 {
		progress = 1
	}
	// cosine ease: 0 -> 1 maps to 1 -> 0 smoothly (half a cosine cycle).
	eased := 0.5 * (1 + math.Cos(progress*math.Pi))

	var gain float32
	switch f.direction {
	case fadeToFloor:
		gain = f.floorGain + (1-f.floorGain)*float32(eased)
	case fadeToUnity:
		gain = 1 - (1-f.floorGain)*float32(eased)
	}

	f.frame++
	if f.frame >= f.totalFrames {
		f.direction = fadeIdle
	}
	return gain
}

// Apply multiplies every sample in buf by the envelope's per-frame gain,
// advancing one frame per sample group of channels samples, and reports
// whether a fadeToFloor ramp reached its floor during this call.
func (f *pauseResumeFade) Apply(buf []float32, frames, channels int) (reachedFloor bool) {
	if f.direction == fadeIdle {
		return false
	}
	wasFadeToFloor := f.direction == fadeToFloor

	for i := 0; i < frames; i++ {
		if f.direction == fadeIdle {
			break // ramp already finished partway through this call
		}
		gain := f.gainForFrame()
		for c := 0; c < channels; c++ {
			buf[i*channels+c] *= gain
		}
	}

	return wasFadeToFloor && f.direction == fadeIdle
}

// floorGainFromDB converts an attenuation in dB (e.g. 16 for a 16 dB
// pause-fade floor) into a linear gain.
func floorGainFromDB(attenuationDB float64) float32 {
	return float32(math.Pow(10, -attenuationDB/20))
}
