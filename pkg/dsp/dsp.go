// Package dsp implements the render-time effects chain applied to each
// decoded chunk before it reaches the render ring: end-fade gain, the
// three-stage gain stack, channel routing, an OpenMPT-inspired effects
// bank (bass, surround, reverb, bitcrush), mono downmix, and a soft-clip
// output limiter. Chain.Process always runs the steps in that order;
// every step is a no-op fast path when its inputs are at unity/disabled,
// so a fully-bypassed chain costs a handful of branches, not a memcpy.
package dsp

import "math"

// GainParams holds the three independently settable gain stages in dB.
// Song gain overrides plugin gain whenever it is non-zero — the two are
// never summed, matching a tracker's "song volume beats global plugin
// volume" convention.
type GainParams struct {
	MasterDB float32
	SongDB   float32
	PluginDB float32
}

// RoutingParams mutes or solos the left/right output channels. Solo always
// overrides mute: if either side is soloed, only soloed sides play.
type RoutingParams struct {
	MuteLeft, MuteRight bool
	SoloLeft, SoloRight bool
}

// BassParams configures the low-shelf bass-boost block.
type BassParams struct {
	Enabled bool
	Depth   int // 4..8
	Range   int // 5..21, higher reaches further up from the bottom
}

// SurroundParams configures the Haas-delay pseudo-surround block.
type SurroundParams struct {
	Enabled bool
	Depth   int // 1..16
	DelayMs int // 5..45
}

// ReverbParams selects one of the 29 Schroeder reverb presets and its wet
// mix depth.
type ReverbParams struct {
	Enabled bool
	Depth   int // 1..16
	Preset  int // 0..28
}

// BitCrushParams configures the precision-limiting quantizer.
type BitCrushParams struct {
	Enabled bool
	Bits    int // 1..24
}

// Params bundles every chain step's live configuration for a single
// Process call.
type Params struct {
	Gain      GainParams
	Routing   RoutingParams
	Bass      BassParams
	Surround  SurroundParams
	Reverb    ReverbParams
	BitCrush  BitCrushParams
	ForceMono bool
	Limiter   bool
}

// Chain holds the per-stream state that must persist across Process calls:
// the effects bank's filter/delay-line history and the limiter's envelope.
// A Chain is not safe for concurrent use; the render worker owns one per
// active stream.
type Chain struct {
	sampleRate int

	bass     bassFilter
	surround surroundEffect
	reverb   reverbEffect
	limiter  limiter
}

// NewChain builds a Chain for sampleRate. Process re-derives block
// coefficients automatically if the sample rate it's called with changes.
func NewChain(sampleRate int) *Chain {
	c := &Chain{}
	c.configure(sampleRate)
	return c
}

func (c *Chain) configure(sampleRate int) {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	c.sampleRate = sampleRate
	c.bass.reset(sampleRate)
	c.surround.reset(sampleRate)
	c.reverb.reset(sampleRate)
}

// Process runs buffer (interleaved, frames*channels long) through every
// chain step in spec order. sampleRate lets the caller report a rate
// change (e.g. after a decoder switch); block coefficients are recomputed
// only when it differs from the Chain's current rate. endFadeGain is the
// step-1 gain already computed by the caller from playback position,
// duration, and fade configuration (see EndFadeGain) — it's folded into
// the three-stage gain multiply exactly as the teacher engine folds it,
// rather than applied as a second separate pass over the buffer.
func (c *Chain) Process(buffer []float32, channels, sampleRate int, params Params, endFadeGain float32) {
	if len(buffer) == 0 || channels <= 0 {
		return
	}
	if sampleRate > 0 && sampleRate != c.sampleRate {
		c.configure(sampleRate)
	}

	ApplyGain(buffer, params.Gain.MasterDB, params.Gain.SongDB, params.Gain.PluginDB, endFadeGain)
	ApplyChannelRouting(buffer, channels, params.Routing)

	if params.Bass.Enabled {
		c.bass.process(buffer, channels, params.Bass)
	}
	if params.Surround.Enabled {
		c.surround.process(buffer, channels, params.Surround)
	}
	if params.Reverb.Enabled {
		c.reverb.process(buffer, channels, params.Reverb)
	}
	if params.BitCrush.Enabled {
		applyBitCrush(buffer, params.BitCrush.Bits)
	}

	ApplyMonoDownmix(buffer, channels, params.ForceMono)

	if params.Limiter {
		c.limiter.process(buffer)
	} else {
		c.limiter.reset()
	}
}

// dbToGain converts a decibel value to a linear amplitude multiplier.
func dbToGain(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

// ApplyGain multiplies buffer by the three-stage gain stack converted to
// linear: master times (song if non-zero else plugin) times extraGain
// (clamped to [0,1], typically an end-fade gain). Skipped entirely when
// the combined gain is exactly unity.
func ApplyGain(buffer []float32, masterDB, songDB, pluginDB, extraGain float32) {
	master := dbToGain(masterDB)
	secondary := dbToGain(pluginDB)
	if songDB != 0 {
		secondary = dbToGain(songDB)
	}
	if extraGain > 1 {
		extraGain = 1
	} else if extraGain < 0 {
		extraGain = 0
	}
	gain := master * secondary * extraGain

	if gain == 1 {
		return
	}
	for i := range buffer {
		buffer[i] *= gain
	}
}

// ApplyChannelRouting zeroes out muted channels, with solo overriding
// mute on either side. A no-op for mono or when both sides are audible.
func ApplyChannelRouting(buffer []float32, channels int, routing RoutingParams) {
	if channels < 2 {
		return
	}
	anySolo := routing.SoloLeft || routing.SoloRight
	leftEnabled := routing.SoloLeft
	rightEnabled := routing.SoloRight
	if !anySolo {
		leftEnabled = !routing.MuteLeft
		rightEnabled = !routing.MuteRight
	}
	if leftEnabled && rightEnabled {
		return
	}

	frames := len(buffer) / channels
	for i := 0; i < frames; i++ {
		base := i * channels
		if !leftEnabled {
			buffer[base] = 0
		}
		if !rightEnabled {
			buffer[base+1] = 0
		}
	}
}

// ApplyMonoDownmix averages left and right into both channels when enabled
// and the buffer is stereo. Channel counts other than 2 are left alone —
// true N-channel downmix is out of scope.
func ApplyMonoDownmix(buffer []float32, channels int, enabled bool) {
	if !enabled || channels != 2 {
		return
	}
	for i := 0; i < len(buffer); i += 2 {
		mono := (buffer[i] + buffer[i+1]) * 0.5
		buffer[i] = mono
		buffer[i+1] = mono
	}
}

func clamp1(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
