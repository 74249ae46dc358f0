package dsp

import (
	"testing"

	"github.com/drgolem/audioengine/pkg/types"
)

func TestApplyGainUnityIsNoop(t *testing.T) {
	buf := []float32{0.1, -0.2, 0.3, -0.4}
	want := append([]float32{}, buf...)
	ApplyGain(buf, 0, 0, 0, 1)
	for i := range buf {
		if buf[i] != want[i] {
			t.Fatalf("ApplyGain at unity changed buf[%d]: got %v want %v", i, buf[i], want[i])
		}
	}
}

func TestApplyGainSongOverridesPlugin(t *testing.T) {
	buf := []float32{1.0}
	ApplyGain(buf, 0, 6, -60, 1) // song != 0 wins over plugin's huge attenuation
	if buf[0] < 1.5 {
		t.Fatalf("ApplyGain = %v, want song gain (+6dB) to dominate plugin gain", buf[0])
	}
}

func TestApplyChannelRoutingMuteLeft(t *testing.T) {
	buf := []float32{1, 1, 1, 1}
	ApplyChannelRouting(buf, 2, RoutingParams{MuteLeft: true})
	for i := 0; i < len(buf); i += 2 {
		if buf[i] != 0 {
			t.Errorf("left channel at frame %d = %v, want 0 (muted)", i/2, buf[i])
		}
		if buf[i+1] != 1 {
			t.Errorf("right channel at frame %d = %v, want untouched", i/2, buf[i+1])
		}
	}
}

func TestApplyChannelRoutingSoloOverridesMute(t *testing.T) {
	buf := []float32{1, 1}
	ApplyChannelRouting(buf, 2, RoutingParams{MuteLeft: true, SoloLeft: true})
	if buf[0] != 1 {
		t.Errorf("soloed left channel = %v, want untouched despite mute", buf[0])
	}
	if buf[1] != 0 {
		t.Errorf("non-soloed right channel = %v, want 0", buf[1])
	}
}

func TestApplyMonoDownmixAverages(t *testing.T) {
	buf := []float32{1.0, -1.0}
	ApplyMonoDownmix(buf, 2, true)
	if buf[0] != 0 || buf[1] != 0 {
		t.Errorf("downmix of +1/-1 = %v, want both channels at 0", buf)
	}
}

func TestApplyMonoDownmixDisabledIsNoop(t *testing.T) {
	buf := []float32{1.0, -1.0}
	ApplyMonoDownmix(buf, 2, false)
	if buf[0] != 1.0 || buf[1] != -1.0 {
		t.Errorf("disabled downmix changed buf: %v", buf)
	}
}

func TestEndFadeGainBeforeFadeWindowIsUnity(t *testing.T) {
	cfg := EndFadeConfig{DurationMs: 3000, Curve: EndFadeLinear}
	g := EndFadeGain(0, 120, cfg, types.RepeatOff, false)
	if g != 1 {
		t.Errorf("EndFadeGain before fade window = %v, want 1", g)
	}
}

func TestEndFadeGainAtDurationIsZero(t *testing.T) {
	cfg := EndFadeConfig{DurationMs: 3000, Curve: EndFadeLinear}
	g := EndFadeGain(120, 120, cfg, types.RepeatOff, false)
	if g != 0 {
		t.Errorf("EndFadeGain at duration = %v, want 0", g)
	}
}

func TestEndFadeGainBypassedAtLoopPoint(t *testing.T) {
	cfg := EndFadeConfig{DurationMs: 3000, Curve: EndFadeLinear}
	g := EndFadeGain(119.9, 120, cfg, types.RepeatLoopPoint, false)
	if g != 1 {
		t.Errorf("EndFadeGain at loop point = %v, want 1 (bypassed)", g)
	}
}

func TestEndFadeGainSkippedWithReliableDurationUnlessOptedIn(t *testing.T) {
	cfg := EndFadeConfig{DurationMs: 3000, Curve: EndFadeLinear}
	g := EndFadeGain(119.9, 120, cfg, types.RepeatOff, true)
	if g != 1 {
		t.Errorf("EndFadeGain with reliable duration and no opt-in = %v, want 1", g)
	}

	cfg.ApplyToAllTracks = true
	g = EndFadeGain(119.9, 120, cfg, types.RepeatOff, true)
	if g >= 1 {
		t.Errorf("EndFadeGain with reliable duration and opt-in = %v, want < 1 mid-fade", g)
	}
}

func TestEndFadeGainMidpointOrdersCurvesDifferently(t *testing.T) {
	cfg := EndFadeConfig{DurationMs: 2000}
	position, duration := 119.0, 120.0 // halfway through a 2s fade window

	linear := EndFadeGain(position, duration, EndFadeConfig{DurationMs: cfg.DurationMs, Curve: EndFadeLinear}, types.RepeatOff, false)
	easeIn := EndFadeGain(position, duration, EndFadeConfig{DurationMs: cfg.DurationMs, Curve: EndFadeEaseIn}, types.RepeatOff, false)
	easeOut := EndFadeGain(position, duration, EndFadeConfig{DurationMs: cfg.DurationMs, Curve: EndFadeEaseOut}, types.RepeatOff, false)

	if !(easeOut < linear && linear < easeIn) {
		t.Errorf("midpoint gains not ordered easeOut(%v) < linear(%v) < easeIn(%v)", easeOut, linear, easeIn)
	}
}

func TestChainFullBypassIsIdentity(t *testing.T) {
	c := NewChain(44100)
	buf := []float32{0.1, -0.2, 0.3, -0.4}
	want := append([]float32{}, buf...)

	c.Process(buf, 2, 44100, Params{}, 1)

	for i := range buf {
		if buf[i] != want[i] {
			t.Errorf("fully bypassed chain changed buf[%d]: got %v want %v", i, buf[i], want[i])
		}
	}
}
