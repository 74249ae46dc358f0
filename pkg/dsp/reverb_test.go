package dsp

import "testing"

func TestReverbPresetsHas29Entries(t *testing.T) {
	if len(reverbPresets) != 29 {
		t.Fatalf("len(reverbPresets) = %d, want 29", len(reverbPresets))
	}
}

func TestReverbEffectKeepsOutputBounded(t *testing.T) {
	var r reverbEffect
	r.reset(44100)

	buf := make([]float32, 2*2048)
	for i := 0; i < len(buf); i += 2 {
		if (i/2)%100 == 0 {
			buf[i], buf[i+1] = 1.0, -1.0 // occasional impulse
		}
	}
	r.process(buf, 2, ReverbParams{Enabled: true, Depth: 16, Preset: 12})

	for i, v := range buf {
		if v > 1.0 || v < -1.0 {
			t.Fatalf("buf[%d] = %v, want within [-1, 1]", i, v)
		}
	}
}

func TestReverbEffectPresetOutOfRangeClamps(t *testing.T) {
	var r reverbEffect
	r.reset(44100)
	buf := []float32{0.1, 0.1}

	r.process(buf, 2, ReverbParams{Enabled: true, Depth: 8, Preset: 99})
	if r.preset != 28 {
		t.Errorf("preset = %d, want clamped to 28", r.preset)
	}

	r.process(buf, 2, ReverbParams{Enabled: true, Depth: 8, Preset: -5})
	if r.preset != 0 {
		t.Errorf("preset = %d, want clamped to 0", r.preset)
	}
}
