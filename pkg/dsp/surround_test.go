package dsp

import "testing"

func TestSurroundEffectKeepsOutputBounded(t *testing.T) {
	var s surroundEffect
	s.reset(44100)

	buf := make([]float32, 2*512)
	for i := 0; i < len(buf); i += 2 {
		buf[i] = 0.9
		buf[i+1] = -0.9
	}
	s.process(buf, 2, SurroundParams{Enabled: true, Depth: 16, DelayMs: 20})

	for i, v := range buf {
		if v > 1.0 || v < -1.0 {
			t.Fatalf("buf[%d] = %v, want within [-1, 1]", i, v)
		}
	}
}

func TestSurroundEffectMonoIsNoop(t *testing.T) {
	var s surroundEffect
	s.reset(44100)
	buf := []float32{0.5, 0.25}
	s.process(buf, 1, SurroundParams{Enabled: true, Depth: 16, DelayMs: 20})
	if buf[0] != 0.5 || buf[1] != 0.25 {
		t.Errorf("mono input changed: %v, want untouched (surround needs >= 2 channels)", buf)
	}
}
