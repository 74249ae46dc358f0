package dsp

import "testing"

func TestApplyBitCrushReducesDistinctLevels(t *testing.T) {
	buf := make([]float32, 0, 2000)
	for i := 0; i < 2000; i++ {
		buf = append(buf, float32(i-1000)/1000.0)
	}
	applyBitCrush(buf, 2)

	seen := map[float32]bool{}
	for _, v := range buf {
		seen[v] = true
	}
	if len(seen) > 8 {
		t.Errorf("2-bit crush produced %d distinct levels from 2000 samples, want a small handful", len(seen))
	}
}

func TestApplyBitCrushClampsToRange(t *testing.T) {
	buf := []float32{1.5, -1.5}
	applyBitCrush(buf, 16)
	for i, v := range buf {
		if v > 1.0 || v < -1.0 {
			t.Errorf("buf[%d] = %v, want clamped within [-1, 1]", i, v)
		}
	}
}
