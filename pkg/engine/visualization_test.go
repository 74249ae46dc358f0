package engine

import (
	"math"
	"testing"
	"time"
)

func TestFeedIgnoredWithoutRecentDemand(t *testing.T) {
	v := newVisualizationTap(2)
	now := time.Now()
	buf := []float32{1, 1, 1, 1}
	v.Feed(buf, 2, 2, now)

	snap := v.Snapshot()
	for _, s := range snap.VU {
		if s != 0 {
			t.Errorf("VU = %v without a recent Demand, want all zero", snap.VU)
			break
		}
	}
}

func TestFeedPopulatesWaveformAndVUAfterDemand(t *testing.T) {
	v := newVisualizationTap(2)
	now := time.Now()
	v.Demand(now)

	frames := 4
	buf := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		buf[i*2] = 0.5   // left
		buf[i*2+1] = -0.5 // right
	}
	v.Feed(buf, frames, 2, now)

	snap := v.Snapshot()
	if snap.Waveform[0][0] != 0.5 || snap.Waveform[1][0] != -0.5 {
		t.Errorf("Waveform[0][0..1] = %v, %v, want 0.5, -0.5", snap.Waveform[0][0], snap.Waveform[1][0])
	}
	if math.Abs(float64(snap.VU[0]-0.5)) > 1e-6 {
		t.Errorf("VU[0] = %v, want ~0.5", snap.VU[0])
	}
}

func TestFeedStopsAfterDemandWindowExpires(t *testing.T) {
	v := newVisualizationTap(1)
	base := time.Now()
	v.Demand(base)

	buf := []float32{0.9, 0.9}
	v.Feed(buf, 2, 1, base.Add(visualizationDemandWindow+time.Millisecond))

	snap := v.Snapshot()
	if snap.VU[0] != 0 {
		t.Errorf("VU[0] = %v after the demand window expired, want 0", snap.VU[0])
	}
}

func TestComputeLogSpectrumIsBoundedAndNormalized(t *testing.T) {
	history := make([]float64, visualizationHistorySize)
	for i := range history {
		history[i] = math.Sin(2 * math.Pi * float64(i) / 32.0)
	}

	spectrum := computeLogSpectrum(history, 0, visualizationSpectrumBins)
	if len(spectrum) != visualizationSpectrumBins {
		t.Fatalf("len(spectrum) = %d, want %d", len(spectrum), visualizationSpectrumBins)
	}

	maxVal := float32(0)
	for _, v := range spectrum {
		if v < 0 || v > 1.0001 {
			t.Errorf("spectrum bin = %v, want within [0, 1]", v)
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal < 0.5 {
		t.Errorf("max spectrum bin = %v, want a strong peak near 1.0 for a pure tone", maxVal)
	}
}

func TestComputeLogSpectrumHandlesSilence(t *testing.T) {
	history := make([]float64, visualizationHistorySize)
	spectrum := computeLogSpectrum(history, 0, visualizationSpectrumBins)
	for _, v := range spectrum {
		if v != 0 {
			t.Errorf("spectrum bin = %v for silent input, want 0", v)
			break
		}
	}
}
