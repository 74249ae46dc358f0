package engine

import (
	"math"
	"math/cmplx"
	"sync"
	"time"
)

const (
	visualizationWaveformSamples = 256
	visualizationSpectrumBins    = 256
	visualizationHistorySize     = 1024 // power of two, FFT window
	visualizationDemandWindow    = 750 * time.Millisecond
)

// VisualizationSnapshot is a read-only copy of the most recent
// visualization data, safe to hand to a UI thread.
type VisualizationSnapshot struct {
	Waveform [][]float32 // per channel, up to visualizationWaveformSamples each
	VU       []float32   // per channel RMS-ish level, 0..1
	Spectrum []float32   // visualizationSpectrumBins log-spaced magnitude bins, 0..1
}

// visualizationTap implements the single callback-driven visualization
// path the original engine's two duplicate code paths collapse to (per
// spec.md's open question): it is fed from pkg/backend's PostPop hook,
// the same realtime point pause/resume fade is applied, and only does
// any work when a UI consumer demanded a fresh snapshot within the last
// visualizationDemandWindow.
type visualizationTap struct {
	mu sync.Mutex

	lastDemandAt time.Time

	channels int
	waveform [][]float32
	vu       []float32

	monoHistory []float64 // rolling window for spectrum FFT
	historyPos  int

	snapshot VisualizationSnapshot
}

func newVisualizationTap(channels int) *visualizationTap {
	v := &visualizationTap{
		channels:    channels,
		waveform:    make([][]float32, channels),
		vu:          make([]float32, channels),
		monoHistory: make([]float64, visualizationHistorySize),
	}
	for c := range v.waveform {
		v.waveform[c] = make([]float32, visualizationWaveformSamples)
	}
	return v
}

// Demand marks that a consumer wants fresh visualization data, opening
// the on-demand window the Feed hot path checks before doing any work.
func (v *visualizationTap) Demand(now time.Time) {
	v.mu.Lock()
	v.lastDemandAt = now
	v.mu.Unlock()
}

// Feed is called from the realtime/near-realtime path once per output
// chunk. It is cheap to call when no one has demanded data recently: a
// single time comparison under the lock.
func (v *visualizationTap) Feed(buf []float32, frames, channels int, now time.Time) {
	v.mu.Lock()
	demanded := now.Sub(v.lastDemandAt) <= visualizationDemandWindow
	v.mu.Unlock()
	if !demanded {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	take := frames
	if take > visualizationWaveformSamples {
		take = visualizationWaveformSamples
	}
	for c := 0; c < channels && c < v.channels; c++ {
		wf := v.waveform[c]
		for i := 0; i < take; i++ {
			wf[i] = buf[i*channels+c]
		}
	}

	for c := 0; c < channels && c < v.channels; c++ {
		var sumSquares float64
		for i := 0; i < frames; i++ {
			s := float64(buf[i*channels+c])
			sumSquares += s * s
		}
		rms := 0.0
		if frames > 0 {
			rms = math.Sqrt(sumSquares / float64(frames))
		}
		v.vu[c] = float32(rms)
	}

	for i := 0; i < frames; i++ {
		var mono float64
		for c := 0; c < channels; c++ {
			mono += float64(buf[i*channels+c])
		}
		mono /= float64(channels)
		v.monoHistory[v.historyPos] = mono
		v.historyPos = (v.historyPos + 1) % len(v.monoHistory)
	}
}

// Snapshot computes a fresh copy of waveform, VU, and
// spectrum data. The spectrum is recomputed every call since it is only
// invoked when a UI consumer is actually polling within the demand
// window, and an FFT over visualizationHistorySize samples is cheap
// relative to that poll cadence.
func (v *visualizationTap) Snapshot() VisualizationSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := VisualizationSnapshot{
		Waveform: make([][]float32, len(v.waveform)),
		VU:       append([]float32(nil), v.vu...),
		Spectrum: computeLogSpectrum(v.monoHistory, v.historyPos, visualizationSpectrumBins),
	}
	for c := range v.waveform {
		out.Waveform[c] = append([]float32(nil), v.waveform[c]...)
	}
	return out
}

// computeLogSpectrum runs a radix-2 FFT over history (read starting at
// readPos, the oldest sample, wrapping around) and folds the magnitude
// spectrum into bins log-spaced bins, roughly matching how ear-perceived
// frequency resolution falls off.
//
// No FFT library appears anywhere in the reference pack for this
// project, so this is a small self-contained iterative Cooley-Tukey
// implementation rather than a borrowed dependency; see DESIGN.md.
func computeLogSpectrum(history []float64, readPos int, bins int) []float32 {
	n := len(history)
	windowed := make([]complex128, n)
	for i := 0; i < n; i++ {
		sample := history[(readPos+i)%n]
		// Hann window to reduce spectral leakage.
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		windowed[i] = complex(sample*w, 0)
	}

	fft(windowed)

	magnitudes := make([]float64, n/2)
	maxMag := 0.0
	for i := range magnitudes {
		m := cmplx.Abs(windowed[i])
		magnitudes[i] = m
		if m > maxMag {
			maxMag = m
		}
	}

	out := make([]float32, bins)
	if maxMag == 0 {
		return out
	}
	// Log-spaced bin edges from bin 1 (skip DC) to n/2.
	minBin, maxBin := 1.0, float64(len(magnitudes)-1)
	logMin, logMax := math.Log(minBin), math.Log(maxBin)
	for b := 0; b < bins; b++ {
		loLog := logMin + (logMax-logMin)*float64(b)/float64(bins)
		hiLog := logMin + (logMax-logMin)*float64(b+1)/float64(bins)
		lo := int(math.Exp(loLog))
		hi := int(math.Exp(hiLog))
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(magnitudes) {
			hi = len(magnitudes)
		}
		var sum float64
		count := 0
		for i := lo; i < hi; i++ {
			sum += magnitudes[i]
			count++
		}
		if count > 0 {
			out[b] = float32(sum / float64(count) / maxMag)
		}
	}
	return out
}

// fft computes the in-place iterative radix-2 Cooley-Tukey FFT of a,
// whose length must be a power of two.
func fft(a []complex128) {
	n := len(a)
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j &^= bit
		}
		j |= bit
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		wlen := cmplx.Exp(complex(0, angle))
		for i := 0; i < n; i += length {
			w := complex(1.0, 0.0)
			for j := 0; j < length/2; j++ {
				u := a[i+j]
				v := a[i+j+length/2] * w
				a[i+j] = u + v
				a[i+j+length/2] = u - v
				w *= wlen
			}
		}
	}
}
