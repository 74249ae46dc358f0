// Package resample converts interleaved float32 audio between sample rates.
//
// Two strategies are available: a built-in linear interpolator that needs no
// external library, and a high-quality path backed by zaf/resample's SoX
// binding. Callers normally go through New, which prefers the high-quality
// path and falls back to linear resampling whenever the high-quality context
// cannot be built or a decoder's timeline is too unpredictable to trust to
// it.
package resample

import "github.com/drgolem/audioengine/pkg/types"

// ReadFunc pulls more interleaved input frames from upstream (a decoder, or
// anything shaped like one), returning the frame count actually written and
// io.EOF or another error once no more frames are available.
type ReadFunc func(buf []float32) (int, error)

// Resampler converts frames at one rate into frames at another, pulling its
// input on demand through a ReadFunc rather than owning a buffer of its own.
type Resampler interface {
	// Process fills out with resampled output frames (interleaved, Channels()
	// wide), reading as much input as needed via read. It returns the number
	// of output frames written; a short write means read ran out (err holds
	// the reason, typically io.EOF).
	Process(read ReadFunc, out []float32) (int, error)

	// Reset drops all buffered input and internal resampler state, as if
	// freshly constructed at the same rates. Used after a seek, where
	// stale buffered samples would otherwise bleed across the
	// discontinuity.
	Reset()

	Close() error
}

// decodeChunkFrames is how many input frames Process pulls from read at a
// time when it needs more.
const decodeChunkFrames = 1024

// New selects a Resampler for converting from inputRate to outputRate.
// preferHighQuality requests the SoX-backed path; it is silently downgraded
// to the built-in linear interpolator when the decoder's timeline is
// Discontinuous, since the high-quality path assumes a smooth run of samples
// and a jump-heavy source defeats its internal buffering. inputRate ==
// outputRate still returns a Resampler (a passthrough) so callers never need
// a special case.
func New(channels, inputRate, outputRate int, timeline types.TimelineMode, preferHighQuality bool) Resampler {
	if inputRate == outputRate {
		return &passthrough{}
	}

	allowHighQuality := preferHighQuality && timeline != types.TimelineDiscontinuous
	if allowHighQuality {
		if hq, err := newSoxResampler(channels, inputRate, outputRate); err == nil {
			return newFallbackResampler(hq, channels, inputRate, outputRate)
		}
	}

	return newLinearResampler(channels, inputRate, outputRate)
}

// passthrough is returned when no rate conversion is needed at all.
type passthrough struct{}

func (p *passthrough) Process(read ReadFunc, out []float32) (int, error) {
	n, err := read(out)
	return n, err
}

func (p *passthrough) Reset() {}

func (p *passthrough) Close() error { return nil }

// fallbackResampler wraps the high-quality path and permanently switches to
// the built-in linear interpolator the first time the high-quality path
// fails to produce output, mirroring the teacher engine's
// outputSoxrUnavailable latch: a broken high-quality context doesn't retry
// every callback, it downgrades once and stays downgraded for the rest of
// the track.
type fallbackResampler struct {
	highQuality                  Resampler
	channels, inputRate, outputRate int
	linear                        Resampler
	unavailable                   bool
}

func newFallbackResampler(hq Resampler, channels, inputRate, outputRate int) *fallbackResampler {
	return &fallbackResampler{
		highQuality: hq,
		channels:    channels,
		inputRate:   inputRate,
		outputRate:  outputRate,
	}
}

func (f *fallbackResampler) Process(read ReadFunc, out []float32) (int, error) {
	if f.unavailable {
		return f.ensureLinear().Process(read, out)
	}

	n, err := f.highQuality.Process(read, out)
	if err != nil && n == 0 {
		if _, ok := err.(*soxrUnavailableError); ok {
			f.unavailable = true
			f.highQuality.Close()
			return f.ensureLinear().Process(read, out)
		}
	}
	return n, err
}

func (f *fallbackResampler) ensureLinear() Resampler {
	if f.linear == nil {
		f.linear = newLinearResampler(f.channels, f.inputRate, f.outputRate)
	}
	return f.linear
}

func (f *fallbackResampler) Reset() {
	if f.unavailable {
		f.ensureLinear().Reset()
		return
	}
	f.highQuality.Reset()
}

func (f *fallbackResampler) Close() error {
	if f.linear != nil {
		f.linear.Close()
	}
	return f.highQuality.Close()
}
