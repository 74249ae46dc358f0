package resample

import (
	"bufio"
	"bytes"
	"fmt"

	soxr "github.com/zaf/resample"

	"github.com/drgolem/audioengine/pkg/pcmconv"
)

// soxrUnavailableError marks a failure in the high-quality path that should
// trigger a permanent downgrade to the linear resampler rather than a retry,
// mirroring the teacher engine's outputSoxrUnavailable latch.
type soxrUnavailableError struct {
	cause error
}

func (e *soxrUnavailableError) Error() string {
	return fmt.Sprintf("resample: high-quality path unavailable: %v", e.cause)
}

func (e *soxrUnavailableError) Unwrap() error { return e.cause }

// soxResampler drives zaf/resample's SoX binding, which is push-oriented
// (Write bytes in, the wrapped io.Writer receives resampled bytes out). It
// adapts that to the pull-oriented Resampler contract by buffering resampled
// output bytes between Process calls.
type soxResampler struct {
	channels             int
	inputRate, outputRate int

	resampler *soxr.Resampler
	outWriter *bufio.Writer
	outRaw    *bytes.Buffer

	scratchIn    []float32
	scratchBytes []byte
}

func newSoxResampler(channels, inputRate, outputRate int) (*soxResampler, error) {
	outRaw := &bytes.Buffer{}
	outWriter := bufio.NewWriter(outRaw)

	resampler, err := soxr.New(
		outWriter,
		float64(inputRate),
		float64(outputRate),
		channels,
		soxr.I16,
		soxr.HighQ,
	)
	if err != nil {
		return nil, err
	}

	return &soxResampler{
		channels:     channels,
		inputRate:    inputRate,
		outputRate:   outputRate,
		resampler:    resampler,
		outWriter:    outWriter,
		outRaw:       outRaw,
		scratchIn:    make([]float32, decodeChunkFrames*channels),
		scratchBytes: make([]byte, decodeChunkFrames*channels*2),
	}, nil
}

func (r *soxResampler) Process(read ReadFunc, out []float32) (int, error) {
	if r.resampler == nil {
		return 0, &soxrUnavailableError{cause: fmt.Errorf("resample: SoX context failed to rebuild after reset")}
	}

	channels := r.channels
	wantBytes := len(out) * 2

	var readErr error
	for r.outRaw.Len() < wantBytes {
		n, err := read(r.scratchIn)
		if n > 0 {
			byteCount := pcmconv.Float32ToInt16(r.scratchIn[:n*channels], r.scratchBytes)
			if _, werr := r.resampler.Write(r.scratchBytes[:byteCount]); werr != nil {
				return 0, &soxrUnavailableError{cause: werr}
			}
			if ferr := r.outWriter.Flush(); ferr != nil {
				return 0, &soxrUnavailableError{cause: ferr}
			}
		}
		if err != nil {
			readErr = err
			break
		}
		if n <= 0 {
			break
		}
	}

	available := r.outRaw.Bytes()
	n := len(available)
	if n > wantBytes {
		n = wantBytes
	}
	n -= n % (channels * 2) // hand out whole frames only
	samples := pcmconv.Int16ToFloat32(available[:n], out)
	r.outRaw.Next(n)
	frames := samples / channels

	for i := frames * channels; i < len(out); i++ {
		out[i] = 0
	}

	return frames, readErr
}

// Reset recreates the underlying SoX context at the same rates, discarding
// any buffered input or output. The SoX binding has no in-place reset, so
// this closes and rebuilds it; a rebuild failure here is surfaced to the
// caller through the next Process call, which returns a soxrUnavailableError
// that the selector downgrades from.
func (r *soxResampler) Reset() {
	if r.resampler != nil {
		r.resampler.Close()
	}
	r.outRaw.Reset()
	outWriter := bufio.NewWriter(r.outRaw)
	resampler, err := soxr.New(outWriter, float64(r.inputRate), float64(r.outputRate), r.channels, soxr.I16, soxr.HighQ)
	if err != nil {
		r.resampler = nil
		return
	}
	r.resampler = resampler
	r.outWriter = outWriter
}

func (r *soxResampler) Close() error {
	if r.resampler == nil {
		return nil
	}
	return r.resampler.Close()
}
