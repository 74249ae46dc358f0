package resample

import "math"

// linearResampler is a built-in, dependency-free resampler: linear
// interpolation between adjacent input frames at a fractional read position
// that advances by inputRate/outputRate per output frame. It buffers decoded
// input in a growable slice, trimming consumed frames off the front as the
// read position advances past them and compacting the slice only once the
// trimmed-but-unreclaimed prefix passes a threshold, so a steady stream of
// output frames doesn't force a memmove on every callback.
type linearResampler struct {
	channels   int
	inputRate  int
	outputRate int

	// buf holds decoded input frames from startFrame onward, interleaved.
	// Frames before startFrame have been consumed but not yet compacted out.
	buf        []float32
	startFrame int
	position   float64 // fractional read position relative to startFrame

	scratch []float32
}

// compactThreshold bounds how many consumed-but-unreclaimed frames accrue at
// the front of buf before they're erased, trading a little extra memory for
// avoiding a front-erase on every Process call.
const compactThreshold = 4096

func newLinearResampler(channels, inputRate, outputRate int) *linearResampler {
	return &linearResampler{
		channels:   channels,
		inputRate:  inputRate,
		outputRate: outputRate,
		scratch:    make([]float32, decodeChunkFrames*channels),
	}
}

func (r *linearResampler) Process(read ReadFunc, out []float32) (int, error) {
	channels := r.channels
	if channels <= 0 {
		return 0, nil
	}
	numFrames := len(out) / channels
	inputPerOutputFrame := float64(r.inputRate) / float64(r.outputRate)

	var readErr error
	outFrame := 0
	for outFrame < numFrames {
		totalFrames := len(r.buf) / channels
		availableFrames := totalFrames - r.startFrame
		if availableFrames < 0 {
			availableFrames = 0
		}
		baseFrame := int(math.Floor(r.position))

		for baseFrame+1 >= availableFrames {
			n, err := read(r.scratch)
			if n > 0 {
				r.buf = append(r.buf, r.scratch[:n*channels]...)
				totalFrames = len(r.buf) / channels
				availableFrames = totalFrames - r.startFrame
				baseFrame = int(math.Floor(r.position))
			}
			if err != nil {
				readErr = err
			}
			if n <= 0 {
				break
			}
		}

		totalFrames = len(r.buf) / channels
		availableFrames = totalFrames - r.startFrame
		baseFrame = int(math.Floor(r.position))
		if baseFrame >= availableFrames {
			break
		}

		nextFrame := baseFrame + 1
		if nextFrame > availableFrames-1 {
			nextFrame = availableFrames - 1
		}
		frac := r.position - float64(baseFrame)
		if frac < 0 {
			frac = 0
		} else if frac > 1 {
			frac = 1
		}

		absBase := (r.startFrame + baseFrame) * channels
		absNext := (r.startFrame + nextFrame) * channels
		dstBase := outFrame * channels
		for c := 0; c < channels; c++ {
			a := r.buf[absBase+c]
			b := r.buf[absNext+c]
			out[dstBase+c] = a + float32(float64(b-a)*frac)
		}

		outFrame++
		r.position += inputPerOutputFrame
	}

	for i := outFrame * channels; i < numFrames*channels; i++ {
		out[i] = 0
	}

	r.compact()

	return outFrame, readErr
}

// compact advances startFrame past fully-consumed input frames and, once the
// unreclaimed prefix crosses compactThreshold, erases it from buf.
func (r *linearResampler) compact() {
	channels := r.channels
	totalFrames := len(r.buf) / channels
	availableFrames := totalFrames - r.startFrame
	if availableFrames < 0 {
		availableFrames = 0
	}

	trimFrames := int(math.Floor(r.position)) - 1
	if trimFrames < 0 {
		trimFrames = 0
	}
	if trimFrames > availableFrames {
		trimFrames = availableFrames
	}
	if trimFrames > 0 {
		r.startFrame += trimFrames
		r.position -= float64(trimFrames)
	}

	if r.startFrame > compactThreshold {
		r.buf = append(r.buf[:0], r.buf[r.startFrame*channels:]...)
		r.startFrame = 0
	}
}

func (r *linearResampler) Reset() {
	r.buf = r.buf[:0]
	r.startFrame = 0
	r.position = 0
}

func (r *linearResampler) Close() error { return nil }
