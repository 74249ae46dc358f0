// Package mp3 decodes MP3 files into the engine's float32 frame contract.
package mp3

import (
	"fmt"
	"strings"

	"github.com/drgolem/go-mpg123/mpg123"

	"github.com/drgolem/audioengine/pkg/pcmconv"
	"github.com/drgolem/audioengine/pkg/types"
)

// Decoder wraps mpg123.Decoder, converting its PCM output (encoding is
// bits per sample, matching the convention the rest of this codebase
// uses for GetFormat's third return value) to interleaved float32 frames.
// mpg123 has no exposed native seek in this binding, so Seek always
// returns types.ErrUnsupported.
type Decoder struct {
	decoder    *mpg123.Decoder
	rate       int
	channels   int
	encoding   int
	repeatMode types.RepeatMode
	positionFr uint64
	scratch    []byte
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Open(fileName string) error {
	decoder, err := mpg123.NewDecoder("")
	if err != nil {
		return fmt.Errorf("%w: create mp3 decoder: %v", types.ErrSourceOpenFailed, err)
	}

	if err := decoder.Open(fileName); err != nil {
		decoder.Delete()
		return fmt.Errorf("%w: open %s: %v", types.ErrSourceOpenFailed, fileName, err)
	}

	rate, channels, encoding := decoder.GetFormat()

	d.decoder = decoder
	d.rate = rate
	d.channels = channels
	d.encoding = encoding
	d.positionFr = 0

	return nil
}

func (d *Decoder) Close() error {
	if d.decoder != nil {
		d.decoder.Close()
		d.decoder.Delete()
		d.decoder = nil
	}
	return nil
}

func (d *Decoder) Read(buf []float32) (int, error) {
	if d.decoder == nil {
		return 0, fmt.Errorf("mp3: decoder not opened")
	}
	frames := len(buf) / d.channels
	if frames == 0 {
		return 0, nil
	}
	bytesPerSample := d.encoding / 8
	needed := frames * d.channels * bytesPerSample
	if cap(d.scratch) < needed {
		d.scratch = make([]byte, needed)
	}
	scratch := d.scratch[:needed]

	n, err := d.decoder.DecodeSamples(frames, scratch)
	if n <= 0 {
		if isEndOfStream(err) {
			return 0, nil
		}
		return 0, err
	}

	nSamp, convErr := pcmconv.ToFloat32(d.encoding, scratch[:n*d.channels*bytesPerSample], buf[:n*d.channels])
	if convErr != nil {
		return 0, convErr
	}
	_ = nSamp
	d.positionFr += uint64(n)
	return n, nil
}

// isEndOfStream reports whether err is the go-mpg123 binding's
// end-of-stream signal rather than a genuine decode failure. The
// binding has no typed EOF sentinel, so this matches its message the
// way the same check in the teacher's transform command did.
func isEndOfStream(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "eof") || strings.Contains(msg, "done")
}

func (d *Decoder) Seek(seconds float64) error {
	return types.ErrUnsupported
}

func (d *Decoder) Duration() float64 { return -1 }

func (d *Decoder) SampleRate() int   { return d.rate }
func (d *Decoder) ChannelCount() int { return d.channels }

func (d *Decoder) PlaybackPositionSeconds() float64 {
	if d.rate == 0 {
		return 0
	}
	return float64(d.positionFr) / float64(d.rate)
}

func (d *Decoder) Capabilities() types.CapabilityBits {
	return types.CapFixedSampleRate
}

func (d *Decoder) TimelineMode() types.TimelineMode {
	return types.TimelineContinuousLinear
}

func (d *Decoder) SetOutputSampleRate(rate int) error {
	return types.ErrUnsupported
}

func (d *Decoder) SetRepeatMode(mode types.RepeatMode) error {
	d.repeatMode = mode
	return nil
}

func (d *Decoder) SetOption(name, value string) error {
	return types.ErrUnsupported
}

func (d *Decoder) SubtuneCount() int   { return 1 }
func (d *Decoder) CurrentSubtune() int { return 0 }
func (d *Decoder) SelectSubtune(i int) error {
	if i == 0 {
		return nil
	}
	return types.ErrUnsupported
}

func (d *Decoder) Metadata() types.Metadata { return types.Metadata{} }

// Encoding returns the raw mpg123 encoding value (bits per sample).
func (d *Decoder) Encoding() int { return d.encoding }
