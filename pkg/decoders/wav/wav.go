// Package wav decodes WAV (PCM) files into the engine's float32 frame contract.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/youpy/go-wav"

	"github.com/drgolem/audioengine/pkg/types"
)

// Decoder wraps go-wav, converting its per-sample channel values to
// interleaved float32 frames. go-wav's Reader walks the data chunk
// strictly forward with no exposed seek primitive, so like the other
// file decoders in this package Seek returns types.ErrUnsupported and
// CapSeek is not declared; the engine reports types.ErrUnsupported for
// seek requests on WAV sources.
type Decoder struct {
	file       *os.File
	reader     *wav.Reader
	rate       int
	channels   int
	bps        int
	format     uint16
	repeatMode types.RepeatMode
	positionFr uint64
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", types.ErrSourceOpenFailed, fileName, err)
	}

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		file.Close()
		return fmt.Errorf("%w: read WAV format: %v", types.ErrSourceOpenFailed, err)
	}

	if format.AudioFormat != wav.AudioFormatPCM {
		file.Close()
		return fmt.Errorf("%w: unsupported WAV format %d (only PCM supported)",
			types.ErrSourceOpenFailed, format.AudioFormat)
	}

	d.file = file
	d.reader = reader
	d.rate = int(format.SampleRate)
	d.channels = int(format.NumChannels)
	d.bps = int(format.BitsPerSample)
	d.format = format.AudioFormat
	d.positionFr = 0

	return nil
}

func (d *Decoder) Close() error {
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		d.reader = nil
		return err
	}
	return nil
}

// Read decodes up to len(buf)/ChannelCount() frames. go-wav reads one
// sample (one frame, all channels) at a time, so this loops frame by
// frame rather than issuing a single bulk read.
func (d *Decoder) Read(buf []float32) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("wav: decoder not opened")
	}
	if d.channels == 0 {
		return 0, nil
	}
	wantFrames := len(buf) / d.channels
	framesRead := 0

	for framesRead < wantFrames {
		samples, err := d.reader.ReadSamples(1)
		if err != nil {
			d.positionFr += uint64(framesRead)
			if errors.Is(err, io.EOF) {
				return framesRead, nil
			}
			return framesRead, err
		}
		if len(samples) == 0 {
			break
		}

		base := framesRead * d.channels
		for ch := 0; ch < d.channels; ch++ {
			if ch >= len(samples[0].Values) {
				break
			}
			buf[base+ch] = intSampleToFloat32(samples[0].Values[ch], d.bps)
		}
		framesRead++
	}

	d.positionFr += uint64(framesRead)
	return framesRead, nil
}

func intSampleToFloat32(v int, bps int) float32 {
	switch bps {
	case 8:
		return (float32(v) - 128.0) / 128.0
	case 16:
		return float32(v) / 32768.0
	case 24:
		return float32(v) / 8388608.0
	case 32:
		return float32(v) / 2147483648.0
	default:
		return 0
	}
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

// BitsPerSample returns the WAV file's bit depth.
func (d *Decoder) BitsPerSample() int { return d.bps }
