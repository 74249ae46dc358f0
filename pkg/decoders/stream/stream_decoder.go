// Package stream implements types.AudioDecoder over an arbitrary live
// audio source (network stream, in-memory buffer generator, etc.) instead
// of a file, so the engine can play anything that can produce packets.
package stream

import (
	"context"
	"sync"

	"github.com/drgolem/audioengine/pkg/pcmconv"
	"github.com/drgolem/audioengine/pkg/types"
)

// AudioFormat describes the audio stream format.
type AudioFormat struct {
	SampleRate     int
	Channels       int
	BytesPerSample int
}

func (f AudioFormat) bitsPerSample() int { return f.BytesPerSample * 8 }

// AudioPacket represents a chunk of decoded PCM audio data from a provider.
type AudioPacket struct {
	Audio        []byte
	SamplesCount int
	Format       AudioFormat
}

// AudioPacketProvider is implemented by sources that can supply audio
// packets on demand: network streams, synthesized buffers, etc.
type AudioPacketProvider interface {
	// ReadAudioPacket reads the next audio packet. Returns io.EOF (or any
	// error) when the stream ends.
	ReadAudioPacket(ctx context.Context, samples int) (*AudioPacket, error)
}

// Decoder implements types.AudioDecoder over an AudioPacketProvider. It
// has no native seek (CapSeek unset) and an unknown timeline — the
// engine never attempts clock reconciliation against a live source.
type Decoder struct {
	provider     AudioPacketProvider
	format       AudioFormat
	formatMx     sync.RWMutex
	formatChange chan AudioFormat
	ctx          context.Context
}

// NewDecoder creates a decoder over provider, starting at initialFormat.
func NewDecoder(ctx context.Context, provider AudioPacketProvider, initialFormat AudioFormat) *Decoder {
	return &Decoder{
		provider:     provider,
		format:       initialFormat,
		formatChange: make(chan AudioFormat, 1),
		ctx:          ctx,
	}
}

func (d *Decoder) Open(fileName string) error {
	// Stream sources are already initialized at construction time.
	return nil
}

func (d *Decoder) Close() error { return nil }

func (d *Decoder) Read(buf []float32) (int, error) {
	format := d.currentFormat()
	channels := format.Channels
	if channels == 0 {
		return 0, nil
	}
	wantSamples := len(buf) / channels

	pkt, err := d.provider.ReadAudioPacket(d.ctx, wantSamples)
	if err != nil {
		return 0, err
	}
	if pkt.SamplesCount == 0 {
		return 0, nil
	}

	if d.formatChanged(pkt.Format) {
		d.formatMx.Lock()
		d.format = pkt.Format
		d.formatMx.Unlock()
		select {
		case d.formatChange <- pkt.Format:
		default:
		}
	}

	frames := pkt.SamplesCount
	if frames > wantSamples {
		frames = wantSamples
	}
	n, convErr := pcmconv.ToFloat32(pkt.Format.bitsPerSample(), pkt.Audio, buf[:frames*pkt.Format.Channels])
	if convErr != nil {
		return 0, convErr
	}
	return n / pkt.Format.Channels, nil
}

func (d *Decoder) Seek(seconds float64) error { return types.ErrUnsupported }

func (d *Decoder) Duration() float64 { return -1 }

func (d *Decoder) SampleRate() int {
	return d.currentFormat().SampleRate
}

func (d *Decoder) ChannelCount() int {
	return d.currentFormat().Channels
}

func (d *Decoder) PlaybackPositionSeconds() float64 { return -1 }

func (d *Decoder) Capabilities() types.CapabilityBits {
	return types.CapLiveSampleRateChange
}

func (d *Decoder) TimelineMode() types.TimelineMode { return types.TimelineUnknown }

func (d *Decoder) SetOutputSampleRate(rate int) error { return types.ErrUnsupported }

func (d *Decoder) SetRepeatMode(mode types.RepeatMode) error {
	// Live sources have no end to repeat from; RepeatOff is the only
	// sensible mode, anything else is silently accepted as a no-op.
	return nil
}

func (d *Decoder) SetOption(name, value string) error { return types.ErrUnsupported }

func (d *Decoder) SubtuneCount() int   { return 1 }
func (d *Decoder) CurrentSubtune() int { return 0 }
func (d *Decoder) SelectSubtune(i int) error {
	if i == 0 {
		return nil
	}
	return types.ErrUnsupported
}

func (d *Decoder) Metadata() types.Metadata { return types.Metadata{} }

func (d *Decoder) currentFormat() AudioFormat {
	d.formatMx.RLock()
	defer d.formatMx.RUnlock()
	return d.format
}

func (d *Decoder) formatChanged(newFormat AudioFormat) bool {
	cur := d.currentFormat()
	return cur.SampleRate != newFormat.SampleRate ||
		cur.Channels != newFormat.Channels ||
		cur.BytesPerSample != newFormat.BytesPerSample
}

// FormatChanges returns a channel that receives format change notifications.
func (d *Decoder) FormatChanges() <-chan AudioFormat {
	return d.formatChange
}
