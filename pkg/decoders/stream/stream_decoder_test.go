package stream

import (
	"context"
	"io"
	"testing"
)

type fakeProvider struct {
	packets []*AudioPacket
	idx     int
}

func (p *fakeProvider) ReadAudioPacket(ctx context.Context, samples int) (*AudioPacket, error) {
	if p.idx >= len(p.packets) {
		return nil, io.EOF
	}
	pkt := p.packets[p.idx]
	p.idx++
	return pkt, nil
}

func makePacket(samples int, rate, channels int) *AudioPacket {
	audio := make([]byte, samples*channels*2)
	for i := range audio {
		audio[i] = 0
	}
	return &AudioPacket{
		Audio:        audio,
		SamplesCount: samples,
		Format:       AudioFormat{SampleRate: rate, Channels: channels, BytesPerSample: 2},
	}
}

func TestReadDecodesPacket(t *testing.T) {
	provider := &fakeProvider{packets: []*AudioPacket{makePacket(128, 44100, 2)}}
	d := NewDecoder(context.Background(), provider, AudioFormat{SampleRate: 44100, Channels: 2, BytesPerSample: 2})

	buf := make([]float32, 128*2)
	n, err := d.Read(buf)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if n != 128 {
		t.Errorf("Read() frames = %d, want 128", n)
	}
}

func TestReadSignalsFormatChange(t *testing.T) {
	initial := AudioFormat{SampleRate: 44100, Channels: 2, BytesPerSample: 2}
	changed := makePacket(64, 48000, 2)
	provider := &fakeProvider{packets: []*AudioPacket{changed}}
	d := NewDecoder(context.Background(), provider, initial)

	buf := make([]float32, 64*2)
	if _, err := d.Read(buf); err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	select {
	case f := <-d.FormatChanges():
		if f.SampleRate != 48000 {
			t.Errorf("format change sample rate = %d, want 48000", f.SampleRate)
		}
	default:
		t.Error("expected a format change notification")
	}

	if d.SampleRate() != 48000 {
		t.Errorf("SampleRate() = %d, want 48000 after format change", d.SampleRate())
	}
}

func TestReadPropagatesEOF(t *testing.T) {
	provider := &fakeProvider{}
	d := NewDecoder(context.Background(), provider, AudioFormat{SampleRate: 44100, Channels: 2, BytesPerSample: 2})

	buf := make([]float32, 128)
	if _, err := d.Read(buf); err != io.EOF {
		t.Errorf("Read() error = %v, want io.EOF", err)
	}
}
