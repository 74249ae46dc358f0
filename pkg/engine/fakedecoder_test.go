package engine

import "github.com/drgolem/audioengine/pkg/types"

// fakeDecoder is a deterministic, silence-producing types.AudioDecoder
// test double: it tracks a frame cursor against a fixed total length and
// advances it on Read, letting tests exercise timeline/seek/repeat-mode
// logic without depending on any real codec.
type fakeDecoder struct {
	sampleRate  int
	channels    int
	totalFrames int
	framePos    int

	caps     types.CapabilityBits
	timeline types.TimelineMode

	subtunes int
	subtune  int

	repeatMode types.RepeatMode
	options    map[string]string
}

func (f *fakeDecoder) Open(fileName string) error { return nil }
func (f *fakeDecoder) Close() error                { return nil }

func (f *fakeDecoder) Read(buf []float32) (int, error) {
	remaining := f.totalFrames - f.framePos
	if remaining <= 0 {
		return 0, nil
	}
	frames := len(buf) / f.channels
	if frames > remaining {
		frames = remaining
	}
	for i := range buf[:frames*f.channels] {
		buf[i] = 0
	}
	f.framePos += frames
	return frames, nil
}

func (f *fakeDecoder) Seek(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	f.framePos = int(seconds * float64(f.sampleRate))
	return nil
}

func (f *fakeDecoder) Duration() float64 { return float64(f.totalFrames) / float64(f.sampleRate) }
func (f *fakeDecoder) SampleRate() int   { return f.sampleRate }
func (f *fakeDecoder) ChannelCount() int { return f.channels }

func (f *fakeDecoder) PlaybackPositionSeconds() float64 {
	return float64(f.framePos) / float64(f.sampleRate)
}

func (f *fakeDecoder) Capabilities() types.CapabilityBits { return f.caps }
func (f *fakeDecoder) TimelineMode() types.TimelineMode   { return f.timeline }

func (f *fakeDecoder) SetOutputSampleRate(rate int) error { return types.ErrUnsupported }

func (f *fakeDecoder) SetRepeatMode(mode types.RepeatMode) error {
	f.repeatMode = mode
	return nil
}

func (f *fakeDecoder) SetOption(name, value string) error {
	if f.options == nil {
		f.options = make(map[string]string)
	}
	f.options[name] = value
	return nil
}

func (f *fakeDecoder) SubtuneCount() int {
	if f.subtunes == 0 {
		return 1
	}
	return f.subtunes
}
func (f *fakeDecoder) CurrentSubtune() int { return f.subtune }
func (f *fakeDecoder) SelectSubtune(index int) error {
	f.subtune = index
	return nil
}

func (f *fakeDecoder) Metadata() types.Metadata { return types.Metadata{} }
