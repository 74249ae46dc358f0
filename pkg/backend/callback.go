package backend

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/drgolem/audioengine/pkg/pcmconv"
	"github.com/drgolem/audioengine/pkg/renderring"

	"github.com/drgolem/go-portaudio/portaudio"
)

// callbackPullBackend fills PortAudio's output buffer directly from the
// ring on each realtime callback invocation. This is the lowest-latency
// shape and the first one tried in auto mode.
type callbackPullBackend struct {
	stream          *portaudio.PaStream
	ring            *renderring.Ring
	channels        int
	framesPerBuffer int

	disconnected atomic.Bool
	scratch      []float32
	postPop      func(buf []float32, frames, channels int) bool
}

func newCallbackPullBackend() *callbackPullBackend {
	return &callbackPullBackend{}
}

func (b *callbackPullBackend) Start(cfg Config, ring *renderring.Ring) error {
	b.ring = ring
	b.channels = cfg.Channels
	b.framesPerBuffer = cfg.FramesPerBuffer
	b.scratch = make([]float32, cfg.FramesPerBuffer*cfg.Channels)
	b.postPop = cfg.PostPop
	b.disconnected.Store(false)

	b.stream = &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  cfg.DeviceIndex,
			ChannelCount: cfg.Channels,
			SampleFormat: sampleFormatFor(),
		},
		SampleRate: float64(cfg.SampleRate),
	}

	if err := b.stream.OpenCallback(cfg.FramesPerBuffer, b.audioCallback); err != nil {
		return fmt.Errorf("callback-pull: open stream: %w", err)
	}
	if err := b.stream.StartStream(); err != nil {
		return fmt.Errorf("callback-pull: start stream: %w", err)
	}
	return nil
}

func (b *callbackPullBackend) audioCallback(
	input, output []byte,
	frameCount uint,
	timeInfo *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {
	if statusFlags != 0 {
		b.disconnected.Store(true)
		return portaudio.Complete
	}

	frames := int(frameCount)
	if cap(b.scratch) < frames*b.channels {
		b.scratch = make([]float32, frames*b.channels)
	}
	scratch := b.scratch[:frames*b.channels]

	copied := b.ring.Pop(scratch, frames)
	if copied < frames {
		b.ring.NoteUnderrun(time.Now())
		for i := copied * b.channels; i < frames*b.channels; i++ {
			scratch[i] = 0
		}
	}

	stop := false
	if b.postPop != nil {
		stop = b.postPop(scratch, frames, b.channels)
	}

	n := pcmconv.Float32ToInt16(scratch, output)
	bytesNeeded := frames * b.channels * bytesPerSample
	if n < bytesNeeded {
		clear(output[n:bytesNeeded])
	}

	if stop {
		return portaudio.Complete
	}
	return portaudio.Continue
}

func (b *callbackPullBackend) Stop() error {
	if b.stream == nil {
		return nil
	}
	return b.stream.StopStream()
}

func (b *callbackPullBackend) Close() error {
	if b.stream == nil {
		return nil
	}
	err := b.stream.CloseCallback()
	b.stream = nil
	return err
}

func (b *callbackPullBackend) Disconnected() bool {
	return b.disconnected.Load()
}

func (b *callbackPullBackend) BurstFrames() int {
	return b.framesPerBuffer
}
