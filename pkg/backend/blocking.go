package backend

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drgolem/audioengine/pkg/pcmconv"
	"github.com/drgolem/audioengine/pkg/renderring"

	"github.com/drgolem/go-portaudio/portaudio"
)

// blockingWriteBackend owns a writer goroutine that blocks on the
// stream's Write call, the shape used when neither the callback-pull nor
// the buffer-queue transport is available.
type blockingWriteBackend struct {
	stream          *portaudio.PaStream
	ring            *renderring.Ring
	channels        int
	framesPerBuffer int

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup

	disconnected atomic.Bool
	postPop      func(buf []float32, frames, channels int) bool
}

func newBlockingWriteBackend() *blockingWriteBackend {
	return &blockingWriteBackend{}
}

func (b *blockingWriteBackend) Start(cfg Config, ring *renderring.Ring) error {
	b.ring = ring
	b.channels = cfg.Channels
	b.framesPerBuffer = cfg.FramesPerBuffer
	b.stopChan = make(chan struct{})
	b.postPop = cfg.PostPop
	b.disconnected.Store(false)

	stream, err := portaudio.NewStream(portaudio.PaStreamParameters{
		DeviceIndex:  cfg.DeviceIndex,
		ChannelCount: cfg.Channels,
		SampleFormat: sampleFormatFor(),
	}, float64(cfg.SampleRate))
	if err != nil {
		return fmt.Errorf("blocking-write: create stream: %w", err)
	}
	if err := stream.Open(cfg.FramesPerBuffer); err != nil {
		return fmt.Errorf("blocking-write: open stream: %w", err)
	}
	if err := stream.StartStream(); err != nil {
		return fmt.Errorf("blocking-write: start stream: %w", err)
	}
	b.stream = stream

	b.wg.Add(1)
	go b.writerLoop()
	return nil
}

// writerLoop exits when stopChan is closed; the facade joins it via Stop.
func (b *blockingWriteBackend) writerLoop() {
	defer b.wg.Done()

	frames := b.framesPerBuffer
	scratch := make([]float32, frames*b.channels)
	out := make([]byte, frames*b.channels*bytesPerSample)

	for {
		select {
		case <-b.stopChan:
			return
		default:
		}

		copied := b.ring.Pop(scratch, frames)
		if copied < frames {
			b.ring.NoteUnderrun(time.Now())
			for i := copied * b.channels; i < frames*b.channels; i++ {
				scratch[i] = 0
			}
			if copied == 0 {
				// Nothing buffered yet; avoid spinning the writer.
				time.Sleep(2 * time.Millisecond)
				continue
			}
		}

		stop := false
		if b.postPop != nil {
			stop = b.postPop(scratch, frames, b.channels)
		}

		pcmconv.Float32ToInt16(scratch, out)
		if err := b.stream.Write(frames, out); err != nil {
			b.disconnected.Store(true)
			return
		}
		if stop {
			return
		}
	}
}

func (b *blockingWriteBackend) Stop() error {
	b.stopOnce.Do(func() {
		close(b.stopChan)
	})
	b.wg.Wait()
	if b.stream == nil {
		return nil
	}
	return b.stream.StopStream()
}

func (b *blockingWriteBackend) Close() error {
	if b.stream == nil {
		return nil
	}
	err := b.stream.Close()
	b.stream = nil
	return err
}

func (b *blockingWriteBackend) Disconnected() bool {
	return b.disconnected.Load()
}

func (b *blockingWriteBackend) BurstFrames() int {
	return b.framesPerBuffer
}
