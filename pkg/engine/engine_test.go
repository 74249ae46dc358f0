package engine

import (
	"math"
	"testing"

	"github.com/drgolem/audioengine/pkg/decoders"
	"github.com/drgolem/audioengine/pkg/dsp"
	"github.com/drgolem/audioengine/pkg/renderring"
	"github.com/drgolem/audioengine/pkg/types"
)

// newTestEngine builds an Engine without New()'s background goroutines,
// so tests can drive the render and seek logic synchronously and
// deterministically.
func newTestEngine() *Engine {
	e := &Engine{
		ring:          renderring.New(),
		chain:         dsp.NewChain(streamSampleRate),
		cachedOptions: make(map[string]string),
	}
	e.pipeline = PipelineConfig{
		BufferPreset:  renderring.Small,
		ResamplerPref: 2,
		FallbackOK:    true,
	}
	e.state.Store(int32(StateIdle))
	return e
}

func TestSetSourceResetsStateAndPublishesDuration(t *testing.T) {
	decoders.Register(".fakeseta", func() types.AudioDecoder {
		return &fakeDecoder{
			sampleRate:  44100,
			channels:    2,
			totalFrames: 44100 * 5,
			caps:        types.CapSeek | types.CapReliableDuration,
			timeline:    types.TimelineContinuousLinear,
		}
	})

	e := newTestEngine()
	if err := e.SetSource("song.fakeseta"); err != nil {
		t.Fatalf("SetSource: %v", err)
	}

	if e.IsPlaying() {
		t.Errorf("IsPlaying() = true right after SetSource, want false")
	}
	if e.State() != StateIdle {
		t.Errorf("State() = %v, want StateIdle", e.State())
	}
	if got := e.DurationSeconds(); got < 4.9 || got > 5.1 {
		t.Errorf("DurationSeconds() = %v, want ~5.0", got)
	}
}

func TestRenderOnceFillsRingFromDecoder(t *testing.T) {
	decoders.Register(".fakerender", func() types.AudioDecoder {
		return &fakeDecoder{
			sampleRate:  streamSampleRate,
			channels:    2,
			totalFrames: streamSampleRate * 10,
			caps:        types.CapSeek,
			timeline:    types.TimelineContinuousLinear,
		}
	})

	e := newTestEngine()
	if err := e.SetSource("x.fakerender"); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	e.isPlaying.Store(true)

	buf := make([]float32, chunkReadFrames*8)
	e.renderOnce(buf)

	if e.ring.FramesAvailable() == 0 {
		t.Errorf("FramesAvailable() = 0 after renderOnce, want > 0")
	}
	if pos := e.PositionSeconds(); pos <= 0 {
		t.Errorf("PositionSeconds() = %v after renderOnce, want > 0", pos)
	}
}

func TestRenderOnceSignalsNaturalEndForRepeatOff(t *testing.T) {
	decoders.Register(".fakeend", func() types.AudioDecoder {
		return &fakeDecoder{
			sampleRate:  streamSampleRate,
			channels:    2,
			totalFrames: 10, // far less than one chunk, exhausted on first read
			caps:        types.CapSeek,
			timeline:    types.TimelineContinuousLinear,
		}
	})

	e := newTestEngine()
	if err := e.SetSource("x.fakeend"); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	e.isPlaying.Store(true)

	buf := make([]float32, chunkReadFrames*8)
	// First cycle drains the 10 available frames; the ring's target is
	// far larger, so the loop keeps pulling and hits end of stream.
	e.renderOnce(buf)

	if !e.ConsumeNaturalEndEvent() {
		t.Errorf("expected natural-end event after decoder exhausted under RepeatOff")
	}
	if e.IsPlaying() {
		t.Errorf("IsPlaying() = true after natural end, want false")
	}
}

func TestPostPopAppliesPauseFadeToFloor(t *testing.T) {
	e := newTestEngine()
	e.Pause()

	frames := streamSampleRate * pauseResumeFadeDurationMs / 1000
	buf := make([]float32, frames*2)
	for i := range buf {
		buf[i] = 1
	}

	stop := e.postPop(buf, frames, 2)
	if !stop {
		t.Fatalf("postPop() = false, want true once the fade-to-floor ramp completes")
	}

	want := floorGainFromDB(pauseResumeFloorDB)
	got := buf[len(buf)-2]
	if math.Abs(float64(got-want)) > 0.01 {
		t.Errorf("final sample = %v, want ~%v (floor gain)", got, want)
	}
	if e.IsPlaying() {
		t.Errorf("IsPlaying() = true after fade reached floor, want false")
	}
}

func TestPostPopFadeToUnityRestoresVolumeWithoutStopping(t *testing.T) {
	e := newTestEngine()
	e.fade.start(fadeToUnity, 100, floorGainFromDB(pauseResumeFloorDB))

	buf := make([]float32, 100*2)
	for i := range buf {
		buf[i] = 1.0
	}

	stop := e.postPop(buf, 100, 2)
	if stop {
		t.Errorf("postPop() = true for a fade-to-unity ramp, want false")
	}
	if got := buf[len(buf)-2]; got < 0.99 {
		t.Errorf("final sample = %v, want ~1.0 once fade-to-unity completes", got)
	}
}

func TestSeekToScanPathAdvancesPosition(t *testing.T) {
	decoders.Register(".fakescan", func() types.AudioDecoder {
		return &fakeDecoder{
			sampleRate:  streamSampleRate,
			channels:    2,
			totalFrames: streamSampleRate * 20,
			caps:        types.CapSeek,
			timeline:    types.TimelineContinuousLinear,
		}
	})

	e := newTestEngine()
	if err := e.SetSource("x.fakescan"); err != nil {
		t.Fatalf("SetSource: %v", err)
	}

	if err := e.SeekTo(5.0); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	e.processPendingSeek()

	got := e.PositionSeconds()
	if got < 4.9 || got > 5.1 {
		t.Errorf("PositionSeconds() = %v, want ~5.0", got)
	}
	if e.IsSeekInProgress() {
		t.Errorf("IsSeekInProgress() = true after processPendingSeek returned")
	}
}

func TestSeekToDirectPathSeeksSynchronously(t *testing.T) {
	decoders.Register(".fakedirect", func() types.AudioDecoder {
		return &fakeDecoder{
			sampleRate:  streamSampleRate,
			channels:    2,
			totalFrames: streamSampleRate * 20,
			caps:        types.CapSeek | types.CapDirectSeek,
			timeline:    types.TimelineContinuousLinear,
		}
	})

	e := newTestEngine()
	if err := e.SetSource("x.fakedirect"); err != nil {
		t.Fatalf("SetSource: %v", err)
	}

	if err := e.SeekTo(7.0); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	if got := e.PositionSeconds(); got < 6.9 || got > 7.1 {
		t.Errorf("PositionSeconds() = %v, want ~7.0 immediately after a direct seek", got)
	}
}

func TestSeekToUnsupportedReturnsErrUnsupported(t *testing.T) {
	decoders.Register(".fakenoseek", func() types.AudioDecoder {
		return &fakeDecoder{
			sampleRate:  streamSampleRate,
			channels:    2,
			totalFrames: streamSampleRate * 20,
			timeline:    types.TimelineContinuousLinear,
		}
	})

	e := newTestEngine()
	if err := e.SetSource("x.fakenoseek"); err != nil {
		t.Fatalf("SetSource: %v", err)
	}

	if err := e.SeekTo(1.0); err != types.ErrUnsupported {
		t.Errorf("SeekTo() error = %v, want types.ErrUnsupported", err)
	}
}

func TestSetRepeatModeLeavingLoopPointAtEndRestartsImmediately(t *testing.T) {
	decoders.Register(".fakeloop", func() types.AudioDecoder {
		return &fakeDecoder{
			sampleRate:  streamSampleRate,
			channels:    2,
			totalFrames: streamSampleRate * 3,
			caps:        types.CapSeek | types.CapReliableDuration,
			timeline:    types.TimelineContinuousLinear,
		}
	})

	e := newTestEngine()
	if err := e.SetSource("x.fakeloop"); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if err := e.SetRepeatMode(types.RepeatLoopPoint); err != nil {
		t.Fatalf("SetRepeatMode(LoopPoint): %v", err)
	}

	e.setPosition(3.0) // at the reported 3s duration

	if err := e.SetRepeatMode(types.RepeatSet); err != nil {
		t.Fatalf("SetRepeatMode(RepeatSet): %v", err)
	}

	if got := e.PositionSeconds(); got != 0 {
		t.Errorf("PositionSeconds() = %v, want 0 after leaving LOOP_POINT at end under RepeatSet", got)
	}
}

func TestSetRepeatModeLeavingLoopPointAtEndStopsUnderRepeatOff(t *testing.T) {
	decoders.Register(".fakeloopoff", func() types.AudioDecoder {
		return &fakeDecoder{
			sampleRate:  streamSampleRate,
			channels:    2,
			totalFrames: streamSampleRate * 3,
			caps:        types.CapSeek | types.CapReliableDuration,
			timeline:    types.TimelineContinuousLinear,
		}
	})

	e := newTestEngine()
	if err := e.SetSource("x.fakeloopoff"); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if err := e.SetRepeatMode(types.RepeatLoopPoint); err != nil {
		t.Fatalf("SetRepeatMode(LoopPoint): %v", err)
	}
	e.isPlaying.Store(true)
	e.setPosition(3.0)

	if err := e.SetRepeatMode(types.RepeatOff); err != nil {
		t.Fatalf("SetRepeatMode(RepeatOff): %v", err)
	}

	if !e.ConsumeNaturalEndEvent() {
		t.Errorf("expected natural-end event when leaving LOOP_POINT at end under RepeatOff")
	}
	if e.IsPlaying() {
		t.Errorf("IsPlaying() = true, want false after stop-triggering repeat mode change")
	}
}
