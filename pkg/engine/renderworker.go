package engine

import (
	"runtime"
	"time"

	"github.com/drgolem/audioengine/pkg/dsp"
	"github.com/drgolem/audioengine/pkg/renderring"
	"github.com/drgolem/audioengine/pkg/types"
)

// renderWorkerTick is the fallback wake interval: even with no explicit
// wake signal, the worker re-checks ring fill level this often.
const renderWorkerTick = 8 * time.Millisecond

// renderWorkerLoop is one of the engine's two dedicated goroutines. It
// holds decoderMu only while pulling decoded frames (directly, or via
// the resampler's pull callback) into a local scratch buffer, then
// releases it before running the DSP chain and appending to the ring,
// so a seek or SetSource is never blocked behind a render cycle for
// longer than a single decode call.
func (e *Engine) renderWorkerLoop() {
	defer e.wg.Done()
	runtime.LockOSThread()
	promoteThreadForAudio("render", renderWorkerNice)

	dspBuf := make([]float32, chunkReadFrames*8) // headroom for up to 8ch sources

	ticker := time.NewTicker(renderWorkerTick)
	defer ticker.Stop()

	for {
		select {
		case <-e.renderStop:
			return
		case <-e.renderWake:
		case <-ticker.C:
		}
		e.renderOnce(dspBuf)
	}
}

// renderOnce tops the ring up to its tuned target, once, if there is a
// decoder open and playback is active.
func (e *Engine) renderOnce(dspBuf []float32) {
	if !e.isPlaying.Load() {
		return
	}

	e.backendMu.Lock()
	preset := e.pipeline.BufferPreset
	e.backendMu.Unlock()
	tuning := renderring.TuningFor(preset)

	now := time.Now()
	target := e.ring.EffectiveTargetFrames(tuning.TargetFrames, now)

	for e.ring.FramesAvailable() < target {
		if !e.isPlaying.Load() {
			return
		}
		produced, channels, err := e.renderChunkLocked(dspBuf, tuning.ChunkFrames)
		if err != nil {
			e.handleRenderEnd(err)
			return
		}
		if produced == 0 {
			return
		}
		e.ring.Append(dspBuf[:produced*channels], produced, channels)
	}
}

// renderChunkLocked pulls one chunk of up to chunkFrames output frames
// through the resampler (or directly from the decoder when no rate
// conversion is needed, since resample.New already returns a passthrough
// in that case) into dspBuf, advances the timeline, runs the DSP chain,
// and returns the produced frame count, the channel count those frames
// are in, and any terminal error (types.ErrDecoderEnd on natural end).
//
// decoderMu is held for the pull (the resampler's read callback calls
// back into the decoder) and released before the DSP chain runs, so the
// chain and the eventual ring append never happen under the decoder lock.
func (e *Engine) renderChunkLocked(dspBuf []float32, chunkFrames int) (int, int, error) {
	e.decoderMu.Lock()
	decoder := e.decoder
	resampler := e.resampler
	if decoder == nil || resampler == nil {
		e.decoderMu.Unlock()
		return 0, 0, nil
	}

	channels := decoder.ChannelCount()
	want := chunkFrames * channels
	if want > len(dspBuf) {
		want -= want % channels
		if want > len(dspBuf) {
			want = len(dspBuf) - len(dspBuf)%channels
		}
	}

	var inputFrames uint64
	readFn := func(buf []float32) (int, error) {
		n, err := e.readWithRepeatPolicyLocked(decoder, buf, channels)
		inputFrames += uint64(n)
		return n, err
	}

	produced, procErr := resampler.Process(readFn, dspBuf[:want])
	if produced == 0 {
		e.decoderMu.Unlock()
		if procErr == nil {
			return 0, channels, nil
		}
		return 0, channels, procErr
	}

	decoderRate := decoder.SampleRate()
	if decoder.TimelineMode() != types.TimelineDiscontinuous {
		e.timeline.AdvanceContinuous(inputFrames)
		e.setPosition(e.timeline.ContinuousPosition())
	} else {
		elapsed := float64(inputFrames) / float64(decoderRate)
		pos := e.timeline.ReconcileDiscontinuous(elapsed, decoder.PlaybackPositionSeconds(), e.RepeatMode())
		e.setPosition(pos)
	}

	dur := decoder.Duration()
	reliableDuration := decoder.Capabilities().Has(types.CapReliableDuration) && dur > 0
	e.decoderMu.Unlock()

	out := dspBuf[:produced*channels]
	params, endFadeCfg := e.dspSnapshot()
	endFadeGain := float32(1)
	if dur > 0 {
		endFadeGain = dsp.EndFadeGain(e.PositionSeconds(), dur, endFadeCfg, e.RepeatMode(), reliableDuration)
	}
	e.chain.Process(out, channels, streamSampleRate, params, endFadeGain)

	return produced, channels, nil
}

// readWithRepeatPolicyLocked applies the zero-frame-read retry policy
// per RepeatMode, with decoderMu already held by the caller: RepeatOff
// stops immediately, RepeatSet advances to the next subtune (wrapping)
// when the decoder has more than one and otherwise seeks to 0,
// RepeatCurrentTrack seeks to 0, and both then retry once;
// RepeatLoopPoint retries up to 32 times (a decoder's internal loop
// logic may need a few reads to settle after wrapping).
func (e *Engine) readWithRepeatPolicyLocked(decoder types.AudioDecoder, buf []float32, channels int) (int, error) {
	const maxLoopPointRetries = 32

	n, err := decoder.Read(buf)
	if n > 0 || err != nil {
		return n, err
	}

	switch mode := e.RepeatMode(); mode {
	case types.RepeatOff:
		return 0, types.ErrDecoderEnd
	case types.RepeatLoopPoint:
		for i := 0; i < maxLoopPointRetries; i++ {
			n, err = decoder.Read(buf)
			if n > 0 || err != nil {
				return n, err
			}
		}
		return 0, types.ErrDecoderEnd
	case types.RepeatSet, types.RepeatCurrentTrack:
		if mode == types.RepeatSet && decoder.SubtuneCount() > 1 {
			next := decoder.CurrentSubtune() + 1
			if next >= decoder.SubtuneCount() {
				next = 0
			}
			_ = decoder.SelectSubtune(next)
		} else if decoder.Capabilities().Has(types.CapSeek) {
			_ = decoder.Seek(0)
		}
		n, err = decoder.Read(buf)
		if n > 0 || err != nil {
			return n, err
		}
		return 0, types.ErrDecoderEnd
	default:
		return 0, types.ErrDecoderEnd
	}
}

// handleRenderEnd reacts to a terminal renderChunkLocked result: a
// natural end of stream under RepeatOff publishes the natural-end flag;
// every terminal result stops playback and returns the engine to Idle.
// Errors other than types.ErrDecoderEnd are not logged or reported
// anywhere, leaving the facade's next Start/recover call to decide what
// happens next.
func (e *Engine) handleRenderEnd(err error) {
	e.isPlaying.Store(false)
	e.setState(StateIdle)
	if err == types.ErrDecoderEnd && e.RepeatMode() == types.RepeatOff {
		e.naturalEndPending.Store(true)
	}
}

// wakeRender nudges the render worker to run a cycle immediately instead
// of waiting for the next tick, used after a seek or SetSource so the
// ring starts refilling without an 8ms worst-case delay.
func (e *Engine) wakeRender() {
	select {
	case e.renderWake <- struct{}{}:
	default:
	}
}
