package engine

import (
	"fmt"
	"time"

	"github.com/drgolem/audioengine/pkg/backend"
	"github.com/drgolem/audioengine/pkg/decoders"
	"github.com/drgolem/audioengine/pkg/renderring"
	"github.com/drgolem/audioengine/pkg/resample"
	"github.com/drgolem/audioengine/pkg/types"
)

const (
	// pauseResumeFadeDurationMs is how long the pause/resume envelope
	// takes to ramp, short enough to feel instantaneous but long enough
	// to avoid an audible click.
	pauseResumeFadeDurationMs = 120
	// pauseResumeFloorDB is the attenuation a pause fade ramps down to;
	// effectively silent without actually stopping the stream.
	pauseResumeFloorDB = 90.0

	// startupPrefillWait is how long a preroll Start waits for the ring
	// to reach its tuned target before handing control back to the
	// caller.
	startupPrefillWait = 220 * time.Millisecond
)

// SetSource opens fileName's decoder, replacing any currently open one,
// and leaves the engine Idle (not playing) until Start is called. The
// new decoder is opened before decoderMu is taken; the swap itself
// happens under decoderMu: the old decoder is closed, the new one
// installed, the timeline and resampler rebuilt, and the decoder serial
// bumped, all before the lock is released, so the render worker never
// observes a half-swapped state. An unknown (negative) decoder duration
// is published as 0.
func (e *Engine) SetSource(fileName string) error {
	e.abortPendingSeek()

	newDecoder, err := decoders.NewDecoder(fileName)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrSourceOpenFailed, err)
	}

	e.decoderMu.Lock()
	if e.decoder != nil {
		logDecoderCloseErr(e.decoder.Close())
	}
	e.decoder = newDecoder
	e.fileName = fileName
	e.decoderSerial.Add(1)

	e.applyCachedOptionsLocked()

	channels := newDecoder.ChannelCount()
	decoderRate := newDecoder.SampleRate()
	preferHQ := e.pipeline.ResamplerPref == 2
	e.resampler = resample.New(channels, decoderRate, streamSampleRate, newDecoder.TimelineMode(), preferHQ)
	e.timeline.Reset(newDecoder.TimelineMode(), decoderRate, newDecoder.PlaybackPositionSeconds())
	e.decoderMu.Unlock()

	if e.visualization == nil || e.visualization.channels != channels {
		e.visualization = newVisualizationTap(channels)
	}

	e.ring.Clear()
	e.positionMu.Lock()
	e.positionSeconds = newDecoder.PlaybackPositionSeconds()
	e.durationSeconds = newDecoder.Duration()
	if e.durationSeconds < 0 {
		e.durationSeconds = 0
	}
	e.positionMu.Unlock()

	e.isPlaying.Store(false)
	e.naturalEndPending.Store(false)
	e.setState(StateIdle)
	return nil
}

// Start opens (or reuses) the output stream and begins playback. If the
// stream previously disconnected, it is rebuilt first. A failed stream
// open is retried exactly once, reading the PipelineConfig afresh. When
// preroll is still armed (the very first Start after New, or after a
// stream rebuild), Start then wakes the render worker and waits up to
// startupPrefillWait for the ring to reach its tuned target; no silence
// is rendered ahead of the stream, which is already open at that point.
func (e *Engine) Start() error {
	e.decoderMu.Lock()
	hasDecoder := e.decoder != nil
	e.decoderMu.Unlock()
	if !hasDecoder {
		return fmt.Errorf("engine: Start called with no source set")
	}

	if err := e.recoverStreamIfNeeded(); err != nil {
		return err
	}

	e.backendMu.Lock()
	needsOpen := e.be == nil
	e.backendMu.Unlock()
	if needsOpen {
		if err := e.openBackend(); err != nil {
			if err = e.openBackend(); err != nil {
				return err
			}
		}
	}

	e.isPlaying.Store(true)
	e.setState(StatePlaying)
	e.wakeRender()

	if e.preroll {
		e.preroll = false
		e.backendMu.Lock()
		target := renderring.TuningFor(e.pipeline.BufferPreset).TargetFrames
		e.backendMu.Unlock()
		deadline := time.Now().Add(startupPrefillWait)
		for time.Now().Before(deadline) {
			if e.ring.FramesAvailable() >= target {
				break
			}
			time.Sleep(2 * time.Millisecond)
		}
	}
	return nil
}

// openBackend opens the output stream according to the current pipeline
// config, wiring PostPop to the pause/resume fade and visualization tap.
func (e *Engine) openBackend() error {
	e.backendMu.Lock()
	pipeline := e.pipeline
	e.backendMu.Unlock()

	// The render ring always stores interleaved stereo (Append
	// duplicates mono input to both channels), so the output stream is
	// always opened with 2 channels regardless of the source decoder's
	// own channel count.
	cfg := backend.Config{
		SampleRate:      streamSampleRate,
		Channels:        2,
		DeviceIndex:     pipeline.DeviceIndex,
		FramesPerBuffer: renderring.TuningFor(pipeline.BufferPreset).ChunkFrames,
		QueueDepth:      4,
		PostPop:         e.postPop,
	}

	be, err := backend.Open(pipeline.BackendPref, pipeline.FallbackOK, cfg, e.ring)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrStreamOpenFailed, err)
	}

	e.backendMu.Lock()
	e.be = be
	e.backendMu.Unlock()
	return nil
}

// postPop is the backend's PostPop hook: it walks the pause/resume fade
// envelope over the chunk that was just popped off the ring, feeds the
// visualization tap with the (already fade-applied) samples, and signals
// the backend to stop once a fade-to-floor ramp completes.
func (e *Engine) postPop(buf []float32, frames, channels int) bool {
	e.fadeMu.Lock()
	reachedFloor := e.fade.Apply(buf, frames, channels)
	e.fadeMu.Unlock()

	if e.visualization != nil {
		e.visualization.Feed(buf, frames, channels, time.Now())
	}

	if reachedFloor {
		e.isPlaying.Store(false)
		e.setState(StatePaused)
	}
	return reachedFloor
}

// Pause arms a fade-to-floor ramp on the realtime path rather than
// stopping the stream outright, so resuming is click-free and instant.
// The render worker keeps filling the ring as normal; only output
// volume is affected.
func (e *Engine) Pause() {
	durationFrames := streamSampleRate * pauseResumeFadeDurationMs / 1000
	e.fadeMu.Lock()
	e.fade.start(fadeToFloor, durationFrames, floorGainFromDB(pauseResumeFloorDB))
	e.fadeMu.Unlock()
	e.setState(StatePaused)
}

// Resume reverses a pause fade (or, if the stream had actually stopped
// after reaching the floor, reopens it) and ramps back to unity gain.
func (e *Engine) Resume() error {
	e.backendMu.Lock()
	if e.be != nil && !e.isPlaying.Load() {
		// Playback already ended (a completed fade-to-floor stops the
		// backend from its own realtime side), so release the stream.
		e.be.Stop()
		e.be.Close()
		e.be = nil
	}
	needsReopen := e.be == nil
	e.backendMu.Unlock()
	if needsReopen {
		if err := e.Start(); err != nil {
			return err
		}
	}

	durationFrames := streamSampleRate * pauseResumeFadeDurationMs / 1000
	e.fadeMu.Lock()
	e.fade.start(fadeToUnity, durationFrames, floorGainFromDB(pauseResumeFloorDB))
	e.fadeMu.Unlock()

	e.isPlaying.Store(true)
	e.setState(StatePlaying)
	e.wakeRender()
	return nil
}

// Stop halts playback and the output stream immediately (no fade),
// aborts any in-flight seek, closes and releases the output stream so a
// later Start opens a fresh one, and leaves the decoder open so that
// Start resumes from the same position. The terminal-stop-pending state
// exists for the window between the render worker observing
// isPlaying==false and the backend's realtime side actually going
// quiet.
func (e *Engine) Stop() error {
	e.abortPendingSeek()
	e.isPlaying.Store(false)
	e.terminalStopPending.Store(true)
	e.setState(StateTerminalStopPending)

	e.backendMu.Lock()
	defer e.backendMu.Unlock()
	if e.be != nil {
		err := e.be.Stop()
		e.be.Close()
		e.be = nil
		e.terminalStopPending.Store(false)
		e.setState(StateIdle)
		return err
	}
	e.terminalStopPending.Store(false)
	e.setState(StateIdle)
	return nil
}

// SeekTo moves playback to seconds. Decoders advertising CapDirectSeek
// are seeked synchronously on the calling goroutine (spec declares that
// path cheap); everything else with CapSeek is handed to the seek
// worker's scan-seek path. A decoder with neither capability returns
// types.ErrUnsupported. The position is published optimistically for
// the async path so UI feedback doesn't wait for the scan to finish.
func (e *Engine) SeekTo(seconds float64) error {
	e.decoderMu.Lock()
	decoder := e.decoder
	if decoder == nil {
		e.decoderMu.Unlock()
		return fmt.Errorf("engine: SeekTo called with no source set")
	}
	caps := decoder.Capabilities()

	if caps.Has(types.CapDirectSeek) && caps.Has(types.CapSeek) {
		target := e.clampSeekTargetLocked(decoder, seconds)
		err := decoder.Seek(target)
		if err == nil {
			e.timeline.Reset(decoder.TimelineMode(), decoder.SampleRate(), target)
			if e.resampler != nil {
				e.resampler.Reset()
			}
			e.ring.Clear()
			e.setPosition(target)
		}
		e.decoderMu.Unlock()
		if err != nil {
			return fmt.Errorf("direct seek: %w", err)
		}
		e.setState(StateSeekingDirect)
		e.wakeRender()
		if e.isPlaying.Load() {
			e.setState(StatePlaying)
		} else {
			e.setState(StateIdle)
		}
		return nil
	}

	if !caps.Has(types.CapSeek) {
		e.decoderMu.Unlock()
		return types.ErrUnsupported
	}
	e.postSeekRequestLocked(seconds)
	e.decoderMu.Unlock()
	e.setPosition(seconds) // optimistic publish
	return nil
}

// SetAudioPipelineConfig updates the output backend preference, buffer
// preset, and resampler preference for subsequent stream (re)opens. It
// does not tear down a currently open stream; call Stop/Start (or let
// recoverStreamIfNeeded do it after a disconnect) to pick up a
// backend-preference change.
func (e *Engine) SetAudioPipelineConfig(cfg PipelineConfig) {
	e.backendMu.Lock()
	e.pipeline = cfg
	e.backendMu.Unlock()
}

// recoverStreamIfNeeded rebuilds the output stream if the backend
// reported a disconnect (or the engine's own latch from a failed
// realtime callback was set), closing the dead stream first. It is
// idempotent: calling it with a healthy stream is a no-op.
func (e *Engine) recoverStreamIfNeeded() error {
	e.backendMu.Lock()
	needsRebuild := e.streamNeedsRebuild.Load()
	if e.be != nil && e.be.Disconnected() {
		needsRebuild = true
	}
	if !needsRebuild {
		e.backendMu.Unlock()
		return nil
	}
	wasPlaying := e.isPlaying.Load() || e.wasPlayingAtError.Load()
	if e.be != nil {
		e.be.Stop()
		e.be.Close()
		e.be = nil
	}
	e.backendMu.Unlock()

	e.streamNeedsRebuild.Store(false)
	e.wasPlayingAtError.Store(false)
	e.preroll = true
	e.setState(StateStreamRebuildPending)

	if err := e.openBackend(); err != nil {
		return err
	}
	if wasPlaying {
		e.isPlaying.Store(true)
		e.setState(StatePlaying)
		e.wakeRender()
	} else {
		e.setState(StateIdle)
	}
	return nil
}

// NotifyStreamError is the error callback the output backend (or a host
// embedding this engine) invokes when the realtime side hits an
// unrecoverable condition. It latches stream_needs_rebuild rather than
// tearing anything down immediately, since the report may arrive from a
// realtime thread where blocking work (closing a stream, reopening one)
// would itself be a protocol violation; recoverStreamIfNeeded does the
// actual work the next time Start calls it.
func (e *Engine) NotifyStreamError(err error) {
	e.wasPlayingAtError.Store(e.isPlaying.Load())
	e.streamNeedsRebuild.Store(true)
}
