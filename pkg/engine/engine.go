// Package engine implements the real-time playback core: a render
// worker that decodes, resamples, and runs the DSP chain into a render
// ring; a seek worker that performs direct or scan-based seeks off the
// realtime path; and a facade that owns lifecycle transitions and
// exposes the stable API a host calls.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drgolem/audioengine/pkg/backend"
	"github.com/drgolem/audioengine/pkg/dsp"
	"github.com/drgolem/audioengine/pkg/renderring"
	"github.com/drgolem/audioengine/pkg/resample"
	"github.com/drgolem/audioengine/pkg/types"
)

// streamSampleRate is the fixed interleaved-stereo rate the render ring
// always holds, regardless of any decoder's native rate.
const streamSampleRate = 48000

// chunkReadFrames is how many frames the render worker asks the
// resampler path for per loop iteration when the ring is below target.
const chunkReadFrames = 1024

// scanSeekChunkFrames is the discard-read chunk size the seek worker
// uses when scanning forward from zero for a decoder without DIRECT_SEEK.
const scanSeekChunkFrames = 4096

// PipelineConfig mirrors set_audio_pipeline_config's parameters.
type PipelineConfig struct {
	BackendPref     backend.Preference
	PerformanceMode int // 0..3, advisory; stored but not read by the engine
	BufferPreset    renderring.BufferPreset
	ResamplerPref   int // 1 = built-in/linear, 2 = high-quality
	FallbackOK      bool
	DeviceIndex     int
}

// seekRequest is the seek worker's single pending-request slot.
type seekRequest struct {
	target  float64
	serial  uint64
	pending bool
	abort   bool
}

// Engine is the process-wide playback singleton: it owns the decoder
// slot, the render ring, the two background workers, and the output
// backend, and is the only thing that mutates any of them.
type Engine struct {
	decoderMu     sync.Mutex
	decoder       types.AudioDecoder
	decoderSerial atomic.Uint64
	resampler     resample.Resampler
	timeline      timeline
	fileName      string

	ring *renderring.Ring

	backendMu sync.Mutex
	be        backend.Backend
	pipeline  PipelineConfig
	preroll   bool // one-shot startup preroll flag, cleared after first stream build

	isPlaying           atomic.Bool
	seekInProgress      atomic.Bool
	naturalEndPending   atomic.Bool
	streamNeedsRebuild  atomic.Bool
	wasPlayingAtError   atomic.Bool
	terminalStopPending atomic.Bool

	positionMu      sync.Mutex
	positionSeconds float64
	durationSeconds float64

	repeatMode atomic.Int32

	seekMu  sync.Mutex
	seekReq seekRequest
	seekWake chan struct{}
	seekStop chan struct{}

	renderWake chan struct{}
	renderStop chan struct{}

	fadeMu sync.Mutex
	fade   pauseResumeFade

	dspMu     sync.Mutex
	dspParams dsp.Params
	endFade   dsp.EndFadeConfig
	chain     *dsp.Chain

	optionsMu     sync.Mutex
	cachedOptions map[string]string

	visualization *visualizationTap

	state atomic.Int32 // State, read/written under no particular lock (coarse diagnostic)

	wg sync.WaitGroup
}

// New returns an idle Engine ready for SetSource.
func New() *Engine {
	e := &Engine{
		ring:          renderring.New(),
		seekWake:      make(chan struct{}, 1),
		seekStop:      make(chan struct{}),
		renderWake:    make(chan struct{}, 1),
		renderStop:    make(chan struct{}),
		cachedOptions: make(map[string]string),
		chain:         dsp.NewChain(streamSampleRate),
		preroll:       true,
	}
	e.pipeline = PipelineConfig{
		BackendPref:    backend.PreferAuto,
		BufferPreset:   renderring.Small,
		ResamplerPref:  2,
		FallbackOK:     true,
	}
	e.state.Store(int32(StateIdle))
	e.wg.Add(2)
	go e.renderWorkerLoop()
	go e.seekWorkerLoop()
	return e
}

// Close stops playback, joins both workers, and releases the decoder
// and output stream. The drop order mirrors spec.md §9's "no cycles":
// signal stop, join seek worker, join render worker, close stream,
// destroy decoder.
func (e *Engine) Close() error {
	close(e.renderStop)
	close(e.seekStop)
	e.wg.Wait()

	e.backendMu.Lock()
	if e.be != nil {
		e.be.Stop()
		e.be.Close()
		e.be = nil
	}
	e.backendMu.Unlock()

	e.decoderMu.Lock()
	defer e.decoderMu.Unlock()
	if e.decoder != nil {
		err := e.decoder.Close()
		e.decoder = nil
		return err
	}
	return nil
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// State returns the engine's current coarse lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// IsPlaying reports whether the render worker is actively producing
// audio for the current source.
func (e *Engine) IsPlaying() bool {
	return e.isPlaying.Load()
}

// IsSeekInProgress reports whether an async (non-direct) seek is still
// running on the seek worker.
func (e *Engine) IsSeekInProgress() bool {
	return e.seekInProgress.Load()
}

// PositionSeconds returns the last published playback position.
func (e *Engine) PositionSeconds() float64 {
	e.positionMu.Lock()
	defer e.positionMu.Unlock()
	return e.positionSeconds
}

func (e *Engine) setPosition(seconds float64) {
	e.positionMu.Lock()
	e.positionSeconds = seconds
	e.positionMu.Unlock()
}

// DurationSeconds returns the current source's duration, or 0 if
// unknown or no source is open.
func (e *Engine) DurationSeconds() float64 {
	e.positionMu.Lock()
	defer e.positionMu.Unlock()
	return e.durationSeconds
}

// ConsumeNaturalEndEvent reports and clears the natural-end flag
// (exchange-reset semantics): it is true at most once per natural end.
func (e *Engine) ConsumeNaturalEndEvent() bool {
	return e.naturalEndPending.CompareAndSwap(true, false)
}

// RepeatMode returns the currently configured repeat mode.
func (e *Engine) RepeatMode() types.RepeatMode {
	return types.RepeatMode(e.repeatMode.Load())
}

// SetRepeatMode changes end-of-stream behavior, propagating to the
// decoder when one is open. Leaving LOOP_POINT while already at or past
// the end applies new semantics immediately rather than waiting for the
// next decoder read, per spec.md §4.8.
func (e *Engine) SetRepeatMode(mode types.RepeatMode) error {
	previous := types.RepeatMode(e.repeatMode.Swap(int32(mode)))
	if previous == mode {
		return nil
	}

	e.decoderMu.Lock()
	defer e.decoderMu.Unlock()
	if e.decoder != nil {
		if err := e.decoder.SetRepeatMode(mode); err != nil && err != types.ErrUnsupported {
			return fmt.Errorf("set repeat mode: %w", err)
		}
	}

	if previous == types.RepeatLoopPoint && mode != types.RepeatLoopPoint {
		e.applyLeavingLoopPointLocked(mode)
	}
	return nil
}

// applyLeavingLoopPointLocked handles the special case of abandoning
// LOOP_POINT while already at or past the logical end: advance/restart
// for modes 1/3, or signal stop immediately for mode 0, instead of
// waiting for the render worker's next zero-frame read.
func (e *Engine) applyLeavingLoopPointLocked(newMode types.RepeatMode) {
	if e.decoder == nil {
		return
	}
	pos := e.PositionSeconds()
	dur := e.durationSeconds
	atOrPastEnd := dur > 0 && pos >= dur-0.01
	if !atOrPastEnd {
		return
	}

	switch newMode {
	case types.RepeatOff:
		e.naturalEndPending.Store(true)
		e.isPlaying.Store(false)
		e.terminalStopPending.Store(true)
	case types.RepeatSet, types.RepeatCurrentTrack:
		if newMode == types.RepeatSet && e.decoder.SubtuneCount() > 1 {
			next := (e.decoder.CurrentSubtune() + 1) % e.decoder.SubtuneCount()
			_ = e.decoder.SelectSubtune(next)
		} else if e.decoder.Capabilities().Has(types.CapSeek) {
			_ = e.decoder.Seek(0)
		}
		e.timeline.Reset(e.decoder.TimelineMode(), e.decoder.SampleRate(), 0)
		e.setPosition(0)
	}
}

// SetMasterGainDB, SetSongGainDB, SetPluginGainDB, SetForceMono, and the
// per-channel routing setters mutate dspParams under dspMu; the render
// worker reads a snapshot each chunk via dspSnapshot().
func (e *Engine) SetMasterGainDB(db float32) {
	e.dspMu.Lock()
	e.dspParams.Gain.MasterDB = db
	e.dspMu.Unlock()
}

func (e *Engine) SetSongGainDB(db float32) {
	e.dspMu.Lock()
	e.dspParams.Gain.SongDB = db
	e.dspMu.Unlock()
}

func (e *Engine) SetPluginGainDB(db float32) {
	e.dspMu.Lock()
	e.dspParams.Gain.PluginDB = db
	e.dspMu.Unlock()
}

func (e *Engine) SetForceMono(enabled bool) {
	e.dspMu.Lock()
	e.dspParams.ForceMono = enabled
	e.dspMu.Unlock()
}

func (e *Engine) SetChannelRouting(routing dsp.RoutingParams) {
	e.dspMu.Lock()
	e.dspParams.Routing = routing
	e.dspMu.Unlock()
}

func (e *Engine) SetBassParams(p dsp.BassParams) {
	e.dspMu.Lock()
	e.dspParams.Bass = p
	e.dspMu.Unlock()
}

func (e *Engine) SetSurroundParams(p dsp.SurroundParams) {
	e.dspMu.Lock()
	e.dspParams.Surround = p
	e.dspMu.Unlock()
}

func (e *Engine) SetReverbParams(p dsp.ReverbParams) {
	e.dspMu.Lock()
	e.dspParams.Reverb = p
	e.dspMu.Unlock()
}

func (e *Engine) SetBitCrushParams(p dsp.BitCrushParams) {
	e.dspMu.Lock()
	e.dspParams.BitCrush = p
	e.dspMu.Unlock()
}

func (e *Engine) SetLimiterEnabled(enabled bool) {
	e.dspMu.Lock()
	e.dspParams.Limiter = enabled
	e.dspMu.Unlock()
}

func (e *Engine) SetEndFadeConfig(cfg dsp.EndFadeConfig) {
	e.dspMu.Lock()
	e.endFade = cfg
	e.dspMu.Unlock()
}

func (e *Engine) dspSnapshot() (dsp.Params, dsp.EndFadeConfig) {
	e.dspMu.Lock()
	defer e.dspMu.Unlock()
	return e.dspParams, e.endFade
}

// DemandVisualization opens the visualization tap's on-demand window,
// and Visualization returns its most recent snapshot. Both are no-ops
// (returning a zero-value snapshot) until the first SetSource, which
// builds the tap sized off the decoder's channel count.
func (e *Engine) DemandVisualization() {
	if e.visualization != nil {
		e.visualization.Demand(time.Now())
	}
}

func (e *Engine) Visualization() VisualizationSnapshot {
	if e.visualization == nil {
		return VisualizationSnapshot{}
	}
	return e.visualization.Snapshot()
}

func logDecoderCloseErr(err error) {
	if err != nil {
		slog.Warn("decoder close failed", "error", err)
	}
}
