// Package types defines the decoder contract shared by every audio source
// the engine can play, plus the status and error vocabulary built on it.
package types

import (
	"errors"
	"time"
)

// CapabilityBits is a bitmask describing what a decoder implementation can
// do, so the engine can branch on declared capability instead of type
// inspection.
type CapabilityBits uint32

const (
	// CapSeek means Seek is implemented. Without CapDirectSeek the engine
	// seeks by Seek(0) followed by a discard-read scan to the target;
	// without CapSeek the engine does not seek at all (ErrUnsupported).
	CapSeek CapabilityBits = 1 << iota
	// CapReliableDuration means Duration() returns a trustworthy value
	// usable for UI/progress; absent, Duration() is advisory only.
	CapReliableDuration
	// CapLiveRepeatMode means SetRepeatMode can change while playing
	// without reopening the decoder.
	CapLiveRepeatMode
	// CapCustomSampleRate means SetOutputSampleRate is honored; the
	// decoder can render at a caller-chosen rate instead of its native one.
	CapCustomSampleRate
	// CapLiveSampleRateChange means SetOutputSampleRate can be called
	// again after playback has started.
	CapLiveSampleRateChange
	// CapFixedSampleRate means the decoder's output rate never changes
	// for the lifetime of the open source.
	CapFixedSampleRate
	// CapDirectSeek means Seek is synchronous and cheap enough to run on
	// the calling goroutine instead of the seek worker.
	CapDirectSeek
)

// Has reports whether every bit in want is set.
func (c CapabilityBits) Has(want CapabilityBits) bool {
	return c&want == want
}

// TimelineMode describes how a decoder's reported position relates to
// real time, which governs how aggressively the engine may correct its
// own clock toward the decoder's.
type TimelineMode int

const (
	// TimelineUnknown: no reconciliation is attempted.
	TimelineUnknown TimelineMode = iota
	// TimelineContinuousLinear: position advances smoothly with output
	// and is computed from consumed frames over the decoder rate.
	TimelineContinuousLinear
	// TimelineDiscontinuous: position can jump (subtune switches, loop
	// points); the engine pulls its clock toward the decoder's with a
	// bounded correction every render cycle, snapping only on large
	// backward jumps, and the high-quality resampler path is disabled in
	// favor of linear.
	TimelineDiscontinuous
)

// RepeatMode mirrors the four playback-end behaviors applied when a read
// returns zero frames.
type RepeatMode int

const (
	RepeatOff          RepeatMode = 0 // signal reached_end, stop
	RepeatSet          RepeatMode = 1 // advance subtune, or seek(0); retry once
	RepeatLoopPoint    RepeatMode = 2 // retry up to 32x on zero-frame reads
	RepeatCurrentTrack RepeatMode = 3 // seek(0); retry once
)

// Metadata holds the read-only descriptive fields a decoder can surface.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// AudioDecoder is the contract every decodable source implements. It reads
// interleaved float32 samples at its own (possibly caller-chosen) rate and
// channel count, and declares its capabilities so the engine never has to
// type-switch on a concrete decoder.
type AudioDecoder interface {
	// Open opens fileName (or, for non-file sources, a provider-defined
	// locator) for decoding.
	Open(fileName string) error
	// Close releases all resources. A second call is a no-op.
	Close() error

	// Read fills buf (interleaved, ChannelCount() channels per frame)
	// with decoded samples and returns the number of frames written. A
	// zero-frame, nil-error return means "no data right now"; the
	// caller applies RepeatMode-specific retry policy before treating
	// it as end of stream.
	Read(buf []float32) (frames int, err error)

	// Seek moves the read position to seconds. If CapSeek is not
	// declared, callers should not call Seek; the engine then reports
	// ErrUnsupported for seek requests on this decoder.
	Seek(seconds float64) error

	// Duration returns the source length in seconds, or a negative value
	// if unknown. Only trustworthy when CapReliableDuration is set.
	Duration() float64

	// SampleRate and ChannelCount describe the format of frames returned
	// by Read. They may change after a SetOutputSampleRate call.
	SampleRate() int
	ChannelCount() int

	// PlaybackPositionSeconds returns the decoder's own notion of how
	// far into the source the last Read left off.
	PlaybackPositionSeconds() float64

	// Capabilities returns this decoder's capability mask.
	Capabilities() CapabilityBits
	// TimelineMode returns how this decoder's position behaves over time.
	TimelineMode() TimelineMode

	// SetOutputSampleRate requests the decoder render at rate Hz going
	// forward. Only meaningful when CapCustomSampleRate is set; a
	// decoder without that capability returns ErrUnsupported.
	SetOutputSampleRate(rate int) error

	// SetRepeatMode changes end-of-stream behavior.
	SetRepeatMode(mode RepeatMode) error

	// SetOption applies a core-specific option by name. See
	// GetCoreOptionApplyPolicy for whether it takes effect live.
	SetOption(name, value string) error

	// SubtuneCount, CurrentSubtune, and SelectSubtune expose multi-track
	// container navigation. A decoder with a single logical track
	// returns 1, 0, and (for any index other than 0) ErrUnsupported
	// respectively.
	SubtuneCount() int
	CurrentSubtune() int
	SelectSubtune(index int) error

	// Metadata returns best-effort descriptive tags.
	Metadata() Metadata
}

// CoreOptionApplyPolicy describes whether SetOption takes effect
// immediately or requires the decoder to be reopened.
type CoreOptionApplyPolicy int

const (
	ApplyLive CoreOptionApplyPolicy = iota
	ApplyRequiresReopen
)

// OptionPolicyProvider is implemented by decoders that advertise
// per-option apply semantics. Decoders that don't implement it are
// assumed ApplyRequiresReopen for every option.
type OptionPolicyProvider interface {
	GetCoreOptionApplyPolicy(name string) CoreOptionApplyPolicy
}

// PlaybackStatus holds unified playback information for monitoring UIs.
type PlaybackStatus struct {
	FileName        string
	SampleRate      int
	Channels        int
	BitsPerSample   int
	FramesPerBuffer int
	PlayedSamples   uint64
	BufferedSamples uint64
	ElapsedTime     time.Duration
}

// PlaybackMonitor is implemented by anything that can report PlaybackStatus.
type PlaybackMonitor interface {
	GetPlaybackStatus() PlaybackStatus
}

// Sentinel errors shared across decoders, ring buffers, and the engine.
// Comparable with errors.Is.
var (
	ErrInsufficientSpace = errors.New("insufficient space in ringbuffer")
	ErrInsufficientData  = errors.New("insufficient data in ringbuffer")

	ErrUnsupported = errors.New("operation not supported by this decoder")

	// ErrSourceOpenFailed: the underlying file/stream could not be opened.
	ErrSourceOpenFailed = errors.New("audio source open failed")
	// ErrStreamOpenFailed: the output backend could not open a stream.
	ErrStreamOpenFailed = errors.New("output stream open failed")
	// ErrStreamDisconnected: the output backend stream died mid-playback.
	ErrStreamDisconnected = errors.New("output stream disconnected")
	// ErrResamplerUnavailable: the high-quality resampler could not be
	// constructed; callers latch this once and fall back to linear.
	ErrResamplerUnavailable = errors.New("high-quality resampler unavailable")
	// ErrDecoderEnd is not a failure: it signals natural end of stream
	// after repeat-mode retries are exhausted.
	ErrDecoderEnd = errors.New("decoder reached end of stream")
	// ErrSeekAborted is not a failure: an in-flight async seek was
	// superseded or the engine stopped before it completed.
	ErrSeekAborted = errors.New("seek aborted")
	// ErrUnderrunStarvation is recoverable: the render ring could not
	// keep up and the callback emitted silence.
	ErrUnderrunStarvation = errors.New("render ring underrun")
)
