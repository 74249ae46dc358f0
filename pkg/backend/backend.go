// Package backend adapts the engine's render ring to PortAudio output
// using three interchangeable delivery shapes: callback-pull,
// buffer-queue, and blocking-write. Callers never talk to PortAudio
// directly; they configure a Backend and let it drive the ring.
package backend

import (
	"fmt"

	"github.com/drgolem/audioengine/pkg/renderring"

	"github.com/drgolem/go-portaudio/portaudio"
)

// Preference selects which backend shape to prefer when opening a stream.
type Preference int

const (
	PreferAuto Preference = iota
	PreferCallbackPull
	PreferBufferQueue
	PreferBlockingWrite
)

// autoOrder is the shape trial order used when Preference is PreferAuto,
// matching the callback-pull -> buffer-queue -> blocking-write priority.
var autoOrder = []Preference{PreferCallbackPull, PreferBufferQueue, PreferBlockingWrite}

// Config describes the stream to open.
type Config struct {
	SampleRate      int
	Channels        int
	DeviceIndex     int
	FramesPerBuffer int
	// QueueDepth is the number of rotating buffers used by the
	// buffer-queue shape. Ignored by the other two shapes.
	QueueDepth int

	// PostPop, if set, runs on every chunk immediately after it is
	// popped from the ring (with any short-pop tail already
	// zero-filled) and before it is converted to output PCM. The
	// engine uses this to walk the pause/resume fade envelope and feed
	// the visualization tap without pkg/backend knowing about either.
	// A true return means the fade reached its floor and playback
	// should stop: callback-pull returns portaudio.Complete from the same
	// callback, blocking-write exits its writer loop, and buffer-queue
	// stops filling further buffers (all after handing back the
	// current, already-faded chunk). For buffer-queue specifically,
	// PostPop runs in the filler goroutine rather than the realtime
	// callback, so the envelope is applied QueueDepth buffers ahead of
	// actual playback — acceptable for a cosine ramp a few hundred
	// milliseconds long, but worth knowing about.
	PostPop func(buf []float32, frames, channels int) (stop bool)
}

// Backend is the uniform shape every adapter implements. The engine talks
// to whichever Backend opened successfully; it never branches on the
// concrete shape.
type Backend interface {
	// Start opens the underlying stream and begins pulling from ring.
	Start(cfg Config, ring *renderring.Ring) error
	// Stop halts the stream. Safe to call multiple times.
	Stop() error
	// Close releases the underlying stream resources. Safe after Stop.
	Close() error
	// Disconnected reports whether the realtime side reported an error
	// and needs the facade to rebuild the stream.
	Disconnected() bool
	// BurstFrames returns how many frames a single realtime callback
	// asks for, used to size the startup preroll burst.
	BurstFrames() int
}

// ErrAllBackendsFailed is returned by Open when every candidate shape in
// the fallback chain failed to start.
type ErrAllBackendsFailed struct {
	Attempts []error
}

func (e *ErrAllBackendsFailed) Error() string {
	return fmt.Sprintf("backend: all %d candidate shapes failed: %v", len(e.Attempts), e.Attempts)
}

// Open builds and starts a Backend according to pref, falling back
// through the remaining shapes in auto order when allowFallback is set
// and the preferred shape fails to start. It returns the first Backend
// that started successfully.
func Open(pref Preference, allowFallback bool, cfg Config, ring *renderring.Ring) (Backend, error) {
	candidates := candidateOrder(pref)

	var errs []error
	for i, p := range candidates {
		if i > 0 && !allowFallback {
			break
		}
		b := newShapeFn(p)
		if err := b.Start(cfg, ring); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", p, err))
			continue
		}
		return b, nil
	}
	return nil, &ErrAllBackendsFailed{Attempts: errs}
}

func candidateOrder(pref Preference) []Preference {
	if pref == PreferAuto {
		return autoOrder
	}
	ordered := []Preference{pref}
	for _, p := range autoOrder {
		if p != pref {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// newShapeFn constructs the concrete adapter for a Preference. It is a
// package-level var (rather than a plain function) so tests can swap in
// a fake Backend and exercise Open's fallback chain without a real
// PortAudio device.
var newShapeFn = func(p Preference) Backend {
	switch p {
	case PreferBufferQueue:
		return newBufferQueueBackend()
	case PreferBlockingWrite:
		return newBlockingWriteBackend()
	default:
		return newCallbackPullBackend()
	}
}

func (p Preference) String() string {
	switch p {
	case PreferCallbackPull:
		return "callback-pull"
	case PreferBufferQueue:
		return "buffer-queue"
	case PreferBlockingWrite:
		return "blocking-write"
	default:
		return "auto"
	}
}

func sampleFormatFor() portaudio.PaSampleFormat {
	// All three shapes deliver int16 frames; the engine's DSP chain and
	// resamplers already operate in float32 and convert down at the
	// backend boundary, so there is no need to expose other bit depths
	// here (the teacher's own examples default to the same format).
	return portaudio.SampleFmtInt16
}

const bytesPerSample = 2 // int16
