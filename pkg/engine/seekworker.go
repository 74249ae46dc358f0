package engine

import (
	"runtime"

	"github.com/drgolem/audioengine/pkg/types"
)

// seekWorkerLoop is the engine's second dedicated goroutine. It services
// the single-slot pending seek request posted by postSeekRequestLocked,
// running the scan-seek path (decoder.Seek(0) followed by a discard-read
// loop) for decoders that declare CapSeek but not CapDirectSeek. Direct
// seeks never reach this worker: the facade performs those synchronously
// on the calling goroutine since they're cheap by declaration.
func (e *Engine) seekWorkerLoop() {
	defer e.wg.Done()
	runtime.LockOSThread()
	promoteThreadForAudio("seek", seekWorkerNice)

	for {
		select {
		case <-e.seekStop:
			return
		case <-e.seekWake:
		}
		e.processPendingSeek()
	}
}

// processPendingSeek takes the current pending request out of the
// single slot (if any, and if it still targets the decoder it was
// issued against) and runs a scan-seek for it.
func (e *Engine) processPendingSeek() {
	e.seekMu.Lock()
	req := e.seekReq
	if !req.pending {
		e.seekMu.Unlock()
		return
	}
	e.seekReq.pending = false
	e.seekMu.Unlock()

	e.seekInProgress.Store(true)
	e.setState(StateSeekingAsync)
	defer func() {
		e.seekInProgress.Store(false)
		if e.isPlaying.Load() {
			e.setState(StatePlaying)
		} else {
			e.setState(StateIdle)
		}
	}()

	e.decoderMu.Lock()
	decoder := e.decoder
	if decoder == nil || e.decoderSerial.Load() != req.serial {
		e.decoderMu.Unlock()
		return
	}

	target := e.clampSeekTargetLocked(decoder, req.target)

	if err := decoder.Seek(0); err != nil {
		e.decoderMu.Unlock()
		return
	}
	e.timeline.Reset(decoder.TimelineMode(), decoder.SampleRate(), 0)

	scratch := make([]float32, scanSeekChunkFrames*decoder.ChannelCount())
	targetFrames := uint64(target * float64(decoder.SampleRate()))
	var consumed uint64

	for consumed < targetFrames {
		if e.seekAbortedLocked(req.serial) {
			e.decoderMu.Unlock()
			return
		}
		n, err := decoder.Read(scratch)
		if n == 0 || err != nil {
			break
		}
		consumed += uint64(n)
	}

	actual := float64(consumed) / float64(decoder.SampleRate())
	e.timeline.AdvanceContinuous(consumed)
	if e.resampler != nil {
		e.resampler.Reset()
	}
	e.decoderMu.Unlock()

	e.ring.Clear()
	e.setPosition(actual)
	e.wakeRender()
}

// seekAbortedLocked reports whether the pending-seek slot has since been
// superseded (a newer request arrived, carrying a different serial or
// simply replacing this one) or explicitly marked aborted, letting the
// scan loop bail out between 4096-frame chunks instead of running to
// completion on a stale request. Requires decoderMu held by the caller
// only incidentally (it does not touch the decoder); seekMu is acquired
// internally.
func (e *Engine) seekAbortedLocked(serial uint64) bool {
	e.seekMu.Lock()
	defer e.seekMu.Unlock()
	if e.seekReq.abort {
		return true
	}
	// processPendingSeek cleared pending when it took this request, so a
	// pending slot now holds a newer request, whatever its serial.
	return e.seekReq.pending
}

// clampSeekTargetLocked raises a negative target to 0 and, when the
// decoder declares CapReliableDuration with a positive duration, lowers a
// target past that duration to it; in RepeatLoopPoint mode the upper
// bound is skipped, since a decoder may legitimately seek past a reported
// duration into loop-tail territory. Requires decoderMu held.
func (e *Engine) clampSeekTargetLocked(decoder types.AudioDecoder, target float64) float64 {
	if target < 0 {
		return 0
	}
	if e.RepeatMode() == types.RepeatLoopPoint {
		return target
	}
	if decoder.Capabilities().Has(types.CapReliableDuration) {
		if dur := decoder.Duration(); dur > 0 && target > dur {
			return dur
		}
	}
	return target
}

// postSeekRequestLocked replaces the single pending-seek slot with a new
// request, implicitly superseding (not queuing behind) whatever was
// there before. Requires decoderMu held by the caller so serial reflects
// the decoder the request is issued against.
func (e *Engine) postSeekRequestLocked(target float64) {
	serial := e.decoderSerial.Load()
	e.seekMu.Lock()
	e.seekReq = seekRequest{target: target, serial: serial, pending: true}
	e.seekMu.Unlock()

	select {
	case e.seekWake <- struct{}{}:
	default:
	}
}

// abortPendingSeek marks the current pending or in-flight seek request
// aborted, used when Stop or a new SetSource supersedes it outright
// rather than via a newer seek target.
func (e *Engine) abortPendingSeek() {
	e.seekMu.Lock()
	e.seekReq.abort = true
	e.seekReq.pending = false
	e.seekMu.Unlock()
}
