package engine

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// renderWorkerNice and seekWorkerNice mirror the original engine's two
// priority classes: the render worker runs hottest since a starved
// render worker means an audible underrun, while the seek worker can
// tolerate more scheduling latency.
const (
	renderWorkerNice = -16
	seekWorkerNice    = -10
)

// promoteThreadForAudio best-effort raises the calling OS thread's
// scheduling priority. The original engine carried two near-identical
// copies of this for its two worker threads; here it's one utility
// called once per worker on entry, per spec.md's open-question
// resolution to treat them as the same concern. Failure is logged and
// otherwise ignored: a worker that can't get a nicer priority still
// works, just with more jitter under system load.
func promoteThreadForAudio(role string, nice int) {
	// Setpriority(PRIO_PROCESS, 0, nice) affects the calling thread's
	// priority on Linux because the pid argument 0 resolves to the
	// caller, and on Linux scheduling priority is per-thread (tid),
	// not per-process, as long as this goroutine is locked to its OS
	// thread (see runtime.LockOSThread in the worker's entry point).
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, nice); err != nil {
		slog.Debug("thread priority promotion failed", "role", role, "nice", nice, "error", err)
		return
	}
	slog.Debug("thread priority promoted", "role", role, "nice", nice)
}
