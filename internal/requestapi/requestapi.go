// Package requestapi implements GetFrame: the public entry point a caller
// uses to ask for a decoded frame, including the pin-on-first-miss,
// notify-the-scheduler, 1-second polling wait, and drop-frame fallback.
package requestapi

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/frame-script/framescript/internal/cache"
	"github.com/frame-script/framescript/internal/decoder"
)

// pollInterval bounds how long GetFrame waits on a pending cell before
// checking whether the scheduler is still making progress.
const pollInterval = time.Second

// schedulerView is the subset of *scheduler.Scheduler GetFrame needs; kept
// as an interface so this package does not import scheduler directly.
// EnsureRunning takes no context: the background loop it starts is
// governed by the scheduler's own long-lived lifetime, never by an
// individual GetFrame caller's request-scoped context.
type schedulerView interface {
	Notify()
	EnsureRunning()
	RunningDecodeTasks() int64
}

// Handler serves GetFrame for one decoder instance.
type Handler struct {
	cache       *cache.Cache
	scheduler   schedulerView
	width       uint32
	height      uint32
	entireBytes *atomic.Int64
	logger      zerolog.Logger
}

// New returns a Handler bound to one decoder instance's cache and
// scheduler. entireBytes is the process-wide byte counter, shared across
// every instance, used when eviction is triggered by recency overflow.
func New(c *cache.Cache, sched schedulerView, width, height uint32, entireBytes *atomic.Int64, logger zerolog.Logger) *Handler {
	return &Handler{cache: c, scheduler: sched, width: width, height: height, entireBytes: entireBytes, logger: logger}
}

// GetFrame returns the decoded bytes for frameIndex:
//
//  1. A cache hit returns immediately.
//  2. Otherwise the frame is pinned (if no pin exists yet), marked
//     pending, and the scheduler is notified and started.
//  3. The caller waits on the frame's cell in 1-second slices. On each
//     timeout, if the scheduler still has decode work in flight, it keeps
//     waiting; otherwise the frame is dropped: it is unmarked pending, and
//     the nearest earlier already-cached frame is returned, or a
//     synthesized placeholder if none exists.
//  4. Regardless of which branch produced the bytes, finish_frame always
//     runs against the *requested* frameIndex (not whatever index the
//     bytes actually came from), updating recency/eviction bookkeeping.
func (h *Handler) GetFrame(ctx context.Context, frameIndex uint32) ([]byte, error) {
	entry := h.cache.EnsureEntry(frameIndex)
	if v, ok := entry.Cell.GetNow(); ok {
		h.cache.Touch(frameIndex)
		return h.finishFrame(frameIndex, v), nil
	}

	h.cache.PinIfUnset(frameIndex)
	h.cache.MarkPending(frameIndex)
	h.scheduler.Notify()
	h.scheduler.EnsureRunning()

	frame, err := h.waitForFrame(ctx, frameIndex, entry)
	if err != nil {
		return nil, err
	}
	return h.finishFrame(frameIndex, frame), nil
}

func (h *Handler) waitForFrame(ctx context.Context, frameIndex uint32, entry *cache.Entry) ([]byte, error) {
	for {
		waitCtx, cancel := context.WithTimeout(ctx, pollInterval)
		v, err := entry.Cell.Get(waitCtx)
		cancel()
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if h.scheduler.RunningDecodeTasks() > 0 {
			continue
		}

		h.cache.UnmarkPending(frameIndex)
		if prior, ok := h.cache.NearestCompletedBefore(frameIndex); ok {
			h.logger.Warn().Uint32("frame_index", frameIndex).Msg("frame dropped, serving nearest earlier cached frame")
			return prior, nil
		}
		h.logger.Warn().Uint32("frame_index", frameIndex).Msg("frame dropped, no earlier frame cached, synthesizing placeholder")
		return decoder.SynthesizeFrame(h.width, h.height), nil
	}
}

// finishFrame implements the recency half of finish_frame: push
// frameIndex into the recent FIFO (unless it is the pinned frame) and
// evict overflow. entireBytes accounting lives inside cache.Cache, shared
// process-wide via the pointer threaded through at construction.
func (h *Handler) finishFrame(frameIndex uint32, bytes []byte) []byte {
	h.cache.FinishRecency(frameIndex, h.entireBytes)
	return bytes
}
