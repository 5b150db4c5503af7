// Package scheduler implements the Stream Scheduler: one background worker
// per decoder instance that keeps a sequential ffmpeg stream positioned
// near the frames currently being requested, restarting it on large jumps
// and falling back to single-shot extraction when a stream can't make
// progress.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/semaphore"

	"github.com/frame-script/framescript/internal/cache"
	"github.com/frame-script/framescript/internal/decoder"
)

const (
	// streamIdleTimeout bounds how long the main loop waits for a notify
	// signal while there is nothing pending.
	streamIdleTimeout = 300 * time.Millisecond

	// streamRestartGap is the largest forward jump a running stream will
	// absorb by reading through; anything larger forces a respawn.
	streamRestartGap = 90

	// fallbackConcurrency bounds how many pending frames are decoded
	// concurrently when a stream gives up on them.
	fallbackConcurrency = 4
)

// Scheduler owns the background decode loop for one decoder instance. The
// loop's lifetime is governed by ctx/cancel, created once here and
// independent of any individual GetFrame caller's context — the instance
// lives until the registry explicitly closes it, not until the first
// caller that happened to start the loop disconnects.
type Scheduler struct {
	key    cache.DecoderKey
	width  uint32
	height uint32

	cache   *cache.Cache
	decoder decoder.FrameDecoder

	hwAccelEnabled bool
	entireBytes    *atomic.Int64

	sem *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	notify  chan struct{}
	closed  atomic.Bool
	running atomic.Bool
	tasks   atomic.Int64

	logger zerolog.Logger
}

// New returns a Scheduler for one decoder instance. entireBytes and sem are
// process-wide, shared across every instance's Scheduler. The returned
// Scheduler owns its own background-loop context; call Close to cancel it.
func New(key cache.DecoderKey, width, height uint32, c *cache.Cache, fd decoder.FrameDecoder, hwAccelEnabled bool, entireBytes *atomic.Int64, sem *semaphore.Weighted, logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		key:            key,
		width:          width,
		height:         height,
		cache:          c,
		decoder:        fd,
		hwAccelEnabled: hwAccelEnabled,
		entireBytes:    entireBytes,
		sem:            sem,
		ctx:            ctx,
		cancel:         cancel,
		notify:         make(chan struct{}, 1),
		logger:         logger.With().Str("decoder_key", key.String()).Logger(),
	}
}

// Notify wakes the main loop if it is idle. At most one pending signal is
// kept; redundant notifies are dropped.
func (s *Scheduler) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// RunningDecodeTasks reports how many background loops are live for this
// instance (0 or 1). The count stays at 1 for the loop's whole lifetime,
// including while it idles waiting for a notify.
func (s *Scheduler) RunningDecodeTasks() int64 {
	return s.tasks.Load()
}

// EnsureRunning starts the background loop if it is not already running,
// using the Scheduler's own long-lived context rather than any caller's.
// A caller's request context must never govern this loop: it outlives any
// single GetFrame call and keeps running for every other concurrent or
// future requester of this decoder instance.
func (s *Scheduler) EnsureRunning() {
	if s.closed.Load() {
		return
	}
	if s.running.Swap(true) {
		return
	}
	s.tasks.Add(1)
	go func() {
		defer func() {
			s.running.Store(false)
			s.tasks.Add(-1)
		}()
		s.runLoop(s.ctx)
	}()
}

// Close marks the scheduler closed and cancels its background-loop context;
// the loop exits at its next check and tears down any running stream. It
// does not block until the loop exits — callers waiting for a clean
// shutdown poll RunningDecodeTasks.
func (s *Scheduler) Close() {
	s.closed.Store(true)
	s.cancel()
	s.Notify()
}

func (s *Scheduler) runLoop(ctx context.Context) {
	var stream decoder.StreamHandle
	var streamIsHW bool
	var current uint32

	defer func() {
		if stream != nil {
			stream.Shutdown()
		}
	}()

	for {
		if s.closed.Load() {
			return
		}
		if ctx.Err() != nil {
			return
		}

		target, ok := s.cache.MinPending()
		if !ok {
			waitCtx, cancel := context.WithTimeout(ctx, streamIdleTimeout)
			select {
			case <-s.notify:
			case <-waitCtx.Done():
			}
			cancel()
			continue
		}

		restart := stream == nil || target < current || target-current > streamRestartGap
		if restart {
			if stream != nil {
				stream.Shutdown()
				stream = nil
			}
			newStream, isHW, err := s.spawn(ctx, target)
			if err != nil {
				s.logger.Error().Err(err).Uint32("target", target).Msg("stream spawn failed, falling back")
				s.completePendingWithFallback(ctx)
				continue
			}
			stream = newStream
			streamIsHW = isHW
			current = target
		}

		stream, streamIsHW, current = s.advance(ctx, stream, streamIsHW, current, target)
	}
}

// advance reads frames sequentially up to target, completing pending
// entries as they arrive. It returns the stream, HW flag, and current
// position the caller should continue runLoop with. After a hardware read
// failure it returns the freshly respawned software stream at the same
// position; the stream comes back nil whenever a fallback ended the
// attempt early, which forces runLoop to restart on its next iteration.
func (s *Scheduler) advance(ctx context.Context, stream decoder.StreamHandle, streamIsHW bool, current, target uint32) (decoder.StreamHandle, bool, uint32) {
	for current <= target {
		if minP, ok := s.cache.MinPending(); ok && minP < current {
			return stream, streamIsHW, current
		}

		data, err := stream.ReadNext(ctx)
		if err != nil {
			if streamIsHW {
				s.logger.Warn().Err(err).Msg("hardware stream read failed, respawning in software")
				stream.Shutdown()
				newStream, spawnErr := s.decoder.SpawnStream(ctx, s.key.Path, current, s.width, s.height, false)
				if spawnErr != nil {
					s.logger.Error().Err(spawnErr).Msg("software respawn after hardware failure also failed")
					s.completePendingWithFallback(ctx)
					return nil, false, current
				}
				return newStream, false, current
			}

			s.logger.Error().Err(err).Msg("software stream read failed, falling back")
			s.completePendingWithFallback(ctx)
			stream.Shutdown()
			return nil, false, current
		}

		s.cache.CompleteIfPending(current, data, s.entireBytes)
		current++
	}
	return stream, streamIsHW, current
}

// spawn tries hardware acceleration first (if enabled for this instance),
// then retries once in software.
func (s *Scheduler) spawn(ctx context.Context, target uint32) (decoder.StreamHandle, bool, error) {
	var hwErr error
	if s.hwAccelEnabled {
		h, err := s.decoder.SpawnStream(ctx, s.key.Path, target, s.width, s.height, true)
		if err == nil {
			return h, true, nil
		}
		hwErr = err
		s.logger.Warn().Err(err).Msg("hardware stream spawn failed, retrying in software")
	}

	var h decoder.StreamHandle
	swErr := retry.Do(func() error {
		var err error
		h, err = s.decoder.SpawnStream(ctx, s.key.Path, target, s.width, s.height, false)
		return err
	}, retry.Attempts(1), retry.Context(ctx))
	if swErr != nil {
		return nil, false, &decoder.SpawnError{HWErr: hwErr, SWErr: swErr}
	}
	return h, false, nil
}

// completePendingWithFallback decodes every currently-pending frame via
// single-shot extraction, bounded by both a per-batch worker pool and the
// process-wide semaphore. On extraction failure it synthesizes a
// placeholder frame rather than leaving the request hanging.
func (s *Scheduler) completePendingWithFallback(ctx context.Context) {
	snapshot := s.cache.PendingSnapshot()
	if len(snapshot) == 0 {
		return
	}

	p := pool.New().WithMaxGoroutines(fallbackConcurrency)
	for _, idx := range snapshot {
		idx := idx
		p.Go(func() {
			if !s.cache.TakePending(idx) {
				return
			}
			if _, ok := s.cache.EntryIfExists(idx); !ok {
				return
			}

			if err := s.sem.Acquire(ctx, 1); err != nil {
				return
			}
			data, err := s.decoder.ExtractSingle(ctx, s.key.Path, idx, s.width, s.height, false)
			s.sem.Release(1)
			if err != nil {
				s.logger.Warn().Err(err).Uint32("frame_index", idx).Msg("single-shot fallback extraction failed, synthesizing placeholder")
				data = decoder.SynthesizeFrame(s.width, s.height)
			}
			s.cache.CompleteClaimed(idx, data, s.entireBytes)
		})
	}
	p.Wait()
}
