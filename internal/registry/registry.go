// Package registry implements the Decoder Registry: the process-wide,
// lazily-populated map from DecoderKey to decoder instance, plus the
// global byte budget every instance's eviction sweep is measured against.
package registry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/frame-script/framescript/internal/cache"
	"github.com/frame-script/framescript/internal/decoder"
	"github.com/frame-script/framescript/internal/gc"
	"github.com/frame-script/framescript/internal/requestapi"
	"github.com/frame-script/framescript/internal/scheduler"
)

const (
	// defaultMaxCacheBytes is the process-wide byte budget absent explicit
	// configuration.
	defaultMaxCacheBytes uint64 = 4 << 30 // 4 GiB

	// minCacheBytesFloor is the lowest value SetMaxCacheSize will accept.
	minCacheBytesFloor uint64 = 1 << 20 // 1 MiB

	// clearPollInterval is how often ClearAll/ClearSession poll for
	// in-flight decode tasks to drain before tearing instances down.
	clearPollInterval = 50 * time.Millisecond

	// fallbackSemaphoreWeight bounds concurrent single-shot ffmpeg
	// invocations across every decoder instance in the process.
	fallbackSemaphoreWeight = 8
)

// Instance is one live decoder: its cache, its background stream
// scheduler, its eviction GC job, and its request-facing handler.
type Instance struct {
	ID     uuid.UUID
	Key    cache.DecoderKey
	Width  uint32
	Height uint32

	cache     *cache.Cache
	scheduler *scheduler.Scheduler
	handler   *requestapi.Handler
	gcJobID   uuid.UUID
}

// GetFrame serves one decoded-frame request for this instance.
func (inst *Instance) GetFrame(ctx context.Context, frameIndex uint32) ([]byte, error) {
	return inst.handler.GetFrame(ctx, frameIndex)
}

// Stats returns this instance's cache snapshot for status reporting.
func (inst *Instance) Stats() cache.Stats {
	return inst.cache.Stats()
}

// Registry is the process-wide decoder instance map and byte budget.
type Registry struct {
	decoders *xsync.MapOf[cache.DecoderKey, *Instance]

	frameDecoder   decoder.FrameDecoder
	hwAccelEnabled bool

	entireCacheBytes atomic.Int64
	maxCacheBytes    atomic.Uint64

	fallbackSem *semaphore.Weighted
	gcInterval  time.Duration

	cron   gocron.Scheduler
	logger zerolog.Logger
}

// New constructs a Registry and starts its shared GC scheduler. gcInterval
// is how often each decoder instance's eviction sweep runs; zero falls
// back to gc.SweepInterval.
func New(fd decoder.FrameDecoder, hwAccelEnabled bool, maxCacheBytes uint64, gcInterval time.Duration, logger zerolog.Logger) (*Registry, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	cron.Start()

	if maxCacheBytes == 0 {
		maxCacheBytes = defaultMaxCacheBytes
	} else if maxCacheBytes < minCacheBytesFloor {
		maxCacheBytes = minCacheBytesFloor
	}
	if gcInterval <= 0 {
		gcInterval = gc.SweepInterval
	}

	r := &Registry{
		decoders:       xsync.NewMapOf[cache.DecoderKey, *Instance](),
		frameDecoder:   fd,
		hwAccelEnabled: hwAccelEnabled,
		gcInterval:     gcInterval,
		fallbackSem:    semaphore.NewWeighted(fallbackSemaphoreWeight),
		cron:           cron,
		logger:         logger,
	}
	r.maxCacheBytes.Store(maxCacheBytes)
	return r, nil
}

// CachedDecoder returns the instance for key, creating it (and starting its
// scheduler and GC job) on first use.
func (r *Registry) CachedDecoder(ctx context.Context, key cache.DecoderKey) (*Instance, error) {
	if existing, ok := r.decoders.Load(key); ok {
		return existing, nil
	}

	c := cache.New(r.logger.With().Str("decoder_key", key.String()).Logger())
	sched := scheduler.New(key, key.Width, key.Height, c, r.frameDecoder, r.hwAccelEnabled, &r.entireCacheBytes, r.fallbackSem, r.logger)
	handler := requestapi.New(c, sched, key.Width, key.Height, &r.entireCacheBytes, r.logger)

	inst := &Instance{
		ID:        uuid.New(),
		Key:       key,
		Width:     key.Width,
		Height:    key.Height,
		cache:     c,
		scheduler: sched,
		handler:   handler,
	}

	actual, loaded := r.decoders.LoadOrStore(key, inst)
	if loaded {
		return actual, nil
	}

	job, err := r.cron.NewJob(
		gocron.DurationJob(r.gcInterval),
		gocron.NewTask(func() {
			gc.Sweep(c, r.maxCacheBytes.Load(), &r.entireCacheBytes)
		}),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("decoder_key", key.String()).Msg("failed to register eviction job")
	} else {
		inst.gcJobID = job.ID()
	}

	r.logger.Info().Str("decoder_key", key.String()).Str("instance_id", inst.ID.String()).Msg("decoder instance created")
	return inst, nil
}

// ClearAll tears down every decoder instance, waiting for in-flight decode
// tasks to drain first.
func (r *Registry) ClearAll(ctx context.Context) {
	r.decoders.Range(func(key cache.DecoderKey, inst *Instance) bool {
		r.clearInstance(ctx, key, inst)
		return true
	})
}

// ClearSession tears down every decoder instance scoped to sessionID.
func (r *Registry) ClearSession(ctx context.Context, sessionID string) {
	r.decoders.Range(func(key cache.DecoderKey, inst *Instance) bool {
		if key.SessionID == sessionID {
			r.clearInstance(ctx, key, inst)
		}
		return true
	})
}

func (r *Registry) clearInstance(ctx context.Context, key cache.DecoderKey, inst *Instance) {
	inst.scheduler.Close()
	for inst.scheduler.RunningDecodeTasks() > 0 {
		select {
		case <-ctx.Done():
			r.decoders.Delete(key)
			return
		case <-time.After(clearPollInterval):
		}
	}
	if inst.gcJobID != uuid.Nil {
		if err := r.cron.RemoveJob(inst.gcJobID); err != nil {
			r.logger.Warn().Err(err).Str("decoder_key", key.String()).Msg("failed to remove eviction job")
		}
	}
	r.decoders.Delete(key)
	r.logger.Info().Str("decoder_key", key.String()).Msg("decoder instance cleared")
}

// SetMaxCacheSize updates the process-wide byte budget, enforcing the
// 1 MiB floor.
func (r *Registry) SetMaxCacheSize(bytes uint64) {
	if bytes < minCacheBytesFloor {
		bytes = minCacheBytesFloor
	}
	r.maxCacheBytes.Store(bytes)
}

// CacheUsage reports current usage against the configured budget.
func (r *Registry) CacheUsage() (used, max uint64) {
	v := r.entireCacheBytes.Load()
	if v < 0 {
		v = 0
	}
	return uint64(v), r.maxCacheBytes.Load()
}

// InstanceStats is one row of a registry snapshot.
type InstanceStats struct {
	Key   cache.DecoderKey
	Stats cache.Stats
}

// Snapshot returns a point-in-time view of every live decoder instance.
func (r *Registry) Snapshot() []InstanceStats {
	var out []InstanceStats
	r.decoders.Range(func(key cache.DecoderKey, inst *Instance) bool {
		out = append(out, InstanceStats{Key: key, Stats: inst.Stats()})
		return true
	})
	return out
}

// Close stops the shared GC scheduler, clearing every instance first.
func (r *Registry) Close(ctx context.Context) error {
	r.ClearAll(ctx)
	return r.cron.Shutdown()
}
