// Package cache implements the per-decoder-instance frame cache: a map of
// frame index to completion cell, a pending set the stream scheduler drains,
// a single never-rewritten pin, and a bounded recent-frame FIFO that exempts
// the last few delivered frames from eviction.
//
// Lock nesting order, where more than one lock is held at once, is fixed:
// frames (mu) outermost, then pending (pendingMu), then pinned/recent
// (pinMu/recentMu). No method here blocks on I/O while holding any of these
// locks.
package cache

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// RecentFrameCache is the number of most-recently-delivered frames exempt
// from eviction, on top of the single pinned frame and anything pending.
const RecentFrameCache = 6

// Cache holds the decode state for one decoder instance.
type Cache struct {
	mu     sync.RWMutex
	frames map[FrameIndex]*Entry

	pendingMu sync.Mutex
	pending   map[FrameIndex]struct{}

	pinMu  sync.Mutex
	pinned *FrameIndex

	recentMu sync.Mutex
	recent   []FrameIndex

	logger zerolog.Logger
}

// New returns an empty Cache.
func New(logger zerolog.Logger) *Cache {
	return &Cache{
		frames:  make(map[FrameIndex]*Entry),
		pending: make(map[FrameIndex]struct{}),
		logger:  logger,
	}
}

// EnsureEntry returns the cell for i, creating an empty entry if needed.
func (c *Cache) EnsureEntry(i FrameIndex) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.frames[i]
	if !ok {
		e = newEntry()
		c.frames[i] = e
	}
	return e
}

// EntryIfExists returns the entry for i without creating one.
func (c *Cache) EntryIfExists(i FrameIndex) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.frames[i]
	return e, ok
}

// Touch refreshes the last-access time for i, if it exists, without
// affecting pin/recent eviction protection.
func (c *Cache) Touch(i FrameIndex) {
	c.mu.RLock()
	e, ok := c.frames[i]
	c.mu.RUnlock()
	if ok {
		e.touch()
	}
}

// MarkPending records that the scheduler owes a decode for i.
func (c *Cache) MarkPending(i FrameIndex) {
	c.pendingMu.Lock()
	c.pending[i] = struct{}{}
	c.pendingMu.Unlock()
}

// UnmarkPending clears i from the pending set, if present.
func (c *Cache) UnmarkPending(i FrameIndex) {
	c.pendingMu.Lock()
	delete(c.pending, i)
	c.pendingMu.Unlock()
}

// IsPending reports whether i is currently in the pending set.
func (c *Cache) IsPending(i FrameIndex) bool {
	c.pendingMu.Lock()
	_, ok := c.pending[i]
	c.pendingMu.Unlock()
	return ok
}

// MinPending returns the smallest pending frame index, if any is pending.
func (c *Cache) MinPending() (FrameIndex, bool) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if len(c.pending) == 0 {
		return 0, false
	}
	min := FrameIndex(math.MaxUint32)
	for idx := range c.pending {
		if idx < min {
			min = idx
		}
	}
	return min, true
}

// PendingSnapshot returns a copy of the current pending set.
func (c *Cache) PendingSnapshot() []FrameIndex {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	out := make([]FrameIndex, 0, len(c.pending))
	for idx := range c.pending {
		out = append(out, idx)
	}
	return out
}

// TakePending removes i from the pending set if present, reporting whether
// it was there. Used by the fallback path to claim a frame before decoding
// it out of band.
func (c *Cache) TakePending(i FrameIndex) bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	_, ok := c.pending[i]
	if ok {
		delete(c.pending, i)
	}
	return ok
}

func (c *Cache) completeEntry(i FrameIndex, bytes []byte, entireBytes *atomic.Int64) bool {
	e, ok := c.EntryIfExists(i)
	if !ok || e.Cell.IsCompleted() {
		return false
	}
	entireBytes.Add(int64(len(bytes)))
	e.byteSize.Store(int64(len(bytes)))
	e.ready.Store(true)
	e.touch()
	e.Cell.Complete(bytes)
	return true
}

// CompleteIfPending removes i from the pending set and completes its entry,
// if i was pending and not already completed. Returns whether it completed.
func (c *Cache) CompleteIfPending(i FrameIndex, bytes []byte, entireBytes *atomic.Int64) bool {
	c.pendingMu.Lock()
	_, isPending := c.pending[i]
	if isPending {
		delete(c.pending, i)
	}
	c.pendingMu.Unlock()
	if !isPending {
		return false
	}
	return c.completeEntry(i, bytes, entireBytes)
}

// CompleteClaimed completes an entry the caller has already removed from
// the pending set via TakePending.
func (c *Cache) CompleteClaimed(i FrameIndex, bytes []byte, entireBytes *atomic.Int64) bool {
	return c.completeEntry(i, bytes, entireBytes)
}

// PinIfUnset sets the pin to i, if no pin has been set yet. The pin is
// never rewritten afterwards.
func (c *Cache) PinIfUnset(i FrameIndex) {
	c.pinMu.Lock()
	defer c.pinMu.Unlock()
	if c.pinned == nil {
		v := i
		c.pinned = &v
	}
}

// Pinned returns the pinned frame index, if one has been set.
func (c *Cache) Pinned() (FrameIndex, bool) {
	c.pinMu.Lock()
	defer c.pinMu.Unlock()
	if c.pinned == nil {
		return 0, false
	}
	return *c.pinned, true
}

func (c *Cache) pushRecent(i FrameIndex) {
	c.recentMu.Lock()
	defer c.recentMu.Unlock()
	if len(c.recent) > 0 && c.recent[len(c.recent)-1] == i {
		return
	}
	c.recent = append(c.recent, i)
}

func (c *Cache) popRecentFront() (FrameIndex, bool) {
	c.recentMu.Lock()
	defer c.recentMu.Unlock()
	if len(c.recent) == 0 {
		return 0, false
	}
	v := c.recent[0]
	c.recent = c.recent[1:]
	return v, true
}

func (c *Cache) recentLen() int {
	c.recentMu.Lock()
	defer c.recentMu.Unlock()
	return len(c.recent)
}

func (c *Cache) removeIfReady(i FrameIndex, entireBytes *atomic.Int64) {
	c.mu.Lock()
	e, ok := c.frames[i]
	if ok {
		delete(c.frames, i)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	if e.Ready() {
		entireBytes.Add(-e.ByteSize())
		c.logger.Debug().Uint32("frame_index", i).Msg("evicted frame aged out of recent-frame window")
	}
}

// FinishRecency implements the finish_frame recency step: push frameIndex
// onto the recent FIFO unless it is the pinned frame, then drop overflow
// entries from the front, removing their cache entries and crediting back
// their bytes (skipping the pinned frame defensively, though it is never
// pushed in the first place).
func (c *Cache) FinishRecency(frameIndex FrameIndex, entireBytes *atomic.Int64) {
	pinned, hasPin := c.Pinned()
	if hasPin && frameIndex == pinned {
		return
	}
	c.pushRecent(frameIndex)
	for c.recentLen() > RecentFrameCache {
		dropIndex, ok := c.popRecentFront()
		if !ok {
			break
		}
		if hasPin && dropIndex == pinned {
			continue
		}
		c.removeIfReady(dropIndex, entireBytes)
	}
}

// NearestCompletedBefore walks backward from (exclusive) frameIndex looking
// for the closest already-completed frame, returning its bytes. It never
// triggers a new decode; it only inspects what is already in the cache.
func (c *Cache) NearestCompletedBefore(frameIndex FrameIndex) ([]byte, bool) {
	for idx := frameIndex; idx > 0; {
		idx--
		c.mu.RLock()
		e, ok := c.frames[idx]
		c.mu.RUnlock()
		if ok {
			if v, ready := e.Cell.GetNow(); ready {
				return v, true
			}
		}
	}
	return nil, false
}

// Evict walks frames in descending index order, removing ready entries that
// are not pinned, pending, or in the recent set, stopping as soon as usage
// drops under maxBytes. The whole walk runs under the cache write lock;
// no I/O happens inside it.
func (c *Cache) Evict(maxBytes uint64, entireBytes *atomic.Int64) {
	pendingSnapshot := c.PendingSnapshot()
	pendingSet := make(map[FrameIndex]struct{}, len(pendingSnapshot))
	for _, idx := range pendingSnapshot {
		pendingSet[idx] = struct{}{}
	}
	pinned, hasPin := c.Pinned()

	c.recentMu.Lock()
	recentSet := make(map[FrameIndex]struct{}, len(c.recent))
	for _, idx := range c.recent {
		recentSet[idx] = struct{}{}
	}
	c.recentMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	indices := make([]FrameIndex, 0, len(c.frames))
	for idx := range c.frames {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] > indices[j] })

	evicted := 0
	for _, idx := range indices {
		if entireBytes.Load() < int64(maxBytes) {
			break
		}
		if hasPin && idx == pinned {
			continue
		}
		if _, ok := pendingSet[idx]; ok {
			continue
		}
		if _, ok := recentSet[idx]; ok {
			continue
		}
		e := c.frames[idx]
		if !e.Ready() {
			continue
		}
		delete(c.frames, idx)
		entireBytes.Add(-e.ByteSize())
		evicted++
	}
	if evicted > 0 {
		c.logger.Debug().Int("evicted", evicted).Int64("bytes_in_use", entireBytes.Load()).Msg("eviction sweep reclaimed frames")
	}
}

// Stats is a point-in-time snapshot for status reporting.
type Stats struct {
	Pending int
	Ready   int
	Pinned  *FrameIndex
	Recent  int
}

// Stats returns a snapshot of this cache's bookkeeping, for introspection
// only; it has no effect on cache behaviour.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	ready := 0
	for _, e := range c.frames {
		if e.Ready() {
			ready++
		}
	}
	c.mu.RUnlock()

	pinned, hasPin := c.Pinned()
	var pinnedPtr *FrameIndex
	if hasPin {
		pinnedPtr = &pinned
	}
	return Stats{
		Pending: len(c.PendingSnapshot()),
		Ready:   ready,
		Pinned:  pinnedPtr,
		Recent:  c.recentLen(),
	}
}
