// Package gc implements the Eviction GC: a periodic, per-decoder-instance
// sweep that trims the frame cache back under the process-wide byte budget.
// Scheduling is owned by the registry (one gocron job per instance); this
// package only supplies the sweep itself.
package gc

import (
	"sync/atomic"
	"time"

	"github.com/frame-script/framescript/internal/cache"
)

// SweepInterval is how often each decoder instance's cache is checked
// against the byte budget.
const SweepInterval = 5 * time.Second

// Sweep evicts frames from c until usage is under maxBytes or no more
// removable entries remain. It is safe to call repeatedly and concurrently
// with ongoing decode activity on the same cache.
func Sweep(c *cache.Cache, maxBytes uint64, entireBytes *atomic.Int64) {
	if entireBytes.Load() < int64(maxBytes) {
		return
	}
	c.Evict(maxBytes, entireBytes)
}
