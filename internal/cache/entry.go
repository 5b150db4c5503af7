package cache

import (
	"sync/atomic"
	"time"

	"github.com/frame-script/framescript/internal/cell"
)

// Entry is the per-frame cache slot: a completion cell plus the
// bookkeeping eviction and recency need once it is ready.
type Entry struct {
	Cell       *cell.Cell[[]byte]
	byteSize   atomic.Int64
	lastAccess atomic.Int64 // unix nanoseconds
	ready      atomic.Bool
}

func newEntry() *Entry {
	e := &Entry{Cell: cell.New[[]byte]()}
	e.touch()
	return e
}

func (e *Entry) touch() {
	e.lastAccess.Store(time.Now().UnixNano())
}

// LastAccess returns the last time this entry was touched.
func (e *Entry) LastAccess() time.Time {
	return time.Unix(0, e.lastAccess.Load())
}

// ByteSize returns the decoded payload size, valid once Ready is true.
func (e *Entry) ByteSize() int64 {
	return e.byteSize.Load()
}

// Ready reports whether the entry's cell has been completed.
func (e *Entry) Ready() bool {
	return e.ready.Load()
}
