package gc_test

import (
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/frame-script/framescript/internal/cache"
	"github.com/frame-script/framescript/internal/gc"
)

func TestSweepIsNoOpUnderBudget(t *testing.T) {
	c := cache.New(zerolog.Nop())
	var bytes atomic.Int64
	c.EnsureEntry(0)
	c.MarkPending(0)
	c.CompleteIfPending(0, make([]byte, 10), &bytes)

	gc.Sweep(c, 1000, &bytes)

	_, ok := c.EntryIfExists(0)
	require.True(t, ok)
}

func TestSweepTrimsOverBudget(t *testing.T) {
	c := cache.New(zerolog.Nop())
	var bytes atomic.Int64
	for i := cache.FrameIndex(0); i < 5; i++ {
		c.EnsureEntry(i)
		c.MarkPending(i)
		c.CompleteIfPending(i, make([]byte, 100), &bytes)
	}
	require.EqualValues(t, 500, bytes.Load())

	gc.Sweep(c, 250, &bytes)

	require.Less(t, bytes.Load(), int64(500))
}
