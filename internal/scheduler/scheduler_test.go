package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/semaphore"

	"github.com/frame-script/framescript/internal/cache"
	"github.com/frame-script/framescript/internal/decoder"
	"github.com/frame-script/framescript/internal/scheduler"
)

func testKey() cache.DecoderKey {
	return cache.DecoderKey{Path: "/videos/test.mp4", Width: 4, Height: 4, SessionID: "s1"}
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met before timeout")
}

func TestSchedulerDecodesPendingFrameSequentially(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDecoder := decoder.NewMockFrameDecoder(ctrl)
	mockStream := decoder.NewMockStreamHandle(ctrl)

	frameSize := 4 * 4 * 4
	frame := make([]byte, frameSize)

	mockDecoder.EXPECT().
		SpawnStream(gomock.Any(), "/videos/test.mp4", uint32(0), uint32(4), uint32(4), false).
		Return(mockStream, nil).
		Times(1)
	mockStream.EXPECT().ReadNext(gomock.Any()).Return(frame, nil).AnyTimes()
	mockStream.EXPECT().Shutdown().AnyTimes()

	c := cache.New(zerolog.Nop())
	var entireBytes atomic.Int64
	sem := semaphore.NewWeighted(4)

	s := scheduler.New(testKey(), 4, 4, c, mockDecoder, false, &entireBytes, sem, zerolog.Nop())

	cellEntry := c.EnsureEntry(0)
	c.MarkPending(0)
	s.Notify()
	s.EnsureRunning()

	v, err := cellEntry.Cell.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, frame, v)

	s.Close()
}

func TestSchedulerFallsBackWhenSpawnFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDecoder := decoder.NewMockFrameDecoder(ctrl)

	mockDecoder.EXPECT().
		SpawnStream(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, context.DeadlineExceeded).
		MinTimes(1)
	mockDecoder.EXPECT().
		ExtractSingle(gomock.Any(), "/videos/test.mp4", uint32(0), uint32(4), uint32(4), false).
		Return(make([]byte, 4*4*4), nil).
		AnyTimes()

	c := cache.New(zerolog.Nop())
	var entireBytes atomic.Int64
	sem := semaphore.NewWeighted(4)

	s := scheduler.New(testKey(), 4, 4, c, mockDecoder, false, &entireBytes, sem, zerolog.Nop())

	cellEntry := c.EnsureEntry(0)
	c.MarkPending(0)
	s.Notify()
	s.EnsureRunning()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := cellEntry.Cell.Get(ctx)
	require.NoError(t, err)

	s.Close()
}

func TestSchedulerEnsureRunningIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDecoder := decoder.NewMockFrameDecoder(ctrl)
	mockDecoder.EXPECT().SpawnStream(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().Return(nil, context.DeadlineExceeded)
	mockDecoder.EXPECT().ExtractSingle(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().Return(nil, context.DeadlineExceeded)

	c := cache.New(zerolog.Nop())
	var entireBytes atomic.Int64
	sem := semaphore.NewWeighted(4)
	s := scheduler.New(testKey(), 4, 4, c, mockDecoder, false, &entireBytes, sem, zerolog.Nop())

	s.EnsureRunning()
	s.EnsureRunning()

	waitForCondition(t, time.Second, func() bool { return s.RunningDecodeTasks() == 1 })
	s.Close()
}

// TestSchedulerBackwardJumpForcesRestart covers a pending target behind the
// stream's current position: advance must never read backward, so runLoop
// has to tear the stream down and respawn at the new (smaller) target
// instead of continuing to read forward past it.
func TestSchedulerBackwardJumpForcesRestart(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDecoder := decoder.NewMockFrameDecoder(ctrl)
	firstStream := decoder.NewMockStreamHandle(ctrl)
	secondStream := decoder.NewMockStreamHandle(ctrl)

	frameSize := 4 * 4 * 4
	frame := make([]byte, frameSize)

	gomock.InOrder(
		mockDecoder.EXPECT().
			SpawnStream(gomock.Any(), "/videos/test.mp4", uint32(50), uint32(4), uint32(4), false).
			Return(firstStream, nil),
		mockDecoder.EXPECT().
			SpawnStream(gomock.Any(), "/videos/test.mp4", uint32(5), uint32(4), uint32(4), false).
			Return(secondStream, nil),
	)
	firstStream.EXPECT().ReadNext(gomock.Any()).Return(frame, nil).AnyTimes()
	firstStream.EXPECT().Shutdown().MinTimes(1)
	secondStream.EXPECT().ReadNext(gomock.Any()).Return(frame, nil).AnyTimes()
	secondStream.EXPECT().Shutdown().AnyTimes()

	c := cache.New(zerolog.Nop())
	var entireBytes atomic.Int64
	sem := semaphore.NewWeighted(4)
	s := scheduler.New(testKey(), 4, 4, c, mockDecoder, false, &entireBytes, sem, zerolog.Nop())

	fiftyEntry := c.EnsureEntry(50)
	c.MarkPending(50)
	s.Notify()
	s.EnsureRunning()

	_, err := fiftyEntry.Cell.Get(context.Background())
	require.NoError(t, err)

	fiveEntry := c.EnsureEntry(5)
	c.MarkPending(5)
	s.Notify()

	v, err := fiveEntry.Cell.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, frame, v)

	s.Close()
}

// TestSchedulerRestartGapBoundary pins down STREAM_RESTART_GAP=90 on both
// sides: once the stream has consumed frame 0 (so its next read position,
// "current", is 1), a pending target of 91 (gap 90) is still close enough
// to read through on the same stream; a subsequent target of 183 (gap 91
// from the position the stream has reached by then, 92) forces a respawn.
func TestSchedulerRestartGapBoundary(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDecoder := decoder.NewMockFrameDecoder(ctrl)
	firstStream := decoder.NewMockStreamHandle(ctrl)
	secondStream := decoder.NewMockStreamHandle(ctrl)

	frameSize := 4 * 4 * 4
	frame := make([]byte, frameSize)

	gomock.InOrder(
		mockDecoder.EXPECT().
			SpawnStream(gomock.Any(), "/videos/test.mp4", uint32(0), uint32(4), uint32(4), false).
			Return(firstStream, nil),
		mockDecoder.EXPECT().
			SpawnStream(gomock.Any(), "/videos/test.mp4", uint32(183), uint32(4), uint32(4), false).
			Return(secondStream, nil),
	)
	firstStream.EXPECT().ReadNext(gomock.Any()).Return(frame, nil).AnyTimes()
	firstStream.EXPECT().Shutdown().MinTimes(1)
	secondStream.EXPECT().ReadNext(gomock.Any()).Return(frame, nil).AnyTimes()
	secondStream.EXPECT().Shutdown().AnyTimes()

	c := cache.New(zerolog.Nop())
	var entireBytes atomic.Int64
	sem := semaphore.NewWeighted(4)
	s := scheduler.New(testKey(), 4, 4, c, mockDecoder, false, &entireBytes, sem, zerolog.Nop())

	startEntry := c.EnsureEntry(0)
	c.MarkPending(0)
	s.Notify()
	s.EnsureRunning()
	_, err := startEntry.Cell.Get(context.Background())
	require.NoError(t, err)

	// Stream's next read position is now 1. A target of 91 is gap 90 —
	// within the tolerance, so it must be read through on firstStream
	// (the mock's Times(1) on the first SpawnStream call enforces this).
	withinGapEntry := c.EnsureEntry(91)
	c.MarkPending(91)
	s.Notify()
	v, err := withinGapEntry.Cell.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, frame, v, "a target exactly STREAM_RESTART_GAP frames ahead must be read through, not force a respawn")

	// Stream's next read position is now 92. A target of 183 is gap 91 —
	// one past the tolerance, so it must force a respawn on secondStream.
	beyondGapEntry := c.EnsureEntry(183)
	c.MarkPending(183)
	s.Notify()
	v, err = beyondGapEntry.Cell.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, frame, v, "a target one past STREAM_RESTART_GAP frames ahead must force a respawn")

	s.Close()
}

// TestSchedulerRespawnsInSoftwareAfterHardwareReadFailure covers a stream
// that spawned successfully in hardware mode but then fails mid-read: the
// scheduler must respawn in software at the stalled position rather than
// giving up and falling back to single-shot extraction.
func TestSchedulerRespawnsInSoftwareAfterHardwareReadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDecoder := decoder.NewMockFrameDecoder(ctrl)
	hwStream := decoder.NewMockStreamHandle(ctrl)
	swStream := decoder.NewMockStreamHandle(ctrl)

	frameSize := 4 * 4 * 4
	frame := make([]byte, frameSize)

	mockDecoder.EXPECT().
		SpawnStream(gomock.Any(), "/videos/test.mp4", uint32(0), uint32(4), uint32(4), true).
		Return(hwStream, nil).
		Times(1)
	hwStream.EXPECT().ReadNext(gomock.Any()).Return(nil, context.DeadlineExceeded).Times(1)
	hwStream.EXPECT().Shutdown().Times(1)

	mockDecoder.EXPECT().
		SpawnStream(gomock.Any(), "/videos/test.mp4", uint32(0), uint32(4), uint32(4), false).
		Return(swStream, nil).
		Times(1)
	swStream.EXPECT().ReadNext(gomock.Any()).Return(frame, nil).AnyTimes()
	swStream.EXPECT().Shutdown().AnyTimes()

	c := cache.New(zerolog.Nop())
	var entireBytes atomic.Int64
	sem := semaphore.NewWeighted(4)
	s := scheduler.New(testKey(), 4, 4, c, mockDecoder, true, &entireBytes, sem, zerolog.Nop())

	entry := c.EnsureEntry(0)
	c.MarkPending(0)
	s.Notify()
	s.EnsureRunning()

	v, err := entry.Cell.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, frame, v)

	s.Close()
}
