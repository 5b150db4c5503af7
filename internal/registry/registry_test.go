package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/frame-script/framescript/internal/cache"
	"github.com/frame-script/framescript/internal/decoder"
	"github.com/frame-script/framescript/internal/registry"
)

func TestCachedDecoderCreatesInstanceOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDecoder := decoder.NewMockFrameDecoder(ctrl)
	mockDecoder.EXPECT().SpawnStream(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		AnyTimes().Return(nil, context.DeadlineExceeded)
	mockDecoder.EXPECT().ExtractSingle(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		AnyTimes().Return(nil, context.DeadlineExceeded)

	r, err := registry.New(mockDecoder, false, 0, 50*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)

	key := cache.DecoderKey{Path: "/videos/a.mp4", Width: 4, Height: 4, SessionID: "s1"}

	ctx := context.Background()
	inst1, err := r.CachedDecoder(ctx, key)
	require.NoError(t, err)
	inst2, err := r.CachedDecoder(ctx, key)
	require.NoError(t, err)
	require.Same(t, inst1, inst2)

	require.NoError(t, r.Close(ctx))
}

func TestCacheUsageDefaultsWhenUnset(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDecoder := decoder.NewMockFrameDecoder(ctrl)

	r, err := registry.New(mockDecoder, false, 0, time.Second, zerolog.Nop())
	require.NoError(t, err)

	_, max := r.CacheUsage()
	require.EqualValues(t, 4<<30, max, "an unset (zero) budget should fall back to the 4GiB default")

	require.NoError(t, r.Close(context.Background()))
}

func TestCacheUsageClampsExplicitSubFloorBudgetToFloor(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDecoder := decoder.NewMockFrameDecoder(ctrl)

	r, err := registry.New(mockDecoder, false, 1, time.Second, zerolog.Nop())
	require.NoError(t, err)

	_, max := r.CacheUsage()
	require.EqualValues(t, 1<<20, max, "an explicit sub-floor budget must clamp up to the 1MiB floor, not reset to the 4GiB default")

	require.NoError(t, r.Close(context.Background()))
}

func TestSetMaxCacheSizeEnforcesFloor(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDecoder := decoder.NewMockFrameDecoder(ctrl)

	r, err := registry.New(mockDecoder, false, 0, time.Second, zerolog.Nop())
	require.NoError(t, err)

	r.SetMaxCacheSize(10)
	_, max := r.CacheUsage()
	require.EqualValues(t, 1<<20, max)

	require.NoError(t, r.Close(context.Background()))
}
