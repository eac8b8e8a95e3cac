package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	Init(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { Init(nil) })
	return mr
}

func TestPlaylistOrderRoundTrip(t *testing.T) {
	setupCache(t)
	ctx := context.Background()

	_, ok := GetPlaylistOrder(ctx, 5)
	assert.False(t, ok)

	require.NoError(t, SetPlaylistOrder(ctx, 5, []int64{30, 10, 20}))

	got, ok := GetPlaylistOrder(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, []int64{30, 10, 20}, got)
}

func TestSetPlaylistOrderReplacesPreviousEntry(t *testing.T) {
	setupCache(t)
	ctx := context.Background()

	require.NoError(t, SetPlaylistOrder(ctx, 5, []int64{10, 20, 30}))
	require.NoError(t, SetPlaylistOrder(ctx, 5, []int64{20}))

	got, ok := GetPlaylistOrder(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, []int64{20}, got)
}

func TestEmptyOrderIsAMiss(t *testing.T) {
	setupCache(t)
	ctx := context.Background()

	require.NoError(t, SetPlaylistOrder(ctx, 5, nil))

	_, ok := GetPlaylistOrder(ctx, 5)
	assert.False(t, ok)
}

func TestInvalidatePlaylist(t *testing.T) {
	setupCache(t)
	ctx := context.Background()

	require.NoError(t, SetPlaylistOrder(ctx, 5, []int64{10, 20}))
	InvalidatePlaylist(ctx, 5)

	_, ok := GetPlaylistOrder(ctx, 5)
	assert.False(t, ok)
}

func TestCorruptEntryDropped(t *testing.T) {
	mr := setupCache(t)
	ctx := context.Background()

	mr.ZAdd("ctx:playlist:5", 0, "not-a-number")

	_, ok := GetPlaylistOrder(ctx, 5)
	assert.False(t, ok)
	assert.False(t, mr.Exists("ctx:playlist:5"))
}

func TestNilClientIsSilent(t *testing.T) {
	Init(nil)
	ctx := context.Background()

	_, ok := GetPlaylistOrder(ctx, 5)
	assert.False(t, ok)
	assert.NoError(t, SetPlaylistOrder(ctx, 5, []int64{10}))
	InvalidatePlaylist(ctx, 5)
}

func TestPlaylistsAreIsolated(t *testing.T) {
	setupCache(t)
	ctx := context.Background()

	require.NoError(t, SetPlaylistOrder(ctx, 1, []int64{10}))
	require.NoError(t, SetPlaylistOrder(ctx, 2, []int64{20}))

	got, ok := GetPlaylistOrder(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, []int64{10}, got)

	got, ok = GetPlaylistOrder(ctx, 2)
	require.True(t, ok)
	assert.Equal(t, []int64{20}, got)
}
