package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// client is the Redis client used for context-order caching. Left nil when
// Redis is unavailable; every operation then reports a miss and callers
// fall back to the database.
var client *redis.Client

// contextTTL bounds staleness of a cached ordering. Writes invalidate
// eagerly; the TTL only covers invalidations lost to a crash.
const contextTTL = time.Hour

// Init installs the Redis client used by this package.
func Init(c *redis.Client) {
	client = c
}

// playlistOrderKey builds the cache key for a playlist's track ordering.
func playlistOrderKey(playlistID int64) string {
	return fmt.Sprintf("ctx:playlist:%d", playlistID)
}

// GetPlaylistOrder returns the cached ordered track ids of a playlist.
// The second return value reports whether the cache held an entry.
func GetPlaylistOrder(ctx context.Context, playlistID int64) ([]int64, bool) {
	if client == nil {
		return nil, false
	}

	members, err := client.ZRange(ctx, playlistOrderKey(playlistID), 0, -1).Result()
	if err != nil || len(members) == 0 {
		return nil, false
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			// Corrupt member: drop the whole entry rather than serve it.
			client.Del(ctx, playlistOrderKey(playlistID))
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// SetPlaylistOrder caches the ordered track ids of a playlist as a ZSET,
// score = position in the ordering.
func SetPlaylistOrder(ctx context.Context, playlistID int64, trackIDs []int64) error {
	if client == nil {
		return nil
	}

	key := playlistOrderKey(playlistID)
	pipe := client.TxPipeline()
	pipe.Del(ctx, key)
	if len(trackIDs) > 0 {
		members := make([]redis.Z, len(trackIDs))
		for i, id := range trackIDs {
			members[i] = redis.Z{Score: float64(i), Member: strconv.FormatInt(id, 10)}
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.Expire(ctx, key, contextTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache playlist order: %w", err)
	}
	return nil
}

// InvalidatePlaylist drops the cached ordering after a playlist mutation.
func InvalidatePlaylist(ctx context.Context, playlistID int64) {
	if client == nil {
		return
	}
	client.Del(ctx, playlistOrderKey(playlistID))
}
