package repository

import (
	"context"
	"fmt"
	"time"

	"backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	// MirrorKey is the Redis sorted set mirroring the leaderboard by ordering key
	MirrorKey = "leaderboard:ranks"

	// NamesKey is the Redis hash holding display names for mirrored entries
	NamesKey = "leaderboard:names"

	// VersionKey tracks the global leaderboard version for efficient change detection
	VersionKey = "leaderboard:version"

	// rankPollPrefix namespaces the per-caller rank polling counters
	rankPollPrefix = "ratelimit:rank:"
)

// RedisRepository maintains the advisory leaderboard mirror and the rank
// polling limiter. PostgreSQL stays the source of truth; everything here is
// best-effort and safe to lose.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis repository
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// MirrorEntry reflects an accepted submission into the mirror and bumps the
// global version so websocket clients know the board changed.
func (r *RedisRepository) MirrorEntry(ctx context.Context, entry models.LeaderboardEntry) error {
	pipe := r.client.Pipeline()

	pipe.ZAdd(ctx, MirrorKey, redis.Z{
		Score:  float64(entry.OrderingKey),
		Member: entry.Owner,
	})
	pipe.HSet(ctx, NamesKey, entry.Owner, entry.DisplayName)
	pipe.Incr(ctx, VersionKey)

	_, err := pipe.Exec(ctx)
	return err
}

// BulkMirror mirrors many entries in one pipeline, bumping the version once.
func (r *RedisRepository) BulkMirror(ctx context.Context, entries []models.LeaderboardEntry) error {
	pipe := r.client.Pipeline()

	for _, entry := range entries {
		pipe.ZAdd(ctx, MirrorKey, redis.Z{
			Score:  float64(entry.OrderingKey),
			Member: entry.Owner,
		})
		pipe.HSet(ctx, NamesKey, entry.Owner, entry.DisplayName)
	}
	pipe.Incr(ctx, VersionKey)

	_, err := pipe.Exec(ctx)
	return err
}

// Version returns the current global version number.
func (r *RedisRepository) Version(ctx context.Context) (int64, error) {
	version, err := r.client.Get(ctx, VersionKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil // Version not set yet
		}
		return 0, err
	}
	return version, nil
}

// TotalMirrored returns the number of players in the mirror.
func (r *RedisRepository) TotalMirrored(ctx context.Context) (int64, error) {
	return r.client.ZCard(ctx, MirrorKey).Result()
}

// AllowRankQuery implements a fixed-window limiter for rank polling: one
// query per caller per window. Each getMyRank costs a count scan, so the
// server enforces the pace instead of trusting clients to back off.
func (r *RedisRepository) AllowRankQuery(ctx context.Context, owner string, window time.Duration) (bool, error) {
	key := fmt.Sprintf("%s%s", rankPollPrefix, owner)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		// First hit in this window; start the clock
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= 1, nil
}

// Ping checks if Redis is reachable
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
