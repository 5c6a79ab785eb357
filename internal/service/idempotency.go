package service

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9" // Redis client
)

// RedisIdempotencyGuard claims withdrawal idempotency keys with SETNX so a
// client retrying after an ambiguous failure cannot trigger a second reserve
// for the same logical request.
type RedisIdempotencyGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisIdempotencyGuard creates a guard; keys expire after ttl.
func NewRedisIdempotencyGuard(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyGuard {
	return &RedisIdempotencyGuard{rdb: rdb, ttl: ttl}
}

// Begin claims the key for this user. Returns false if an earlier request
// already claimed it.
func (g *RedisIdempotencyGuard) Begin(ctx context.Context, userID uint, key string) (bool, error) {
	return g.rdb.SetNX(ctx, idemRedisKey(userID, key), "1", g.ttl).Result()
}

// End releases a claimed key so the same key can be retried after a failure
// the provider never acted on.
func (g *RedisIdempotencyGuard) End(ctx context.Context, userID uint, key string) error {
	return g.rdb.Del(ctx, idemRedisKey(userID, key)).Err()
}

func idemRedisKey(userID uint, key string) string {
	return "withdrawal:idem:user:" + strconv.Itoa(int(userID)) + ":" + key
}
