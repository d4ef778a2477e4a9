package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProductLock guards against two concurrent enrichments of the same product
// when the sender redelivers a webhook while the first delivery still runs.
// Best-effort: losing the lock backend only loses dedup, not correctness,
// because the processed flag remains the durable guard.
type ProductLock interface {
	Acquire(ctx context.Context, productID int64) (bool, error)
	Release(ctx context.Context, productID int64) error
}

type redisProductLock struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
}

func NewRedisProductLock(redisClient *redis.Client, ttl time.Duration) ProductLock {
	return &redisProductLock{
		redisClient: redisClient,
		keyPrefix:   "enricher:inflight:product:",
		ttl:         ttl,
	}
}

func (l *redisProductLock) Acquire(ctx context.Context, productID int64) (bool, error) {
	key := fmt.Sprintf("%s%d", l.keyPrefix, productID)
	acquired, err := l.redisClient.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock for product %d: %w", productID, err)
	}
	return acquired, nil
}

func (l *redisProductLock) Release(ctx context.Context, productID int64) error {
	key := fmt.Sprintf("%s%d", l.keyPrefix, productID)
	if err := l.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release lock for product %d: %w", productID, err)
	}
	return nil
}

// NewNoopLock is used when no lock backend is configured: every acquisition
// succeeds.
func NewNoopLock() ProductLock {
	return noopLock{}
}

type noopLock struct{}

func (noopLock) Acquire(context.Context, int64) (bool, error) { return true, nil }
func (noopLock) Release(context.Context, int64) error         { return nil }
