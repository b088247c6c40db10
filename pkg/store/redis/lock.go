package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "lg:autoblog:lock:"

// RunLock serializes pipeline runs per owner. The TTL bounds how long a
// crashed runner can hold an owner hostage.
type RunLock struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRunLock(client redis.UniversalClient, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RunLock{client: client, ttl: ttl}
}

func (l *RunLock) Acquire(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	return l.client.SetNX(ctx, lockKey(ownerID), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
}

func (l *RunLock) Release(ctx context.Context, ownerID uuid.UUID) error {
	return l.client.Del(ctx, lockKey(ownerID)).Err()
}

func lockKey(ownerID uuid.UUID) string {
	return lockKeyPrefix + ownerID.String()
}
