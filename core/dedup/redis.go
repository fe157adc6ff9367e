package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "hmbot:wamid:"

// Redis is a Deduper shared by every replica behind the webhook.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis wraps client. ttl <= 0 selects DefaultTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Seen implements Deduper with SET NX EX.
func (r *Redis) Seen(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	created, err := r.client.SetNX(ctx, keyPrefix+messageID, 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: redis setnx: %w", err)
	}
	return !created, nil
}
