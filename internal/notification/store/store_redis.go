package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hemolink/internal/notification"
	"hemolink/pkg/platform/sentinel"
)

const (
	deliveredKeyPrefix  = "hemolink:delivered:"
	defaultDeliveredTTL = 7 * 24 * time.Hour
)

// RedisDeliveredIndex caches delivered idempotency keys in Redis in front of
// a durable DeliveryStore. The durable store stays authoritative: cache misses
// fall through to it and cache write failures are ignored.
type RedisDeliveredIndex struct {
	client *redis.Client
	next   notification.DeliveryStore
	ttl    time.Duration
}

// RedisOption configures a RedisDeliveredIndex.
type RedisOption func(*RedisDeliveredIndex)

// WithDeliveredTTL sets how long a delivered key stays cached.
func WithDeliveredTTL(ttl time.Duration) RedisOption {
	return func(idx *RedisDeliveredIndex) {
		if ttl > 0 {
			idx.ttl = ttl
		}
	}
}

func NewRedisDeliveredIndex(client *redis.Client, next notification.DeliveryStore, opts ...RedisOption) *RedisDeliveredIndex {
	idx := &RedisDeliveredIndex{
		client: client,
		next:   next,
		ttl:    defaultDeliveredTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(idx)
		}
	}
	return idx
}

// Append writes to the durable store, then marks the key as delivered. A
// conflict from the durable store still refreshes the cache entry.
func (idx *RedisDeliveredIndex) Append(ctx context.Context, record notification.DeliveryRecord) error {
	err := idx.next.Append(ctx, record)
	if record.IdempotencyKey == "" || record.Status != notification.StatusSent {
		return err
	}
	if err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return err
	}
	_ = idx.client.Set(ctx, deliveredKeyPrefix+record.IdempotencyKey, "1", idx.ttl).Err()
	return err
}

// DeliveredKeys answers from Redis with one pipelined round trip and asks the
// durable store only for the misses.
func (idx *RedisDeliveredIndex) DeliveredKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	out := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	pipe := idx.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.Exists(ctx, deliveredKeyPrefix+k)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		delivered, err := idx.next.DeliveredKeys(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("delivered keys fallback: %w", err)
		}
		return delivered, nil
	}

	misses := make([]string, 0, len(keys))
	for i, k := range keys {
		if cmds[i].Val() > 0 {
			out[k] = true
			continue
		}
		misses = append(misses, k)
	}
	if len(misses) == 0 {
		return out, nil
	}

	durable, err := idx.next.DeliveredKeys(ctx, misses)
	if err != nil {
		return nil, err
	}
	for k, ok := range durable {
		if ok {
			out[k] = true
		}
	}
	return out, nil
}
