// Package locks provides a booking.Locker shared between processes through Redis
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
)

// releaseScript deletes the key only while it still holds our token
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

const (
	defaultRetryInterval = 25 * time.Millisecond
	keyPrefix            = "lock:"
)

// RedisLocker leases keys with SET NX PX. A lease that outlives its TTL lapses,
// so TTL must exceed the longest mutation.
type RedisLocker struct {
	client        redis.Cmdable
	ttl           time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
	newToken      func() string
}

var _ booking.Locker = (*RedisLocker)(nil)

func NewRedisLocker(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		logger:        logger,
		newToken:      func() string { return uuid.New().String() },
	}
}

// Lock leases every key in sorted order, retrying until ctx is done
func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	token := l.newToken()
	ordered := booking.SortedKeys(keys)
	acquired := make([]string, 0, len(ordered))

	for _, key := range ordered {
		if err := l.acquire(ctx, keyPrefix+key, token); err != nil {
			l.releaseAll(acquired, token)
			return nil, fmt.Errorf("failed to lock %s: %w", key, err)
		}
		acquired = append(acquired, keyPrefix+key)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		l.releaseAll(acquired, token)
	}, nil
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
}

func (l *RedisLocker) releaseAll(keys []string, token string) {
	// release even when the caller's context is already cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(keys) - 1; i >= 0; i-- {
		err := l.client.Eval(ctx, releaseScript, []string{keys[i]}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("Failed to release lock", zap.String("key", keys[i]), zap.Error(err))
		}
	}
}
