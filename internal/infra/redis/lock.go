package redis

import (
	"context"
	"time"

	"interview-ai-credits/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	lockAttempts = 5
	lockBackoff  = 50 * time.Millisecond
)

// RedisLocker serializes a flow per key across processes with SetNX.
// The token ties an Unlock to the TryLock that took it, so a holder
// whose TTL lapsed cannot release a lock someone else now owns.
type RedisLocker struct {
	cli *redis.Client
}

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{cli: c.cli}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for attempt := 0; attempt < lockAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(lockBackoff):
			}
		}
		taken, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			continue
		}
		if taken {
			return token, nil
		}
	}
	return "", domain.ErrLockNotAcquired
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.cli, []string{key}, token).Result()
	return err
}
