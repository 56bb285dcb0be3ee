package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// Acquire attempts to take the named lock. It returns the owner token and true
// when acquired, or an empty token and false when the lock is already held.
func (s *LockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the named lock if token still owns it.
func (s *LockStore) Release(ctx context.Context, name, token string) error {
	return releaseScript.Run(ctx, s.client, []string{lockKey(name)}, token).Err()
}

// PaymentLockName is the lock held while a callback for txnRef is processed.
func PaymentLockName(txnRef string) string {
	return "payment:" + txnRef
}

// JobLockName is the lock held by the instance running a scheduled job.
func JobLockName(job string) string {
	return "job:" + job
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}
