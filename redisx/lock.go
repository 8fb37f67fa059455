package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// InitLockTTL is the mission-init advisory lock's lifetime (spec §4.2, §6).
// It must strictly exceed the committing transaction's expected duration.
const InitLockTTL = 10 * time.Second

// TryLock attempts to acquire a non-reentrant, short-TTL advisory lock under
// `lock:<key>`. It returns the random token written on success so a caller
// that wants owner-verified release can check it, though Unlock below
// deliberately does not.
func (c *Client) TryLock(ctx context.Context, key string, ttl time.Duration) (acquired bool, token string, err error) {
	token = uuid.NewString()
	lockKey := fmt.Sprintf("lock:%s", key)

	ok, err := c.rdb.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return false, "", errors.Wrap(err, "redisx: try lock")
	}
	return ok, token, nil
}

// Unlock deletes the lock key unconditionally. This is deliberately not
// owner-verified (no compare-token-then-delete Lua script, unlike the
// teacher's DistributedLock.Release): spec §4.2 calls the lock
// "not owner-verified on release", safe here because every hold is shorter
// than its TTL and the critical section the lock protects is additionally
// guarded by the Event Store's own unique-key constraints.
func (c *Client) Unlock(ctx context.Context, key string) error {
	lockKey := fmt.Sprintf("lock:%s", key)
	if err := c.rdb.Del(ctx, lockKey).Err(); err != nil {
		return errors.Wrap(err, "redisx: unlock")
	}
	return nil
}
