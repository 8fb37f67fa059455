package redisx

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// ProcessedTTL is the dedup-key lifetime for every `processed:<prefix>:<id>`
// namespace in spec §6.
const ProcessedTTL = 24 * time.Hour

// MarkProcessed sets key if absent with the given TTL. It returns true if
// this call created the entry (first processing of this event id), false if
// the key already existed (a duplicate delivery). It never overwrites an
// existing key's TTL, so a fast redelivery never resets a dedup window that
// is already counting down.
func (c *Client) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	created, err := c.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redisx: mark processed")
	}
	return created, nil
}

// ReleaseProcessed removes key. Called on downstream failure within the same
// consumer invocation so that redelivery re-attempts processing instead of
// being silently swallowed as a duplicate (spec §4.2).
func (c *Client) ReleaseProcessed(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "redisx: release processed key")
	}
	return nil
}
