// Package redisx is the Idempotency Keeper (spec §4.2): a dedup set and a
// mutual-exclusion lock, both backed by Redis. Adapted from the teacher's
// redis package, generalized to take a context per call instead of storing
// one on the client — this package's callers are consumer goroutines and
// request handlers with independent, cancelable contexts, unlike the
// teacher's single long-lived background service.
package redisx

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Config is the subset of connection settings the keeper needs.
type Config struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	PoolTimeout  time.Duration
}

// Client wraps *redis.Client.
type Client struct {
	rdb *redis.Client
}

// NewClient dials Redis per cfg and verifies connectivity.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redisx: connect")
	}

	return &Client{rdb: rdb}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
