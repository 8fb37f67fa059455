// Package retry is a typed, bounded retry-with-notify wrapper over
// cenkalti/backoff/v5, adapted from the teacher's BackoffWrapper. The
// teacher's wrapper discarded its operation's result (Operation[any] behind
// a void Exec()); this version is generic over the result type so callers
// like the router's one-extra-attempt mission-completed publish (spec §4.7)
// get a typed value back instead of re-deriving it from closure state.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy configures a bounded exponential backoff run.
type Policy struct {
	InitialInterval     time.Duration
	RandomizationFactor float64
	Multiplier          float64
	MaxTries            uint
	Notify              func(err error, wait time.Duration)
}

// Do runs op until it succeeds, Policy.MaxTries is exhausted, or ctx is
// canceled, backing off between attempts per Policy. It returns the last
// error on exhaustion, unlike the teacher's Exec which only logged it.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.RandomizationFactor = p.RandomizationFactor
	eb.Multiplier = p.Multiplier

	opts := []backoff.RetryOption{backoff.WithBackOff(eb)}
	if p.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(p.MaxTries))
	}
	if p.Notify != nil {
		opts = append(opts, backoff.WithNotify(p.Notify))
	}

	return backoff.Retry(ctx, func() (T, error) { return op() }, opts...)
}
