package domain

import "github.com/cockroachdb/errors"

var (
	// ErrRetryable marks a transient failure that should surface as OutcomeRetry
	// so the bus redelivers: DB unavailable, bus publish error inside a
	// consumer, init-lock wait timeout.
	ErrRetryable = errors.New("mission pipeline: retryable error")

	// ErrInvariantViolation marks a condition that must never happen in a
	// correct system (e.g. a Reward row inserted but the paired points update
	// affected 0 rows). It is always logged at error level and is operator
	// visible, not silently swallowed.
	ErrInvariantViolation = errors.New("mission pipeline: invariant violation")

	// ErrLockNotAcquired is returned, marked retryable, by the Mission
	// Initializer when another worker holds the init lock and the 50x100ms
	// poll ends without today's cycle rows appearing. redisx.TryLock itself
	// reports a failed acquire as false, not as this error.
	ErrLockNotAcquired = errors.New("mission pipeline: lock not acquired")

	// ErrMissionNotFound names the case where no mission row of the requested
	// type exists in the user's active cycle. Nothing in the pipeline returns
	// it: the Completion Engine reports that case as (false, nil).
	ErrMissionNotFound = errors.New("mission pipeline: mission not found in active cycle")
)

// Retryable marks err so errors.Is(err, ErrRetryable) succeeds while it still
// prints and unwraps as the original error.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrRetryable)
}

// Invariant marks err as an invariant violation while preserving the
// original cause for logging.
func Invariant(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrInvariantViolation)
}
