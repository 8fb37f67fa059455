// Package bus is the Bus Adapter (spec §4.4): publish/subscribe over the
// four logical topics in spec §6, with one consumer group per
// topic-consumer and at-least-once, possibly-reordered, possibly-redelivered
// delivery semantics. Two implementations satisfy Bus: RedisStreamBus for
// production and MemoryBus for tests, grounded on the teacher's
// redis_stream package (redis.go / memory.go) which drew the same split for
// its own state-replication stream.
package bus

import "context"

// The four logical topics spec §6 defines.
const (
	TopicLogin            = "mission-login-event"
	TopicGameLaunch       = "mission-game-launch-event"
	TopicGamePlay         = "mission-game-play-event"
	TopicMissionCompleted = "mission-completed-event"
)

// Handler processes one delivered message. A nil return acks the message; a
// non-nil return negative-acks it for redelivery. The router is responsible
// for mapping domain.Outcome to this contract: only OutcomeRetry returns a
// non-nil error (domain.ErrRetryable); every other outcome, including
// OutcomeFatal, acks per domain.Outcome.ShouldAck.
type Handler func(ctx context.Context, payload []byte) error

// Bus is the capability set the Mission Initializer, Completion Engine, and
// Event Router depend on. It is defined as an interface, per spec §9's
// "abstract capability set" redesign guidance, so the pipeline composes
// over RedisStreamBus in production and MemoryBus in tests without any
// other package knowing which backend is wired.
type Bus interface {
	// PublishAsync fires the publish and reports success/failure to onResult
	// without blocking the caller. Used for ingress events (spec §4.4): a
	// failure routes to the Outbox via onResult, not via a returned error.
	PublishAsync(ctx context.Context, topic string, payload []byte, onResult func(error))

	// PublishSync blocks until the publish completes or fails. Used for the
	// mission-completed event (spec §4.7), whose publish failure the
	// Completion Engine must observe synchronously to enqueue the Outbox
	// entry.
	PublishSync(ctx context.Context, topic string, payload []byte) error

	// Subscribe runs handler for every message delivered to (topic, group)
	// until ctx is canceled. consumer names this caller within the group,
	// for implementations (like RedisStreamBus) that track per-consumer
	// pending-entry ownership. Subscribe blocks until ctx is canceled or an
	// unrecoverable subscription error occurs.
	Subscribe(ctx context.Context, topic, group, consumer string, handler Handler) error
}
