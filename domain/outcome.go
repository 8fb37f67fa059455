// Package domain holds types shared across the mission pipeline: the
// consumer-facing Outcome taxonomy, mission/reward constants, and the
// sentinel errors every other package wraps with cockroachdb/errors.
package domain

// Outcome is the tagged result every consumer boundary resolves to, replacing
// exception-based control flow. The bus adapter maps OutcomeRetry to a
// negative-ack and everything else to an ack.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeDuplicate
	OutcomeRetry
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRetry:
		return "retry"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ShouldAck reports whether the bus message should be acked (true) or
// negative-acked for redelivery (false). Only OutcomeRetry asks for redelivery;
// every other outcome, including OutcomeFatal, is terminal from the bus's
// point of view per spec §4.9 — fatal errors are logged, not retried forever.
func (o Outcome) ShouldAck() bool {
	return o != OutcomeRetry
}
