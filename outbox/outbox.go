// Package outbox is the persist-and-retry buffer for publishes the Bus
// Adapter could not complete (spec §4.3): a durable row per failed send,
// swept by a background ticker that republishes through the bus and
// deletes on success, or marks the row terminally FAILED after
// max-retries.
package outbox

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"missionpipeline/compressor"
	"missionpipeline/store"
)

// FixedBackoff is the sweep's fixed retry delay. Spec §4.3 deliberately
// specifies a fixed 30s backoff, not exponential.
const FixedBackoff = 30 * time.Second

// MaxRetries is the retry ceiling after which a row becomes terminally
// FAILED, per spec §3's OutboxEntry invariant.
const MaxRetries = 10

// Store wraps store.OutboxStore with payload compression, so every other
// package enqueues/dequeues plain []byte and never thinks about codecs.
type Store struct {
	db         *store.DB
	inner      store.OutboxStore
	compressor compressor.Compresser
	// codecName is persisted per row so the Sweeper can decompress with
	// whatever codec wrote it, even if the deployment's default codec
	// changes between the enqueue and the sweep.
	codecName string
}

// NewStore constructs a Store. A nil compressor defaults to
// compressor.NoneCompressor{}, matching spec's "behavior is unaffected
// unless a deployment opts into zstd or lz4" default.
func NewStore(db *store.DB, codecName string, c compressor.Compresser) *Store {
	if c == nil {
		c = compressor.NoneCompressor{}
		codecName = "none"
	}
	return &Store{db: db, compressor: c, codecName: codecName}
}

// Enqueue persists a PENDING row for a publish that the Bus Adapter could
// not complete. eventID is the same id carried on the event's own payload
// so a publish retried through the sweeper is indistinguishable downstream
// from a first delivery (every consumer dedups on it regardless).
func (s *Store) Enqueue(ctx context.Context, eventID, topic, eventType string, payload []byte, now time.Time) error {
	codec := s.codecName
	compressed, err := s.compressor.Compress(payload)
	if err != nil {
		if errors.Is(err, compressor.ErrNotShrunk) {
			// Stored as-is, so the row must say so for the sweep to read it.
			compressed, err, codec = payload, nil, "none"
		} else {
			return errors.Wrap(err, "outbox: compress payload")
		}
	}

	return s.inner.Enqueue(ctx, s.db.DB, store.OutboxRow{
		EventID:     eventID,
		Topic:       topic,
		EventType:   eventType,
		Codec:       codec,
		Payload:     compressed,
		MaxRetries:  MaxRetries,
		NextRetryAt: now.Add(FixedBackoff),
	})
}

// NewEventID generates a fresh event id for a mission-completed event. The
// router's publishCompletion calls it before the first publish attempt, and
// the same id keys the Outbox row if that publish falls back to the Outbox.
func NewEventID() string {
	return uuid.NewString()
}

// codecFor resolves the Compresser that wrote row.Codec, so a sweep can
// decompress correctly even after a deployment switches its default codec.
func codecFor(name string) compressor.Compresser {
	switch name {
	case "zstd":
		return &compressor.ZstdCompressor{}
	case "lz4":
		return compressor.Lz4Compressor{}
	default:
		return compressor.NoneCompressor{}
	}
}
