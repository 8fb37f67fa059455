package bus

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/gomodule/redigo/redis"
	"github.com/sirupsen/logrus"
)

// RedisConfig configures RedisStreamBus's connection pool and consumer-loop
// tunables. Grounded on the teacher's redis_stream.RedisConfig, trimmed to
// one pool (the teacher split read/write pools for a replica topology this
// domain doesn't have) and renamed fields to match spec.md vocabulary.
type RedisConfig struct {
	Addr               string
	Password           string
	PoolMaxIdle        int
	PoolMaxActive      int
	PoolIdleTimeout    time.Duration
	DialMaxElapsedTime time.Duration
	BlockTimeout       time.Duration // XREADGROUP BLOCK duration
	MaxClaimBatch      int64         // XAUTOCLAIM COUNT
	ClaimMinIdleTime   time.Duration // how long a pending entry sits before another consumer may claim it
}

// RedisStreamBus implements Bus over Redis Streams: XADD to publish,
// XREADGROUP/XACK for consumer-group delivery, and XAUTOCLAIM to recover
// entries whose consumer died without acking. Grounded on the teacher's
// redis_stream.redisReplicator, generalized from one fixed "om-replication"
// stream to the four topics in spec §6 and from XREAD (no groups, single
// reader) to XREADGROUP (at-least-once across many consumers per spec §4.4).
type RedisStreamBus struct {
	pool *redis.Pool
	cfg  RedisConfig

	// ensuredGroups avoids redundant XGROUP CREATE calls; Redis errors on a
	// duplicate create (BUSYGROUP), which Subscribe treats as a no-op.
	ensuredGroups map[string]bool
}

// NewRedisStreamBus dials a Redis connection pool per cfg, retrying with
// jittered exponential backoff up to DialMaxElapsedTime, exactly as the
// teacher's getReadConnectionPool/getWriteConnectionPool do via
// cenkalti/backoff/v4.
func NewRedisStreamBus(cfg RedisConfig) *RedisStreamBus {
	pool := &redis.Pool{
		MaxIdle:     cfg.PoolMaxIdle,
		MaxActive:   cfg.PoolMaxActive,
		IdleTimeout: cfg.PoolIdleTimeout,
		Wait:        true,
		TestOnBorrow: func(c redis.Conn, lastUsed time.Time) error {
			if time.Since(lastUsed) < 15*time.Second {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
		Dial: func() (redis.Conn, error) {
			var conn redis.Conn
			err := backoff.RetryNotify(
				func() error {
					var dialErr error
					dialOptions := []redis.DialOption{
						redis.DialPassword(cfg.Password),
						redis.DialConnectTimeout(cfg.PoolIdleTimeout),
						redis.DialReadTimeout(cfg.PoolIdleTimeout),
					}
					conn, dialErr = redis.Dial("tcp", cfg.Addr, dialOptions...)
					return dialErr
				},
				backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(cfg.DialMaxElapsedTime)),
				func(err error, wait time.Duration) {
					logrus.WithFields(logrus.Fields{"error": err}).Debugf(
						"bus: redis dial failed, retrying in %s", wait)
				},
			)
			return conn, err
		},
	}

	return &RedisStreamBus{pool: pool, cfg: cfg, ensuredGroups: make(map[string]bool)}
}

// Close releases the underlying connection pool.
func (b *RedisStreamBus) Close() error {
	return b.pool.Close()
}

func (b *RedisStreamBus) PublishAsync(ctx context.Context, topic string, payload []byte, onResult func(error)) {
	go func() {
		err := b.PublishSync(ctx, topic, payload)
		if onResult != nil {
			onResult(err)
		}
	}()
}

func (b *RedisStreamBus) PublishSync(ctx context.Context, topic string, payload []byte) error {
	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return errors.Wrap(err, "bus: get connection")
	}
	defer conn.Close()

	if _, err := conn.Do("XADD", topic, "*", "payload", payload); err != nil {
		return errors.Wrapf(err, "bus: xadd %s", topic)
	}
	return nil
}

// ensureGroup creates the consumer group at the stream's start ("0") if it
// does not already exist, matching Redis's idiomatic MKSTREAM-on-first-use
// pattern so publishers and subscribers can start in either order.
func (b *RedisStreamBus) ensureGroup(conn redis.Conn, topic, group string) error {
	key := topic + "\x00" + group
	if b.ensuredGroups[key] {
		return nil
	}
	_, err := conn.Do("XGROUP", "CREATE", topic, group, "0", "MKSTREAM")
	if err != nil && !isBusyGroupErr(err) {
		return errors.Wrapf(err, "bus: xgroup create %s/%s", topic, group)
	}
	b.ensuredGroups[key] = true
	return nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && len(err.Error()) >= 10 && err.Error()[:10] == "BUSYGROUP "
}

// Subscribe reads from (topic, group) as consumer until ctx is canceled. It
// first reclaims any pending entries idle longer than ClaimMinIdleTime
// (XAUTOCLAIM — another consumer died mid-handling), then blocks on
// XREADGROUP for new entries. Every delivered entry is XACKed on handler
// success; a handler error leaves it unacked so it is reclaimed (by this or
// another consumer) after ClaimMinIdleTime, implementing at-least-once
// redelivery without an explicit NACK command (Redis Streams has none).
func (b *RedisStreamBus) Subscribe(ctx context.Context, topic, group, consumer string, handler Handler) error {
	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return errors.Wrap(err, "bus: get connection")
	}
	defer conn.Close()

	if err := b.ensureGroup(conn, topic, group); err != nil {
		return err
	}

	minIdleMs := b.cfg.ClaimMinIdleTime.Milliseconds()
	if minIdleMs <= 0 {
		minIdleMs = 30_000
	}
	blockMs := b.cfg.BlockTimeout.Milliseconds()
	if blockMs <= 0 {
		blockMs = 2_000
	}
	batch := b.cfg.MaxClaimBatch
	if batch <= 0 {
		batch = 50
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := b.claimStale(conn, topic, group, consumer, minIdleMs, batch, handler); err != nil {
			return err
		}

		reply, err := redis.Values(conn.Do("XREADGROUP",
			"GROUP", group, consumer,
			"COUNT", batch,
			"BLOCK", blockMs,
			"STREAMS", topic, ">"))
		if err == redis.ErrNil {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "bus: xreadgroup %s/%s", topic, group)
		}

		entries, err := parseStreamReply(reply)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if handlerErr := handler(ctx, e.payload); handlerErr == nil {
				if _, ackErr := conn.Do("XACK", topic, group, e.id); ackErr != nil {
					logrus.WithFields(logrus.Fields{"error": ackErr, "topic": topic, "id": e.id}).Error(
						"bus: xack failed")
				}
			}
		}
	}
}

// claimStale reclaims pending entries idle at least minIdleMs via
// XAUTOCLAIM and runs handler on each, acking on success. This is how a
// consumer that crashed mid-handling (never XACKed) gets its in-flight
// messages redelivered to a live consumer.
func (b *RedisStreamBus) claimStale(conn redis.Conn, topic, group, consumer string, minIdleMs int64, batch int64, handler Handler) error {
	reply, err := redis.Values(conn.Do("XAUTOCLAIM", topic, group, consumer, minIdleMs, "0", "COUNT", batch))
	if err != nil {
		if err == redis.ErrNil {
			return nil
		}
		return errors.Wrapf(err, "bus: xautoclaim %s/%s", topic, group)
	}
	if len(reply) < 2 {
		return nil
	}

	claimed, err := redis.Values(reply[1], nil)
	if err != nil {
		return errors.Wrap(err, "bus: parse xautoclaim entries")
	}

	for _, raw := range claimed {
		fields, err := redis.Values(raw, nil)
		if err != nil || len(fields) != 2 {
			continue
		}
		id, err := redis.String(fields[0], nil)
		if err != nil {
			continue
		}
		kv, err := redis.Strings(fields[1], nil)
		if err != nil {
			continue
		}
		payload := payloadFromFields(kv)

		if handlerErr := handler(context.Background(), payload); handlerErr == nil {
			if _, ackErr := conn.Do("XACK", topic, group, id); ackErr != nil {
				logrus.WithFields(logrus.Fields{"error": ackErr, "topic": topic, "id": id}).Error(
					"bus: xack failed on reclaimed entry")
			}
		}
	}
	return nil
}

type streamEntry struct {
	id      string
	payload []byte
}

// parseStreamReply decodes an XREADGROUP reply:
// [ [streamName, [ [id, [field, value, ...]], ... ]] ]
func parseStreamReply(reply []interface{}) ([]streamEntry, error) {
	var out []streamEntry
	for _, streamRaw := range reply {
		stream, err := redis.Values(streamRaw, nil)
		if err != nil || len(stream) != 2 {
			return nil, errors.New("bus: malformed xreadgroup stream entry")
		}
		rawEntries, err := redis.Values(stream[1], nil)
		if err != nil {
			return nil, errors.Wrap(err, "bus: parse xreadgroup entries")
		}
		for _, raw := range rawEntries {
			fields, err := redis.Values(raw, nil)
			if err != nil || len(fields) != 2 {
				continue
			}
			id, err := redis.String(fields[0], nil)
			if err != nil {
				continue
			}
			kv, err := redis.Strings(fields[1], nil)
			if err != nil {
				continue
			}
			out = append(out, streamEntry{id: id, payload: payloadFromFields(kv)})
		}
	}
	return out, nil
}

// payloadFromFields extracts the "payload" field value from a flattened
// field/value list, matching the single "payload" field XADD writes.
func payloadFromFields(kv []string) []byte {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == "payload" {
			return []byte(kv[i+1])
		}
	}
	return nil
}
