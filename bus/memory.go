package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryBus is an in-process fake of Bus for unit and integration tests,
// grounded on the teacher's memoryReplicator (redis_stream/memory.go): a
// channel-fed store standing in for the real Redis-backed transport. Unlike
// the teacher's single-consumer channel, MemoryBus models consumer groups
// and a visibility-timeout redelivery so the same router code exercises
// duplicate and redelivery paths without a live Redis.
type MemoryBus struct {
	// VisibilityTimeout bounds how long a delivered-but-unacked message is
	// held before another consumer in the group may redeliver it. Zero
	// selects a 2s default.
	VisibilityTimeout time.Duration

	mu      sync.Mutex
	topics  map[string]*memoryTopic
	nextID  uint64
	publish atomic.Int64 // publish count, exposed for test assertions via PublishCount
}

type memoryTopic struct {
	mu     sync.Mutex
	groups map[string]*memoryGroup
}

type memoryGroup struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*memoryEntry
	pending map[string]*memoryEntry
	closed  bool
}

type memoryEntry struct {
	id         string
	payload    []byte
	visibleAt  time.Time
	deliveries int
}

// NewMemoryBus constructs an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		topics:            make(map[string]*memoryTopic),
		VisibilityTimeout: 2 * time.Second,
	}
}

func (b *MemoryBus) topic(name string) *memoryTopic {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[name]
	if !ok {
		t = &memoryTopic{groups: make(map[string]*memoryGroup)}
		b.topics[name] = t
	}
	return t
}

func (t *memoryTopic) group(name string) *memoryGroup {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.groups[name]
	if !ok {
		g = &memoryGroup{pending: make(map[string]*memoryEntry)}
		g.cond = sync.NewCond(&g.mu)
		t.groups[name] = g
	}
	return g
}

// enqueue fans a published message out to every consumer group currently
// registered on the topic, mirroring Redis Streams' per-group independent
// cursors: every group sees every message exactly once (modulo redelivery).
func (t *memoryTopic) enqueue(entry *memoryEntry) {
	t.mu.Lock()
	groups := make([]*memoryGroup, 0, len(t.groups))
	for _, g := range t.groups {
		groups = append(groups, g)
	}
	t.mu.Unlock()

	for _, g := range groups {
		g.mu.Lock()
		cp := *entry
		g.queue = append(g.queue, &cp)
		g.cond.Signal()
		g.mu.Unlock()
	}
}

func (b *MemoryBus) PublishAsync(ctx context.Context, topic string, payload []byte, onResult func(error)) {
	go func() {
		err := b.PublishSync(ctx, topic, payload)
		if onResult != nil {
			onResult(err)
		}
	}()
}

func (b *MemoryBus) PublishSync(ctx context.Context, topic string, payload []byte) error {
	id := fmt.Sprintf("%d-0", atomic.AddUint64(&b.nextID, 1))
	t := b.topic(topic)
	t.enqueue(&memoryEntry{id: id, payload: payload, visibleAt: time.Now()})
	b.publish.Add(1)
	return nil
}

// Subscribe runs handler for every message delivered to (topic, group),
// blocking until ctx is canceled. Every Subscribe call registers the group
// on first use so later publishes fan out to it too, matching a consumer
// group created before any message is produced.
func (b *MemoryBus) Subscribe(ctx context.Context, topic, group, consumer string, handler Handler) error {
	g := b.topic(topic).group(group)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		g.mu.Lock()
		g.closed = true
		g.cond.Broadcast()
		g.mu.Unlock()
		close(done)
	}()

	visTimeout := b.VisibilityTimeout
	if visTimeout <= 0 {
		visTimeout = 2 * time.Second
	}

	for {
		entry := g.next(visTimeout)
		if entry == nil {
			<-done
			return ctx.Err()
		}

		err := handler(ctx, entry.payload)
		g.resolve(entry, err == nil)
	}
}

// PublishCount returns the number of successful PublishSync/PublishAsync
// calls observed so far, for test assertions on outbox-triggered replays.
func (b *MemoryBus) PublishCount() int64 {
	return b.publish.Load()
}

// next blocks until a message is available (either fresh or a redelivery
// whose visibility timeout elapsed) or the group is closed. It polls on a
// short interval rather than relying solely on sync.Cond signals, since a
// pending entry's timeout elapsing is a passage of time, not an event any
// goroutine signals.
func (g *memoryGroup) next(visTimeout time.Duration) *memoryEntry {
	const pollInterval = 5 * time.Millisecond

	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		if g.closed {
			return nil
		}
		now := time.Now()
		for _, e := range g.pending {
			if now.After(e.visibleAt) {
				e.visibleAt = now.Add(visTimeout)
				e.deliveries++
				return e
			}
		}
		if len(g.queue) > 0 {
			e := g.queue[0]
			g.queue = g.queue[1:]
			e.visibleAt = now.Add(visTimeout)
			e.deliveries++
			g.pending[e.id] = e
			return e
		}

		timer := time.AfterFunc(pollInterval, func() {
			g.mu.Lock()
			g.cond.Broadcast()
			g.mu.Unlock()
		})
		g.cond.Wait()
		timer.Stop()
	}
}

// resolve acks (removes from pending) on success, or leaves the entry in
// pending for redelivery once its visibility timeout elapses on failure.
func (g *memoryGroup) resolve(entry *memoryEntry, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ok {
		delete(g.pending, entry.id)
	}
	g.cond.Signal()
}
