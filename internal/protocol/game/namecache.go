package game

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// nameCacheCapacity bounds NameCache at N>=4096 entries (spec's one
// deliberate improvement over the original's unbounded map).
const nameCacheCapacity = 4096

// pendingQueueCap bounds how many chat events can queue behind a single
// unresolved GUID before further enqueues for that GUID are dropped.
const pendingQueueCap = 64

// pendingTTL is the minimum age at which a buffered chat event is stale
// enough to sweep: its NAME_QUERY is assumed lost or never answered.
const pendingTTL = 30 * time.Second

type nameCacheEntry struct {
	guid uint64
	name string
}

// NameCache resolves GUID -> character name, with deduped, rate-limited
// name queries for unresolved GUIDs (spec §4.3.3's "Name resolution" rule:
// at most one NAME_QUERY per GUID per T >= 5s) and a fixed-capacity LRU
// eviction policy so a long-lived session can't grow the cache without
// bound.
type NameCache struct {
	mu        sync.Mutex
	capacity  int
	entries   map[uint64]*list.Element // guid -> node in order, front = most recently used
	order     *list.List
	lastQuery map[uint64]time.Time
	minPeriod time.Duration
}

// NewNameCache builds an empty cache with the given name-query cooldown,
// bounded at nameCacheCapacity entries.
func NewNameCache(minPeriod time.Duration) *NameCache {
	return &NameCache{
		capacity:  nameCacheCapacity,
		entries:   make(map[uint64]*list.Element),
		order:     list.New(),
		lastQuery: make(map[uint64]time.Time),
		minPeriod: minPeriod,
	}
}

// Lookup returns the cached name for guid, if any, and marks it most
// recently used.
func (c *NameCache) Lookup(guid uint64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[guid]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*nameCacheEntry).name, true
}

// Upsert stores a resolved name, e.g. from SMSG_NAME_QUERY_RESPONSE or
// CHAR_ENUM, evicting the least-recently-used entry if the cache is full.
func (c *NameCache) Upsert(guid uint64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[guid]; ok {
		el.Value.(*nameCacheEntry).name = name
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	el := c.order.PushFront(&nameCacheEntry{guid: guid, name: name})
	c.entries[guid] = el
}

// evictOldest drops the least-recently-used entry. Caller holds c.mu.
func (c *NameCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	delete(c.entries, oldest.Value.(*nameCacheEntry).guid)
}

// Evict removes guid from the cache, e.g. on SMSG_INVALIDATE_PLAYER.
func (c *NameCache) Evict(guid uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[guid]; ok {
		c.order.Remove(el)
		delete(c.entries, guid)
	}
	delete(c.lastQuery, guid)
}

// Len reports the number of resolved names currently cached.
func (c *NameCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// ShouldQuery reports whether a NAME_QUERY should be sent for guid right
// now: the name is unknown and either no query has ever been sent for it,
// or the cooldown has elapsed. Marks the attempt as sent when it returns
// true, so callers don't need a separate bookkeeping step.
func (c *NameCache) ShouldQuery(guid uint64, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, known := c.entries[guid]; known {
		return false
	}
	if last, ok := c.lastQuery[guid]; ok && now.Sub(last) < c.minPeriod {
		return false
	}
	c.lastQuery[guid] = now
	return true
}

type pendingEntry[T any] struct {
	item       T
	enqueuedAt time.Time
}

// PendingByGUID buffers chat events whose sender name hasn't resolved yet,
// keyed by sender GUID, so they can be re-emitted in order once the name
// query comes back (spec §4.3.1's NAME_QUERY reply handling). Each item
// carries its enqueue instant so Sweep can drop entries whose NAME_QUERY
// never came back, and each per-GUID queue is capped so one GUID can't
// buffer unbounded chat volume.
type PendingByGUID[T any] struct {
	mu      sync.Mutex
	pending map[uint64][]pendingEntry[T]
}

// NewPendingByGUID builds an empty pending buffer.
func NewPendingByGUID[T any]() *PendingByGUID[T] {
	return &PendingByGUID[T]{pending: make(map[uint64][]pendingEntry[T])}
}

// Enqueue buffers an item awaiting guid's name resolution, timestamped at
// now. If guid's queue is already at pendingQueueCap, the item is dropped
// and Enqueue reports false.
func (p *PendingByGUID[T]) Enqueue(guid uint64, item T, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	queue := p.pending[guid]
	if len(queue) >= pendingQueueCap {
		return false
	}
	p.pending[guid] = append(queue, pendingEntry[T]{item: item, enqueuedAt: now})
	return true
}

// Drain removes and returns every item buffered for guid, in enqueue order.
func (p *PendingByGUID[T]) Drain(guid uint64) []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	queue := p.pending[guid]
	delete(p.pending, guid)
	items := make([]T, len(queue))
	for i, e := range queue {
		items[i] = e.item
	}
	return items
}

// Sweep drops every buffered item older than ttl, logging a warning per
// dropped GUID queue, and returns the total number of items dropped. Meant
// to run periodically (spec's >=30s TTL on unresolved NAME_QUERY buffers).
func (p *PendingByGUID[T]) Sweep(now time.Time, ttl time.Duration, logger *zerolog.Logger) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	dropped := 0
	for guid, queue := range p.pending {
		kept := queue[:0]
		guidDropped := 0
		for _, e := range queue {
			if now.Sub(e.enqueuedAt) >= ttl {
				guidDropped++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(p.pending, guid)
		} else {
			p.pending[guid] = kept
		}
		if guidDropped > 0 && logger != nil {
			logger.Warn().Uint64("guid", guid).Int("dropped", guidDropped).Msg("swept stale pending chat awaiting name resolution")
		}
		dropped += guidDropped
	}
	return dropped
}
