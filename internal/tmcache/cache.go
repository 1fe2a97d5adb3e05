// Package tmcache implements the in-process translation memory: a bounded
// LRU store mapping request fingerprints to previously computed results.
package tmcache

import (
	"container/list"
	"sync"
	"time"
)

// Entry is one cached translation result. Never mutated after creation,
// only replaced or evicted.
type Entry struct {
	Key            string
	ResultText     string
	DetectedSource string
	CreatedAt      time.Time
	ExpiresAt      time.Time

	epoch uint64
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Entries   int    `json:"entries"`
	Evictions uint64 `json:"evictions"`
}

// Cache is a process-wide translation memory with TTL expiry and
// least-recently-used eviction at a configured entry ceiling. All methods
// are safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	ttl        time.Duration
	epoch      uint64
	hits       uint64
	misses     uint64
	evictions  uint64

	now func() time.Time
}

func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// NextEpoch returns a monotonically increasing write sequence number.
// Callers obtain it before dispatching provider work; Store rejects writes
// stamped with an older epoch than the stored entry, so a slow retry can
// never clobber a fresher result.
func (c *Cache) NextEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.epoch
}

// Lookup returns the entry for key, or nil on a miss. Expired entries are
// removed and reported as misses.
func (c *Cache) Lookup(key string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}

	entry := elem.Value.(*Entry)
	if !entry.ExpiresAt.After(c.now()) {
		c.removeLocked(elem)
		c.misses++
		return nil
	}

	c.order.MoveToFront(elem)
	c.hits++
	return entry
}

// Store upserts the result for key with the configured TTL. The write is
// ignored when an entry with a newer epoch is already present.
func (c *Cache) Store(key, resultText, detectedSource string, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		existing := elem.Value.(*Entry)
		if existing.epoch > epoch && existing.ExpiresAt.After(c.now()) {
			return
		}
		c.removeLocked(elem)
	}

	now := c.now()
	entry := &Entry{
		Key:            key,
		ResultText:     resultText,
		DetectedSource: detectedSource,
		CreatedAt:      now,
		ExpiresAt:      now.Add(c.ttl),
		epoch:          epoch,
	}
	c.entries[key] = c.order.PushFront(entry)

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		c.evictions++
	}
}

// Evict removes the entry for key, if present.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Entries:   c.order.Len(),
		Evictions: c.evictions,
	}
}

func (c *Cache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*Entry)
	c.order.Remove(elem)
	delete(c.entries, entry.Key)
}
