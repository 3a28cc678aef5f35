package outputcache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCache is the reference Storage implementation: an in-process map
// guarded by a mutex, honoring per-entry TTL expiry and, when constructed
// with a size limit, evicting the least-recently-used entry to stay under
// it. It is always safe for concurrent use.
type MemoryCache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List // front = most recently used
	clock    Clock
	sizeLimit int64
	size      int64
}

type memoryCacheItem struct {
	key       string
	entry     *CacheEntry
	expiresAt time.Time
	size      int64
}

// NewMemoryCache returns a Storage backed by an in-process map with no size
// limit; entries are only ever removed by TTL expiry.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithLimit(0)
}

// NewMemoryCacheWithLimit returns a Storage backed by an in-process map that
// evicts least-recently-used entries once the total body-byte size of its
// contents would exceed sizeLimit. A sizeLimit of 0 means unlimited.
func NewMemoryCacheWithLimit(sizeLimit int64) *MemoryCache {
	return &MemoryCache{
		items:     make(map[string]*list.Element),
		order:     list.New(),
		clock:     systemClock{},
		sizeLimit: sizeLimit,
	}
}

var _ SizedStorage = (*MemoryCache)(nil)

// Get implements Storage. An expired entry is treated as absent and evicted
// eagerly.
func (c *MemoryCache) Get(_ context.Context, key string) (*CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	item := el.Value.(*memoryCacheItem)
	if c.clock.Now().After(item.expiresAt) {
		c.removeElementLocked(el)
		return nil, false, nil
	}
	c.order.MoveToFront(el)
	return item.entry.clone(), true, nil
}

// Set implements Storage, installing entry with absolute expiry now+ttl and
// evicting least-recently-used entries under size pressure.
func (c *MemoryCache) Set(_ context.Context, key string, entry *CacheEntry, ttl time.Duration) error {
	stored := entry.clone()
	itemSize := int64(len(stored.Body))

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElementLocked(el)
	}

	item := &memoryCacheItem{
		key:       key,
		entry:     stored,
		expiresAt: c.clock.Now().Add(ttl),
		size:      itemSize,
	}
	el := c.order.PushFront(item)
	c.items[key] = el
	c.size += itemSize

	c.evictLocked()
	return nil
}

// Len reports the current number of live entries, including any not yet
// lazily expired.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) evictLocked() {
	if c.sizeLimit <= 0 {
		return
	}
	for c.size > c.sizeLimit {
		oldest := c.order.Back()
		if oldest == nil {
			return
		}
		c.removeElementLocked(oldest)
	}
}

func (c *MemoryCache) removeElementLocked(el *list.Element) {
	item := el.Value.(*memoryCacheItem)
	c.order.Remove(el)
	delete(c.items, item.key)
	c.size -= item.size
}
