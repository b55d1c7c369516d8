package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process LRU used when Redis is disabled, and in
// tests. Entries expire by TTL and the least recently used entry is
// evicted once capacity is reached.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	entries  map[string]*list.Element
	now      func() time.Time
}

type memoryEntry struct {
	key       string
	url       string
	stats     map[string]string
	expiresAt time.Time
}

func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
}

func (c *MemoryCache) GetURL(_ context.Context, code string) (string, bool) {
	e := c.lookup(urlKeyPrefix + code)
	if e == nil || e.url == "" {
		return "", false
	}
	return e.url, true
}

func (c *MemoryCache) SetURL(_ context.Context, code, originalURL string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.put(urlKeyPrefix+code, &memoryEntry{url: originalURL, expiresAt: c.now().Add(ttl)})
}

func (c *MemoryCache) GetStats(_ context.Context, code string) (map[string]string, bool) {
	e := c.lookup(statsKeyPrefix + code)
	if e == nil || e.stats == nil {
		return nil, false
	}
	return e.stats, true
}

func (c *MemoryCache) SetStats(_ context.Context, code string, fields map[string]string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.put(statsKeyPrefix+code, &memoryEntry{stats: fields, expiresAt: c.now().Add(ttl)})
}

func (c *MemoryCache) Invalidate(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(urlKeyPrefix + code)
	c.remove(statsKeyPrefix + code)
	return nil
}

func (c *MemoryCache) lookup(key string) *memoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil
	}
	entry := el.Value.(*memoryEntry)
	if c.now().After(entry.expiresAt) {
		c.remove(key)
		return nil
	}
	c.order.MoveToFront(el)
	return entry
}

func (c *MemoryCache) put(key string, entry *memoryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.key = key
	if el, ok := c.entries[key]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(entry)
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*memoryEntry).key)
	}
}

// remove expects c.mu to be held.
func (c *MemoryCache) remove(key string) {
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}
