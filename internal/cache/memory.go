package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process cache bounded to a fixed number of entries. When
// the cache is full, expired entries are dropped first; if none are expired
// the entry closest to expiry is evicted.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
}

type memoryEntry struct {
	val []byte
	exp time.Time
}

var _ Cache = (*Memory)(nil)

// NewMemory creates a bounded in-process cache. maxEntries must be positive.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Memory{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(c.entries, key)
		return nil, false
	}
	return append([]byte(nil), e.val...), true
}

func (c *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}

	e := memoryEntry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.entries[key] = e
}

func (c *Memory) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len returns the number of entries currently held, including any that have
// expired but not yet been evicted.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// evictLocked frees at least one slot. Caller must hold the lock.
func (c *Memory) evictLocked() {
	now := time.Now()
	for key, e := range c.entries {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}

	// Nothing expired: drop the entry closest to expiry. Entries without an
	// expiry are considered farthest away.
	var victim string
	var victimExp time.Time
	first := true
	for key, e := range c.entries {
		exp := e.exp
		if exp.IsZero() {
			exp = now.Add(100 * 365 * 24 * time.Hour)
		}
		if first || exp.Before(victimExp) {
			victim = key
			victimExp = exp
			first = false
		}
	}
	delete(c.entries, victim)
}
