// Package cache provides TTL caches shared by the scoring and enrichment
// layers. Values are byte slices so the same interface is served by the
// in-process implementation and by Redis.
package cache

import (
	"context"
	"time"
)

// Cache is a key-value store with per-entry TTL. A zero TTL means the entry
// never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}
