// Package cache is a read-through accelerator in front of the link store.
// It is a pure performance optimization: a miss never means "link does not
// exist", and lookups fall back to the store on any backend trouble.
package cache

import (
	"context"
	"time"
)

// DefaultTTL bounds how long a cached target URL may be served without
// consulting the store.
const DefaultTTL = time.Hour

// LinkCache caches the redirect target and the public stats fields by
// short code. Get returns (value, true) only on a usable hit; Set is
// best-effort. Invalidate must report failure so mutations can refuse to
// proceed when a stale entry might survive them.
type LinkCache interface {
	GetURL(ctx context.Context, code string) (string, bool)
	SetURL(ctx context.Context, code, originalURL string, ttl time.Duration)
	GetStats(ctx context.Context, code string) (map[string]string, bool)
	SetStats(ctx context.Context, code string, fields map[string]string, ttl time.Duration)
	Invalidate(ctx context.Context, code string) error
}
