// Package cache implements the per-resource object and list cache.
package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented key/value backend with expiry and glob
// invalidation. Patterns use '*' as the only wildcard.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
	Ping(ctx context.Context) error
}
