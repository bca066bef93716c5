package cache

import (
	"ShelfAPI/internal/logger"
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Layer is the cache of one resource. A Layer without a prefix or store is a
// passthrough: reads go straight to the loader and invalidation is a no-op.
type Layer struct {
	store  Store
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

func NewLayer(store Store, prefix string, ttl time.Duration) *Layer {
	return &Layer{store: store, prefix: prefix, ttl: ttl}
}

func (l *Layer) Enabled() bool {
	return l != nil && l.store != nil && l.prefix != ""
}

func (l *Layer) Prefix() string {
	return l.prefix
}

func (l *Layer) ObjectKey(scope string, pk any) string {
	return ObjectKey(l.prefix, scope, pk)
}

func (l *Layer) ListKey(scope string, filters, excludes any, top, bottom int, order any) (string, error) {
	return ListKey(l.prefix, scope, filters, excludes, top, bottom, order)
}

// Fetch returns the cached bytes for key or calls load on a miss and stores
// the result. Concurrent misses on one key share a single load. Backend
// read and write failures are logged and never fail the call.
func (l *Layer) Fetch(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if !l.Enabled() {
		return load(ctx)
	}
	if data, ok := l.get(ctx, key); ok {
		return data, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		data, err := load(ctx)
		if err != nil {
			return nil, err
		}
		l.Put(ctx, key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (l *Layer) get(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := l.store.Get(ctx, key)
	if err != nil {
		logger.Warn("cache_get_failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
		return nil, false
	}
	if ok {
		logger.Debug("cache_hit", map[string]any{"key": key})
	}
	return data, ok
}

// Put writes through; failures are logged.
func (l *Layer) Put(ctx context.Context, key string, data []byte) {
	if !l.Enabled() {
		return
	}
	if err := l.store.Set(ctx, key, data, l.ttl); err != nil {
		logger.Warn("cache_set_failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// InvalidateObject drops the entry for pk in every scope.
func (l *Layer) InvalidateObject(ctx context.Context, pk any) error {
	if !l.Enabled() {
		return nil
	}
	return l.store.DeletePattern(ctx, ObjectPattern(l.prefix, pk))
}

// InvalidateLists drops every list page of the resource.
func (l *Layer) InvalidateLists(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}
	return l.store.DeletePattern(ctx, ListPattern(l.prefix))
}
