package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/viccon/sturdyc"
)

const (
	defaultCapacity           = 10000
	defaultShards             = 64
	defaultEvictionPercentage = 10
)

// MemoryStore is an in-process Store. sturdyc fixes the TTL per client, so
// one client is kept per distinct TTL.
type MemoryStore struct {
	capacity int
	shards   int

	mu      sync.RWMutex
	clients map[time.Duration]*sturdyc.Client[[]byte]
}

func NewMemoryStore(capacity, shards int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if shards <= 0 || shards > capacity {
		shards = min(defaultShards, capacity)
	}
	return &MemoryStore{
		capacity: capacity,
		shards:   shards,
		clients:  make(map[time.Duration]*sturdyc.Client[[]byte]),
	}
}

func (s *MemoryStore) client(ttl time.Duration) *sturdyc.Client[[]byte] {
	s.mu.RLock()
	c, ok := s.clients[ttl]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[ttl]; ok {
		return c
	}
	c = sturdyc.New[[]byte](s.capacity, s.shards, ttl, defaultEvictionPercentage,
		sturdyc.WithEvictionInterval(max(ttl/2, time.Second)),
	)
	s.clients[ttl] = c
	return c
}

func (s *MemoryStore) snapshot() []*sturdyc.Client[[]byte] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*sturdyc.Client[[]byte], 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	for _, c := range s.snapshot() {
		if v, ok := c.Get(key); ok {
			return v, true, nil
		}
	}
	return nil, false, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	target := s.client(ttl)
	// a key lives in exactly one client
	for _, c := range s.snapshot() {
		if c != target {
			c.Delete(key)
		}
	}
	target.Set(key, value)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	for _, c := range s.snapshot() {
		for _, key := range keys {
			c.Delete(key)
		}
	}
	return nil
}

func (s *MemoryStore) DeletePattern(ctx context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return err
	}
	for _, c := range s.snapshot() {
		for _, key := range c.ScanKeys() {
			if ok, _ := path.Match(pattern, key); ok {
				c.Delete(key)
			}
		}
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
