package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const defaultMemoryCapacity = 1 << 20

// Memory is a process-local cache with a fixed TTL per entry.
type Memory struct {
	cache *ttlcache.Cache[string, Entry]
}

// NewMemory starts the expiry loop; Close stops it.
func NewMemory(ttl time.Duration, capacity uint64) *Memory {
	if capacity == 0 {
		capacity = defaultMemoryCapacity
	}
	c := ttlcache.New(
		ttlcache.WithTTL[string, Entry](ttl),
		ttlcache.WithCapacity[string, Entry](capacity),
		ttlcache.WithDisableTouchOnHit[string, Entry](),
	)
	go c.Start()
	return &Memory{cache: c}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	item := m.cache.Get(key)
	if item == nil || item.IsExpired() {
		return Entry{}, false, nil
	}
	return item.Value(), true, nil
}

func (m *Memory) Set(_ context.Context, key string, entry Entry) error {
	m.cache.Set(key, entry, ttlcache.DefaultTTL)
	return nil
}

func (m *Memory) Len() int {
	return m.cache.Len()
}

func (m *Memory) Close() error {
	m.cache.Stop()
	return nil
}
