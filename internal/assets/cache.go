package assets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Source names one of the lists the catalogue reads through the cache.
type Source string

const (
	SourceStore    Source = "store"
	SourceVault    Source = "vault"
	SourcePlatform Source = "platform"
)

// Cache is a read-through cache for source lists. Values are opaque
// encoded payloads; a miss returns ok=false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string, source Source) error
}

const cacheKeyPrefix = "persona:assets"

// CacheKey addresses one user's list for one source. Category is empty for
// sources that are not fetched per category.
func CacheKey(userID string, source Source, category Category) string {
	if category == "" {
		category = "all"
	}
	return fmt.Sprintf("%s:%s:%s:%s", cacheKeyPrefix, userID, source, category)
}

func cacheKeyPattern(userID string, source Source) string {
	return fmt.Sprintf("%s:%s:%s:", cacheKeyPrefix, userID, source)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache keeps entries in process. It backs tests and single-node
// deployments without Redis.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryCache) Invalidate(_ context.Context, userID string, source Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := cacheKeyPattern(userID, source)
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}
