package visittoken

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

type MemoryLedger struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	now    func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{tokens: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryLedger) Claim(_ context.Context, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if expires, exists := l.tokens[token]; exists && l.now().Before(expires) {
		return false, nil
	}
	l.tokens[token] = l.now().Add(ttl)
	return true, nil
}

// Prune forgets claims whose token can no longer validate.
func (l *MemoryLedger) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, expires := range l.tokens {
		if !l.now().Before(expires) {
			delete(l.tokens, key)
			removed++
		}
	}
	return removed
}

// RedisLedger shares claims between API replicas.
type RedisLedger struct {
	client *redis.Client
	prefix string
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client, prefix: "persona:visit:"}
}

func (l *RedisLedger) Claim(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+token, 1, ttl).Result()
}
