package services

import (
	"log/slog"
	"sync"
	"time"
)

// TokenBlacklist records revoked access-token ids (jti) until the token's
// natural expiry. Entries past their expiry are logically absent: the token
// they guard would be rejected on expiry alone.
type TokenBlacklist interface {
	// Add records a jti with a TTL equal to its remaining natural lifetime.
	// No-op for empty jti or already-expired tokens.
	Add(jti string, naturalExpiry time.Time)
	// IsBlacklisted reports whether a jti has been revoked. False for empty
	// jti. When the backend cannot be reached the answer is true: a token
	// that cannot be checked is not trusted.
	IsBlacklisted(jti string) bool
	// Size returns the approximate number of live entries, for monitoring.
	Size() int
}

// MemoryBlacklist keeps entries in-process. Expired entries are pruned
// lazily on Add and by a periodic sweep.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	done    chan struct{}
}

func NewMemoryBlacklist() *MemoryBlacklist {
	b := &MemoryBlacklist{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go b.sweepLoop()
	return b
}

func (b *MemoryBlacklist) Add(jti string, naturalExpiry time.Time) {
	if jti == "" {
		return
	}
	ttl := time.Until(naturalExpiry)
	if ttl <= 0 {
		return
	}

	b.mu.Lock()
	b.prune()
	b.entries[jti] = naturalExpiry
	b.mu.Unlock()

	slog.Info("token blacklisted", "jti", jti, "ttl_seconds", int(ttl.Seconds()))
}

func (b *MemoryBlacklist) IsBlacklisted(jti string) bool {
	if jti == "" {
		return false
	}
	b.mu.RLock()
	expiry, ok := b.entries[jti]
	b.mu.RUnlock()
	return ok && time.Now().Before(expiry)
}

func (b *MemoryBlacklist) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()
	return len(b.entries)
}

func (b *MemoryBlacklist) Stop() {
	close(b.done)
}

// prune removes expired entries. Callers hold the write lock.
func (b *MemoryBlacklist) prune() {
	now := time.Now()
	for jti, expiry := range b.entries {
		if now.After(expiry) {
			delete(b.entries, jti)
		}
	}
}

func (b *MemoryBlacklist) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.mu.Lock()
			b.prune()
			b.mu.Unlock()
		case <-b.done:
			return
		}
	}
}
