package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fitstack/fitstack-backend/internal/config"
)

// RateLimiter throttles failed attempts per (caller address, endpoint
// class). Once the failure count for a key reaches the class threshold the
// address is locked out for the class's window.
type RateLimiter interface {
	IsBlocked(address string, class config.EndpointClass) bool
	RecordFailure(address string, class config.EndpointClass)
	// RecordSuccess clears both the counter and any lockout for the key.
	RecordSuccess(address string, class config.EndpointClass)
	// RemainingLockout returns seconds until the lockout ends, 0 if none.
	RemainingLockout(address string, class config.EndpointClass) int64
}

type rateLimitEntry struct {
	attempts    int
	windowStart time.Time
	lockedUntil time.Time
}

// MemoryRateLimiter keeps counters in a single mutex-protected map. The
// increment-compare-lockout sequence runs under the lock, so concurrent
// failures for one key cannot race past the threshold.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	entries  map[string]*rateLimitEntry
	policies map[config.EndpointClass]config.RateLimitPolicy
	done     chan struct{}
}

func NewMemoryRateLimiter(cfg *config.Config) *MemoryRateLimiter {
	l := &MemoryRateLimiter{
		entries:  make(map[string]*rateLimitEntry),
		policies: cfg.RateLimits,
		done:     make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

func (l *MemoryRateLimiter) policy(class config.EndpointClass) config.RateLimitPolicy {
	if p, ok := l.policies[class]; ok {
		return p
	}
	return l.policies[config.EndpointGeneral]
}

func (l *MemoryRateLimiter) IsBlocked(address string, class config.EndpointClass) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key(address, class)]
	if !ok {
		return false
	}
	return time.Now().Before(e.lockedUntil)
}

func (l *MemoryRateLimiter) RecordFailure(address string, class config.EndpointClass) {
	p := l.policy(class)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	k := key(address, class)
	e, ok := l.entries[k]
	if !ok {
		e = &rateLimitEntry{windowStart: now}
		l.entries[k] = e
	}

	// Counters decay: a failure landing after twice the lockout window
	// starts a fresh count instead of piling onto stale history. Decay
	// only applies while no lockout is running; an active lockout holds
	// until its deadline no matter what else arrives.
	if now.Sub(e.windowStart) > 2*p.Lockout && !now.Before(e.lockedUntil) {
		e.attempts = 0
		e.windowStart = now
		e.lockedUntil = time.Time{}
	}

	e.attempts++

	// An active lockout is never extended by further failures; the window
	// was computed once when the threshold was crossed.
	if e.attempts >= p.MaxAttempts && !now.Before(e.lockedUntil) {
		e.lockedUntil = now.Add(p.Lockout)
		slog.Warn("address locked out",
			"address", address, "class", string(class),
			"attempts", e.attempts, "lockout_minutes", int(p.Lockout.Minutes()))
	}
}

func (l *MemoryRateLimiter) RecordSuccess(address string, class config.EndpointClass) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key(address, class))
}

func (l *MemoryRateLimiter) RemainingLockout(address string, class config.EndpointClass) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key(address, class)]
	if !ok {
		return 0
	}
	remaining := time.Until(e.lockedUntil)
	if remaining <= 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

func (l *MemoryRateLimiter) Stop() {
	close(l.done)
}

// sweepLoop drops stale entries: no active lockout and no activity for
// longer than twice the largest lockout window.
func (l *MemoryRateLimiter) sweepLoop() {
	var maxLockout time.Duration
	for _, p := range l.policies {
		if p.Lockout > maxLockout {
			maxLockout = p.Lockout
		}
	}

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			l.mu.Lock()
			for k, e := range l.entries {
				if now.After(e.lockedUntil) && now.Sub(e.windowStart) > 2*maxLockout {
					delete(l.entries, k)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

func key(address string, class config.EndpointClass) string {
	return address + ":" + string(class)
}
