// Package ratelimit throttles the gateway surface per client, backed by a
// Redis sliding window with an in-memory fallback for single-node setups.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is the interface the HTTP middleware consumes.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int) (*Result, error)
}

// Result describes one rate limit decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per key in a Redis sorted set scored by
// timestamp; entries older than the window are trimmed on every check.
type Limiter struct {
	client *redis.Client
	window time.Duration
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client, window: time.Minute}
}

func (l *Limiter) Allow(ctx context.Context, key string, limit int) (*Result, error) {
	now := time.Now()
	cutoff := now.Add(-l.window).UnixNano()
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	count := int(countCmd.Val())
	result := &Result{
		Allowed: count < limit,
		Limit:   limit,
		ResetAt: now.Add(l.window),
	}
	if result.Allowed {
		result.Remaining = limit - count - 1
	} else {
		// the rejected request must not count against the window
		l.client.ZRem(ctx, key, member)
	}
	return result, nil
}

// MemoryLimiter is a process-local sliding window for setups without Redis.
type MemoryLimiter struct {
	mu      sync.Mutex
	seen    map[string][]time.Time
	window  time.Duration
	lastGC  time.Time
	gcEvery time.Duration
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		seen:    make(map[string][]time.Time),
		window:  time.Minute,
		gcEvery: 5 * time.Minute,
		lastGC:  time.Now(),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int) (*Result, error) {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	live := l.seen[key][:0]
	for _, ts := range l.seen[key] {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	allowed := len(live) < limit
	if allowed {
		live = append(live, now)
	}
	l.seen[key] = live

	if now.Sub(l.lastGC) > l.gcEvery {
		l.gc(cutoff)
		l.lastGC = now
	}

	remaining := limit - len(live)
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(l.window),
	}, nil
}

// gc drops keys whose entire window has expired so idle clients do not
// accumulate forever.
func (l *MemoryLimiter) gc(cutoff time.Time) {
	for key, timestamps := range l.seen {
		alive := false
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				alive = true
				break
			}
		}
		if !alive {
			delete(l.seen, key)
		}
	}
}
