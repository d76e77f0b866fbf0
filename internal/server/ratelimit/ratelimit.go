// Package ratelimit throttles dashboard API clients with token buckets.
// Each client gets one bucket per matched endpoint tier, so every strategy ID
// under a pattern such as /strategies/*/regenerate draws from the same budget.
package ratelimit

import (
	"sync"
	"time"
)

// tokenBucket holds up to capacity tokens and refills at refillRate tokens
// per second.
type tokenBucket struct {
	capacity   int
	refillRate float64
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(capacity int, refillRate float64, now time.Time) *tokenBucket {
	return &tokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: now,
	}
}

// refill must be called with mu held.
func (tb *tokenBucket) refill(now time.Time) {
	if elapsed := now.Sub(tb.lastRefill); elapsed > 0 {
		tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed.Seconds()*tb.refillRate)
		tb.lastRefill = now
	}
}

// untilFull must be called with mu held.
func (tb *tokenBucket) untilFull() time.Duration {
	missing := float64(tb.capacity) - tb.tokens
	if missing <= 0 || tb.refillRate <= 0 {
		return 0
	}
	return time.Duration(missing / tb.refillRate * float64(time.Second))
}

// take consumes one token when available. The remaining count and the reset
// time are read under the same lock as the decision.
func (tb *tokenBucket) take(now time.Time) (allowed bool, remaining int, resetTime time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(now)
	if tb.tokens >= 1 {
		tb.tokens--
		allowed = true
	}
	return allowed, int(tb.tokens), now.Add(tb.untilFull())
}

// full reports whether the bucket has refilled to capacity, i.e. it is
// indistinguishable from a new one.
func (tb *tokenBucket) full(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(now)
	return tb.tokens >= float64(tb.capacity)
}

// Info describes the outcome of one Allow call.
type Info struct {
	Allowed    bool
	Tier       string // matched endpoint pattern; empty for the default tier
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

type bucketKey struct {
	client string
	tier   string
	method string
}

// Limiter manages the buckets of every client.
type Limiter struct {
	config *Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[bucketKey]*tokenBucket

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewLimiter creates a limiter. A nil config allows 1000 requests per minute
// on every endpoint.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}

	l := &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[bucketKey]*tokenBucket),
	}

	if config.Enabled && config.CleanupInterval > 0 {
		l.stop = make(chan struct{})
		l.done = make(chan struct{})
		go l.cleanupLoop(config.CleanupInterval)
	}

	return l
}

// Allow records one request from clientID to path and reports whether it may
// proceed.
func (l *Limiter) Allow(clientID string, path string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{Allowed: false}
	}

	tier := MatchEndpoint(path, method, l.config.EndpointConfigs)
	if tier == nil {
		tier = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}
	if tier.Limit <= 0 {
		return true, Info{Allowed: true, Tier: tier.Path}
	}

	// Unmatched paths are keyed by the path itself
	key := bucketKey{client: clientID, tier: tier.Path, method: method}
	if key.tier == "" {
		key.tier = path
	}

	now := l.now()
	allowed, remaining, resetTime := l.bucket(key, tier, now).take(now)

	info := Info{
		Allowed:   allowed,
		Tier:      tier.Path,
		Limit:     tier.Limit,
		Remaining: remaining,
		ResetTime: resetTime,
	}
	if !allowed {
		info.RetryAfter = max(resetTime.Sub(now), 0)
	}
	return allowed, info
}

// bucket returns the bucket for key, creating a full one on first use.
func (l *Limiter) bucket(key bucketKey, tier *EndpointConfig, now time.Time) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}

	capacity := tier.Burst
	if capacity <= 0 {
		capacity = tier.Limit
	}
	b := newTokenBucket(capacity, float64(tier.Limit)/tier.Window.Seconds(), now)
	l.buckets[key] = b
	return b
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	defer close(l.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupBuckets()
		case <-l.stop:
			return
		}
	}
}

// cleanupBuckets drops every bucket that has refilled to capacity. A dropped
// bucket is recreated full on the next request, so no budget is lost or gained.
func (l *Limiter) cleanupBuckets() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.full(now) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	if l.stop == nil {
		return
	}
	l.stopOnce.Do(func() {
		close(l.stop)
		<-l.done
	})
}
