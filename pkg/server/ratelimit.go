package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"boardhost/pkg/config"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ipLimiter pairs a token-bucket limiter with the last time its IP was seen,
// so cleanupLoop knows which entries have gone idle long enough to drop.
type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter enforces a per-client-IP token-bucket quota. Every distinct IP
// gets its own bucket, lazily created on first use; a background goroutine
// evicts buckets that have been idle past maxAge so a server fielding
// traffic from many short-lived clients doesn't grow this map forever.
type RateLimiter struct {
	limiters map[string]*ipLimiter
	mu       sync.RWMutex

	requestsPerSecond rate.Limit
	burst             int
	cleanupInterval   time.Duration
	maxAge            time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// RateLimiterStats summarizes a RateLimiter's live state.
type RateLimiterStats struct {
	ActiveLimiters int `json:"active_limiters"`
}

// NewRateLimiter builds a RateLimiter from cfg's rate-limit fields and
// starts its background eviction loop. Idle buckets are kept for 5x the
// cleanup interval before eviction, giving a client that pauses briefly a
// chance to resume without losing its accumulated burst allowance.
func NewRateLimiter(cfg *config.Config) *RateLimiter {
	ctx, cancel := context.WithCancel(context.Background())
	rl := &RateLimiter{
		limiters:          make(map[string]*ipLimiter),
		requestsPerSecond: rate.Limit(cfg.RateLimitRequestsPerSecond),
		burst:             cfg.RateLimitBurst,
		cleanupInterval:   cfg.RateLimitCleanupInterval,
		maxAge:            cfg.RateLimitCleanupInterval * 5,
		ctx:               ctx,
		cancel:            cancel,
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether a request from ip may proceed right now, consuming
// one token from that IP's bucket if so.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.bucketFor(ip).Allow()
}

// bucketFor returns ip's limiter, creating one on first sight and touching
// its last-access time on every call so cleanupLoop leaves active IPs alone.
func (rl *RateLimiter) bucketFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.requestsPerSecond, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter
}

// cleanupLoop periodically sweeps idle buckets until Close cancels rl.ctx.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// evictIdle removes every bucket untouched for longer than maxAge.
func (rl *RateLimiter) evictIdle() {
	cutoff := time.Now().Add(-rl.maxAge)

	rl.mu.Lock()
	var evicted int
	for ip, entry := range rl.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(rl.limiters, ip)
			evicted++
		}
	}
	remaining := len(rl.limiters)
	rl.mu.Unlock()

	if evicted > 0 {
		logrus.WithFields(logrus.Fields{
			"evicted":   evicted,
			"remaining": remaining,
		}).Debug("rate limiter evicted idle buckets")
	}
}

// Close stops the background eviction loop. Safe to call more than once.
func (rl *RateLimiter) Close() {
	if rl.cancel != nil {
		rl.cancel()
	}
}

// GetStats reports how many distinct IP buckets are currently tracked.
func (rl *RateLimiter) GetStats() RateLimiterStats {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return RateLimiterStats{ActiveLimiters: len(rl.limiters)}
}

// RateLimitingMiddleware enforces rl's per-IP quota ahead of next, replying
// 429 Too Many Requests when a client's bucket is empty. A nil rl disables
// rate limiting entirely, letting callers wire this middleware
// unconditionally and toggle it via config.RateLimitEnabled.
func RateLimitingMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			if !rl.Allow(ip) {
				getLoggerFromContext(r.Context()).WithFields(logrus.Fields{
					"client_ip": ip,
					"method":    r.Method,
					"path":      r.URL.Path,
				}).Warn("request rate limited")
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
