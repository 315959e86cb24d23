package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sendrelay/smsgw/internal/auth"
	"github.com/sendrelay/smsgw/internal/observability"
	"github.com/sendrelay/smsgw/internal/util"
)

// Rate limiter defaults.
const (
	// DefaultKeyTTL is how long an idle per-key limiter is retained.
	DefaultKeyTTL = 10 * time.Minute

	// cleanupInterval is how often idle limiters are evicted.
	cleanupInterval = time.Minute
)

// limiterEntry holds a per-key limiter and its last access time for
// TTL-based cleanup.
type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// KeyRateLimiter applies a token-bucket limit per API key. Each key's
// allowance comes from its stored record; keys without one fall back to
// the configured default. Routes declaring their own allowance get a
// separate bucket per (key, route) pair via AllowRoute.
type KeyRateLimiter struct {
	defaultRPS   int
	defaultBurst int
	keyTTL       time.Duration

	mu      sync.Mutex
	entries map[string]*limiterEntry

	logger  observability.Logger
	metrics *observability.Metrics

	stopOnce sync.Once
	stopCh   chan struct{}
}

// KeyRateLimiterOption is a functional option for the rate limiter.
type KeyRateLimiterOption func(*KeyRateLimiter)

// WithRateLimiterLogger sets the logger.
func WithRateLimiterLogger(logger observability.Logger) KeyRateLimiterOption {
	return func(rl *KeyRateLimiter) {
		rl.logger = logger
	}
}

// WithRateLimiterMetrics sets the metrics.
func WithRateLimiterMetrics(metrics *observability.Metrics) KeyRateLimiterOption {
	return func(rl *KeyRateLimiter) {
		rl.metrics = metrics
	}
}

// WithKeyTTL sets how long idle per-key limiters are retained.
func WithKeyTTL(ttl time.Duration) KeyRateLimiterOption {
	return func(rl *KeyRateLimiter) {
		rl.keyTTL = ttl
	}
}

// NewKeyRateLimiter creates a new per-key rate limiter. A key's refill
// rate is its record's allowance, or defaultRPS when unset; burst equals
// the refill rate.
func NewKeyRateLimiter(defaultRPS, defaultBurst int, opts ...KeyRateLimiterOption) *KeyRateLimiter {
	rl := &KeyRateLimiter{
		defaultRPS:   defaultRPS,
		defaultBurst: defaultBurst,
		keyTTL:       DefaultKeyTTL,
		entries:      make(map[string]*limiterEntry),
		logger:       observability.NopLogger(),
		stopCh:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(rl)
	}

	go rl.cleanupLoop()

	return rl
}

// Allow reports whether the key may make another request right now.
// keyRPS is the key's own allowance; zero means use the default.
func (rl *KeyRateLimiter) Allow(keyID string, keyRPS int) bool {
	return rl.allow(keyID, keyRPS)
}

// AllowRoute reports whether the key may make another request to the
// given route right now. Each (key, route) pair gets its own bucket with
// the route's allowance, independent of the key-wide bucket.
func (rl *KeyRateLimiter) AllowRoute(keyID, pattern string, routeRPS int) bool {
	return rl.allow(keyID+" "+pattern, routeRPS)
}

func (rl *KeyRateLimiter) allow(bucket string, keyRPS int) bool {
	now := time.Now()

	rl.mu.Lock()
	entry, ok := rl.entries[bucket]
	if !ok {
		rps := keyRPS
		if rps <= 0 {
			rps = rl.defaultRPS
		}
		burst := rps
		if keyRPS <= 0 && rl.defaultBurst > 0 {
			burst = rl.defaultBurst
		}
		entry = &limiterEntry{
			limiter:    rate.NewLimiter(rate.Limit(rps), burst),
			lastAccess: now,
		}
		rl.entries[bucket] = entry
	} else {
		entry.lastAccess = now
	}
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

// Stop terminates the cleanup loop.
func (rl *KeyRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

// cleanupLoop evicts limiters that have been idle longer than the TTL.
func (rl *KeyRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *KeyRateLimiter) evictIdle() {
	cutoff := time.Now().Add(-rl.keyTTL)

	rl.mu.Lock()
	for bucket, entry := range rl.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(rl.entries, bucket)
		}
	}
	rl.mu.Unlock()
}

// RateLimit returns a middleware that applies the per-key limit to
// authenticated requests. Unauthenticated requests pass through; the
// permission gate downstream handles them.
func RateLimit(rl *KeyRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := auth.CallerFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if !rl.Allow(caller.APIKeyID, caller.RateLimit) {
				rl.logger.Warn("rate limit exceeded",
					observability.String("api_key_id", caller.APIKeyID),
					observability.String("user_id", caller.UserID),
					observability.String("path", r.URL.Path),
				)
				if rl.metrics != nil {
					rl.metrics.RecordRateLimitHit(caller.APIKeyID)
				}

				w.Header().Set("Retry-After", "1")
				util.WriteJSONError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
