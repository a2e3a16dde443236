// Package ratelimit provides per-key rate limiting using a token bucket.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/modelgate/modelgate/internal/transport/http/middleware/auth"
	"github.com/modelgate/modelgate/internal/types"
)

// bucket holds the token state for one API key.
type bucket struct {
	mu       sync.Mutex
	tokens   float64
	lastFill time.Time
}

// take refills the bucket for the time elapsed since the last call, then
// consumes one token if one is available. The limit is requests per minute
// and also the bucket capacity, so a full minute of idling earns back a full
// burst.
func (b *bucket) take(limit int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens = min(float64(limit), b.tokens+now.Sub(b.lastFill).Seconds()*float64(limit)/60)
	b.lastFill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Limiter tracks token buckets per client API key.
type Limiter struct {
	buckets sync.Map // map[keyID]*bucket
}

// New creates a new rate limiter.
func New() *Limiter {
	return &Limiter{}
}

// Allow reports whether a request under the given key is within its limit.
// A limit of 0 means unlimited.
func (l *Limiter) Allow(keyID string, limit int) bool {
	if limit <= 0 {
		return true
	}
	entry, _ := l.buckets.LoadOrStore(keyID, &bucket{
		tokens:   float64(limit),
		lastFill: time.Now(),
	})
	return entry.(*bucket).take(limit)
}

// Middleware enforces the per-key rate limit. Must run after APIKeyAuth so the
// authenticated key is in the request context; unauthenticated requests pass
// through untouched.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := auth.GetAPIKey(r.Context())
			if key == nil {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(key.ID, key.RateLimit) {
				w.Header().Set("Retry-After", "60")
				types.WriteError(w, http.StatusTooManyRequests,
					types.NewAPIError("rate limit exceeded", types.ErrorTypeRateLimit))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
