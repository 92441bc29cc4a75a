package admission

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedError is returned when the bucket cannot cover a request.
type RateLimitedError struct {
	Requested int
	Available float64
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf(
		"rate limited: requested weight %d, %.2f available",
		e.Requested,
		e.Available,
	)
}

// RateLimiter is a weighted token bucket with continuous refill. It never
// blocks: callers get a RateLimitedError and decide whether to wait.
type RateLimiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	capacity int
	refill   float64
	now      func() time.Time
}

// NewRateLimiter creates a full bucket holding capacity tokens and refilling
// refillPerSecond tokens per second.
func NewRateLimiter(capacity int, refillPerSecond float64) *RateLimiter {
	return &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(refillPerSecond), capacity),
		capacity: capacity,
		refill:   refillPerSecond,
		now:      time.Now,
	}
}

// Admit takes weight tokens if they are available.
func (r *RateLimiter) Admit(weight int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.limiter.AllowN(now, weight) {
		return nil
	}

	return &RateLimitedError{
		Requested: weight,
		Available: r.limiter.TokensAt(now),
	}
}

// Available reports the tokens the bucket holds right now.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.limiter.TokensAt(r.now())
}

func (r *RateLimiter) Capacity() int {
	return r.capacity
}

// RefillRate is in tokens per second.
func (r *RateLimiter) RefillRate() float64 {
	return r.refill
}
