package core

import (
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles noisy log output. It allows one action per interval
// with no burst beyond that.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter admitting one action per interval.
// A non-positive interval disables limiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	if interval <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Allow returns true if an action is allowed based on rate limiting
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.Allow()
}
