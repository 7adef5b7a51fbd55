package util

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket guarding the render endpoint. The server
// never queues throttled callers, so only the non-blocking check is
// exposed.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter returns a bucket refilling at r tokens per second with
// capacity b.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// Allow reports whether n tokens are available now, consuming them when
// they are. A rejected render request is answered with 429.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}
