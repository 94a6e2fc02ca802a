package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/gotd/td/tgerr"
	"golang.org/x/time/rate"
)

// RateLimiter controls the frequency of requests made through one session.
// Every task scanning with the same session shares it, since FLOOD_WAIT
// penalties are per account.
type RateLimiter struct {
	limiter *rate.Limiter

	// additional backoff after FLOOD_WAIT
	floodWaitUntil time.Time
	mu             sync.Mutex
}

// NewRateLimiter creates a rate limiter for Telegram.
// rps <= 0 disables the steady limit; flood waits are still honoured.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

// DefaultRateLimiter returns a limiter with conservative settings.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(2.0, 1)
}

// Wait blocks until the next request is allowed.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	waitUntil := r.floodWaitUntil
	r.mu.Unlock()

	if time.Now().Before(waitUntil) {
		timer := time.NewTimer(time.Until(waitUntil))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

// SetFloodWait sets a pause after a FLOOD_WAIT error.
// A shorter wait never shortens an already scheduled one.
func (r *RateLimiter) SetFloodWait(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until := time.Now().Add(d)
	if until.After(r.floodWaitUntil) {
		r.floodWaitUntil = until
	}
}

// Observe inspects an rpc error and schedules a pause if it is a FLOOD_WAIT.
// Returns the wait duration, zero if err is not a flood wait.
func (r *RateLimiter) Observe(err error) time.Duration {
	if err == nil {
		return 0
	}
	d, ok := tgerr.AsFloodWait(err)
	if !ok {
		return 0
	}
	r.SetFloodWait(d)
	return d
}
