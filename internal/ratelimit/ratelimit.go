/*
Package ratelimit implements the per-backend adaptive token-bucket limiter
described in spec.md section 4.3.

The limiter itself is golang.org/x/time/rate, the same token-bucket package
yomira's HTTP middleware and the rreading-glasses metadata proxy both use to
pace outbound/inbound traffic. What's engine-specific is the governor: an
atomically-swapped *rate.Limiter slot so a drainer can rebuild the limiter
at a slower rate after a 429 without ever stopping the drainer goroutine or
taking a lock another task could contend on. Because each backend has
exactly one drainer, the swap slot is never written concurrently by two
goroutines, so a plain atomic.Pointer is sufficient (no CAS loop needed on
the write side; reads are always safe).
*/
package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	minSlowdown = 1
	maxSlowdown = 16
	// recoveryQuiet is how long a backend must go without a fresh
	// rate_limited outcome before its slowdown factor resets to 1.
	recoveryQuiet = 30 * time.Second
)

// Adaptive is a single backend's rate-limit governor. Safe for concurrent
// Acquire calls in general, but spec.md guarantees exactly one drainer
// calls Acquire/OnRateLimited/OnSuccess for a given Adaptive, so there is
// never cross-task contention on the governor itself.
type Adaptive struct {
	baseRate rate.Limit
	burst    int

	limiter atomic.Pointer[rate.Limiter]

	slowdown         atomic.Int64 // one of 1,2,4,8,16
	lastThrottleUnix atomic.Int64 // unix nanos; 0 means "never"
}

// New creates a governor ticking at baseRate queries/sec with the given
// burst size (1 is typical: strictly sequential pacing).
func New(baseRate float64, burst int) *Adaptive {
	a := &Adaptive{baseRate: rate.Limit(baseRate), burst: burst}
	a.slowdown.Store(minSlowdown)
	a.limiter.Store(rate.NewLimiter(a.baseRate, burst))
	return a
}

// Acquire blocks (respecting ctx) until a token is available at the
// currently configured rate. It returns the wait duration observed, so
// callers can decide whether it's worth emitting a RateLimitWait progress
// event.
func (a *Adaptive) Acquire(ctx context.Context) (waited time.Duration, err error) {
	started := time.Now()
	if err := a.limiter.Load().Wait(ctx); err != nil {
		return time.Since(started), err
	}
	return time.Since(started), nil
}

// OnRateLimited doubles the slowdown factor (capped at 16), rebuilds the
// limiter at baseRate/factor, and atomically swaps it in. It returns the
// new factor.
func (a *Adaptive) OnRateLimited() int {
	var next int64
	for {
		cur := a.slowdown.Load()
		next = cur * 2
		if next > maxSlowdown {
			next = maxSlowdown
		}
		if a.slowdown.CompareAndSwap(cur, next) {
			break
		}
	}
	a.lastThrottleUnix.Store(time.Now().UnixNano())
	a.limiter.Store(rate.NewLimiter(a.baseRate/rate.Limit(next), a.burst))
	return int(next)
}

// OnSuccess is called after every successful (non-throttled) query. If the
// backend has been quiet (no throttling) for at least recoveryQuiet and is
// currently slowed down, it resets to factor 1.
func (a *Adaptive) OnSuccess() {
	if a.slowdown.Load() == minSlowdown {
		return
	}
	last := a.lastThrottleUnix.Load()
	if last == 0 {
		return
	}
	if time.Since(time.Unix(0, last)) < recoveryQuiet {
		return
	}
	if a.slowdown.CompareAndSwap(a.slowdown.Load(), minSlowdown) {
		a.limiter.Store(rate.NewLimiter(a.baseRate, a.burst))
	}
}

// Slowdown returns the current slowdown factor, for metrics/diagnostics.
func (a *Adaptive) Slowdown() int {
	return int(a.slowdown.Load())
}
