package inspire

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between vendor API calls.
//
// The vendor throttles accounts that call more than once per second, so
// a single limiter is shared by everything that talks to the cloud:
// the coordinator's polling cycle and user-triggered commands all queue
// through the same instance.
//
// Thread Safety:
//   - Wait is safe for concurrent use. Callers are serialised; each
//     caller gets its own slot, so n concurrent calls spread over at
//     least (n-1) intervals.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewRateLimiter creates a limiter with the given minimum spacing.
// A zero or negative interval disables limiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Wait blocks until the caller may make a vendor call.
//
// The first call ever passes immediately. Subsequent calls wait out the
// remainder of the interval since the previous call completed its wait.
// If ctx is cancelled while waiting the slot is not consumed and
// ctx.Err() is returned.
func (l *RateLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if l.interval > 0 && !l.last.IsZero() {
		remaining := l.interval - time.Since(l.last)
		if remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()

			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	l.last = time.Now()
	return nil
}
