package scraper

import (
	"context"
	"math/rand/v2"
	"time"
)

type retryPolicy struct {
	maxRetries int
	base       time.Duration
	max        time.Duration
	jitter     bool
}

func newRetryPolicy(opts Options) retryPolicy {
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retryPolicy{
		maxRetries: maxRetries,
		base:       opts.RetryBackoff,
		max:        opts.RetryBackoffMax,
		jitter:     opts.RetryJitter,
	}
}

// backoff returns the wait before retry number attempt (1-based).
func (p retryPolicy) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := p.base
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	shift := attempt - 1
	if shift > 16 {
		shift = 16
	}
	delay := base * time.Duration(1<<shift)
	if p.max > 0 && delay > p.max {
		delay = p.max
	}
	if p.jitter && delay > 1 {
		half := delay / 2
		delay = half + time.Duration(rand.Int64N(int64(delay-half)+1))
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
