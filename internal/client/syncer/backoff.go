package syncer

import (
	"math/rand"
	"time"
)

// BackoffPolicy computes retry delays for failed queue items:
// min(MaxDelay, Base * 2^retryCount) plus up to Jitter of random spread so a
// fleet of devices regaining connectivity does not retry in lockstep.
type BackoffPolicy struct {
	Base       time.Duration
	MaxDelay   time.Duration
	Jitter     time.Duration
	MaxRetries int

	// jitterFn overrides the random source in tests.
	jitterFn func(max time.Duration) time.Duration
}

// DefaultBackoffPolicy mirrors the production defaults: 2s base doubling up
// to 5m, half a second of jitter, dead-letter after 8 attempts.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Base:       2 * time.Second,
		MaxDelay:   5 * time.Minute,
		Jitter:     500 * time.Millisecond,
		MaxRetries: 8,
	}
}

// Delay returns the wait before attempt retryCount+1. retryCount is the
// number of failures so far.
func (p BackoffPolicy) Delay(retryCount int) time.Duration {
	d := p.Base
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			d = p.MaxDelay
			break
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d + p.jitter()
}

// Exhausted reports whether an item with the given retry count has used up
// its automatic retries and must be dead-lettered.
func (p BackoffPolicy) Exhausted(retryCount int) bool {
	return retryCount > p.MaxRetries
}

func (p BackoffPolicy) jitter() time.Duration {
	if p.Jitter <= 0 {
		return 0
	}
	if p.jitterFn != nil {
		return p.jitterFn(p.Jitter)
	}
	return time.Duration(rand.Int63n(int64(p.Jitter)))
}
