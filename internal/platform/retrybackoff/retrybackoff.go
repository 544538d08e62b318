// Package retrybackoff wraps github.com/cenkalti/backoff/v4 into the
// bounded exponential-backoff policy spec.md §4.6 requires for the
// Ledger's refund compensation path. Only the refund path retries
// in-process (spec.md §4.6 "Retry scope") — every other handler relies on
// broker redelivery instead.
package retrybackoff

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is the refund-path retry policy: maxAttempts = 3, initial delay
// 100ms, multiplier 2, cap 2s (spec.md §4.6).
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		Multiplier:      2,
		MaxInterval:     2 * time.Second,
	}
}

// Permanent wraps err so Run stops retrying immediately, surfacing err
// unwrapped to the caller.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Run executes fn under the bounded exponential backoff policy. fn should
// return a backoff.Permanent-wrapped error (use Permanent) for business
// errors that must not be retried; any other error is treated as a
// transient store error and retried, for at most MaxAttempts calls of fn
// in all.
func Run(ctx context.Context, p Policy, fn func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.Multiplier = p.Multiplier
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0 // bounded by attempt count instead, below

	bounded := backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1))
	withCtx := backoff.WithContext(bounded, ctx)

	return backoff.Retry(fn, withCtx)
}
