package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"custodian/pkg/platform/sentinel"
)

// RetryPolicy bounds the exponential backoff applied to transient store
// failures. MaxElapsed <= 0 disables retrying entirely (single attempt),
// which tests use to observe raw transient outcomes.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
	CallTimeout     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsed:      10 * time.Second,
		CallTimeout:     5 * time.Second,
	}
}

// errRetriesExhausted marks a transient failure that survived the full
// backoff budget. The coordinator surfaces it as a permanent store error.
var errRetriesExhausted = errors.New("retries exhausted")

// isTransient reports whether a store failure is worth retrying: explicit
// unavailability, network timeouts, and per-call deadline hits. Everything
// else (not-found, conflicts, malformed data) aborts immediately.
func isTransient(err error) bool {
	if errors.Is(err, sentinel.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// withRetry runs fn under the retry policy, applying the per-call timeout on
// each attempt. Non-transient errors abort immediately and are returned
// unwrapped so sentinel checks keep working.
func (c *Coordinator) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	call := func(attemptCtx context.Context) error {
		if c.retry.CallTimeout <= 0 {
			return fn(attemptCtx)
		}
		callCtx, cancel := context.WithTimeout(attemptCtx, c.retry.CallTimeout)
		defer cancel()
		return fn(callCtx)
	}

	if c.retry.MaxElapsed <= 0 {
		return call(ctx)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retry.InitialInterval
	bo.MaxInterval = c.retry.MaxInterval
	bo.MaxElapsedTime = c.retry.MaxElapsed

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := call(ctx)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		if c.metrics != nil {
			c.metrics.StoreRetries.Inc()
		}
		c.logger.Debug("retrying transient store failure",
			"op", op, "attempt", attempts, "error", err)
		return err
	}, backoff.WithContext(bo, ctx))
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, errRetriesExhausted, err)
	}
	return err
}
