package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/digest/internal/llm"
)

const (
	defaultMaxRetries  = 2
	defaultBackoffBase = time.Second
	backoffMultiplier  = 2
)

// RetryPolicy bounds how provider calls are retried. Only timeout and
// rate-limit failures are retried; everything else propagates immediately.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BackoffBase is the delay before the first retry; each further retry
	// doubles it. Rate-limit retries wait at least the provider's
	// Retry-After when it is longer.
	BackoffBase time.Duration
}

// DefaultRetryPolicy returns the standard policy: 3 total attempts, 1s base.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: defaultMaxRetries, BackoffBase: defaultBackoffBase}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = defaultBackoffBase
	}
	return p
}

// callWithRetry runs fn with classified retry/backoff. Retries happen here
// and are invisible to callers until exhausted.
func callWithRetry(ctx context.Context, logger *slog.Logger, label string, policy RetryPolicy, fn func(context.Context) (string, error)) (string, error) {
	policy = policy.normalized()

	var lastErr error
	delay := policy.BackoffBase

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := delay
			if lerr, ok := llm.AsError(lastErr); ok && lerr.Kind == llm.KindRateLimit {
				if ra := time.Duration(lerr.RetryAfter) * time.Second; ra > wait {
					wait = ra
				}
			}
			logger.Warn("retrying llm call",
				"label", label,
				"attempt", attempt+1,
				"wait", wait.String(),
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
			delay *= backoffMultiplier
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		lerr, ok := llm.AsError(err)
		if !ok || !lerr.Retryable() {
			return "", err
		}
	}

	return "", lastErr
}
