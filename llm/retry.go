package llm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls automatic retries of transient provider failures.
// Delays are in seconds.
type RetryPolicy struct {
	MaxRetries        int
	BaseDelay         float64
	MaxDelay          float64
	BackoffMultiplier float64
	Jitter            bool
}

// DefaultRetryPolicy returns the policy used by Client unless overridden:
// two retries with exponential backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         1.0,
		MaxDelay:          60.0,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Delay computes the backoff delay before the given retry attempt.
// Attempts are numbered from zero.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay * math.Pow(p.BackoffMultiplier, float64(attempt))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter {
		delay *= 0.5 + rand.Float64()*0.5
	}
	return time.Duration(delay * float64(time.Second))
}

// Retry runs fn, retrying per policy when the error is retryable. A
// RateLimitError with a provider-supplied RetryAfter overrides the computed
// backoff, capped at MaxDelay. Context cancellation during a wait returns
// an AbortError wrapping the last failure.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func() (T, error)) (T, error) {
	result, err := fn()
	if err == nil {
		return result, nil
	}

	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		if !IsRetryable(err) {
			return result, err
		}

		delay := policy.Delay(attempt)
		var rateLimit *RateLimitError
		if errors.As(err, &rateLimit) && rateLimit.RetryAfter > 0 {
			after := rateLimit.RetryAfter
			if after > policy.MaxDelay {
				after = policy.MaxDelay
			}
			delay = time.Duration(after * float64(time.Second))
		}

		select {
		case <-ctx.Done():
			return result, &AbortError{ModelError{Message: "request aborted during retry wait", Cause: err}}
		case <-time.After(delay):
		}

		result, err = fn()
		if err == nil {
			return result, nil
		}
	}

	return result, err
}
