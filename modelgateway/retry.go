package modelgateway

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy configures the exponential backoff applied to transient
// provider failures (spec.md §4.5: base 1s, cap 10s, MAX_RETRIES=3).
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns the spec's default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}
}

type retryingClient struct {
	next   Client
	policy RetryPolicy
}

// WithRetry wraps next with exponential-backoff retry for transient
// failures. Non-transient errors (ErrEmptyCompletion, validation, fatal
// 4xx wrapped by the adapter) surface immediately without retrying.
func WithRetry(next Client, policy RetryPolicy) Client {
	return &retryingClient{next: next, policy: policy}
}

func (c *retryingClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		resp, err := c.next.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return nil, err
		}
		if attempt == c.policy.MaxRetries {
			break
		}
		delay := backoffDelay(c.policy, attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// backoffDelay computes an exponential delay capped at policy.MaxDelay,
// with +/-20% jitter to avoid synchronized retries across workflows.
func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	delay := policy.BaseDelay << attempt
	if delay > policy.MaxDelay || delay <= 0 {
		delay = policy.MaxDelay
	}
	jitter := time.Duration(float64(delay) * (0.8 + 0.4*rand.Float64()))
	if jitter > policy.MaxDelay {
		jitter = policy.MaxDelay
	}
	return jitter
}
