package modelgateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingClient struct {
	failuresBeforeSuccess int
	err                   error
	calls                 int
}

func (c *countingClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	c.calls++
	if c.calls <= c.failuresBeforeSuccess {
		return nil, c.err
	}
	return &Response{Content: "ok"}, nil
}

func TestWithRetry_RetriesTransientFailures(t *testing.T) {
	inner := &countingClient{failuresBeforeSuccess: 2, err: &TransientError{Cause: errors.New("timeout")}}
	client := WithRetry(inner, RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})

	resp, err := client.Complete(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("expected eventual success, got %q", resp.Content)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts (2 failures + success), got %d", inner.calls)
	}
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &countingClient{failuresBeforeSuccess: 100, err: &TransientError{Cause: errors.New("down")}}
	client := WithRetry(inner, RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})

	_, err := client.Complete(context.Background(), &Request{})
	if err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
	if inner.calls != 3 {
		t.Fatalf("expected MaxRetries+1=3 attempts, got %d", inner.calls)
	}
}

func TestWithRetry_NonTransientErrorSkipsRetry(t *testing.T) {
	inner := &countingClient{failuresBeforeSuccess: 100, err: ErrEmptyCompletion}
	client := WithRetry(inner, DefaultRetryPolicy())

	_, err := client.Complete(context.Background(), &Request{})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion to surface immediately, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-transient error, got %d", inner.calls)
	}
}

func TestWithRetry_RespectsContextCancellation(t *testing.T) {
	inner := &countingClient{failuresBeforeSuccess: 100, err: &TransientError{Cause: errors.New("down")}}
	client := WithRetry(inner, RetryPolicy{MaxRetries: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Complete(ctx, &Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoffDelay_CapsAtMaxDelay(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Second, MaxDelay: 2 * time.Second}
	d := backoffDelay(policy, 10)
	if d > policy.MaxDelay {
		t.Fatalf("expected delay capped at %v, got %v", policy.MaxDelay, d)
	}
}
