package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetryNonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	wantErr := errors.New("invalid_request_error: bad prompt")
	err := withRetry(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetryRetriesOverload(t *testing.T) {
	old := baseBackoff
	baseBackoff = time.Millisecond
	defer func() { baseBackoff = old }()

	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("overloaded_error: try again")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	old := baseBackoff
	baseBackoff = time.Millisecond
	defer func() { baseBackoff = old }()

	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++
		return errors.New("529 overloaded")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != maxAttempts {
		t.Errorf("calls = %d, want %d", calls, maxAttempts)
	}
}

func TestWithRetryHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, func() error {
		return errors.New("overloaded_error")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"overloaded_error: Overloaded", true},
		{"rate_limit_error: too many requests", true},
		{"received 503 Service Unavailable", true},
		{"invalid_request_error: max_tokens required", false},
		{"authentication_error: invalid x-api-key", false},
	}
	for _, tc := range cases {
		if got := isRetryable(errors.New(tc.msg)); got != tc.want {
			t.Errorf("isRetryable(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}
