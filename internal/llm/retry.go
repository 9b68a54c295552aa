package llm

import (
	"context"
	"strings"
	"time"
)

const maxAttempts = 3

var baseBackoff = 2 * time.Second

// withRetry runs fn up to maxAttempts times, backing off exponentially on
// transient API failures. Non-retryable errors return immediately.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	backoff := baseBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt == maxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// isRetryable reports whether the API error is worth retrying: overload,
// rate limiting, or transient server errors.
func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"overloaded",
		"rate_limit",
		"rate limit",
		"429",
		"500",
		"502",
		"503",
		"529",
		"connection reset",
		"timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
