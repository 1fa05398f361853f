package eval

import (
	"context"
	"time"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
)

// retryMaxAttempts/retryBaseDelay mirror the exponential-backoff shape
// used elsewhere in the teacher's tool layer, scaled down for an eval
// run's own per-task timeout budget rather than an outbound HTTP call.
const (
	retryMaxAttempts = 3
	retryBaseDelay   = 200 * time.Millisecond
)

// withRetry runs fn, retrying with exponential backoff only when the
// failure is apperr.Retriable (StoreUnavailable, EmbedderUnavailable,
// LLMUnavailable) — spec.md §7's "retried only at the top-level
// evaluation harness" behavior for StoreUnavailable. A non-retriable
// error or a context cancellation returns immediately.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	var err error
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		var result T
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if !apperr.Retriable(err) {
			return zero, err
		}
		if attempt == retryMaxAttempts-1 {
			break
		}
		delay := retryBaseDelay * (1 << attempt)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, err
}
