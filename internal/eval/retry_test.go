package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
)

func TestWithRetrySucceedsAfterRetriableFailures(t *testing.T) {
	calls := 0
	result, err := withRetry(context.Background(), func() (int, error) {
		calls++
		if calls < retryMaxAttempts {
			return 0, apperr.New(apperr.StoreUnavailable, "connection reset")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, retryMaxAttempts, calls)
}

func TestWithRetryDoesNotRetryNonRetriableError(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), func() (int, error) {
		calls++
		return 0, apperr.New(apperr.BadInput, "malformed question")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, apperr.Is(err, apperr.BadInput))
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), func() (int, error) {
		calls++
		return 0, apperr.New(apperr.LLMUnavailable, "rate limited")
	})

	require.Error(t, err)
	assert.Equal(t, retryMaxAttempts, calls)
	assert.True(t, apperr.Is(err, apperr.LLMUnavailable))
}

func TestWithRetryReturnsContextErrOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := withRetry(ctx, func() (int, error) {
		calls++
		return 0, apperr.New(apperr.StoreUnavailable, "connection reset")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}
