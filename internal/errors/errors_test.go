package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	t.Run("retries retryable errors until success", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 2 {
				return NewExternalAPIError("object storage", errors.New("timeout"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return NewValidationError("bad grade")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			cancel()
			return NewDatabaseError(errors.New("conn reset"))
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	failure := errors.New("storage down")
	for i := 0; i < MinRequests; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return failure }), failure)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(TimeoutDuration)
	for i := 0; i < HalfOpenMaxRequests; i++ {
		require.NoError(t, cb.Call(func() error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

func TestAppErrorCodes(t *testing.T) {
	cause := errors.New("x")

	tests := []struct {
		err  *AppError
		code string
	}{
		{NewValidationError("bad"), CodeValidation},
		{NewDatabaseError(cause), CodeDatabase},
		{NewExternalAPIError("telegram", cause), CodeExternalAPI},
		{NewStateError("locked"), CodeState},
		{NewRateLimitError(3), CodeRateLimit},
		{NewUnauthorizedError("/admin", "role student"), CodeUnauthorized},
		{NewDecodeError(cause), CodeDecode},
		{NewCommitError("create_subject", cause), CodeCommit},
		{NewInternalError(cause), CodeInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code)
		assert.NotEmpty(t, tt.err.UserMessage)
	}

	assert.ErrorIs(t, NewCommitError("create_subject", cause), cause)
	assert.Equal(t, "Object was not created. Try again.", NewCommitError("k", cause).UserMessage)
}
