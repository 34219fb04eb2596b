package aerrors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsEventually(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, JitterFactor: 0}
	attempts := 0
	err := Retry(context.Background(), cfg, nil, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return Wrap(NetworkFailure, "fetch", errors.New("boom"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnPermanentKind(t *testing.T) {
	cfg := DefaultRetryConfig()
	attempts := 0
	err := Retry(context.Background(), cfg, nil, func(ctx context.Context) error {
		attempts++
		return New(InvalidArgument, "validate", "bad url")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cfg := CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Millisecond}
	cb := NewCircuitBreaker("web-store", cfg)

	assert.True(t, cb.Allow())
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	time.Sleep(2 * time.Millisecond)
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
}
