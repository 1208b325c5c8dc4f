package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 1,
	})

	failing := func() error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Call(failing))
	}
	assert.Equal(t, StateOpen, cb.State())

	// While open, calls are rejected without running the function.
	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)

	var cbErr *CircuitBreakerError
	assert.ErrorAs(t, err, &cbErr)
}

func TestCircuitBreakerRecovers(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Millisecond,
		SuccessThreshold: 2,
	})

	require.Error(t, cb.Call(func() error { return errors.New("boom") }))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(5 * time.Millisecond)

	ok := func() error { return nil }
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})

	require.Error(t, cb.Call(func() error { return errors.New("boom") }))
	require.NoError(t, cb.Call(func() error { return nil }))
	require.Error(t, cb.Call(func() error { return errors.New("boom") }))

	assert.Equal(t, StateClosed, cb.State())
}

func TestRetryWithConfigStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	err := RetryWithConfig(context.Background(), RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		BackoffFactor:   1,
		RetryableErrors: func(error) bool { return false },
	}, func() error {
		attempts++
		return errors.New("permanent")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithConfigRetriesTransient(t *testing.T) {
	attempts := 0
	err := RetryWithConfig(context.Background(), RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		BackoffFactor:   1,
		RetryableErrors: func(error) bool { return true },
	}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestIsTransientError(t *testing.T) {
	assert.False(t, isTransientError(errors.New("plain")))
	assert.False(t, isTransientError(NewCircuitBreakerError("open", StateOpen)))
	assert.True(t, isTransientError(NewHTTPError(503, "503 Service Unavailable")))
	assert.False(t, isTransientError(NewHTTPError(404, "404 Not Found")))
	assert.True(t, isTransientError(context.DeadlineExceeded))
}

func TestDegradationManagerLevels(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.RegisterService("congress_api", nil)

	for i := 0; i < 9; i++ {
		dm.RecordRequest("congress_api", true)
	}
	health, ok := dm.GetServiceHealth("congress_api")
	require.True(t, ok)
	assert.Equal(t, LevelNormal, health.Level)

	dm.RecordError("congress_api", errors.New("upstream 502"))
	health, _ = dm.GetServiceHealth("congress_api")
	assert.Equal(t, LevelDegraded, health.Level)
	assert.Equal(t, "upstream 502", health.LastError)

	for i := 0; i < 10; i++ {
		dm.RecordError("congress_api", errors.New("upstream 502"))
	}
	health, _ = dm.GetServiceHealth("congress_api")
	assert.Equal(t, LevelEmergency, health.Level)
	assert.False(t, dm.IsServiceAvailable("congress_api"))

	dm.ResetService("congress_api")
	health, _ = dm.GetServiceHealth("congress_api")
	assert.Equal(t, LevelNormal, health.Level)
	assert.True(t, dm.IsServiceAvailable("congress_api"))
}

func TestDegradationManagerUnknownService(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())

	_, ok := dm.GetServiceHealth("missing")
	assert.False(t, ok)
	assert.False(t, dm.IsServiceAvailable("missing"))
}
