package resilience

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionPoolDoRequest(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	pool := NewConnectionPool(DefaultPoolConfig(), NewCircuitBreaker(CircuitBreakerConfig{}))
	defer pool.Close()

	resp, err := pool.DoRequest(context.Background(), http.MethodGet, server.URL, map[string]string{"X-Api-Key": "test-key"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test-key", gotHeader)

	stats := pool.GetStats()
	assert.Equal(t, int64(1), stats["total_requests"])
	assert.Equal(t, int64(0), stats["failed_requests"])
	assert.Equal(t, "closed", stats["circuit_breaker_state"])
}

func TestConnectionPoolRejectsWhenBreakerOpen(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 1,
	})
	pool := NewConnectionPool(DefaultPoolConfig(), cb)
	defer pool.Close()

	// A request against a closed listener trips the breaker.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()
	_, err := pool.DoRequest(context.Background(), http.MethodGet, dead.URL, nil)
	require.Error(t, err)
	require.Equal(t, StateOpen, cb.State())

	_, err = pool.DoRequest(context.Background(), http.MethodGet, server.URL, nil)
	require.Error(t, err)

	var cbErr *CircuitBreakerError
	require.ErrorAs(t, err, &cbErr)
	assert.Equal(t, 0, hits)
	assert.Equal(t, "open", pool.GetStats()["circuit_breaker_state"])
}

func TestConnectionPoolHonorsContextWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	pool := NewConnectionPool(PoolConfig{MaxInFlight: 1}, NewCircuitBreaker(CircuitBreakerConfig{}))
	defer pool.Close()

	started := make(chan struct{})
	go func() {
		close(started)
		resp, err := pool.DoRequest(context.Background(), http.MethodGet, server.URL, nil)
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-started
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := pool.DoRequest(ctx, http.MethodGet, server.URL, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDefaultPoolConfigFillsZeroFields(t *testing.T) {
	pool := NewConnectionPool(PoolConfig{}, NewCircuitBreaker(CircuitBreakerConfig{}))
	defer pool.Close()

	defaults := DefaultPoolConfig()
	stats := pool.GetStats()
	assert.Equal(t, defaults.MaxInFlight, stats["max_in_flight"])
	assert.Equal(t, defaults.MaxIdle, stats["max_idle"])
	assert.Equal(t, defaults.IdleTimeout.Milliseconds(), stats["idle_timeout_ms"])
}
