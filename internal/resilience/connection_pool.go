package resilience

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"log/slog"
)

// PoolConfig sizes the HTTP pool for a single upstream host.
type PoolConfig struct {
	// MaxInFlight caps concurrent requests to the upstream. Requests
	// beyond the cap wait for a slot or their context deadline.
	MaxInFlight int

	// MaxIdle is how many keep-alive connections the transport retains.
	MaxIdle int

	// IdleTimeout is how long an unused keep-alive connection survives.
	IdleTimeout time.Duration

	// RequestTimeout bounds a single request end to end.
	RequestTimeout time.Duration
}

// DefaultPoolConfig returns sizes matched to the Congress.gov client:
// the API is consumed at roughly one request per second, so even with
// concurrent sync workers a handful of connections is plenty.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxInFlight:    8,
		MaxIdle:        4,
		IdleTimeout:    90 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// ConnectionPool issues HTTP requests to one upstream through a shared
// keep-alive transport, bounded by an in-flight cap and guarded by a
// circuit breaker.
type ConnectionPool struct {
	config  PoolConfig
	breaker *CircuitBreaker
	client  *http.Client
	slots   chan struct{}

	requests atomic.Int64
	failures atomic.Int64
}

// NewConnectionPool creates a pool around one upstream host. Zero
// config fields fall back to DefaultPoolConfig values.
func NewConnectionPool(config PoolConfig, breaker *CircuitBreaker) *ConnectionPool {
	defaults := DefaultPoolConfig()
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = defaults.MaxInFlight
	}
	if config.MaxIdle <= 0 {
		config.MaxIdle = defaults.MaxIdle
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}

	transport := &http.Transport{
		MaxConnsPerHost:       config.MaxInFlight,
		MaxIdleConnsPerHost:   config.MaxIdle,
		MaxIdleConns:          config.MaxIdle,
		IdleConnTimeout:       config.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.RequestTimeout,
	}

	return &ConnectionPool{
		config:  config,
		breaker: breaker,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.RequestTimeout,
		},
		slots: make(chan struct{}, config.MaxInFlight),
	}
}

// DoRequest executes one request through the pool. It blocks for an
// in-flight slot, so callers bound the wait with their context.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	select {
	case cp.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-cp.slots }()

	cp.requests.Add(1)

	var resp *http.Response
	err := cp.breaker.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return err
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		start := time.Now()
		resp, err = cp.client.Do(req)
		if err != nil {
			cp.failures.Add(1)
			slog.Warn("Upstream request failed",
				"url", url,
				"error", err,
				"duration_ms", time.Since(start).Milliseconds())
			return err
		}

		slog.Debug("Upstream request completed",
			"url", url,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// GetStats returns pool usage counters and the breaker state
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"in_flight":             len(cp.slots),
		"max_in_flight":         cp.config.MaxInFlight,
		"max_idle":              cp.config.MaxIdle,
		"idle_timeout_ms":       cp.config.IdleTimeout.Milliseconds(),
		"total_requests":        cp.requests.Load(),
		"failed_requests":       cp.failures.Load(),
		"circuit_breaker_state": cp.breaker.State().String(),
	}
}

// Close drops the transport's keep-alive connections
func (cp *ConnectionPool) Close() error {
	cp.client.CloseIdleConnections()
	slog.Info("Upstream connection pool closed")
	return nil
}
