package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DegradationLevel represents the current degradation state
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// DegradationConfig holds configuration for graceful degradation
type DegradationConfig struct {
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	DegradedThreshold   float64       `json:"degraded_threshold"`
	CriticalThreshold   float64       `json:"critical_threshold"`
	EmergencyThreshold  float64       `json:"emergency_threshold"`
	HealthCheckTimeout  time.Duration `json:"health_check_timeout"`
}

// DefaultDegradationConfig returns sensible defaults
func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		HealthCheckInterval: 30 * time.Second,
		DegradedThreshold:   0.1,
		CriticalThreshold:   0.25,
		EmergencyThreshold:  0.5,
		HealthCheckTimeout:  5 * time.Second,
	}
}

// ServiceHealth represents the health status of a dependency
type ServiceHealth struct {
	ServiceName   string           `json:"service_name"`
	Level         DegradationLevel `json:"level"`
	Status        string           `json:"status"`
	ErrorRate     float64          `json:"error_rate"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCount    int64            `json:"error_count"`
	LastError     string           `json:"last_error,omitempty"`
	LastErrorTime time.Time        `json:"last_error_time"`
}

// HealthCheckFunc represents a function that checks service health
type HealthCheckFunc func(ctx context.Context) error

// DegradationManager tracks the health of external dependencies and
// exposes an aggregate view for the health endpoint.
type DegradationManager struct {
	config       DegradationConfig
	services     map[string]*ServiceHealth
	healthChecks map[string]HealthCheckFunc
	mutex        sync.RWMutex
}

// NewDegradationManager creates a new degradation manager
func NewDegradationManager(config DegradationConfig) *DegradationManager {
	return &DegradationManager{
		config:       config,
		services:     make(map[string]*ServiceHealth),
		healthChecks: make(map[string]HealthCheckFunc),
	}
}

// RegisterService registers a service with an optional health check
func (dm *DegradationManager) RegisterService(serviceName string, healthCheck HealthCheckFunc) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.services[serviceName] = &ServiceHealth{
		ServiceName: serviceName,
		Level:       LevelNormal,
		Status:      "Service is healthy",
	}
	if healthCheck != nil {
		dm.healthChecks[serviceName] = healthCheck
	}

	slog.Info("Registered service for health tracking", "service", serviceName)
}

// RecordRequest records a request outcome for a service
func (dm *DegradationManager) RecordRequest(serviceName string, success bool) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return
	}

	service.TotalRequests++
	if !success {
		service.ErrorCount++
		service.LastErrorTime = time.Now()
	}

	dm.refresh(service)
}

// RecordError records an error for a service
func (dm *DegradationManager) RecordError(serviceName string, err error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return
	}

	service.TotalRequests++
	service.ErrorCount++
	service.LastError = err.Error()
	service.LastErrorTime = time.Now()

	dm.refresh(service)
}

// refresh recomputes the error rate and degradation level. Callers
// hold the write lock.
func (dm *DegradationManager) refresh(service *ServiceHealth) {
	if service.TotalRequests > 0 {
		service.ErrorRate = float64(service.ErrorCount) / float64(service.TotalRequests)
	}

	oldLevel := service.Level

	switch {
	case service.ErrorRate >= dm.config.EmergencyThreshold:
		service.Level = LevelEmergency
		service.Status = "Service unavailable"
	case service.ErrorRate >= dm.config.CriticalThreshold:
		service.Level = LevelCritical
		service.Status = "Service critical"
	case service.ErrorRate >= dm.config.DegradedThreshold:
		service.Level = LevelDegraded
		service.Status = "Service degraded"
	default:
		service.Level = LevelNormal
		service.Status = "Service is healthy"
	}

	if oldLevel != service.Level {
		slog.Warn("Service health level changed",
			"service", service.ServiceName,
			"old_level", oldLevel.String(),
			"new_level", service.Level.String(),
			"error_rate", service.ErrorRate)
	}
}

// GetServiceHealth returns the health status of a service
func (dm *DegradationManager) GetServiceHealth(serviceName string) (*ServiceHealth, bool) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return nil, false
	}

	copied := *service
	return &copied, true
}

// GetAllServiceHealth returns health status for all services
func (dm *DegradationManager) GetAllServiceHealth() map[string]*ServiceHealth {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	result := make(map[string]*ServiceHealth, len(dm.services))
	for name, service := range dm.services {
		copied := *service
		result[name] = &copied
	}
	return result
}

// IsServiceAvailable reports whether a service should still be used
func (dm *DegradationManager) IsServiceAvailable(serviceName string) bool {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return false
	}
	return service.Level != LevelEmergency
}

// StartHealthChecks runs periodic health checks until ctx is done
func (dm *DegradationManager) StartHealthChecks(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.performHealthChecks(ctx)
		}
	}
}

func (dm *DegradationManager) performHealthChecks(ctx context.Context) {
	dm.mutex.RLock()
	checks := make(map[string]HealthCheckFunc, len(dm.healthChecks))
	for name, check := range dm.healthChecks {
		checks[name] = check
	}
	dm.mutex.RUnlock()

	for serviceName, healthCheck := range checks {
		go func(name string, check HealthCheckFunc) {
			checkCtx, cancel := context.WithTimeout(ctx, dm.config.HealthCheckTimeout)
			defer cancel()

			if err := check(checkCtx); err != nil {
				dm.RecordError(name, fmt.Errorf("health check failed: %w", err))
			} else {
				dm.RecordRequest(name, true)
			}
		}(serviceName, healthCheck)
	}
}

// ResetService resets a service's health status
func (dm *DegradationManager) ResetService(serviceName string) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if service, exists := dm.services[serviceName]; exists {
		*service = ServiceHealth{
			ServiceName: serviceName,
			Level:       LevelNormal,
			Status:      "Service is healthy",
		}
		slog.Info("Service health reset", "service", serviceName)
	}
}
