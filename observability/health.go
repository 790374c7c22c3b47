package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HealthStatus is the health of a single component or the process overall.
type HealthStatus string

const (
	HealthStatusOK        HealthStatus = "ok"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth is the health of a single registered check.
type ComponentHealth struct {
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	LatencyMS int64        `json:"latency_ms,omitempty"`
}

// HealthCheckResponse is the aggregate health-check response body.
type HealthCheckResponse struct {
	Status        HealthStatus               `json:"status"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Timestamp     string                     `json:"timestamp"`
	Checks        map[string]ComponentHealth `json:"checks"`
}

// HealthChecker runs named component checks and aggregates their status.
type HealthChecker struct {
	version   string
	startTime time.Time
	checks    map[string]HealthCheckFunc
}

type HealthCheckFunc func(ctx context.Context) ComponentHealth

func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]HealthCheckFunc),
	}
}

func (hc *HealthChecker) RegisterCheck(name string, checkFunc HealthCheckFunc) {
	hc.checks[name] = checkFunc
}

func (hc *HealthChecker) Check(ctx context.Context) HealthCheckResponse {
	response := HealthCheckResponse{
		Status:        HealthStatusOK,
		Version:       hc.version,
		UptimeSeconds: int64(time.Since(hc.startTime).Seconds()),
		Timestamp:     time.Now().Format(time.RFC3339),
		Checks:        make(map[string]ComponentHealth),
	}

	for name, checkFunc := range hc.checks {
		health := checkFunc(ctx)
		response.Checks[name] = health

		if health.Status == HealthStatusUnhealthy {
			response.Status = HealthStatusUnhealthy
		} else if health.Status == HealthStatusDegraded && response.Status != HealthStatusUnhealthy {
			response.Status = HealthStatusDegraded
		}
	}

	return response
}

func (hc *HealthChecker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		response := hc.Check(ctx)

		w.Header().Set("Content-Type", "application/json")
		switch response.Status {
		case HealthStatusOK:
			w.WriteHeader(http.StatusOK)
		case HealthStatusDegraded:
			w.WriteHeader(http.StatusOK)
		case HealthStatusUnhealthy:
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(response)
	}
}

// ProtocolStateCheck reports a protocol's State() as component health:
// Connected is OK, Disconnected is degraded (may still be buffering), and
// Closed/Unconfigured is unhealthy.
func ProtocolStateCheck(name string, state func() string) HealthCheckFunc {
	return func(ctx context.Context) ComponentHealth {
		s := state()
		switch s {
		case "connected":
			return ComponentHealth{Status: HealthStatusOK, Message: fmt.Sprintf("%s connected", name)}
		case "disconnected":
			return ComponentHealth{Status: HealthStatusDegraded, Message: fmt.Sprintf("%s disconnected", name)}
		default:
			return ComponentHealth{Status: HealthStatusUnhealthy, Message: fmt.Sprintf("%s %s", name, s)}
		}
	}
}

// BacklogCheck reports degraded health once the backlog holds more than
// warnBytes, signalling a protocol that can't keep up with reconnects.
func BacklogCheck(backlogBytes func() int64, warnBytes int64) HealthCheckFunc {
	return func(ctx context.Context) ComponentHealth {
		used := backlogBytes()
		if used > warnBytes {
			return ComponentHealth{
				Status:  HealthStatusDegraded,
				Message: fmt.Sprintf("backlog holding %d bytes (warn threshold %d)", used, warnBytes),
			}
		}
		return ComponentHealth{Status: HealthStatusOK, Message: fmt.Sprintf("backlog holding %d bytes", used)}
	}
}
