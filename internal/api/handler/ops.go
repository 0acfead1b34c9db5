// Package handler provides HTTP handlers for the SafeRoute API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/provider/resilience"
)

// DependencyCheck probes one dependency (trip store, places cache).
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	checks    []DependencyCheck
	timeout   time.Duration
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, checks ...DependencyCheck) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		checks:    checks,
		timeout:   2 * time.Second,
	}
}

// HealthCheck handles GET /ops/health. It only reports that the process is up.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /ops/ready: 503 when any dependency check fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems, status := h.runChecks(r.Context())

	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}

	details := make(map[string]interface{}, len(subsystems))
	for _, s := range subsystems {
		details[s.Name] = s.Status
	}
	response.JSON(w, r, code, models.Health{
		Status:  status,
		Time:    models.Timestamp(time.Now()),
		Details: details,
	})
}

// SystemStatus handles GET /ops/status: dependency checks plus the circuit
// state of every registered upstream.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	subsystems, status := h.runChecks(r.Context())

	providers := []models.ProviderStatus{}
	if h.registry != nil {
		for _, ph := range h.registry.Snapshot() {
			ps := providerStatus(ph)
			providers = append(providers, ps)
			if ps.Status != models.HealthStatusOK && status == models.HealthStatusOK {
				status = models.HealthStatusDegraded
			}
		}
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:     status,
		Time:       models.Timestamp(time.Now()),
		Subsystems: subsystems,
		Providers:  providers,
	})
}

func (h *OpsHandler) runChecks(ctx context.Context) ([]models.SubsystemStatus, models.HealthStatus) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	overall := models.HealthStatusOK
	subsystems := make([]models.SubsystemStatus, 0, len(h.checks))
	for _, c := range h.checks {
		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err := c.Check(ctx); err != nil {
			msg := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &msg
			overall = models.HealthStatusFail
		}
		subsystems = append(subsystems, s)
	}
	return subsystems, overall
}

func providerStatus(h resilience.Health) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            h.Name,
		Status:              healthLevels[h.Level()],
		CircuitState:        h.State.String(),
		ConsecutiveFailures: h.Counts.ConsecutiveFailures,
		Successes:           h.Successes,
		Failures:            h.Failures,
		LastSuccessAt:       optionalTime(h.LastSuccess),
		LastFailureAt:       optionalTime(h.LastFailure),
	}
	if h.LastError != "" {
		msg := h.LastError
		ps.Message = &msg
	}
	return ps
}

var healthLevels = map[resilience.Level]models.HealthStatus{
	resilience.LevelOK:       models.HealthStatusOK,
	resilience.LevelDegraded: models.HealthStatusDegraded,
	resilience.LevelDown:     models.HealthStatusFail,
}

func optionalTime(t time.Time) *models.Timestamp {
	if t.IsZero() {
		return nil
	}
	ts := models.Timestamp(t)
	return &ts
}
