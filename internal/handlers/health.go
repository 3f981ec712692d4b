package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/NomanAhmed1999/vatika/internal/platform/httpx"
)

// ReadinessCheck reports whether one downstream dependency is reachable.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	startedAt time.Time
	checks    []ReadinessCheck
}

// NewHealthHandlers constructs probe handlers over the provided readiness checks.
func NewHealthHandlers(checks ...ReadinessCheck) *HealthHandlers {
	return &HealthHandlers{
		startedAt: time.Now(),
		checks:    checks,
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.startedAt).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz runs each readiness check and fails when any dependency is down.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	results := make(map[string]string, len(h.checks))
	healthy := true
	for _, check := range h.checks {
		if check.Check == nil {
			continue
		}
		if err := check.Check(ctx); err != nil {
			results[check.Name] = err.Error()
			healthy = false
			continue
		}
		results[check.Name] = "ok"
	}

	if !healthy {
		httpx.WriteError(ctx, w, httpx.
			NewError("not_ready", "one or more dependencies are unavailable", http.StatusServiceUnavailable).
			WithDetails(map[string]any{"checks": results}))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
		"checks": results,
	})
}
