package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// checkTimeout bounds each dependency check made by GET /api/v1/health.
const checkTimeout = 2 * time.Second

// HealthChecker is a dependency whose reachability the health endpoint
// reports. database.DB and mqtt.Publisher satisfy it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// HealthCheck calls f(ctx).
func (f HealthCheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// checkResult is one entry of the health body's checks map.
type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// healthResponse is the body of GET /api/v1/health.
type healthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]checkResult `json:"checks"`
}

// handleHealth runs every registered check and reports each result.
// Any failure makes the overall status "degraded" and the code 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	body := healthResponse{
		Status:  "ok",
		Version: s.version,
		Checks:  make(map[string]checkResult, len(names)),
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()

		if err != nil {
			s.logger.Warn("health check failed", "check", name, "error", err)
			body.Status = "degraded"
			body.Checks[name] = checkResult{Status: "error", Error: err.Error()}
			continue
		}
		body.Checks[name] = checkResult{Status: "ok"}
	}

	code := http.StatusOK
	if body.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	respond(w, code, body)
}
