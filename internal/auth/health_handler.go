// health_handler.go -- Health check handler for GET /health.
package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/feedboard/feedboard/internal/store"
)

// healthStatus is the JSON body of GET /health. Values: ok, error, disabled.
type healthStatus struct {
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

// CheckHealth handles GET /health. Pings Postgres and Redis, returns per-dependency status.
// 200 when nothing reports "error" (Redis may be disabled), 503 otherwise.
func (h *AuthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Postgres: probe(r, "postgres", h.PS),
		Redis:    probe(r, "redis", h.RS),
	}

	code := http.StatusOK
	if status.Postgres == "error" || status.Redis == "error" {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// probe pings dep and maps the result to a status string.
func probe(r *http.Request, name string, dep HealthChecker) string {
	if dep == nil {
		return "disabled"
	}
	err := dep.CheckHealth(r.Context())
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrCacheDisabled):
		return "disabled"
	default:
		logError(r, "health check failed", "dependency", name, "error", err)
		return "error"
	}
}
