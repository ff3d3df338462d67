package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Checker reports whether a dependency is currently reachable.
type Checker func(ctx context.Context) error

// HealthHandler answers liveness/readiness probes by running each
// registered Checker, matching the teacher's Health/Ready/Live split.
type HealthHandler struct {
	checks  map[string]Checker
	version string
}

// NewHealthHandler builds a HealthHandler. checks is named so the
// response body can report which dependency, if any, is unhealthy.
func NewHealthHandler(version string, checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks, version: version}
}

// Health handles GET /health: checks every dependency, 200 if all are
// reachable, 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	services := make(map[string]string, len(h.checks))
	healthy := true

	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			services[name] = "unhealthy: " + err.Error()
			healthy = false
			continue
		}
		services[name] = "healthy"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   map[bool]string{true: "healthy", false: "unhealthy"}[healthy],
		"version":  h.version,
		"services": services,
	})
}

// Ready handles GET /ready: same dependency checks as Health, used by
// orchestrators to gate traffic.
func (h *HealthHandler) Ready(c *gin.Context) {
	h.Health(c)
}

// Live handles GET /live: always 200 once the process is running.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
