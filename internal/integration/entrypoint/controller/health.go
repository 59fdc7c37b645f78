package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finance-tracker/ledger/internal/integration/entrypoint/dto"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func() bool

// HealthController handles health check endpoints.
type HealthController struct {
	dbHealthChecker     HealthChecker
	cacheHealthChecker  HealthChecker
	brokerHealthChecker HealthChecker
}

// NewHealthController creates a new health controller instance.
// A nil checker reports the dependency as "disabled".
func NewHealthController(db, cache, broker HealthChecker) *HealthController {
	return &HealthController{
		dbHealthChecker:     db,
		cacheHealthChecker:  cache,
		brokerHealthChecker: broker,
	}
}

// Check handles GET /health requests.
// The ledger store is the only hard dependency: without it the service answers 503.
func (h *HealthController) Check(c *gin.Context) {
	response := dto.HealthResponse{
		Status:    "ok",
		Database:  probe(h.dbHealthChecker),
		Cache:     probe(h.cacheHealthChecker),
		Broker:    probe(h.brokerHealthChecker),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := http.StatusOK
	switch {
	case response.Database != "connected":
		response.Status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	case response.Cache == "disconnected" || response.Broker == "disconnected":
		response.Status = "degraded"
	}

	c.JSON(statusCode, response)
}

func probe(checker HealthChecker) string {
	if checker == nil {
		return "disabled"
	}
	if checker() {
		return "connected"
	}
	return "disconnected"
}
