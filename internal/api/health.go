package api

import "github.com/gin-gonic/gin"

// HealthHandler provides liveness and readiness endpoints for the service.
//
// Responsibilities:
//   - /healthz: Basic liveness probe (always returns 200 OK).
//   - /readyz: Readiness probe (depends on snapshot-cache connectivity).
type HealthHandler struct {
	cachePing func() error
}

// NewHealthHandler constructs a HealthHandler with the provided ping
// function.
//
// Parameters:
//   - cachePing (func() error): Checks whether the snapshot cache is
//     reachable. For the in-process cache this never fails; for redis it
//     is a wrapped PING.
//
// Returns:
//   - *HealthHandler: A new handler instance.
func NewHealthHandler(cachePing func() error) *HealthHandler {
	return &HealthHandler{cachePing: cachePing}
}

// Register mounts the health and readiness endpoints into the provided
// Gin router.
//
// Routes:
//   - GET /healthz: Always returns 200 OK.
//   - GET /readyz: Returns 200 OK if the cache ping succeeds, 503 otherwise.
func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		if h.cachePing != nil {
			if err := h.cachePing(); err != nil {
				c.JSON(503, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(200, gin.H{"status": "ready"})
	})
}
