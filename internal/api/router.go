package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adisurya/bandarpulse/internal/middleware"
)

// NewRouter creates a Gin engine with routes configured.
// It receives a Handler instance with all business logic already injected.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler, RateLimiter).
//   - Adds request timeout handling (10 seconds) to the REST group only.
//   - Configures API v1 routes (/api/v1) and the websocket feed (/ws).
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
//   - /ws runs without the timeout wrapper; feed sessions are long-lived.
//
// Parameters:
//   - handler (*Handler): The HTTP handler with business logic.
//   - feed (gin.HandlerFunc): The websocket feed handler.
//
// Returns:
//   - *gin.Engine: Configured Gin router.
func NewRouter(handler *Handler, feed gin.HandlerFunc) *gin.Engine {
	router := gin.New()

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(),
	)

	// ─── Websocket feed ───────────────────────────
	router.GET("/ws", feed)

	// ─── API v1 ───────────────────────────────────
	v1 := router.Group("/api/v1")
	v1.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	{
		v1.GET("/broker-summary/:symbol", handler.GetBrokerSummary)
	}

	return router
}
