package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/adisurya/bandarpulse/internal/domain/dto"
	"github.com/adisurya/bandarpulse/internal/summary"
)

// Handler provides HTTP handlers for broker-summary endpoints.
//
// Responsibilities:
//   - Validate incoming path parameters
//   - Interact with the summary service for snapshot access
//   - Return structured JSON responses with appropriate HTTP status codes
type Handler struct {
	svc summary.Service
}

// NewHandler constructs a new Handler instance.
//
// Parameters:
//   - svc (summary.Service): Snapshot service used to serve requests.
//
// Returns:
//   - *Handler: A handler ready to be registered with the router.
func NewHandler(svc summary.Service) *Handler {
	return &Handler{svc: svc}
}

// GetBrokerSummary handles GET /api/v1/broker-summary/:symbol requests.
//
// Path Parameters:
//   - symbol (string, required): Stock symbol (e.g., "BBCA"). Case-insensitive.
//
// Responses:
//   - 200 OK: Returns the current BrokerSummarySnapshot for the symbol.
//   - 400 Bad Request: Blank symbol.
//   - 500 Internal Server Error: Snapshot provider failure.
func (h *Handler) GetBrokerSummary(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("symbol is required", nil))
		return
	}

	snap, err := h.svc.Get(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch broker summary", err))
		return
	}

	c.JSON(http.StatusOK, snap)
}
