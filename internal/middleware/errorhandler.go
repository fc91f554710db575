package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adisurya/bandarpulse/internal/domain/dto"
	"github.com/adisurya/bandarpulse/internal/logger"
)

// ErrorHandler converts errors attached to the Gin context during request
// handling into a standardized JSON response. Handlers that already wrote
// a response are left alone.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	err := c.Errors.Last().Err
	logger.L().Error().Err(err).
		Str("path", c.Request.URL.Path).
		Msg("unhandled request error")

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("internal server error", err))
}

// AbortWithError attaches err to the context and aborts the request with
// a standardized JSON body. Use it from handlers instead of hand-building
// error responses.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
