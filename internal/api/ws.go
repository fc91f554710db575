package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/adisurya/bandarpulse/internal/hub"
	"github.com/adisurya/bandarpulse/internal/logger"
)

// upgrader accepts any origin: the feed serves browser dashboards hosted
// on arbitrary hosts and carries no credentialed state.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewFeedHandler returns the GET /ws handler that upgrades the request
// and hands the connection to the hub.
//
// The feed route must stay outside the request-timeout middleware: a feed
// session is one deliberately long-lived request.
func NewFeedHandler(h *hub.Hub) gin.HandlerFunc {
	log := logger.Component("feed_handler")
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			log.Warn().Err(err).Str("remote", c.Request.RemoteAddr).Msg("websocket upgrade failed")
			return
		}
		h.Register(conn)
	}
}
