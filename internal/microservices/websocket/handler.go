package websocket

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HTTP upgrade handler to WebSocket connections

// NewUpgrader allows the configured origins; an empty list or "*" allows any
func NewUpgrader(origins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(origins) == 0 || slices.Contains(origins, "*") {
				return true
			}
			return slices.Contains(origins, origin)
		},
	}
}

// WSHandler authenticates the principal named by the id query parameter
// before upgrading, then serves the connection until it ends
func WSHandler(g *Gateway, upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := g.Authenticate(c.Request.Context(), c.Query("id"))
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidPrincipalID):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			case errors.Is(err, ErrUnknownPrincipal):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
			default:
				g.logger.Error("handshake_lookup_failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Identity lookup unavailable"})
			}
			return
		}

		// upgrade HTTP connection to WebSocket; the upgrader already wrote the error response
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			g.logger.Warn("websocket_upgrade_failed", "principal_id", profile.ID, "error", err)
			return
		}

		client := g.Activate(*profile, conn)
		g.logger.Info("client_connected", "conn_id", client.ID(), "principal_id", profile.ID)

		g.Serve(c.Request.Context(), client)
	}
}
