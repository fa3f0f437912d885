package handler

import (
	"net/http"

	"imis/internal/microservices/http-api/dto"

	"github.com/gin-gonic/gin"
)

// PresenceStats is the read side of the live connection state
type PresenceStats interface {
	OnlineCount() int
	RoomCount() int
}

type PresenceHandler struct {
	stats PresenceStats
}

func NewPresenceHandler(stats PresenceStats) *PresenceHandler {
	return &PresenceHandler{stats: stats}
}

func (h *PresenceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Stats)
}

func (h *PresenceHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, dto.PresenceResponse{
		Online: h.stats.OnlineCount(),
		Rooms:  h.stats.RoomCount(),
	})
}
