package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"imis/internal/microservices/notify"

	"github.com/gin-gonic/gin"
)

const maxIntentBody = 1 << 20

// NotifyHandler accepts notification intents from trusted internal callers
type NotifyHandler struct {
	sink   notify.IntentSink
	logger *slog.Logger
}

func NewNotifyHandler(sink notify.IntentSink, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{sink: sink, logger: logger}
}

func (h *NotifyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/notify", h.Enqueue)
}

// Enqueue validates the intent and hands it to the dispatcher without waiting for delivery
func (h *NotifyHandler) Enqueue(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIntentBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	in, err := notify.DecodeIntent(body)
	if err != nil {
		if errors.Is(err, notify.ErrInvalidIntent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decode intent"})
		return
	}

	h.sink.Notify(in)
	h.logger.Info("notification_intent_accepted",
		"action", in.Action.Kind(),
		"recipients", len(in.Recipients),
		"source", "http",
	)
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "action": in.Action.Kind()})
}
