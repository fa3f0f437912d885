package websocket

import (
	"log/slog"

	"imis/internal/microservices/presence"
)

// Broadcaster is the delivery capability handlers depend on
type Broadcaster interface {
	// Publish sends to every connection subscribed to scope
	Publish(scope presence.Scope, event string, payload any)
	// PublishExcept is Publish minus one connection, usually the sender
	PublishExcept(scope presence.Scope, exceptConnID, event string, payload any)
	BroadcastAll(event string, payload any)
	SendTo(principalID, event string, payload any) bool
	IsOnline(principalID string) bool
}

// Hub delivers frames using the registry and room tracker.
// It also serves as the dispatcher's view of who is online.
type Hub struct {
	registry *presence.Registry
	rooms    *presence.Tracker
	logger   *slog.Logger
}

func NewHub(registry *presence.Registry, rooms *presence.Tracker, logger *slog.Logger) *Hub {
	return &Hub{registry: registry, rooms: rooms, logger: logger}
}

func (h *Hub) Publish(scope presence.Scope, event string, payload any) {
	h.PublishExcept(scope, "", event, payload)
}

func (h *Hub) PublishExcept(scope presence.Scope, exceptConnID, event string, payload any) {
	frame, err := Encode(event, payload)
	if err != nil {
		h.logger.Error("hub_encode_failed", "event", event, "error", err)
		return
	}

	for _, m := range h.rooms.Members(scope) {
		if m.ConnID == exceptConnID {
			continue
		}
		// skip members whose connection has since been replaced
		conn, ok := h.registry.Get(m.PrincipalID)
		if !ok || conn.ID() != m.ConnID {
			continue
		}
		conn.Send(frame)
	}
}

func (h *Hub) BroadcastAll(event string, payload any) {
	frame, err := Encode(event, payload)
	if err != nil {
		h.logger.Error("hub_encode_failed", "event", event, "error", err)
		return
	}
	for _, conn := range h.registry.All() {
		conn.Send(frame)
	}
}

func (h *Hub) SendTo(principalID, event string, payload any) bool {
	conn, ok := h.registry.Get(principalID)
	if !ok {
		return false
	}
	frame, err := Encode(event, payload)
	if err != nil {
		h.logger.Error("hub_encode_failed", "event", event, "error", err)
		return false
	}
	return conn.Send(frame)
}

func (h *Hub) IsOnline(principalID string) bool {
	return h.registry.IsOnline(principalID)
}

// Push satisfies notify.Presence
func (h *Hub) Push(principalID, event string, payload any) bool {
	return h.SendTo(principalID, event, payload)
}

func (h *Hub) OnlineCount() int {
	return h.registry.Count()
}

func (h *Hub) RoomCount() int {
	return h.rooms.RoomCount()
}
