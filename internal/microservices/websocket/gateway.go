package websocket

import (
	"context"
	"fmt"
	"log/slog"

	"imis/internal/microservices/identity"
	"imis/internal/microservices/presence"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Limits bounds what a single connection may send
type Limits struct {
	MaxMessageSize int64
	RatePerSecond  float64
	Burst          int
}

// Gateway owns the connection lifecycle: authenticate, register, serve, tear down
type Gateway struct {
	resolver PrincipalResolver
	registry *presence.Registry
	rooms    *presence.Tracker
	hub      *Hub
	router   *Router
	limits   Limits
	logger   *slog.Logger
}

func NewGateway(resolver PrincipalResolver, registry *presence.Registry, rooms *presence.Tracker, hub *Hub, router *Router, limits Limits, logger *slog.Logger) *Gateway {
	return &Gateway{
		resolver: resolver,
		registry: registry,
		rooms:    rooms,
		hub:      hub,
		router:   router,
		limits:   limits,
		logger:   logger,
	}
}

// ValidatePrincipalID accepts only the canonical 36 character UUID form
func ValidatePrincipalID(raw string) error {
	if len(raw) != 36 {
		return ErrInvalidPrincipalID
	}
	if _, err := uuid.Parse(raw); err != nil {
		return ErrInvalidPrincipalID
	}
	return nil
}

// Authenticate runs the handshake gate; nothing is registered on failure
func (g *Gateway) Authenticate(ctx context.Context, rawID string) (*identity.Profile, error) {
	if err := ValidatePrincipalID(rawID); err != nil {
		g.logger.Warn("handshake_rejected", "reason", "malformed_id")
		return nil, err
	}

	profile, err := g.resolver.Resolve(ctx, rawID)
	if err != nil {
		return nil, fmt.Errorf("handshake lookup: %w", err)
	}
	if profile == nil {
		g.logger.Warn("handshake_rejected", "reason", "unknown_principal", "principal_id", rawID)
		return nil, ErrUnknownPrincipal
	}
	return profile, nil
}

// Activate registers a new client for profile, evicting any previous connection
func (g *Gateway) Activate(profile identity.Profile, conn Conn) *Client {
	var limiter *rate.Limiter
	if g.limits.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(g.limits.RatePerSecond), g.limits.Burst)
	}
	client := NewClient(profile, conn, limiter, g.logger)

	if evicted := g.registry.Register(client); evicted != nil {
		// clean the old connection's rooms now, before the new one can join any
		if old, ok := evicted.(*Client); ok {
			g.Disconnect(old, "evicted")
		}
	}

	client.setState(StateActive)
	return client
}

// Serve runs the connection until it ends, then disconnects it
func (g *Gateway) Serve(ctx context.Context, c *Client) {
	go c.WritePump()
	c.ReadPump(g.limits.MaxMessageSize, func(frame []byte) {
		g.router.Handle(ctx, c, frame)
	})
	g.Disconnect(c, "closed")
}

// Disconnect tears the client out of the registry and every room.
// Only the first call has any effect.
func (g *Gateway) Disconnect(c *Client, reason string) {
	c.disconnectOnce.Do(func() {
		c.setState(StateDisconnected)
		c.Close()
		g.registry.Unregister(c)

		for _, scope := range g.rooms.RemoveConnection(c.ID()) {
			if scope.Kind == presence.ScopePrivate {
				continue
			}
			g.hub.Publish(scope, EventRoomUsers, roomUsers(g.rooms, scope))
		}

		g.logger.Info("client_disconnected",
			"conn_id", c.ID(),
			"principal_id", c.PrincipalID(),
			"reason", reason,
			"connected_for", c.ConnectedFor().String(),
		)
	})
}

// CloseAll closes every live connection; their Serve loops run the disconnect path
func (g *Gateway) CloseAll() {
	for _, h := range g.registry.All() {
		h.Close()
	}
}

func roomUsers(rooms *presence.Tracker, scope presence.Scope) roomUsersPayload {
	return roomUsersPayload{
		Scope:     string(scope.Kind),
		ProjectID: scope.ProjectID,
		Users:     rooms.MembersOf(scope),
	}
}
