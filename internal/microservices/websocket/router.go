package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"imis/internal/microservices/http-api/models"
	"imis/internal/microservices/presence"
)

type eventHandler func(ctx context.Context, c *Client, data json.RawMessage) error

// RouterDeps are the collaborators event handlers write through
type RouterDeps struct {
	Projects ProjectStore
	Tasks    TaskStore
	Comments CommentStore
	Chats    ChatDirectory
	Messages MessageStore
	Audit    AuditLog
	Notifier Notifier
}

// Router maps inbound events to handlers. Every handler checks the actor
// belongs to the addressed scope before changing anything.
type Router struct {
	RouterDeps
	rooms    *presence.Tracker
	out      Broadcaster
	timeout  time.Duration
	handlers map[string]eventHandler
	logger   *slog.Logger
}

func NewRouter(deps RouterDeps, rooms *presence.Tracker, out Broadcaster, timeout time.Duration, logger *slog.Logger) *Router {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &Router{
		RouterDeps: deps,
		rooms:      rooms,
		out:        out,
		timeout:    timeout,
		logger:     logger,
	}
	r.handlers = map[string]eventHandler{
		EventJoinProjectPage:     r.joinProjectPage,
		EventLeaveProjectPage:    r.leaveProjectPage,
		EventJoinDiscussionRoom:  r.joinDiscussionRoom,
		EventLeaveDiscussionRoom: r.leaveDiscussionRoom,
		EventJoinPrivateRoom:     r.joinPrivateRoom,
		EventLeavePrivateRoom:    r.leavePrivateRoom,
		EventChangeStatus:        r.changeStatus,
		EventChangePriority:      r.changePriority,
		EventAddComment:          r.addComment,
		EventLikeComment:         r.likeComment,
		EventSendDiscussionMsg:   r.sendDiscussionMessage,
		EventSendPrivateMsg:      r.sendPrivateMessage,
	}
	return r
}

// Handle processes one inbound frame. Nothing escapes: refusals go back to the
// client as error events, everything else is logged.
func (r *Router) Handle(ctx context.Context, c *Client, frame []byte) {
	event := ""
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("event_handler_panic",
				"event", event,
				"conn_id", c.ID(),
				"panic", p,
				"stack", string(debug.Stack()),
			)
		}
	}()

	// frames still in flight from an evicted or closed connection
	if !c.Active() {
		r.logger.Debug("event_dropped", "conn_id", c.ID(), "state", c.State().String())
		return
	}

	if !c.Allow() {
		r.reply(c, "", ErrRateLimited)
		return
	}

	env, err := DecodeEnvelope(frame)
	if err != nil {
		r.reply(c, "", err)
		return
	}
	event = env.Event

	handler, ok := r.handlers[event]
	if !ok {
		r.reply(c, event, fmt.Errorf("%w: %s", ErrUnknownEvent, event))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	if err := handler(ctx, c, env.Data); err != nil {
		r.reply(c, event, err)
		return
	}
	r.logger.Debug("event_handled", "event", event, "conn_id", c.ID(), "took", time.Since(started).String())
}

func (r *Router) reply(c *Client, event string, err error) {
	if msg, ok := clientMessage(err); ok {
		r.logger.Info("event_refused", "event", event, "principal_id", c.PrincipalID(), "reason", err)
		c.EmitError(event, msg)
		return
	}
	r.logger.Error("event_failed", "event", event, "principal_id", c.PrincipalID(), "error", err)
}

func (r *Router) requireMember(ctx context.Context, projectID, principalID string) error {
	ok, err := r.Projects.IsMember(ctx, projectID, principalID)
	if err != nil {
		return fmt.Errorf("membership lookup: %w", err)
	}
	if !ok {
		return ErrNotProjectMember
	}
	return nil
}

func (r *Router) requireParticipant(ctx context.Context, roomID, principalID string) error {
	ok, err := r.Chats.IsParticipant(ctx, roomID, principalID)
	if err != nil {
		return fmt.Errorf("participant lookup: %w", err)
	}
	if !ok {
		return ErrNotRoomParticipant
	}
	return nil
}

func (r *Router) audit(ctx context.Context, actorID, projectID, message string) {
	for _, kind := range []string{models.LogTypeSystem, models.LogTypeActivity} {
		entry := &models.Log{
			Type:      kind,
			ProjectID: &projectID,
			ActorID:   actorID,
			Message:   message,
			Version:   "client",
		}
		if err := r.Audit.Append(ctx, entry); err != nil {
			r.logger.Error("audit_append_failed", "type", kind, "project_id", projectID, "error", err)
		}
	}
}

func memberOf(c *Client) presence.Member {
	p := c.Profile()
	return presence.Member{ConnID: c.ID(), PrincipalID: p.ID, DisplayName: p.DisplayName}
}
