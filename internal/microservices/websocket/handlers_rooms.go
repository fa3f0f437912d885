package websocket

import (
	"context"
	"encoding/json"

	"imis/internal/microservices/presence"
)

func (r *Router) joinProjectPage(ctx context.Context, c *Client, data json.RawMessage) error {
	var req projectRoomRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	if err := r.requireMember(ctx, req.ProjectID, c.PrincipalID()); err != nil {
		return err
	}
	r.join(c, presence.PageScope(req.ProjectID))
	return nil
}

func (r *Router) leaveProjectPage(_ context.Context, c *Client, data json.RawMessage) error {
	var req projectRoomRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	r.leave(c, presence.PageScope(req.ProjectID))
	return nil
}

// joinDiscussionRoom also puts the caller on the project page
func (r *Router) joinDiscussionRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var req projectRoomRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	if err := r.requireMember(ctx, req.ProjectID, c.PrincipalID()); err != nil {
		return err
	}
	r.join(c, presence.PageScope(req.ProjectID))
	r.join(c, presence.DiscussionScope(req.ProjectID))
	return nil
}

func (r *Router) leaveDiscussionRoom(_ context.Context, c *Client, data json.RawMessage) error {
	var req projectRoomRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	r.leave(c, presence.DiscussionScope(req.ProjectID))
	return nil
}

func (r *Router) joinPrivateRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var req privateRoomRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	if err := r.requireParticipant(ctx, req.RoomID, c.PrincipalID()); err != nil {
		return err
	}
	r.join(c, presence.PageScope(req.ProjectID))
	r.join(c, presence.PrivateScope(req.ProjectID, req.RoomID))
	return nil
}

func (r *Router) leavePrivateRoom(_ context.Context, c *Client, data json.RawMessage) error {
	var req privateRoomRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	r.leave(c, presence.PrivateScope(req.ProjectID, req.RoomID))
	return nil
}

// join broadcasts the member list when page or discussion membership changed;
// a repeated join only refreshes the caller's own view. Membership checks wait on
// the database, so the connection may have been torn down by the time we get here.
func (r *Router) join(c *Client, scope presence.Scope) {
	changed := r.rooms.JoinIf(scope, memberOf(c), c.Active)
	if scope.Kind == presence.ScopePrivate || !c.Active() {
		return
	}
	if changed {
		r.out.Publish(scope, EventRoomUsers, roomUsers(r.rooms, scope))
		return
	}
	c.Emit(EventRoomUsers, roomUsers(r.rooms, scope))
}

func (r *Router) leave(c *Client, scope presence.Scope) {
	if !r.rooms.Leave(scope, c.ID()) || scope.Kind == presence.ScopePrivate {
		return
	}
	r.out.Publish(scope, EventRoomUsers, roomUsers(r.rooms, scope))
}
