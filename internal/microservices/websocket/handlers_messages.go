package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"imis/internal/microservices/http-api/models"
	"imis/internal/microservices/identity"
	"imis/internal/microservices/notify"
	"imis/internal/microservices/presence"
)

func (r *Router) sendDiscussionMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var req discussionMessageRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	sender := c.Profile()
	if err := r.requireMember(ctx, req.ProjectID, sender.ID); err != nil {
		return err
	}

	msg := &models.Message{
		RoomID:    req.ProjectID,
		ProjectID: req.ProjectID,
		Kind:      models.MessageKindDiscussion,
		SenderID:  sender.ID,
		Body:      req.Message,
		TimeSent:  sentAt(req.TimeSent),
	}
	if err := r.Messages.Save(ctx, msg); err != nil {
		return fmt.Errorf("save discussion message: %w", err)
	}

	view := toMessageView(msg, sender.Summary())
	view.WorkOrderNo = req.WorkOrderNo

	page := presence.PageScope(req.ProjectID)
	room := presence.DiscussionScope(req.ProjectID)
	r.out.Publish(page, EventReceiveLatestMessage, view)
	r.out.PublishExcept(room, c.ID(), EventReceiveDiscussionMessage, view)

	members, err := r.Projects.ListMemberIDs(ctx, req.ProjectID)
	if err != nil {
		return fmt.Errorf("list project members: %w", err)
	}
	alert := notify.PushPayload{
		RoomID:  req.ProjectID,
		Title:   fmt.Sprintf("Message from %s Discussion Room.", req.WorkOrderNo),
		Message: fmt.Sprintf("%s: %s", sender.DisplayName, req.Message),
	}
	for _, id := range members {
		if id == sender.ID || !r.out.IsOnline(id) {
			continue
		}
		if r.rooms.Contains(page, id) || r.rooms.Contains(room, id) {
			continue
		}
		r.out.SendTo(id, notify.EventMsgNotif, alert)
	}
	return nil
}

// sendPrivateMessage never reaches anyone outside the conversation
func (r *Router) sendPrivateMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var req privateMessageRequest
	if err := bind(data, &req); err != nil {
		return err
	}
	sender := c.Profile()
	if err := r.requireParticipant(ctx, req.RoomID, sender.ID); err != nil {
		return err
	}
	if err := r.requireParticipant(ctx, req.RoomID, req.Recipient.ID); err != nil {
		return err
	}

	recipientID := req.Recipient.ID
	msg := &models.Message{
		RoomID:      req.RoomID,
		ProjectID:   req.ProjectID,
		Kind:        models.MessageKindPrivate,
		SenderID:    sender.ID,
		RecipientID: &recipientID,
		Body:        req.Message,
		TimeSent:    sentAt(req.TimeSent),
		IsRead:      req.IsRead,
	}
	if err := r.Messages.Save(ctx, msg); err != nil {
		return fmt.Errorf("save private message: %w", err)
	}

	view := toMessageView(msg, sender.Summary())
	room := presence.PrivateScope(req.ProjectID, req.RoomID)
	r.out.SendTo(recipientID, EventReceiveLatestMessage, view)
	r.out.PublishExcept(room, c.ID(), EventReceivePrivateMessage, view)

	if recipientID == sender.ID || !r.out.IsOnline(recipientID) {
		return nil
	}
	if r.rooms.Contains(room, recipientID) || r.rooms.Contains(presence.PageScope(req.ProjectID), recipientID) {
		return nil
	}
	r.out.SendTo(recipientID, notify.EventMsgNotif, notify.PushPayload{
		RoomID:  req.RoomID,
		Title:   "New Private Message",
		Message: fmt.Sprintf("%s: %s", sender.DisplayName, req.Message),
	})
	return nil
}

func sentAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func toMessageView(m *models.Message, sender identity.Summary) messageView {
	view := messageView{
		ID:        m.ID,
		Type:      m.Kind,
		ProjectID: m.ProjectID,
		RoomID:    m.RoomID,
		Sender:    sender,
		Message:   m.Body,
		TimeSent:  m.TimeSent,
		IsRead:    m.IsRead,
	}
	if m.RecipientID != nil {
		view.RecipientID = *m.RecipientID
	}
	return view
}
