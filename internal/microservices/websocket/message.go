package websocket

import (
	"encoding/json"
	"fmt"
)

// Message protocol definitions

// Inbound events
const (
	EventJoinProjectPage     = "join-project-page"
	EventLeaveProjectPage    = "leave-project-page"
	EventJoinDiscussionRoom  = "join-discussion-room"
	EventLeaveDiscussionRoom = "leave-discussion-room"
	EventJoinPrivateRoom     = "join-private-room"
	EventLeavePrivateRoom    = "leave-private-room"
	EventChangeStatus        = "changeStatus"
	EventChangePriority      = "changePriority"
	EventAddComment          = "add-comment"
	EventLikeComment         = "like-comment"
	EventSendDiscussionMsg   = "send-discussion-message"
	EventSendPrivateMsg      = "send-private-message"
)

// Outbound events not owned by the dispatcher
const (
	EventRoomUsers                = "room-users"
	EventReceiveComment           = "receive-comment"
	EventCommentLiked             = "comment-liked"
	EventReceiveDiscussionMessage = "receive-discussion-message"
	EventReceivePrivateMessage    = "receive-private-message"
	EventReceiveLatestMessage     = "receive-latest-message"
	EventCommentNotification      = "commentNotification"
	EventError                    = "error"
)

// Envelope is the frame format in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode wraps payload in an envelope
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// DecodeEnvelope parses an inbound frame
func DecodeEnvelope(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrInvalidPayload)
	}
	return &env, nil
}

// ErrorPayload is sent on the error event
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
