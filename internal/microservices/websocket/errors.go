package websocket

import (
	"errors"

	"imis/internal/microservices/http-api/repository"
)

var (
	ErrInvalidPrincipalID = errors.New("malformed principal id")
	ErrUnknownPrincipal   = errors.New("unknown principal")

	ErrInvalidPayload     = errors.New("invalid payload")
	ErrNotProjectMember   = errors.New("not a member of this project")
	ErrNotRoomParticipant = errors.New("not a participant of this conversation")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnknownEvent       = errors.New("unknown event")
)

var clientMessages = []struct {
	err error
	msg string
}{
	{ErrNotProjectMember, "You are not a member of this project."},
	{ErrNotRoomParticipant, "You are not a participant of this conversation."},
	{ErrRateLimited, "Too many events, slow down."},
	{ErrUnknownEvent, "Unknown event."},
	{repository.ErrNotFound, "The requested item was not found."},
	{repository.ErrLikeContention, "That comment is busy, try again."},
}

// clientMessage returns the text for the acting connection's error event,
// or false when err is internal and stays silent
func clientMessage(err error) (string, bool) {
	for _, m := range clientMessages {
		if errors.Is(err, m.err) {
			return m.msg, true
		}
	}
	if errors.Is(err, ErrInvalidPayload) {
		return err.Error(), true
	}
	return "", false
}
