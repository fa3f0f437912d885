package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"imis/internal/microservices/identity"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidIntent = errors.New("invalid notification intent")

var validate = validator.New(validator.WithRequiredStructEnabled())

// WireIntent is how other processes ask for a notification, over Redis or HTTP
type WireIntent struct {
	Action     string          `json:"action" validate:"required,max=64"`
	Recipients []WireRecipient `json:"recipients" validate:"required,min=1,dive"`
	Item       WireItem        `json:"item"`
	Extra      WireExtra       `json:"extra"`
}

// WireRecipient accepts either "id" or {"id": ..., "displayName": ..., "mail": ...}
type WireRecipient struct {
	ID          string `json:"id" validate:"required,uuid"`
	DisplayName string `json:"displayName,omitempty"`
	// Mail is checked per recipient at dispatch; a bad one skips only that address
	Mail string `json:"mail,omitempty"`
}

func (r *WireRecipient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	type plain WireRecipient
	return json.Unmarshal(data, (*plain)(r))
}

type WireItem struct {
	ID          string    `json:"id,omitempty"`
	ProjectID   string    `json:"projectId,omitempty" validate:"omitempty,uuid"`
	TaskID      string    `json:"taskId,omitempty" validate:"omitempty,uuid"`
	RoomID      string    `json:"roomId,omitempty"`
	Title       string    `json:"title,omitempty"`
	ProjectName string    `json:"projectName,omitempty"`
	Start       time.Time `json:"start,omitempty"`
}

type WireExtra struct {
	Type       string `json:"type,omitempty"`
	Role       string `json:"role,omitempty"`
	Permission string `json:"permission,omitempty"`
	Priority   string `json:"priority,omitempty"`
	Status     string `json:"status,omitempty"`
	Comment    string `json:"comment,omitempty"`
	ActorID    string `json:"actorId,omitempty" validate:"omitempty,uuid"`
	ActorName  string `json:"actorName,omitempty"`
}

// DecodeIntent parses and validates a wire intent
func DecodeIntent(data []byte) (Intent, error) {
	var w WireIntent
	if err := json.Unmarshal(data, &w); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	return w.Intent()
}

// Intent validates w and converts it. Unrecognised actions become RoleChange.
func (w WireIntent) Intent() (Intent, error) {
	if err := validate.Struct(w); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	itemType, ok := ParseItemType(w.Extra.Type)
	if !ok {
		return Intent{}, fmt.Errorf("%w: unknown item type %q", ErrInvalidIntent, w.Extra.Type)
	}

	recipients := make([]Recipient, 0, len(w.Recipients))
	for _, r := range w.Recipients {
		rec := Recipient{ID: r.ID}
		if r.Mail != "" || r.DisplayName != "" {
			rec.Profile = &identity.Profile{ID: r.ID, DisplayName: r.DisplayName, Mail: r.Mail}
		}
		recipients = append(recipients, rec)
	}

	taskID := w.Item.TaskID
	if taskID == "" && itemType == ItemTask {
		taskID = w.Item.ID
		// the item id lands in the uuid task column
		if err := validate.Var(taskID, "omitempty,uuid"); err != nil {
			return Intent{}, fmt.Errorf("%w: item id: %v", ErrInvalidIntent, err)
		}
	}

	return Intent{
		Action:     w.action(itemType),
		Recipients: recipients,
		Subject: Subject{
			ID:        w.Item.ID,
			ProjectID: w.Item.ProjectID,
			TaskID:    taskID,
			RoomID:    w.Item.RoomID,
		},
		ActorID: w.Extra.ActorID,
	}, nil
}

func (w WireIntent) action(itemType ItemType) Action {
	project := w.Item.ProjectName
	if project == "" {
		project = w.Item.Title
	}

	switch ActionKind(w.Action) {
	case KindGrant:
		return Grant{Project: project}
	case KindRevoke:
		return Revoke{Project: project}
	case KindChangeUserAccess:
		return ChangeUserAccess{Project: project, Role: w.Extra.Role, Permission: w.Extra.Permission}
	case KindPriorityChange:
		return PriorityChange{ItemType: itemType, Title: w.Item.Title, Priority: w.Extra.Priority}
	case KindStatusChange:
		return StatusChange{ItemType: itemType, Title: w.Item.Title, Status: w.Extra.Status}
	case KindOwnershipChange:
		return OwnershipChange{Project: project}
	case KindManagerChange:
		return ManagerChange{Project: project}
	case KindAssignTask:
		return AssignTask{Task: w.Item.Title}
	case KindUnassignTask:
		return UnassignTask{Task: w.Item.Title}
	case KindComment:
		return Comment{ItemType: itemType, Title: w.Item.Title, Author: w.Extra.ActorName, Body: w.Extra.Comment}
	case KindNewMeeting:
		return NewMeeting{Meeting: w.Item.Title, Start: w.Item.Start, Organizer: w.Extra.ActorName, Project: w.Item.ProjectName}
	default:
		return RoleChange{Role: w.Extra.Role}
	}
}
