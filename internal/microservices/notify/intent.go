package notify

import (
	"imis/internal/microservices/identity"
)

// Recipient is either a bare principal id or a resolved profile
type Recipient struct {
	ID      string
	Profile *identity.Profile
}

func (r Recipient) principalID() string {
	if r.Profile != nil && r.Profile.ID != "" {
		return r.Profile.ID
	}
	return r.ID
}

// IDs wraps bare principal ids as recipients
func IDs(ids ...string) []Recipient {
	out := make([]Recipient, 0, len(ids))
	for _, id := range ids {
		out = append(out, Recipient{ID: id})
	}
	return out
}

// Profiles wraps resolved profiles as recipients
func Profiles(profiles ...identity.Profile) []Recipient {
	out := make([]Recipient, 0, len(profiles))
	for i := range profiles {
		p := profiles[i]
		out = append(out, Recipient{ID: p.ID, Profile: &p})
	}
	return out
}

// Subject is the item an intent is about
type Subject struct {
	ID        string
	ProjectID string
	TaskID    string
	RoomID    string
}

// PushRoom is the room id clients use to route a toast: project, then room, then item
func (s Subject) PushRoom() string {
	switch {
	case s.ProjectID != "":
		return s.ProjectID
	case s.RoomID != "":
		return s.RoomID
	default:
		return s.ID
	}
}

// Intent asks the dispatcher to notify Recipients about Action on Subject
type Intent struct {
	Action     Action
	Recipients []Recipient
	Subject    Subject
	// ActorID is optional; the actor never gets a live push about their own action
	ActorID string
}

// RecipientIDs flattens recipients to distinct non-empty ids in first-seen order
func (in Intent) RecipientIDs() []string {
	seen := make(map[string]struct{}, len(in.Recipients))
	ids := make([]string, 0, len(in.Recipients))
	for _, r := range in.Recipients {
		id := r.principalID()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// knownProfiles indexes the profiles callers already attached
func (in Intent) knownProfiles() map[string]identity.Profile {
	out := make(map[string]identity.Profile)
	for _, r := range in.Recipients {
		if r.Profile != nil {
			out[r.principalID()] = *r.Profile
		}
	}
	return out
}

// PushPayload is what online recipients receive
type PushPayload struct {
	RoomID  string `json:"roomId"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
