package presence

import (
	"log/slog"
	"slices"
	"sync"

	"imis/internal/microservices/identity"
)

type ScopeKind string

const (
	ScopePage       ScopeKind = "page"
	ScopeDiscussion ScopeKind = "discussion"
	ScopePrivate    ScopeKind = "private"
)

// Scope addresses one broadcast boundary inside a project room
type Scope struct {
	Kind      ScopeKind
	ProjectID string
	// RoomID is only set for private threads
	RoomID string
}

func PageScope(projectID string) Scope {
	return Scope{Kind: ScopePage, ProjectID: projectID}
}

func DiscussionScope(projectID string) Scope {
	return Scope{Kind: ScopeDiscussion, ProjectID: projectID}
}

func PrivateScope(projectID, roomID string) Scope {
	return Scope{Kind: ScopePrivate, ProjectID: projectID, RoomID: roomID}
}

// Key is the channel name clients know the scope by
func (s Scope) Key() string {
	switch s.Kind {
	case ScopeDiscussion:
		return "discussion_" + s.ProjectID
	case ScopePrivate:
		return "private_" + s.RoomID
	default:
		return "project_" + s.ProjectID
	}
}

// Member is one subscribed connection
type Member struct {
	ConnID      string
	PrincipalID string
	DisplayName string
}

type room struct {
	page       []Member
	discussion []Member
	private    map[string][]Member
}

func (r *room) empty() bool {
	return len(r.page) == 0 && len(r.discussion) == 0 && len(r.private) == 0
}

func (r *room) list(s Scope) []Member {
	switch s.Kind {
	case ScopePage:
		return r.page
	case ScopeDiscussion:
		return r.discussion
	default:
		return r.private[s.RoomID]
	}
}

func (r *room) set(s Scope, members []Member) {
	switch s.Kind {
	case ScopePage:
		r.page = members
	case ScopeDiscussion:
		r.discussion = members
	default:
		if len(members) == 0 {
			delete(r.private, s.RoomID)
			return
		}
		r.private[s.RoomID] = members
	}
}

// Tracker holds room membership for every project with at least one subscriber.
// Rooms are created on first join and removed as soon as all their scopes are empty.
type Tracker struct {
	rooms  map[string]*room
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		rooms:  make(map[string]*room),
		logger: logger,
	}
}

// Join adds m to the scope. A principal is listed once: joining again from the
// same connection is a no-op, joining from a newer connection takes over the entry.
// Reports whether membership changed.
func (t *Tracker) Join(s Scope, m Member) bool {
	return t.JoinIf(s, m, nil)
}

// JoinIf is Join guarded by live, which is evaluated under the tracker lock.
// A connection that is torn down marks itself dead before RemoveConnection runs,
// so a join racing the teardown either lands first and is removed, or is refused here.
func (t *Tracker) JoinIf(s Scope, m Member, live func() bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if live != nil && !live() {
		t.logger.Debug("room_join_refused", "scope", s.Key(), "principal_id", m.PrincipalID, "conn_id", m.ConnID)
		return false
	}

	r, ok := t.rooms[s.ProjectID]
	if !ok {
		r = &room{private: make(map[string][]Member)}
		t.rooms[s.ProjectID] = r
	}

	members := r.list(s)
	i := slices.IndexFunc(members, func(x Member) bool { return x.PrincipalID == m.PrincipalID })
	switch {
	case i < 0:
		r.set(s, append(members, m))
	case members[i].ConnID == m.ConnID:
		return false
	default:
		// the entry belongs to a replaced connection
		updated := slices.Clone(members)
		updated[i] = m
		r.set(s, updated)
	}

	t.logger.Debug("room_joined", "scope", s.Key(), "principal_id", m.PrincipalID, "conn_id", m.ConnID)
	return true
}

// Leave removes every entry of connID from the scope and purges the room if it emptied
func (t *Tracker) Leave(s Scope, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.rooms[s.ProjectID]
	if !ok {
		return false
	}
	removed := removeConn(r, s, connID)
	t.purgeLocked(s.ProjectID)
	return removed
}

// RemoveConnection drops connID from every scope of every room and returns the scopes it left
func (t *Tracker) RemoveConnection(connID string) []Scope {
	t.mu.Lock()
	defer t.mu.Unlock()

	var left []Scope
	for projectID, r := range t.rooms {
		scopes := []Scope{PageScope(projectID), DiscussionScope(projectID)}
		for roomID := range r.private {
			scopes = append(scopes, PrivateScope(projectID, roomID))
		}
		for _, s := range scopes {
			if removeConn(r, s, connID) {
				left = append(left, s)
			}
		}
		t.purgeLocked(projectID)
	}
	return left
}

func removeConn(r *room, s Scope, connID string) bool {
	members := r.list(s)
	kept := slices.DeleteFunc(slices.Clone(members), func(x Member) bool { return x.ConnID == connID })
	if len(kept) == len(members) {
		return false
	}
	r.set(s, kept)
	return true
}

// PurgeIfEmpty deletes the project room when no scope has members left
func (t *Tracker) PurgeIfEmpty(projectID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.purgeLocked(projectID)
}

func (t *Tracker) purgeLocked(projectID string) bool {
	r, ok := t.rooms[projectID]
	if !ok || !r.empty() {
		return false
	}
	delete(t.rooms, projectID)
	t.logger.Debug("room_purged", "project_id", projectID, "rooms", len(t.rooms))
	return true
}

// Members returns a copy of the scope's members in join order
func (t *Tracker) Members(s Scope) []Member {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.rooms[s.ProjectID]
	if !ok {
		return nil
	}
	return slices.Clone(r.list(s))
}

// MembersOf returns the member summaries broadcast as room-users
func (t *Tracker) MembersOf(s Scope) []identity.Summary {
	members := t.Members(s)
	out := make([]identity.Summary, 0, len(members))
	for _, m := range members {
		out = append(out, identity.Summary{ID: m.PrincipalID, DisplayName: m.DisplayName})
	}
	return out
}

func (t *Tracker) Contains(s Scope, principalID string) bool {
	return slices.ContainsFunc(t.Members(s), func(m Member) bool { return m.PrincipalID == principalID })
}

// Projects lists the ids of every live room
func (t *Tracker) Projects() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.rooms))
	for id := range t.rooms {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (t *Tracker) RoomCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}
