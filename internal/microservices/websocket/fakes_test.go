package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"imis/internal/microservices/http-api/models"
	"imis/internal/microservices/http-api/repository"
	"imis/internal/microservices/identity"
	"imis/internal/microservices/notify"
	"imis/internal/microservices/presence"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeConn satisfies Conn; reads block until closed
type fakeConn struct {
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn { return &fakeConn{closed: make(chan struct{})} }

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("use of closed connection")
}
func (f *fakeConn) WriteMessage(int, []byte) error            { return nil }
func (f *fakeConn) SetReadLimit(int64)                        {}
func (f *fakeConn) SetReadDeadline(time.Time) error           { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error          { return nil }
func (f *fakeConn) SetPongHandler(func(appData string) error) {}
func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

type fakeResolver struct {
	profiles map[string]identity.Profile
	err      error
}

func (f *fakeResolver) Resolve(_ context.Context, id string) (*identity.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeResolver) ResolveMany(_ context.Context, ids []string) ([]identity.Profile, error) {
	var out []identity.Profile
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeProjects struct {
	mu       sync.Mutex
	projects map[string]*models.Project
	members  map[string][]string
	// onIsMember runs before each membership lookup, outside the lock
	onIsMember func(userID string)
}

func (f *fakeProjects) GetByID(_ context.Context, id string) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) UpdateStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	return nil
}

func (f *fakeProjects) IsMember(_ context.Context, projectID, userID string) (bool, error) {
	if f.onIsMember != nil {
		f.onIsMember(userID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members[projectID] {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProjects) ListMemberIDs(_ context.Context, projectID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.members[projectID]...), nil
}

type fakeTasks struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
}

func (f *fakeTasks) GetByID(_ context.Context, id string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) UpdateStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[id].Status = status
	return nil
}

func (f *fakeTasks) UpdatePriority(_ context.Context, id, priority string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[id].Priority = priority
	return nil
}

// fakeComments serializes toggles the way the row lock does
type fakeComments struct {
	mu       sync.Mutex
	comments map[string]*models.TaskComment
}

func (f *fakeComments) Create(_ context.Context, c *models.TaskComment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.CreatedAt = time.Now()
	cp := *c
	f.comments[c.CommentID] = &cp
	return nil
}

func (f *fakeComments) GetByID(_ context.Context, id string) (*models.TaskComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeComments) ToggleLike(_ context.Context, id string, who models.LikedBy) (*models.TaskComment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	liked := c.ToggleLike(who)
	cp := *c
	cp.LikedBy = append([]models.LikedBy(nil), c.LikedBy...)
	return &cp, liked, nil
}

type fakeChats struct {
	participants map[string][]string
}

func (f *fakeChats) IsParticipant(_ context.Context, chatID, userID string) (bool, error) {
	for _, p := range f.participants[chatID] {
		if p == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeMessages struct {
	mu    sync.Mutex
	saved []models.Message
}

func (f *fakeMessages) Save(_ context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, *m)
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.Log
}

func (f *fakeAudit) Append(_ context.Context, e *models.Log) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *e)
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	intents []notify.Intent
}

func (f *recordingNotifier) Notify(in notify.Intent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, in)
}

func (f *recordingNotifier) all() []notify.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Intent(nil), f.intents...)
}

// testEnv wires a gateway and router over in-memory collaborators
type testEnv struct {
	registry *presence.Registry
	rooms    *presence.Tracker
	hub      *Hub
	router   *Router
	gateway  *Gateway
	resolver *fakeResolver
	projects *fakeProjects
	tasks    *fakeTasks
	comments *fakeComments
	chats    *fakeChats
	messages *fakeMessages
	audit    *fakeAudit
	notifier *recordingNotifier
}

const (
	u1 = "11111111-1111-1111-1111-111111111111"
	u2 = "22222222-2222-2222-2222-222222222222"
	u3 = "33333333-3333-3333-3333-333333333333"
	u4 = "44444444-4444-4444-4444-444444444444"

	p1 = "aaaaaaaa-0000-0000-0000-000000000001"
	p2 = "aaaaaaaa-0000-0000-0000-000000000002"
	t1 = "bbbbbbbb-0000-0000-0000-000000000001"
	r1 = "cccccccc-0000-0000-0000-000000000001"
)

func newTestEnv(t *testing.T, limits Limits) *testEnv {
	t.Helper()
	logger := discardLogger()

	env := &testEnv{
		registry: presence.NewRegistry(logger),
		rooms:    presence.NewTracker(logger),
		resolver: &fakeResolver{profiles: map[string]identity.Profile{
			u1: {ID: u1, DisplayName: "Ada", Mail: "ada@imis.test"},
			u2: {ID: u2, DisplayName: "Grace", Mail: "grace@imis.test"},
			u3: {ID: u3, DisplayName: "Linus", Mail: "linus@imis.test"},
			u4: {ID: u4, DisplayName: "Outsider", Mail: "out@imis.test"},
		}},
		projects: &fakeProjects{
			projects: map[string]*models.Project{
				p1: {ID: p1, Title: "Bridge Survey", WorkOrderNo: "WO-17", Status: "Not Started"},
			},
			members: map[string][]string{p1: {u1, u2, u3}},
		},
		tasks: &fakeTasks{tasks: map[string]*models.Task{
			t1: {ID: t1, ProjectID: p1, Title: "Pour footing", Status: "Not Started", CreatedBy: u1, AssignedTo: []string{u2}},
		}},
		comments: &fakeComments{comments: map[string]*models.TaskComment{}},
		chats:    &fakeChats{participants: map[string][]string{r1: {u1, u2}}},
		messages: &fakeMessages{},
		audit:    &fakeAudit{},
		notifier: &recordingNotifier{},
	}
	env.hub = NewHub(env.registry, env.rooms, logger)
	env.router = NewRouter(RouterDeps{
		Projects: env.projects,
		Tasks:    env.tasks,
		Comments: env.comments,
		Chats:    env.chats,
		Messages: env.messages,
		Audit:    env.audit,
		Notifier: env.notifier,
	}, env.rooms, env.hub, time.Second, logger)
	env.gateway = NewGateway(env.resolver, env.registry, env.rooms, env.hub, env.router, limits, logger)
	return env
}

// connect activates a client without running its pumps; frames stay queued in c.send
func (e *testEnv) connect(t *testing.T, principalID string) *Client {
	t.Helper()
	profile, err := e.gateway.Authenticate(context.Background(), principalID)
	require.NoError(t, err)
	return e.gateway.Activate(*profile, newFakeConn())
}

func (e *testEnv) send(t *testing.T, c *Client, event string, data any) {
	t.Helper()
	frame, err := Encode(event, data)
	require.NoError(t, err)
	e.router.Handle(context.Background(), c, frame)
}

// drain returns every queued frame for c
func drain(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case frame := <-c.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

// ofEvent keeps the envelopes named event
func ofEvent(envs []Envelope, event string) []Envelope {
	var out []Envelope
	for _, e := range envs {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func decode[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}
