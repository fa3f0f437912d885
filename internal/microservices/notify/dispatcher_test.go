package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"imis/internal/microservices/http-api/models"
	"imis/internal/microservices/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	records []*models.Notification
	err     error
	panics  bool
}

func (s *fakeStore) Create(_ context.Context, n *models.Notification) error {
	if s.panics {
		panic("store exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	n.ID = int64(len(s.records) + 1)
	s.records = append(s.records, n)
	return nil
}

type push struct {
	principal string
	event     string
	payload   PushPayload
}

type fakePresence struct {
	mu     sync.Mutex
	online map[string]bool
	pushes []push
}

func newFakePresence(online ...string) *fakePresence {
	p := &fakePresence{online: map[string]bool{}}
	for _, id := range online {
		p.online[id] = true
	}
	return p
}

func (p *fakePresence) IsOnline(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[id]
}

func (p *fakePresence) Push(id, event string, payload any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.online[id] {
		return false
	}
	p.pushes = append(p.pushes, push{id, event, payload.(PushPayload)})
	return true
}

func (p *fakePresence) pushedTo() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, x := range p.pushes {
		out = append(out, x.principal)
	}
	return out
}

type fakeResolver struct {
	profiles map[string]identity.Profile
	calls    [][]string
}

func (r *fakeResolver) ResolveMany(_ context.Context, ids []string) ([]identity.Profile, error) {
	r.calls = append(r.calls, ids)
	var out []identity.Profile
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []Email
	sentAt  []time.Time
	failFor map[string]bool
	panicOn string
}

func (m *fakeMailer) Send(_ context.Context, e Email) error {
	if e.ToAddress == m.panicOn {
		panic("mailer exploded")
	}
	if m.failFor[e.ToAddress] {
		return errors.New("mailbox unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	m.sentAt = append(m.sentAt, time.Now())
	return nil
}

func (m *fakeMailer) addresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.sent {
		out = append(out, e.ToAddress)
	}
	return out
}

type dispatcherFixture struct {
	store    *fakeStore
	presence *fakePresence
	resolver *fakeResolver
	mailer   *fakeMailer
	d        *Dispatcher
}

func newFixture(online []string, profiles []identity.Profile, opts Options) *dispatcherFixture {
	f := &dispatcherFixture{
		store:    &fakeStore{},
		presence: newFakePresence(online...),
		resolver: &fakeResolver{profiles: map[string]identity.Profile{}},
		mailer:   &fakeMailer{failFor: map[string]bool{}},
	}
	for _, p := range profiles {
		f.resolver.profiles[p.ID] = p
	}
	f.d = NewDispatcher(f.store, f.presence, f.resolver, f.mailer,
		NewEmailRenderer("[Imis]", "https://imis.local"), opts,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func profile(id string) identity.Profile {
	return identity.Profile{ID: id, DisplayName: "User " + id, Mail: id + "@imis.local"}
}

func TestDispatch_OneRecordWithAllRecipients(t *testing.T) {
	f := newFixture([]string{"u1"}, []identity.Profile{profile("u2"), profile("u3")}, Options{})
	p3 := profile("u3")

	rep := f.d.Dispatch(context.Background(), Intent{
		Action: AssignTask{Task: "Survey"},
		Recipients: append(IDs("u1", "u2", "u1", ""),
			Recipient{ID: "u3", Profile: &p3}, Recipient{ID: "u2"}),
		Subject: Subject{ID: "t1", ProjectID: "p1", TaskID: "t1"},
	})

	require.Len(t, f.store.records, 1)
	rec := f.store.records[0]
	assert.Equal(t, []string{"u1", "u2", "u3"}, []string(rec.Recipients))
	assert.Equal(t, "Task Assignment", rec.Title)
	require.NotNil(t, rec.ProjectID)
	assert.Equal(t, "p1", *rec.ProjectID)
	assert.Nil(t, rec.Actor)
	assert.Equal(t, int64(1), rep.RecordID)
}

func TestDispatch_OnlinePushedOfflineEmailed(t *testing.T) {
	f := newFixture([]string{"u1", "u2"}, []identity.Profile{profile("u1"), profile("u2"), profile("u3")}, Options{})

	rep := f.d.Dispatch(context.Background(), Intent{
		Action:     StatusChange{ItemType: ItemTask, Title: "Survey", Status: "Done"},
		Recipients: IDs("u1", "u2", "u3"),
		Subject:    Subject{ID: "t1", ProjectID: "p1"},
	})

	assert.ElementsMatch(t, []string{"u1", "u2"}, f.presence.pushedTo())
	assert.Equal(t, []string{"u3@imis.local"}, f.mailer.addresses())
	assert.ElementsMatch(t, []string{"u1", "u2"}, rep.Pushed)
	assert.Equal(t, []string{"u3"}, rep.Emailed)
	// only offline ids are looked up
	assert.Equal(t, [][]string{{"u3"}}, f.resolver.calls)

	for _, p := range f.presence.pushes {
		assert.Equal(t, EventTaskNotif, p.event)
		assert.Equal(t, PushPayload{RoomID: "p1", Title: "Task Status Update",
			Message: "The status of Task - Survey has been changed to Done."}, p.payload)
	}

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "[Imis] Task Status Update", f.mailer.sent[0].Subject)
	assert.Contains(t, f.mailer.sent[0].HTML, "Hello User u3")
}

func TestDispatch_ActorNotPushedButRecorded(t *testing.T) {
	f := newFixture([]string{"actor", "u2"}, nil, Options{})

	f.d.Dispatch(context.Background(), Intent{
		Action:     Comment{ItemType: ItemTask, Title: "Survey", Author: "Ana", Body: "hi"},
		Recipients: IDs("actor", "u2"),
		Subject:    Subject{ProjectID: "p1"},
		ActorID:    "actor",
	})

	assert.Equal(t, []string{"u2"}, f.presence.pushedTo())
	assert.Equal(t, EventMsgNotif, f.presence.pushes[0].event)
	assert.Equal(t, []string{"actor", "u2"}, []string(f.store.records[0].Recipients))
	require.NotNil(t, f.store.records[0].Actor)
	assert.Empty(t, f.mailer.sent)
}

func TestDispatch_SkipsRecipientsWithoutAddress(t *testing.T) {
	noMail := identity.Profile{ID: "u2", DisplayName: "No Mail"}
	f := newFixture(nil, []identity.Profile{profile("u1"), noMail}, Options{})

	rep := f.d.Dispatch(context.Background(), Intent{
		Action:     Grant{Project: "Bridge"},
		Recipients: IDs("u1", "u2", "ghost"),
	})

	assert.Equal(t, []string{"u1"}, rep.Emailed)
	assert.ElementsMatch(t, []string{"u2", "ghost"}, rep.Skipped)
	assert.Equal(t, []string{"u1", "u2", "ghost"}, []string(f.store.records[0].Recipients))
}

func TestDispatch_MalformedAddressSkipsOnlyThatRecipient(t *testing.T) {
	f := newFixture(nil, []identity.Profile{profile("u1")}, Options{})
	good := identity.Profile{ID: "u2", DisplayName: "Grace", Mail: "ok@imis.local"}
	bad := identity.Profile{ID: "u3", DisplayName: "Typo", Mail: "not-an-address"}

	rep := f.d.Dispatch(context.Background(), Intent{
		Action: Grant{Project: "Bridge"},
		Recipients: []Recipient{
			{ID: "u1"}, {ID: "u2", Profile: &good}, {ID: "u3", Profile: &bad},
		},
	})

	require.Len(t, f.store.records, 1)
	assert.Equal(t, []string{"u1", "u2", "u3"}, []string(f.store.records[0].Recipients))
	assert.ElementsMatch(t, []string{"u1@imis.local", "ok@imis.local"}, f.mailer.addresses())
	assert.ElementsMatch(t, []string{"u1", "u2"}, rep.Emailed)
	assert.Equal(t, []string{"u3"}, rep.Skipped)
	assert.Empty(t, rep.Failed)
}

func TestDispatch_EmailFailureIsIsolated(t *testing.T) {
	profiles := []identity.Profile{profile("u1"), profile("u2"), profile("u3"), profile("u4")}
	f := newFixture(nil, profiles, Options{BatchSize: 2})
	f.mailer.failFor["u2@imis.local"] = true
	f.mailer.panicOn = "u3@imis.local"

	rep := f.d.Dispatch(context.Background(), Intent{
		Action:     Revoke{Project: "Bridge"},
		Recipients: IDs("u1", "u2", "u3", "u4"),
	})

	assert.ElementsMatch(t, []string{"u1", "u4"}, rep.Emailed)
	assert.ElementsMatch(t, []string{"u2", "u3"}, rep.Failed)
}

func TestDispatch_BatchesWithDelay(t *testing.T) {
	var profiles []identity.Profile
	var ids []string
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("u%02d", i)
		ids = append(ids, id)
		profiles = append(profiles, profile(id))
	}
	delay := 40 * time.Millisecond
	f := newFixture(nil, profiles, Options{BatchSize: 10, BatchDelay: delay})

	started := time.Now()
	rep := f.d.Dispatch(context.Background(), Intent{Action: Grant{Project: "Bridge"}, Recipients: IDs(ids...)})

	assert.Len(t, rep.Emailed, 25)
	// three batches, two gaps
	assert.GreaterOrEqual(t, time.Since(started), 2*delay)
	assert.Len(t, f.mailer.sent, 25)
}

func TestDispatch_CancelledBetweenBatches(t *testing.T) {
	var profiles []identity.Profile
	var ids []string
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("u%d", i)
		ids = append(ids, id)
		profiles = append(profiles, profile(id))
	}
	f := newFixture(nil, profiles, Options{BatchSize: 2, BatchDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	rep := f.d.Dispatch(ctx, Intent{Action: Grant{Project: "Bridge"}, Recipients: IDs(ids...)})

	assert.Len(t, rep.Emailed, 2)
	assert.Len(t, rep.Failed, 2)
}

func TestDispatch_PersistFailureStillDelivers(t *testing.T) {
	f := newFixture([]string{"u1"}, []identity.Profile{profile("u2")}, Options{})
	f.store.err = errors.New("db down")

	rep := f.d.Dispatch(context.Background(), Intent{Action: Grant{Project: "Bridge"}, Recipients: IDs("u1", "u2")})

	assert.Zero(t, rep.RecordID)
	assert.Equal(t, []string{"u1"}, rep.Pushed)
	assert.Equal(t, []string{"u2"}, rep.Emailed)
}

func TestDispatch_PanicIsContained(t *testing.T) {
	f := newFixture([]string{"u1"}, nil, Options{})
	f.store.panics = true

	assert.NotPanics(t, func() {
		f.d.Dispatch(context.Background(), Intent{Action: Grant{Project: "Bridge"}, Recipients: IDs("u1")})
	})
}

func TestDispatch_NoRecipientsWritesNothing(t *testing.T) {
	f := newFixture(nil, nil, Options{})

	f.d.Dispatch(context.Background(), Intent{Action: Grant{Project: "Bridge"}, Recipients: IDs("", "")})

	assert.Empty(t, f.store.records)
}

func TestDispatch_NilActionFallsBackToRoleChange(t *testing.T) {
	f := newFixture([]string{"u1"}, nil, Options{})

	f.d.Dispatch(context.Background(), Intent{Recipients: IDs("u1")})

	require.Len(t, f.store.records, 1)
	assert.Equal(t, "imis Role Change", f.store.records[0].Title)
	assert.Equal(t, EventNotification, f.presence.pushes[0].event)
}

func TestNotify_RunsOnPool(t *testing.T) {
	f := newFixture([]string{"u1"}, nil, Options{})
	pool := NewWorkerPool(2, 4, slog.New(slog.NewTextHandler(io.Discard, nil)))
	pool.Start()
	f.d.pool = pool

	f.d.Notify(Intent{Action: Grant{Project: "Bridge"}, Recipients: IDs("u1")})
	pool.Wait()

	assert.Equal(t, []string{"u1"}, f.presence.pushedTo())
	assert.False(t, pool.Submit(func(context.Context) error { return nil }), "closed pool rejects work")
}
