package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"imis/internal/microservices/http-api/models"
	"imis/internal/microservices/identity"

	"github.com/emersion/go-message/mail"
	"github.com/samber/lo"
)

// Presence is the live-connection view the dispatcher classifies recipients against
type Presence interface {
	IsOnline(principalID string) bool
	Push(principalID, event string, payload any) bool
}

type ProfileResolver interface {
	ResolveMany(ctx context.Context, ids []string) ([]identity.Profile, error)
}

type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	// Pool runs Notify calls; nil runs them inline
	Pool *WorkerPool
}

// Dispatcher turns an intent into one persisted record, live pushes for online
// recipients and batched emails for the rest
type Dispatcher struct {
	store      NotificationStore
	presence   Presence
	profiles   ProfileResolver
	mailer     Mailer
	renderer   *EmailRenderer
	pool       *WorkerPool
	batchSize  int
	batchDelay time.Duration
	logger     *slog.Logger
}

func NewDispatcher(store NotificationStore, presence Presence, profiles ProfileResolver, mailer Mailer, renderer *EmailRenderer, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.BatchSize < 1 {
		opts.BatchSize = 10
	}
	return &Dispatcher{
		store:      store,
		presence:   presence,
		profiles:   profiles,
		mailer:     mailer,
		renderer:   renderer,
		pool:       opts.Pool,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		logger:     logger,
	}
}

// Report describes what one dispatch did
type Report struct {
	RecordID   int64
	Recipients []string
	Pushed     []string
	Emailed    []string
	// Skipped had no resolvable or well-formed contact address
	Skipped []string
	Failed  []string
}

// Notify hands the intent to the worker pool so the caller never waits on email
func (d *Dispatcher) Notify(in Intent) {
	if d.pool == nil {
		d.Dispatch(context.Background(), in)
		return
	}
	ok := d.pool.Submit(func(ctx context.Context) error {
		d.Dispatch(ctx, in)
		return nil
	})
	if !ok {
		d.logger.Warn("notification_dropped", "action", in.Action.Kind())
	}
}

// Dispatch runs every step synchronously. Failures are logged, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, in Intent) (rep Report) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification_dispatch_panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if in.Action == nil {
		in.Action = RoleChange{}
	}
	kind := in.Action.Kind()

	rep.Recipients = in.RecipientIDs()
	if len(rep.Recipients) == 0 {
		d.logger.Debug("notification_no_recipients", "action", kind)
		return rep
	}

	msg := in.Action.Render()

	record := &models.Notification{
		Title:      msg.Title,
		Details:    msg.Details,
		ProjectID:  optional(in.Subject.ProjectID),
		TaskID:     optional(in.Subject.TaskID),
		Recipients: rep.Recipients,
		Actor:      optional(in.ActorID),
	}
	if err := d.store.Create(ctx, record); err != nil {
		// delivery still goes ahead, the record is best effort once this fails
		d.logger.Error("notification_persist_failed", "action", kind, "error", err)
	} else {
		rep.RecordID = record.ID
	}

	// fresh split, whatever the caller believed earlier
	online, offline := lo.FilterReject(rep.Recipients, func(id string, _ int) bool {
		return d.presence.IsOnline(id)
	})

	event := EventName(kind)
	payload := PushPayload{RoomID: in.Subject.PushRoom(), Title: msg.Title, Message: msg.Details}
	for _, id := range online {
		if id == in.ActorID {
			continue
		}
		if d.presence.Push(id, event, payload) {
			rep.Pushed = append(rep.Pushed, id)
		} else {
			// went offline between the split and the push
			d.logger.Warn("notification_push_failed", "principal_id", id, "event", event)
			rep.Failed = append(rep.Failed, id)
		}
	}

	if len(offline) > 0 {
		d.emailOffline(ctx, in, offline, msg, &rep)
	}

	d.logger.Info("notification_dispatched",
		"action", kind,
		"record_id", rep.RecordID,
		"recipients", len(rep.Recipients),
		"pushed", len(rep.Pushed),
		"emailed", len(rep.Emailed),
		"skipped", len(rep.Skipped),
		"failed", len(rep.Failed),
	)
	return rep
}

type emailTarget struct {
	id      string
	name    string
	address string
}

func (d *Dispatcher) emailOffline(ctx context.Context, in Intent, offline []string, msg Message, rep *Report) {
	targets, skipped := d.contactsFor(ctx, in, offline)
	rep.Skipped = append(rep.Skipped, skipped...)

	var mu sync.Mutex
	batches := lo.Chunk(targets, d.batchSize)
	for i, batch := range batches {
		if i > 0 && d.batchDelay > 0 {
			select {
			case <-time.After(d.batchDelay):
			case <-ctx.Done():
				d.logger.Warn("notification_email_cancelled", "remaining_batches", len(batches)-i, "error", ctx.Err())
				for _, rest := range batches[i:] {
					for _, t := range rest {
						rep.Failed = append(rep.Failed, t.id)
					}
				}
				return
			}
		}

		var wg sync.WaitGroup
		for _, t := range batch {
			wg.Add(1)
			go func(t emailTarget) {
				defer wg.Done()
				err := d.sendOne(ctx, t, msg)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					d.logger.Error("email_failed", "principal_id", t.id, "error", err)
					rep.Failed = append(rep.Failed, t.id)
					return
				}
				rep.Emailed = append(rep.Emailed, t.id)
			}(t)
		}
		wg.Wait()
	}
}

func (d *Dispatcher) sendOne(ctx context.Context, t emailTarget, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mailer panic: %v", r)
		}
	}()

	email, err := d.renderer.Render(t.name, t.address, msg)
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, email)
}

// contactsFor resolves offline ids to addresses, using attached profiles first
func (d *Dispatcher) contactsFor(ctx context.Context, in Intent, ids []string) ([]emailTarget, []string) {
	known := in.knownProfiles()
	missing := lo.Filter(ids, func(id string, _ int) bool {
		_, ok := known[id]
		return !ok
	})

	if len(missing) > 0 {
		resolved, err := d.profiles.ResolveMany(ctx, missing)
		if err != nil {
			d.logger.Error("notification_profile_lookup_failed", "count", len(missing), "error", err)
		}
		for _, p := range resolved {
			known[p.ID] = p
		}
	}

	var (
		targets []emailTarget
		skipped []string
	)
	for _, id := range ids {
		p, ok := known[id]
		if !ok || p.Mail == "" {
			skipped = append(skipped, id)
			continue
		}
		addr, err := mail.ParseAddress(p.Mail)
		if err != nil {
			d.logger.Warn("notification_bad_address", "principal_id", id, "error", err)
			skipped = append(skipped, id)
			continue
		}
		targets = append(targets, emailTarget{id: id, name: p.DisplayName, address: addr.Address})
	}
	return targets, skipped
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
