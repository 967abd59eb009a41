package platform

import (
	"context"
	"strconv"

	"github.com/vovakirdan/friendlychat-server/internal/core"
	"github.com/vovakirdan/friendlychat-server/internal/events"
	"github.com/vovakirdan/friendlychat-server/internal/store"
)

// Publisher receives change notifications for realtime subscribers.
type Publisher interface {
	Publish(ev *core.Event)
}

// Database wraps a store so that every user and message write is announced to
// realtime subscribers and to the registered handlers.
type Database struct {
	store.Store
	hub      Publisher
	triggers *Dispatcher
}

// NewDatabase decorates st. hub may be nil when nobody listens in realtime.
func NewDatabase(st store.Store, hub Publisher, triggers *Dispatcher) *Database {
	return &Database{Store: st, hub: hub, triggers: triggers}
}

func (d *Database) CreateUser(ctx context.Context, username, passwordHash, displayName, photoURL string) (*store.User, error) {
	u, err := d.Store.CreateUser(ctx, username, passwordHash, displayName, photoURL)
	if err != nil {
		return nil, err
	}
	d.userCreated(u)
	return u, nil
}

func (d *Database) CreateGuestUser(ctx context.Context, sessionID string) (*store.User, error) {
	u, err := d.Store.CreateGuestUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	d.userCreated(u)
	return u, nil
}

func (d *Database) userCreated(u *store.User) {
	d.triggers.UserCreated(events.UserCreated{
		UID:         strconv.FormatInt(u.ID, 10),
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
	})
}

// CreateMessage appends msg and fires a create write.
func (d *Database) CreateMessage(ctx context.Context, msg *store.Message) error {
	if err := d.Store.CreateMessage(ctx, msg); err != nil {
		return err
	}

	current := *msg
	d.publish(core.EventChildAdded, current)
	d.triggers.MessageWritten(events.MessageWrite{Path: current.Path(), Current: &current})
	return nil
}

// UpdateMessage patches a message and fires an update write carrying both states.
func (d *Database) UpdateMessage(ctx context.Context, id string, patch store.MessagePatch) (*store.Message, *store.Message, error) {
	before, after, err := d.Store.UpdateMessage(ctx, id, patch)
	if err != nil {
		return nil, nil, err
	}

	d.publish(core.EventChildChanged, *after)
	d.triggers.MessageWritten(events.MessageWrite{Path: after.Path(), Previous: before, Current: after})
	return before, after, nil
}

func (d *Database) publish(kind core.EventKind, msg store.Message) {
	if d.hub == nil {
		return
	}
	d.hub.Publish(&core.Event{Kind: kind, Message: msg})
}
