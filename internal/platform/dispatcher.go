// Package platform hosts the event handlers: it turns store and bucket writes into
// trigger events and delivers them at least once.
package platform

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/friendlychat-server/internal/events"
)

// Handler processes one trigger event. A returned error schedules a redelivery.
type Handler[E any] func(ctx context.Context, ev E) error

type registration[E any] struct {
	name   string
	handle Handler[E]
}

// Dispatcher runs registered handlers for every fired event, each in its own goroutine.
type Dispatcher struct {
	ctx        context.Context
	cancel     context.CancelFunc
	timeout    time.Duration
	maxRetries uint64
	newBackOff func() backoff.BackOff
	log        *zerolog.Logger

	mu            sync.RWMutex
	closed        bool
	userCreated   []registration[events.UserCreated]
	objectChanged []registration[events.ObjectChanged]
	messageWrites []registration[events.MessageWrite]

	wg sync.WaitGroup
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithBackOff replaces the redelivery schedule.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(d *Dispatcher) {
		d.newBackOff = f
	}
}

// NewDispatcher builds a dispatcher. Every invocation is bounded by timeout and a failing
// invocation is retried up to maxRetries times.
func NewDispatcher(timeout time.Duration, maxRetries uint64, logger *zerolog.Logger, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		ctx:        ctx,
		cancel:     cancel,
		timeout:    timeout,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		log:        logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnUserCreated registers a handler for new accounts.
func (d *Dispatcher) OnUserCreated(name string, h Handler[events.UserCreated]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userCreated = append(d.userCreated, registration[events.UserCreated]{name, h})
}

// OnObjectChanged registers a handler for bucket changes.
func (d *Dispatcher) OnObjectChanged(name string, h Handler[events.ObjectChanged]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objectChanged = append(d.objectChanged, registration[events.ObjectChanged]{name, h})
}

// OnMessageWrite registers a handler for writes under the messages collection.
func (d *Dispatcher) OnMessageWrite(name string, h Handler[events.MessageWrite]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messageWrites = append(d.messageWrites, registration[events.MessageWrite]{name, h})
}

// UserCreated fires ev to every user handler.
func (d *Dispatcher) UserCreated(ev events.UserCreated) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dispatch(d, "user.created", d.userCreated, ev)
}

// ObjectChanged fires ev to every storage handler.
func (d *Dispatcher) ObjectChanged(ev events.ObjectChanged) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dispatch(d, "object.changed", d.objectChanged, ev)
}

// MessageWritten fires ev to every message handler.
func (d *Dispatcher) MessageWritten(ev events.MessageWrite) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dispatch(d, "message.write", d.messageWrites, ev)
}

// dispatch must run under d.mu so that Stop never races a wg.Add.
func dispatch[E any](d *Dispatcher, trigger string, regs []registration[E], ev E) {
	if d.closed {
		d.log.Warn().Str("trigger", trigger).Msg("dispatcher stopped, event dropped")
		return
	}
	for _, r := range regs {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.invoke(trigger, r.name, func(ctx context.Context) error {
				return r.handle(ctx, ev)
			})
		}()
	}
}

func (d *Dispatcher) invoke(trigger, name string, fn func(context.Context) error) {
	logger := d.log.With().Str("trigger", trigger).Str("function", name).Logger()

	attempt := 0
	op := func() error {
		attempt++
		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		defer cancel()

		err := fn(ctx)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("invocation failed")
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(d.newBackOff(), d.maxRetries), d.ctx)
	if err := backoff.Retry(op, policy); err != nil {
		// backoff.Permanent failures stop after the first attempt.
		logger.Error().Err(err).Int("attempts", attempt).Msg("giving up on event")
		return
	}
	logger.Debug().Int("attempts", attempt).Msg("invocation finished")
}

// Wait blocks until every in-flight invocation, including redeliveries, has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Stop drops every event fired from now on and waits for in-flight invocations.
// When ctx expires first the remaining invocations are cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	defer d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
