// Package events carries translation lifecycle notifications (created,
// updated, deleted) from the store to whatever listens for them.
//
// Notifications are fire-and-forget: a Dispatcher never blocks on or fails
// because of a sink, and a disabled Dispatcher drops everything.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-polyglot/internal/domain"
)

// Kind names a lifecycle transition of a translation record.
type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Deleted Kind = "deleted"
)

// Event is one lifecycle notification. Record is a copy of the row as it
// was after the mutation (before it, for Deleted).
type Event struct {
	Kind   Kind
	Record domain.Translation
	At     time.Time
}

// Sink receives notifications.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event)

// Emit implements Sink.
func (f SinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

// Dispatcher gates notifications behind the events-enabled flag and shields
// the caller from sink panics. The zero value and a nil *Dispatcher are
// valid and drop everything.
type Dispatcher struct {
	enabled bool
	sink    Sink
	log     zerolog.Logger
}

// NewDispatcher returns a Dispatcher forwarding to sink when enabled.
func NewDispatcher(enabled bool, sink Sink) *Dispatcher {
	return &Dispatcher{enabled: enabled, sink: sink, log: log.With().Str("component", "events").Logger()}
}

// Enabled reports whether notifications are forwarded.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.enabled && d.sink != nil
}

// Dispatch forwards a notification of the given kind for rec.
func (d *Dispatcher) Dispatch(ctx context.Context, kind Kind, rec domain.Translation) {
	if !d.Enabled() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Interface("panic", r).
				Str("kind", string(kind)).
				Str("entity_type", rec.EntityType).
				Str("entity_id", rec.EntityID).
				Msg("event sink panicked")
		}
	}()
	d.sink.Emit(ctx, Event{Kind: kind, Record: rec, At: time.Now().UTC()})
}
