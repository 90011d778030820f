package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-polyglot/internal/observability"
)

// LogSink writes each notification as a structured debug line.
type LogSink struct {
	Log zerolog.Logger
}

// Emit implements Sink.
func (s LogSink) Emit(_ context.Context, ev Event) {
	s.Log.Debug().
		Str("kind", string(ev.Kind)).
		Str("entity_type", ev.Record.EntityType).
		Str("entity_id", ev.Record.EntityID).
		Str("field", ev.Record.Field).
		Str("locale", ev.Record.Locale).
		Time("at", ev.At).
		Msg("translation event")
}

// MetricsSink counts notifications in polyglot_translation_events_total.
type MetricsSink struct{}

// Emit implements Sink.
func (MetricsSink) Emit(_ context.Context, ev Event) {
	observability.TranslationEvents.WithLabelValues(string(ev.Kind), ev.Record.EntityType).Inc()
}

// Fanout forwards every notification to each sink in order.
type Fanout []Sink

// Emit implements Sink.
func (f Fanout) Emit(ctx context.Context, ev Event) {
	for _, s := range f {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

// AsyncSink decouples the store from slow listeners: Emit enqueues onto a
// bounded buffer and a single goroutine delivers to the wrapped sink.
// When the buffer is full the event is dropped and counted.
type AsyncSink struct {
	next Sink
	ch   chan Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncSink starts the delivery goroutine. Call Close to drain and stop it.
func NewAsyncSink(next Sink, buffer int) *AsyncSink {
	if buffer < 1 {
		buffer = 1
	}
	a := &AsyncSink{next: next, ch: make(chan Event, buffer), done: make(chan struct{})}
	go a.run()
	return a
}

func (a *AsyncSink) run() {
	defer close(a.done)
	for ev := range a.ch {
		// Delivery happens outside the request; do not carry its cancellation.
		a.deliver(ev)
	}
}

func (a *AsyncSink) deliver(ev Event) {
	defer func() { _ = recover() }()
	a.next.Emit(context.Background(), ev)
}

// Emit implements Sink. It never blocks.
func (a *AsyncSink) Emit(_ context.Context, ev Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- ev:
	default:
		observability.EventsDropped.Inc()
	}
}

// Close stops accepting events, delivers what is buffered, and waits for
// the goroutine to exit. It is safe to call more than once.
func (a *AsyncSink) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	<-a.done
}
