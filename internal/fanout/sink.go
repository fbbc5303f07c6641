// Package fanout mirrors administrator broadcasts to out-of-process consumers.
// Sinks are best-effort: a slow or broken sink never stalls the realtime path.
package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is one administrator broadcast
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type Sink interface {
	Name() string
	Publish(ctx context.Context, event Event) error
}

// Async queues events for a sink and delivers them from one goroutine.
// Events are dropped when the queue is full.
type Async struct {
	sink    Sink
	queue   chan Event
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsync(sink Sink, size int, log zerolog.Logger) *Async {
	if size <= 0 {
		size = 256
	}
	a := &Async{
		sink:    sink,
		queue:   make(chan Event, size),
		timeout: 5 * time.Second,
		log:     log.With().Str("component", "fanout").Str("sink", sink.Name()).Logger(),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Name() string {
	return a.sink.Name()
}

// Publish enqueues without blocking. It never returns an error; drops are logged.
func (a *Async) Publish(_ context.Context, event Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	select {
	case a.queue <- event:
	default:
		a.log.Warn().Str("type", event.Type).Msg("⚠️  Fan-out queue full, dropping event")
	}
	return nil
}

func (a *Async) run() {
	defer close(a.done)
	for event := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.sink.Publish(ctx, event); err != nil {
			a.log.Error().Err(err).Str("type", event.Type).Msg("❌ Fan-out publish failed")
		}
		cancel()
	}
}

// Close stops accepting events and waits for the queue to drain
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}

// Filter forwards only the listed event types
type Filter struct {
	Sink
	types map[string]struct{}
}

func NewFilter(sink Sink, types ...string) *Filter {
	f := &Filter{Sink: sink, types: make(map[string]struct{}, len(types))}
	for _, t := range types {
		f.types[t] = struct{}{}
	}
	return f
}

func (f *Filter) Publish(ctx context.Context, event Event) error {
	if _, ok := f.types[event.Type]; !ok {
		return nil
	}
	return f.Sink.Publish(ctx, event)
}
