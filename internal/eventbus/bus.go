package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/gamelobby/internal/model"
)

// Bus receives domain events after successful mutations.
// Publishing is fire-and-forget: it never fails the caller.
type Bus interface {
	Publish(ctx context.Context, events ...model.Event)
}

// Subscriber handles published events. Handle must not block.
type Subscriber interface {
	Handle(ctx context.Context, event model.Event)
}

// SubscriberFunc adapts a function to Subscriber
type SubscriberFunc func(ctx context.Context, event model.Event)

func (f SubscriberFunc) Handle(ctx context.Context, event model.Event) {
	f(ctx, event)
}

// Dispatcher is an in-process Bus that fans events out to subscribers
// synchronously, in subscription order
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[int]Subscriber
	order       []int
	nextID      int
	logger      *slog.Logger
}

// Ensure Dispatcher implements Bus
var _ Bus = (*Dispatcher)(nil)

// New creates a Dispatcher with no subscribers
func New(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[int]Subscriber),
		logger:      logger.With(slog.String("component", "eventbus")),
	}
}

// Subscribe registers a subscriber and returns a function that removes it
func (d *Dispatcher) Subscribe(sub Subscriber) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.subscribers[id] = sub
	d.order = append(d.order, id)

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subscribers, id)
		for i, v := range d.order {
			if v == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers each event to every subscriber. A panicking subscriber
// is logged and skipped.
func (d *Dispatcher) Publish(ctx context.Context, events ...model.Event) {
	d.mu.RLock()
	subs := make([]Subscriber, 0, len(d.order))
	for _, id := range d.order {
		subs = append(subs, d.subscribers[id])
	}
	d.mu.RUnlock()

	for _, event := range events {
		d.logger.Debug("event published",
			slog.String("type", string(event.Type)),
			slog.String("room_id", string(event.RoomID)),
			slog.String("player_id", string(event.PlayerID)))

		for _, sub := range subs {
			d.deliver(ctx, sub, event)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sub Subscriber, event model.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("event subscriber panicked",
				slog.String("type", string(event.Type)),
				slog.Any("panic", rec))
		}
	}()
	sub.Handle(ctx, event)
}

// Recorder is a Subscriber that keeps every event it sees
type Recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *Recorder) Handle(ctx context.Context, event model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

// OfType returns the recorded events of one type
func (r *Recorder) OfType(t model.EventType) []model.Event {
	var out []model.Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears the recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
