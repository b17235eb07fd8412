// Package events dispatches domain events to subscribers (metrics, audit log, kafka).
package events

import (
	"context"
	"sync"
	"time"

	"github.com/balkashynov/hourly/internal/logger"
)

// Event names
const (
	TimesheetStarted     = "timesheet.started"
	TimesheetStopped     = "timesheet.stopped"
	TimesheetCreated     = "timesheet.created"
	TimesheetUpdated     = "timesheet.updated"
	TimesheetDeleted     = "timesheet.deleted"
	InvoiceCreated       = "invoice.created"
	InvoiceStatusChanged = "invoice.status_changed"
	ExportCreated        = "export.created"
	UserLogin            = "user.login"
)

// Event is a named occurrence with a JSON serializable payload.
type Event struct {
	Name       string      `json:"name"`
	OccurredAt time.Time   `json:"occurred_at"`
	UserID     uint        `json:"user_id"`
	EntityID   uint        `json:"entity_id"`
	Payload    interface{} `json:"payload,omitempty"`
}

// New stamps an event with the current time.
func New(name string, userID, entityID uint, payload interface{}) Event {
	return Event{Name: name, OccurredAt: time.Now().UTC(), UserID: userID, EntityID: entityID, Payload: payload}
}

// Subscriber handles events. Returned errors are logged, never propagated.
type Subscriber interface {
	Handle(ctx context.Context, event Event) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, event Event) error

func (f SubscriberFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Wildcard subscribes to every event.
const Wildcard = "*"

// Dispatcher fans events out to subscribers synchronously, in subscription order.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber
	log         *logger.Logger
}

func NewDispatcher(log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{subscribers: map[string][]Subscriber{}, log: log}
}

// Subscribe registers s for the event name, or for all events with Wildcard.
func (d *Dispatcher) Subscribe(name string, s Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[name] = append(d.subscribers[name], s)
}

// Dispatch delivers the event. A nil dispatcher drops events.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	targets := append(append([]Subscriber{}, d.subscribers[event.Name]...), d.subscribers[Wildcard]...)
	d.mu.RUnlock()

	for _, s := range targets {
		if err := s.Handle(ctx, event); err != nil {
			d.log.Warnw("event subscriber failed", "event", event.Name, "error", err)
		}
	}
}
