package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchOrderAndWildcard(t *testing.T) {
	d := NewDispatcher(nil)
	var calls []string

	d.Subscribe(TimesheetStopped, SubscriberFunc(func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.Name)
		return nil
	}))
	d.Subscribe(TimesheetStopped, SubscriberFunc(func(_ context.Context, e Event) error {
		calls = append(calls, "failing")
		return errors.New("boom")
	}))
	d.Subscribe(Wildcard, SubscriberFunc(func(_ context.Context, e Event) error {
		calls = append(calls, "all:"+e.Name)
		return nil
	}))

	d.Dispatch(context.Background(), New(TimesheetStopped, 1, 2, nil))
	d.Dispatch(context.Background(), New(TimesheetCreated, 1, 3, nil))

	assert.Equal(t, []string{
		"first:timesheet.stopped",
		"failing",
		"all:timesheet.stopped",
		"all:timesheet.created",
	}, calls)
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() { d.Dispatch(context.Background(), New(UserLogin, 1, 1, nil)) })
}

type recordingWriter struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	closed  bool
	err     error
	release chan struct{}
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.release != nil {
		select {
		case <-w.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if w.err != nil {
		return w.err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestKafkaPublisherWritesJSON(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher("hourly.events", w, nil, 8)

	err := p.Handle(context.Background(), New(InvoiceCreated, 4, 42, map[string]string{"number": "2026/001"}))
	require.NoError(t, err)
	require.NoError(t, p.Close())

	assert.True(t, w.closed)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, InvoiceCreated, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, InvoiceCreated, decoded.Name)
	assert.Equal(t, uint(4), decoded.UserID)
}

func TestKafkaPublisherWriteFailureDoesNotReachCaller(t *testing.T) {
	p := newKafkaPublisher("t", &recordingWriter{err: errors.New("broker down")}, nil, 8)
	assert.NoError(t, p.Handle(context.Background(), New(TimesheetDeleted, 1, 1, nil)))
	assert.NoError(t, p.Close())
}

func TestSlowBrokerDoesNotBlockDispatch(t *testing.T) {
	w := &recordingWriter{release: make(chan struct{})}
	p := newKafkaPublisher("t", w, nil, 8)

	d := NewDispatcher(nil)
	d.Subscribe(Wildcard, p)

	finished := make(chan struct{})
	go func() {
		for i := 1; i <= 3; i++ {
			d.Dispatch(context.Background(), New(TimesheetStopped, 1, uint(i), nil))
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch waited for the broker")
	}

	close(w.release)
	require.NoError(t, p.Close())
	assert.Len(t, w.msgs, 3)
}

func TestKafkaPublisherRejectsWhenQueueIsFull(t *testing.T) {
	w := &recordingWriter{release: make(chan struct{})}
	p := newKafkaPublisher("t", w, nil, 1)

	// The first message may already be taken by the delivery goroutine,
	// so keep handling until the single slot is occupied.
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = p.Handle(context.Background(), New(TimesheetStopped, 1, uint(i), nil))
	}
	assert.ErrorIs(t, err, ErrQueueFull)

	close(w.release)
	require.NoError(t, p.Close())
	err = p.Handle(context.Background(), New(TimesheetStopped, 1, 9, nil))
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestAuditLogIgnoresRoutineEvents(t *testing.T) {
	sub := AuditLog(nil)
	assert.NoError(t, sub.Handle(context.Background(), New(TimesheetStarted, 1, 1, nil)))
	assert.NoError(t, sub.Handle(context.Background(), New(TimesheetDeleted, 1, 1, nil)))
	assert.True(t, auditedEvents[TimesheetDeleted])
	assert.False(t, auditedEvents[TimesheetStarted])
}
