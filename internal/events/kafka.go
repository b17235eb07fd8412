package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/balkashynov/hourly/internal/logger"
)

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

// ErrQueueFull is returned when the publisher cannot keep up with the event rate.
var ErrQueueFull = errors.New("kafka publish queue is full")

// ErrPublisherClosed is returned for events handled after Close.
var ErrPublisherClosed = errors.New("kafka publisher is closed")

// MessageWriter is the part of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards every event as JSON to a kafka topic.
// Handle only queues the message; a background goroutine delivers it,
// so a slow broker never stalls the request that raised the event.
type KafkaPublisher struct {
	topic        string
	writer       MessageWriter
	log          *logger.Logger
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

// NewKafkaPublisher starts the delivery goroutine. Close drains it.
func NewKafkaPublisher(brokers []string, topic string, log *logger.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newKafkaPublisher(topic, w, log, defaultQueueSize)
}

func newKafkaPublisher(topic string, w MessageWriter, log *logger.Logger, queueSize int) *KafkaPublisher {
	if log == nil {
		log = logger.Nop()
	}
	p := &KafkaPublisher{
		topic:        topic,
		writer:       w,
		log:          log,
		writeTimeout: defaultWriteTimeout,
		queue:        make(chan kafka.Message, queueSize),
		done:         make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) Handle(_ context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.Name, err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.EntityID), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Name)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("failed to publish event %s: %w", event.Name, ErrPublisherClosed)
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return fmt.Errorf("failed to publish event %s: %w", event.Name, ErrQueueFull)
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
		err := p.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			p.log.Warnw("failed to publish event", "topic", p.topic, "event", eventType(msg), "error", err)
		}
	}
}

func eventType(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}

// Close stops accepting events, delivers what is queued and releases the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}
