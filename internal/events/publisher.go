package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ecowatcher/backend/internal/logger"
)

// Publisher emits lifecycle events. Publishing is best-effort.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any)
}

// Nop discards events; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) {}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers envelopes and writes them to Kafka from one goroutine,
// keyed by pickup id so the events of one pickup stay ordered.
type Producer struct {
	w       messageWriter
	service string
	inbox   chan kafka.Message
	done    chan struct{}
	log     *logrus.Entry

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewProducer returns a producer for topic on brokers.
func NewProducer(brokers []string, topic, service string, buf int) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, service, buf)
}

func newProducer(w messageWriter, service string, buf int) *Producer {
	return &Producer{
		w:       w,
		service: service,
		inbox:   make(chan kafka.Message, buf),
		done:    make(chan struct{}),
		log:     logger.WithComponent("events"),
	}
}

// Start runs the write loop until Close is called.
func (p *Producer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	go func() {
		defer close(p.done)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				p.log.WithError(err).WithField("key", string(m.Key)).Warn("kafka write failed")
			}
		}
		if err := p.w.Close(); err != nil {
			p.log.WithError(err).Warn("kafka writer close failed")
		}
	}()
}

// Publish enqueues an event. A full buffer drops the event rather than
// blocking the request.
func (p *Producer) Publish(ctx context.Context, eventType, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.WithError(err).WithField("event", eventType).Error("marshal payload")
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.service,
		CorrelationID: key,
		Payload:       body,
	}
	value, err := json.Marshal(env)
	if err != nil {
		p.log.WithError(err).WithField("event", eventType).Error("marshal envelope")
		return
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.WithField("event", eventType).Debug("producer closed, dropping")
		return
	}
	select {
	case p.inbox <- msg:
	case <-ctx.Done():
	default:
		p.log.WithField("event", eventType).Warn("event buffer full, dropping")
	}
}

// Close stops accepting events and waits for the buffer to drain. Events
// published afterwards are dropped.
func (p *Producer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		if p.started {
			<-p.done
		}
		return
	}
	p.closed = true
	close(p.inbox)
	started := p.started
	p.mu.Unlock()

	if started {
		<-p.done
		return
	}
	if err := p.w.Close(); err != nil {
		p.log.WithError(err).Warn("kafka writer close failed")
	}
}
