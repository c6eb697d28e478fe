package event

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher hands a serialized event to a message channel keyed by topic.
// Publish must not block the caller beyond enqueue and must not surface
// transport failures into the caller's request path: by the time an event is
// published, the state transition it describes has already committed.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Handler consumes a single delivery. Returning an error requests
// redelivery; handlers are invoked at least once per event and must
// tolerate duplicates.
type Handler func(ctx context.Context, evt Envelope) error

// Envelope is the unit of delivery. Payload stays raw JSON so consumers can
// decode it with their own types, independent of the publisher's.
type Envelope struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

const (
	topicBufferSize  = 256
	deliveryAttempts = 3
	redeliveryDelay  = 250 * time.Millisecond
)

// Broker is an in-process, channel-backed message broker with per-topic
// buffered queues and at-least-once delivery to subscribers. It stands in
// for a durable transport behind the same Publisher interface; core logic
// never depends on the concrete type.
type Broker struct {
	logger *zerolog.Logger

	mu     sync.Mutex
	topics map[string]chan Envelope
	closed bool

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// NewBroker creates a Broker ready for Publish and Subscribe calls.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		logger: logger,
		topics: make(map[string]chan Envelope),
		done:   make(chan struct{}),
	}
}

// Publish serializes payload and enqueues it on the topic's channel without
// blocking. When the buffer is full the event is dropped and logged; the
// caller's primary transition is unaffected either way.
func (b *Broker) Publish(_ context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	evt := Envelope{
		ID:         uuid.NewString(),
		Topic:      topic,
		OccurredAt: time.Now(),
		Payload:    data,
	}

	// The closed check and the enqueue share the mutex with Close, so an
	// event is either enqueued before the drain loops run or dropped with a
	// log; it can never land in a buffer nobody will read.
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Warn().Str("topic", topic).Str("event_id", evt.ID).Msg("broker closed, dropping event")
		return nil
	}
	ch := b.topicLocked(topic)

	select {
	case ch <- evt:
		b.mu.Unlock()
	default:
		b.mu.Unlock()
		b.logger.Warn().Str("topic", topic).Str("event_id", evt.ID).Msg("topic buffer full, dropping event")
	}

	return nil
}

// Subscribe starts a worker goroutine delivering the topic's events to
// handler. The group name only labels log entries, mirroring a consumer
// group id on a durable transport. Failed deliveries are retried a bounded
// number of times before the event is dropped with an error log.
func (b *Broker) Subscribe(topic, group string, handler Handler) {
	ch := b.topic(topic)
	logger := b.logger.With().Str("topic", topic).Str("group", group).Logger()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		for {
			select {
			case evt := <-ch:
				b.deliver(&logger, evt, handler)
			case <-b.done:
				// Drain what is already enqueued before exiting.
				for {
					select {
					case evt := <-ch:
						b.deliver(&logger, evt, handler)
					default:
						return
					}
				}
			}
		}
	}()
}

// Close stops accepting events and waits for subscribers to drain their
// queues.
func (b *Broker) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		close(b.done)
	})
	b.wg.Wait()
}

func (b *Broker) deliver(logger *zerolog.Logger, evt Envelope, handler Handler) {
	for attempt := 1; attempt <= deliveryAttempts; attempt++ {
		err := handler(context.Background(), evt)
		if err == nil {
			return
		}

		logger.Error().
			Err(err).
			Str("event_id", evt.ID).
			Int("attempt", attempt).
			Msg("event handler failed")

		if attempt < deliveryAttempts {
			time.Sleep(redeliveryDelay)
		}
	}

	logger.Error().Str("event_id", evt.ID).Msg("delivery attempts exhausted, dropping event")
}

func (b *Broker) topic(name string) chan Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.topicLocked(name)
}

func (b *Broker) topicLocked(name string) chan Envelope {
	ch, ok := b.topics[name]
	if !ok {
		ch = make(chan Envelope, topicBufferSize)
		b.topics[name] = ch
	}

	return ch
}
