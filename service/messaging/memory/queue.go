package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/whenly/service/messaging"
)

// Config for the in-memory queue implementation
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
}

// DefaultConfig returns a standard configuration for the in-memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	retryCount int
	mu         sync.Mutex
	processed  bool
	createdAt  time.Time
}

// T returns the message payload
func (m *Message[T]) T() T {
	return m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	return nil
}

// Nack indicates a failure in processing the message. Under the retry limit
// the payload is republished after the configured delay; past it the message
// lands in the dead letter queue when one is enabled.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.retryCount++

	if m.retryCount <= m.queue.config.MaxRetries {
		go func() {
			time.Sleep(m.queue.config.RetryDelay)
			retry := &Message[T]{
				id:         m.id,
				payload:    m.payload,
				queue:      m.queue,
				retryCount: m.retryCount,
				createdAt:  time.Now(),
			}
			m.queue.enqueue(retry)
		}()
	} else if m.queue.config.DeadLetter {
		m.queue.dlqMu.Lock()
		m.queue.dlq = append(m.queue.dlq, m)
		m.queue.dlqMu.Unlock()
	}
	return nil
}

// Queue implements an in-memory messaging.Queue. A buffered channel hands
// messages to parked consumers; publishes that find it full spill into an
// overflow list the channel drains from, oldest first, so Consume order
// still follows Publish order. Publish never blocks: workers publish the
// behaviors they promote while releasing, and a full-buffer wait there
// would wedge the very workers that consume the queue.
type Queue[T any] struct {
	messages chan *Message[T]
	overflow []*Message[T]
	mu       sync.Mutex
	dlq      []*Message[T]
	config   Config
	dlqMu    sync.Mutex
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

// Publish adds a new item to the queue. It returns without ever blocking
// the caller, regardless of how far behind the consumers are.
func (q *Queue[T]) Publish(ctx context.Context, t T) error {
	msg := &Message[T]{
		id:        uuid.New().String(),
		payload:   t,
		queue:     q,
		createdAt: time.Now(),
	}
	q.enqueue(msg)
	return nil
}

// enqueue hands the message to the channel when the spill is empty and a
// slot is free; otherwise it joins the tail of the spill. Channel messages
// are always older than spilled ones, keeping delivery in publish order.
func (q *Queue[T]) enqueue(msg *Message[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.overflow) == 0 {
		select {
		case q.messages <- msg:
			return
		default:
		}
	}
	q.overflow = append(q.overflow, msg)
}

// Consume retrieves a single item from the queue, blocking until one is
// available or the context ends
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		q.refill()
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refill moves spilled messages into freed channel slots, oldest first.
// Every receive frees a slot and runs refill, so a non-empty spill always
// reaches parked consumers.
func (q *Queue[T]) refill() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.overflow) > 0 {
		select {
		case q.messages <- q.overflow[0]:
			q.overflow = q.overflow[1:]
		default:
			return
		}
	}
	q.overflow = nil
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages) + len(q.overflow)
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
