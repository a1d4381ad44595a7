package event

import (
	"context"

	"github.com/viant/whenly/internal/clock"
	"github.com/viant/whenly/service/messaging"
)

// Publisher publishes typed events; every event is mirrored to the untyped
// queue so catch-all listeners see the full stream.
type Publisher[T any] struct {
	queue    messaging.Queue[*Event[T]]
	anyQueue messaging.Queue[*Event[any]]
}

func NewPublisher[T any](queue messaging.Queue[*Event[T]]) *Publisher[T] {
	return &Publisher[T]{
		queue: queue,
	}
}

func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	event.CreatedAt = clock.Now()
	if p.anyQueue != nil {
		_ = p.anyQueue.Publish(ctx, &Event[any]{
			Context:   event.Context,
			CreatedAt: event.CreatedAt,
			Metadata:  event.Metadata,
			Data:      event.Data,
		})
	}
	return p.queue.Publish(ctx, event)
}

// Consume returns the next event, or nil when a polling queue has none
// pending.
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}
