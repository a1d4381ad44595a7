package event

import (
	"context"
	"errors"
	"log"
	"time"
)

// Listener pumps events from a publisher into a handler on its own
// goroutine until stopped.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewListener[T any](publisher *Publisher[T], handler func(*Event[T])) *Listener[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Stop cancels the listener and waits for its goroutine to exit.
func (l *Listener[T]) Stop() {
	l.cancel()
	<-l.done
}

func (l *Listener[T]) Start() {
	go func() {
		defer close(l.done)
		for {
			event, err := l.publisher.Consume(l.ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				log.Printf("event listener: consume failed: %v", err)
			}
			if event == nil {
				// nothing pending on a polling queue, or a transient failure
				select {
				case <-l.ctx.Done():
					return
				case <-time.After(20 * time.Millisecond):
				}
				continue
			}
			l.handler(event)
		}
	}()
}
