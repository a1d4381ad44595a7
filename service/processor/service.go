package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/viant/whenly/internal/clock"
	"github.com/viant/whenly/progress"
	"github.com/viant/whenly/runtime/cown"
	"github.com/viant/whenly/service/admission"
	"github.com/viant/whenly/service/dao"
	"github.com/viant/whenly/service/event"
	"github.com/viant/whenly/service/messaging"
	"github.com/viant/whenly/tracing"
)

// Config represents processor service configuration
type Config struct {
	// WorkerCount is the number of workers running behaviors
	WorkerCount int
}

// DefaultConfig returns the default processor configuration
func DefaultConfig() Config {
	return Config{
		WorkerCount: runtime.GOMAXPROCS(0),
	}
}

// ErrorSink receives every behavior failure, body errors and recovered
// panics alike, after the behavior's cowns have been released.
type ErrorSink func(behavior *cown.Behavior, err error)

func defaultErrorSink(behavior *cown.Behavior, err error) {
	log.Printf("behavior %s (%s) failed: %v", behavior.ID, behavior.Name, err)
}

// Service runs ready behaviors on a pool of workers
type Service struct {
	config      Config
	queue       messaging.Queue[*cown.Behavior]
	admission   *admission.Service
	tracker     *progress.Tracker
	behaviorDAO dao.Service[string, cown.Record]
	events      *event.Service
	errorSink   ErrorSink

	workers    []*worker
	workerWg   sync.WaitGroup
	shutdownCh chan struct{}
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// New creates a new processor service
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		errorSink:  defaultErrorSink,
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.queue == nil {
		return nil, fmt.Errorf("run queue is required")
	}
	if s.admission == nil {
		return nil, fmt.Errorf("admission service is required")
	}
	if s.tracker == nil {
		return nil, fmt.Errorf("progress tracker is required")
	}
	if s.errorSink == nil {
		s.errorSink = defaultErrorSink
	}
	if s.config.WorkerCount < 1 {
		s.config.WorkerCount = 1
	}
	return s, nil
}

// Start spawns the worker goroutines
func (s *Service) Start(ctx context.Context) error {
	ctx = progress.WithTracker(ctx, s.tracker)
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		worker := &worker{
			id:       i,
			service:  s,
			ctx:      workerCtx,
			cancelFn: cancel,
		}
		s.workers = append(s.workers, worker)
		s.workerWg.Add(1)
		go worker.run()
	}

	return nil
}

// run consumes behaviors from the run queue
func (w *worker) run() {
	defer w.service.workerWg.Done()

	for {
		// Block until we either get a behavior or the context is cancelled.
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			// Context was cancelled – graceful shutdown.
			if errors.Is(err, context.Canceled) {
				return
			}
			// Transient error (e.g. queue closed); back off a bit.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if msg == nil {
			continue
		}

		if pErr := w.service.process(w.ctx, msg); pErr != nil {
			log.Printf("worker %d: failed to process behavior: %v", w.id, pErr)
		}
	}
}

// process runs a single ready behavior to completion. The body executes with
// exclusive access to every requested cown; the cowns are released before the
// behavior is marked terminal, so anyone unblocked by Wait observes free
// cowns. A failure never propagates past the behavior: the error is recorded
// on it and handed to the error sink, and the worker moves on.
func (s *Service) process(ctx context.Context, message messaging.Message[*cown.Behavior]) error {
	b := message.T()

	s.tracker.Update(progress.Delta{Ready: -1, Running: 1})
	b.Start()
	s.saveRecord(ctx, b)
	s.publishEvent(ctx, event.TypeStarted, b, clock.Now().Sub(b.Record().ScheduledAt))

	runCtx := cown.WithBehavior(ctx, b)
	runCtx, span := tracing.StartSpan(runCtx, "behavior.run", "INTERNAL")
	span.WithAttributes(map[string]string{
		"behavior.id":   b.ID,
		"behavior.name": b.Name,
	})

	binding := cown.NewBinding(b)
	started := clock.Now()
	err := s.invoke(runCtx, b, binding)
	binding.Invalidate()
	tracing.EndSpan(span, err)

	s.admission.Release(ctx, b)

	if err != nil {
		b.Fail(err)
		s.tracker.Update(progress.Delta{Running: -1, Failed: 1})
		s.saveRecord(ctx, b)
		s.publishEvent(ctx, event.TypeFailed, b, clock.Now().Sub(started))
		s.errorSink(b, err)
	} else {
		b.Complete()
		s.tracker.Update(progress.Delta{Running: -1, Completed: 1})
		s.saveRecord(ctx, b)
		s.publishEvent(ctx, event.TypeCompleted, b, clock.Now().Sub(started))
	}

	return message.Ack()
}

// invoke runs the body with a panic handler installed so a panicking behavior
// is contained the same way a failing one is.
func (s *Service) invoke(ctx context.Context, b *cown.Behavior, binding *cown.Binding) (err error) {
	defer func() {
		x := recover()
		switch t := x.(type) {
		case nil:
		// Success.
		case error:
			err = t
		default:
			err = fmt.Errorf("panic in behavior: %v", t)
		}
	}()
	return b.Invoke(ctx, binding)
}

func (s *Service) saveRecord(ctx context.Context, b *cown.Behavior) {
	if s.behaviorDAO == nil {
		return
	}
	if err := s.behaviorDAO.Save(ctx, b.Record()); err != nil {
		log.Printf("failed to save record for behavior %s: %v", b.ID, err)
	}
}

func (s *Service) publishEvent(ctx context.Context, eventType string, b *cown.Behavior, elapsed time.Duration) {
	if s.events == nil {
		return
	}
	publisher := event.PublisherOf[*cown.Record](s.events)
	eCtx := &event.Context{
		BehaviorID:  b.ID,
		Behavior:    b.Name,
		Cowns:       b.CownIDs(),
		EventType:   eventType,
		TimeTakenMs: int(elapsed.Milliseconds()),
	}
	if err := publisher.Publish(ctx, event.NewEvent(eCtx, b.Record())); err != nil {
		log.Printf("failed to publish %s event for behavior %s: %v", eventType, b.ID, err)
	}
}

// Shutdown stops the worker pool
func (s *Service) Shutdown() {
	close(s.shutdownCh)
	for _, worker := range s.workers {
		worker.cancelFn()
	}
	s.workerWg.Wait()
}
