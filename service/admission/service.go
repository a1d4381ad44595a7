package admission

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/viant/whenly/internal/clock"
	"github.com/viant/whenly/progress"
	"github.com/viant/whenly/runtime/cown"
	"github.com/viant/whenly/service/event"
	"github.com/viant/whenly/service/messaging"
	"github.com/viant/whenly/tracing"
)

// Service admits behaviors into the scheduler and hands cowns over between
// them. One instance serves one scheduler.
type Service struct {
	mu       sync.Mutex
	draining bool

	queue   messaging.Queue[*cown.Behavior]
	tracker *progress.Tracker
	events  *event.Service
}

// New creates an admission service publishing ready behaviors to the
// supplied queue and accounting state transitions on the tracker.
func New(queue messaging.Queue[*cown.Behavior], tracker *progress.Tracker, options ...Option) *Service {
	s := &Service{
		queue:   queue,
		tracker: tracker,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Submit validates the request set, builds a behavior over it and registers
// every request in ascending cown identity order under the admission mutex.
// Requests granted on the spot decrement the readiness counter right away;
// the rest are decremented by the release path as predecessors finish. The
// counter cannot reach zero before the last request is enqueued, so whoever
// observes the zero transition publishes the behavior exactly once.
// The draining check precedes all accounting, so a rejected submission
// touches no counter and emits no event.
func (s *Service) Submit(ctx context.Context, name string, cowns []*cown.Cown, body cown.Body) (b *cown.Behavior, err error) {
	ctx, span := tracing.StartSpan(ctx, "admission.submit", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	if err = validate(cowns); err != nil {
		return nil, err
	}
	b = cown.NewBehavior(name, cowns, body)
	span.WithAttributes(map[string]string{
		"behavior.id": b.ID,
		"cowns":       strconv.Itoa(len(cowns)),
	})

	s.mu.Lock()
	if s.draining && cown.Current(ctx) == nil {
		s.mu.Unlock()
		return nil, ErrShuttingDown
	}
	// the increment must land before any request is enqueued: the moment the
	// last grant happens, a concurrent release may already publish this
	// behavior and account the pending-to-ready move.
	s.tracker.Update(progress.Delta{Pending: 1})
	s.publishEvent(ctx, event.TypeScheduled, b, 0)
	ready := false
	for _, r := range b.OrderedRequests() {
		if r.Cown.Enqueue(r) && b.Grant() {
			ready = true
		}
	}
	s.mu.Unlock()

	if ready {
		s.publishReady(ctx, b)
	}
	return b, nil
}

// Release gives up every cown the behavior holds, in registration order.
// Each release promotes the next waiting request, if any; a promotion that
// takes a behavior's readiness counter to zero publishes that behavior to
// the run queue. Only per-cown locks are involved.
func (s *Service) Release(ctx context.Context, b *cown.Behavior) {
	for _, r := range b.OrderedRequests() {
		next := r.Cown.Release(r)
		if next != nil && next.Behavior.Grant() {
			s.publishReady(ctx, next.Behavior)
		}
	}
}

// BeginShutdown stops intake of top-level behaviors. Submissions made from
// inside running bodies keep being admitted so draining can make progress.
// Once BeginShutdown returns, no top-level registration is in flight.
func (s *Service) BeginShutdown() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
}

// Draining reports whether top-level intake has been stopped.
func (s *Service) Draining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draining
}

// publishReady moves the behavior from pending to ready and hands it to the
// run queue. The publish uses a background context: the behavior has been
// admitted and holds queue positions, so it must reach a worker even when
// the submitting context has ended.
func (s *Service) publishReady(ctx context.Context, b *cown.Behavior) {
	s.tracker.Update(progress.Delta{Pending: -1, Ready: 1})
	s.publishEvent(ctx, event.TypeReady, b, clock.Now().Sub(b.Record().ScheduledAt))
	if err := s.queue.Publish(context.Background(), b); err != nil {
		log.Printf("failed to publish ready behavior %s: %v", b.ID, err)
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

// validate rejects empty sets, nil entries and duplicates. Duplicate
// detection compares adjacent entries of an identity-sorted copy.
func validate(cowns []*cown.Cown) error {
	if len(cowns) == 0 {
		return ErrEmptyRequestSet
	}
	sorted := make([]*cown.Cown, len(cowns))
	copy(sorted, cowns)
	for _, c := range sorted {
		if c == nil {
			return ErrNilCown
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID() < sorted[j].ID()
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ID() == sorted[i-1].ID() {
			return fmt.Errorf("%w: %s", ErrDuplicateCown, sorted[i])
		}
	}
	return nil
}
