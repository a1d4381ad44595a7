package cown

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/whenly/internal/clock"
	"github.com/viant/whenly/internal/idgen"
)

// Body is the unit of work a behavior runs once it holds every requested
// cown. The binding exposes the payloads of exactly the cowns named at
// scheduling time, in identity order; it is invalidated when the body
// returns, so payload references must not be retained. A non-nil error
// marks the behavior failed without affecting other behaviors.
type Body func(ctx context.Context, binding *Binding) error

// Behavior couples a body with a fixed, de-duplicated request set. The
// readiness counter starts at the request count and is decremented by every
// grant; the transition to zero is the single point at which the behavior
// becomes ready, which makes the handoff to the run queue exactly-once by
// construction.
//
// Requests are kept in two orders. Binding indexes follow the order the
// cowns were passed at scheduling time, so bodies address payloads
// positionally. Registration and release walk the same requests sorted by
// cown identity, which is what the admission ordering guarantee is built
// on.
type Behavior struct {
	ID        string
	Name      string
	requests  []*Request
	ordered   []*Request
	remaining atomic.Int32
	body      Body

	mu          sync.RWMutex
	state       State
	err         error
	scheduledAt time.Time
	startedAt   *time.Time
	completedAt *time.Time
	done        chan struct{}
}

// NewBehavior creates a pending behavior over the supplied cowns. The slice
// is expected to be free of nils and duplicates; it is kept as the binding
// order while registration uses an identity-sorted view of the same
// requests.
func NewBehavior(name string, cowns []*Cown, body Body) *Behavior {
	b := &Behavior{
		ID:          idgen.New(),
		Name:        name,
		body:        body,
		state:       StatePending,
		scheduledAt: clock.Now(),
		done:        make(chan struct{}),
	}
	b.requests = make([]*Request, len(cowns))
	for i, c := range cowns {
		b.requests[i] = &Request{Behavior: b, Cown: c}
	}
	b.ordered = make([]*Request, len(b.requests))
	copy(b.ordered, b.requests)
	sort.Slice(b.ordered, func(i, j int) bool {
		return b.ordered[i].Cown.id < b.ordered[j].Cown.id
	})
	b.remaining.Store(int32(len(cowns)))
	return b
}

// Requests returns the behavior's requests in binding order, the order the
// cowns were passed at scheduling time.
func (b *Behavior) Requests() []*Request { return b.requests }

// OrderedRequests returns the same requests sorted by cown identity, the
// order registration and release walk them in.
func (b *Behavior) OrderedRequests() []*Request { return b.ordered }

// CownIDs returns the identities of the requested cowns in the order they
// were passed at scheduling time, mostly for events and diagnostics.
func (b *Behavior) CownIDs() []uint64 {
	ids := make([]uint64, len(b.requests))
	for i, r := range b.requests {
		ids[i] = uint64(r.Cown.id)
	}
	return ids
}

// Grant accounts for one granted request and reports whether the behavior
// just became ready. Exactly one caller observes true: the one whose grant
// took the counter to zero. A negative counter means a request was granted
// more often than it exists, which is scheduler corruption.
func (b *Behavior) Grant() bool {
	n := b.remaining.Add(-1)
	switch {
	case n == 0:
		b.mu.Lock()
		b.state = StateReady
		b.mu.Unlock()
		return true
	case n < 0:
		panic(fmt.Sprintf("cown: behavior %s over granted", b.ID))
	}
	return false
}

// Remaining returns the number of requests still waiting for a grant.
func (b *Behavior) Remaining() int { return int(b.remaining.Load()) }

// Start marks the behavior running.
func (b *Behavior) Start() {
	now := clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining.Load() != 0 {
		panic(fmt.Sprintf("cown: behavior %s started with %d ungranted requests", b.ID, b.remaining.Load()))
	}
	b.state = StateRunning
	b.startedAt = &now
}

// Complete marks the behavior completed and releases waiters.
func (b *Behavior) Complete() {
	now := clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateCompleted
	b.completedAt = &now
	close(b.done)
}

// Fail marks the behavior failed and releases waiters.
func (b *Behavior) Fail(err error) {
	now := clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateFailed
	b.err = err
	b.completedAt = &now
	close(b.done)
}

// Invoke runs the body against the supplied binding.
func (b *Behavior) Invoke(ctx context.Context, binding *Binding) error {
	return b.body(ctx, binding)
}

// State returns the current lifecycle state.
func (b *Behavior) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Err returns the body error for a failed behavior, nil otherwise.
func (b *Behavior) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// Outcome returns the current state together with the body error, if any.
func (b *Behavior) Outcome() (State, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state, b.err
}

// Done returns a channel closed once the behavior reaches a terminal state.
func (b *Behavior) Done() <-chan struct{} { return b.done }

// Wait blocks until the behavior reaches a terminal state or the context
// ends. It returns the body error for failed behaviors.
func (b *Behavior) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return b.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record captures a serializable snapshot of the behavior.
func (b *Behavior) Record() *Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec := &Record{
		ID:          b.ID,
		Name:        b.Name,
		Cowns:       b.CownIDs(),
		State:       b.state,
		ScheduledAt: b.scheduledAt,
	}
	if b.err != nil {
		rec.Error = b.err.Error()
	}
	if b.startedAt != nil {
		t := *b.startedAt
		rec.StartedAt = &t
	}
	if b.completedAt != nil {
		t := *b.completedAt
		rec.CompletedAt = &t
	}
	return rec
}
