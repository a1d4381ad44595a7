package cown

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ID identifies a cown for the lifetime of the process. Identifiers are
// assigned from a monotonically increasing counter and never reused, so
// numeric order is a total, stable order over all cowns. That order is
// what registration sorts by.
type ID uint64

var nextID atomic.Uint64

// Cown is a concurrent owner: one payload, one holder, one FIFO queue of
// waiting requests. The mutex guards holder and pending; the payload itself
// is deliberately unguarded because only the behavior currently holding the
// cown may touch it, and the grant/release path establishes the necessary
// happens-before edges between consecutive holders.
type Cown struct {
	id      ID
	mu      sync.Mutex
	payload any
	holder  *Request
	pending []*Request
}

// New creates a cown owning the supplied payload.
func New(payload any) *Cown {
	return &Cown{id: ID(nextID.Add(1)), payload: payload}
}

// ID returns the cown identity.
func (c *Cown) ID() ID { return c.id }

func (c *Cown) String() string { return fmt.Sprintf("cown-%d", c.id) }

// Enqueue appends a request to the cown queue. When the cown is idle the
// request is granted on the spot and Enqueue reports true; the caller is
// then responsible for decrementing the owning behavior's readiness counter.
func (c *Cown) Enqueue(r *Request) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.Cown != c {
		panic("cown: request enqueued on foreign cown")
	}
	if r.granted {
		panic("cown: request enqueued twice")
	}
	if c.holder == nil {
		if len(c.pending) != 0 {
			panic("cown: idle cown with pending requests")
		}
		c.holder = r
		r.granted = true
		return true
	}
	c.pending = append(c.pending, r)
	return false
}

// Release removes the current holder and promotes the next pending request,
// if any. The promoted request is returned already granted so the caller can
// decrement its behavior's readiness counter. Releasing through a request
// that does not hold the cown indicates scheduler corruption and panics.
func (c *Cown) Release(r *Request) *Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holder != r {
		panic("cown: release by non-holder")
	}
	c.holder = nil
	if len(c.pending) == 0 {
		return nil
	}
	next := c.pending[0]
	c.pending = c.pending[1:]
	c.holder = next
	next.granted = true
	return next
}

// Held reports whether any behavior currently holds the cown.
func (c *Cown) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holder != nil
}

// QueueLen returns the number of requests waiting behind the holder.
func (c *Cown) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Request ties one behavior to one cown queue. A request is granted when it
// reaches the queue head; granting decrements the behavior's readiness
// counter.
type Request struct {
	Behavior *Behavior
	Cown     *Cown
	granted  bool
}

// Granted reports whether the request has reached its queue head.
func (r *Request) Granted() bool {
	r.Cown.mu.Lock()
	defer r.Cown.mu.Unlock()
	return r.granted
}
