package cown

import "fmt"

// Binding exposes the payloads of the cowns a running behavior holds, in
// the order they were passed at scheduling time. It is created right before
// the body runs and invalidated right after it returns; any later use
// panics, which turns a retained payload reference from a silent race into a
// loud bug.
//
// Payload reads and writes take no lock: the behavior holds every bound
// cown exclusively, and the release path publishes the writes to the next
// holder.
type Binding struct {
	behavior *Behavior
	valid    bool
}

// NewBinding binds the payloads of a behavior whose every request has been
// granted.
func NewBinding(b *Behavior) *Binding {
	if n := b.remaining.Load(); n != 0 {
		panic(fmt.Sprintf("cown: binding behavior %s with %d ungranted requests", b.ID, n))
	}
	return &Binding{behavior: b, valid: true}
}

// Len returns the number of bound cowns.
func (b *Binding) Len() int {
	b.check()
	return len(b.behavior.requests)
}

// Cown returns the i-th bound cown.
func (b *Binding) Cown(i int) *Cown {
	b.check()
	return b.behavior.requests[i].Cown
}

// Payload returns the payload of the i-th bound cown.
func (b *Binding) Payload(i int) any {
	b.check()
	return b.behavior.requests[i].Cown.payload
}

// SetPayload replaces the payload of the i-th bound cown.
func (b *Binding) SetPayload(i int, payload any) {
	b.check()
	b.behavior.requests[i].Cown.payload = payload
}

// Invalidate cuts the binding off from the payloads. Called by the worker
// once the body has returned.
func (b *Binding) Invalidate() { b.valid = false }

func (b *Binding) check() {
	if !b.valid {
		panic("cown: binding used outside its behavior")
	}
}
