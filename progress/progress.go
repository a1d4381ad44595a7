package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/whenly/internal/clock"
)

// Delta represents an incremental counter change emitted by the admission
// service or the worker pool. The fields are signed and can be either
// positive (increment) or negative (decrement).
type Delta struct {
	Pending   int
	Ready     int
	Running   int
	Completed int
	Failed    int
}

// Progress is a snapshot of the scheduler counters. It is a plain value and
// safe to copy around.
type Progress struct {
	// Identification, informative only.
	Name      string
	StartedAt time.Time

	Pending   int
	Ready     int
	Running   int
	Completed int
	Failed    int
}

// Active returns the number of behaviors that still have work ahead of
// them: pending, ready or running.
func (p Progress) Active() int { return p.Pending + p.Ready + p.Running }

// Quiescent reports whether no behavior is pending, ready or running.
func (p Progress) Quiescent() bool { return p.Active() == 0 }

// Total returns the number of behaviors ever admitted.
func (p Progress) Total() int {
	return p.Pending + p.Ready + p.Running + p.Completed + p.Failed
}

// Tracker aggregates scheduler counters for a single scheduler instance.
// It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	progress Progress
	onChange func(Progress)
	changed  chan struct{}
}

// NewTracker creates an empty tracker.
func NewTracker(name string) *Tracker {
	return &Tracker{
		progress: Progress{Name: name, StartedAt: clock.Now()},
		changed:  make(chan struct{}),
	}
}

// Update applies the supplied delta. If an onChange callback has been
// registered it is invoked with a copy of the updated counters after the
// tracker's own lock is released. A counter dropping below zero means the
// lifecycle accounting is broken and panics.
func (t *Tracker) Update(d Delta) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.progress.Pending += d.Pending
	t.progress.Ready += d.Ready
	t.progress.Running += d.Running
	t.progress.Completed += d.Completed
	t.progress.Failed += d.Failed
	if t.progress.Pending < 0 || t.progress.Ready < 0 || t.progress.Running < 0 ||
		t.progress.Completed < 0 || t.progress.Failed < 0 {
		panic(fmt.Sprintf("progress: counter underflow: %+v", t.progress))
	}
	snapshot := t.progress
	cb := t.onChange
	close(t.changed)
	t.changed = make(chan struct{})
	t.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters for read-only inspection.
func (t *Tracker) Snapshot() Progress {
	if t == nil {
		return Progress{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Quiescent reports whether the tracker currently shows no active work.
func (t *Tracker) Quiescent() bool { return t.Snapshot().Quiescent() }

// OnChange registers a callback invoked after every Update. Passing nil
// disables the callback. Only one callback can be active; subsequent calls
// overwrite the previous value. The callback runs on whichever goroutine
// performed the update, which may hold scheduler locks: it must not submit
// behaviors or block.
func (t *Tracker) OnChange(cb func(Progress)) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.onChange = cb
	t.mu.Unlock()
}

// Wait blocks until the tracker reports quiescence or the context ends.
// It returns immediately when the tracker is already quiescent.
func (t *Tracker) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.progress.Quiescent() {
			t.mu.Unlock()
			return nil
		}
		changed := t.changed
		t.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ----------------------------------------------------------------------------
// Context helpers
// ----------------------------------------------------------------------------

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds the tracker in a derived context so bodies can
// introspect scheduler counters.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, t)
}

// FromContext extracts the tracker from ctx. The second return value is
// false when the context carries no tracker.
func FromContext(ctx context.Context) (*Tracker, bool) {
	if ctx == nil {
		return nil, false
	}
	t, ok := ctx.Value(trackerKey).(*Tracker)
	return t, ok
}

// GetSnapshot combines FromContext and Snapshot. The boolean return value
// is false when the context does not carry a tracker.
func GetSnapshot(ctx context.Context) (Progress, bool) {
	if t, ok := FromContext(ctx); ok {
		return t.Snapshot(), true
	}
	return Progress{}, false
}
