package whenly

import (
	"context"

	"github.com/viant/whenly/progress"
	"github.com/viant/whenly/runtime/cown"
	"github.com/viant/whenly/service/admission"
	"github.com/viant/whenly/service/dao"
	"github.com/viant/whenly/service/event"
	"github.com/viant/whenly/service/messaging"
	"github.com/viant/whenly/service/processor"
)

// Runtime represents a running scheduler
type Runtime struct {
	admission   *admission.Service
	processor   *processor.Service
	tracker     *progress.Tracker
	behaviorDAO dao.Service[string, cown.Record]
	queue       messaging.Queue[*cown.Behavior]
	events      *event.Service
}

// Start spawns the worker pool. Behaviors may be scheduled before Start;
// they queue up and run once the workers come up.
func (r *Runtime) Start(ctx context.Context) error {
	return r.processor.Start(ctx)
}

// When schedules body to run once it holds every supplied cown exclusively.
// The call never blocks on cown availability: it registers the request set
// and returns a handle the caller can Wait on. Bodies may call When
// themselves; a nested behavior naming a held cown simply queues behind the
// current holder.
//
// The cown slice must be non-empty, free of nils and free of duplicates;
// violations are reported synchronously and nothing is scheduled.
func (r *Runtime) When(ctx context.Context, cowns []*cown.Cown, body cown.Body) (*cown.Behavior, error) {
	return r.admission.Submit(ctx, "", cowns, body)
}

// WhenNamed is When with a name attached to the behavior. The name shows up
// in the ledger, in events and in traces.
func (r *Runtime) WhenNamed(ctx context.Context, name string, cowns []*cown.Cown, body cown.Body) (*cown.Behavior, error) {
	return r.admission.Submit(ctx, name, cowns, body)
}

// RunToQuiescence blocks until every admitted behavior, including ones
// scheduled while draining, has reached a terminal state. It returns
// immediately when nothing was ever scheduled.
func (r *Runtime) RunToQuiescence(ctx context.Context) error {
	return r.tracker.Wait(ctx)
}

// Progress returns a snapshot of the scheduler counters.
func (r *Runtime) Progress() progress.Progress {
	return r.tracker.Snapshot()
}

// Quiescent reports whether no behavior is pending, ready or running.
func (r *Runtime) Quiescent() bool {
	return r.tracker.Quiescent()
}

// Draining reports whether Shutdown has begun.
func (r *Runtime) Draining() bool {
	return r.admission.Draining()
}

// Shutdown stops intake of new top-level behaviors, waits for the admitted
// ones to drain and then stops the workers. Behaviors scheduled from inside
// running bodies keep being admitted so the drain can complete. The context
// bounds the drain; on expiry the workers are stopped anyway and the context
// error is returned.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.admission.BeginShutdown()
	err := r.tracker.Wait(ctx)
	r.processor.Shutdown()
	return err
}

// Record returns the ledger record of a behavior
func (r *Runtime) Record(ctx context.Context, id string) (*cown.Record, error) {
	return r.behaviorDAO.Load(ctx, id)
}

// Records returns ledger records, optionally narrowed by parameters such as
// NewParameter("State", "completed")
func (r *Runtime) Records(ctx context.Context, parameters ...*dao.Parameter) ([]*cown.Record, error) {
	return r.behaviorDAO.List(ctx, parameters...)
}
