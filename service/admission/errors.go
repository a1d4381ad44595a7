package admission

import "errors"

var (
	// ErrEmptyRequestSet is returned when a behavior names no cowns.
	ErrEmptyRequestSet = errors.New("behavior requires at least one cown")

	// ErrNilCown is returned when a request set contains a nil cown.
	ErrNilCown = errors.New("request set contains nil cown")

	// ErrDuplicateCown is returned when the same cown appears twice in one
	// request set.
	ErrDuplicateCown = errors.New("duplicate cown in request set")

	// ErrShuttingDown is returned for top-level submissions after shutdown
	// has begun. Behaviors scheduled from inside a running body are still
	// admitted so in-flight work can finish.
	ErrShuttingDown = errors.New("scheduler is shutting down")
)
