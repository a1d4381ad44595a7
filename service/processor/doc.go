// Package processor hosts the workers that run behaviors.  Every worker
// consumes ready behaviors from the run queue, invokes the body with a
// binding over the held cowns and releases the cowns when the body returns,
// whether it completed, failed or panicked.  Release promotes successors, so
// the pool and the admission service together keep the scheduler live.
package processor
