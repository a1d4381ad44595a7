// Package admission implements the acquisition protocol: it validates a
// behavior's request set, registers it against the requested cowns and
// publishes the behavior to the run queue once every request has been
// granted.
//
// Registration of a whole request set happens under a single admission
// mutex and walks the cowns in ascending identity order. The serialization
// is load-bearing: it gives any two behaviors the same relative position in
// every queue they share, so a behavior only ever waits for behaviors
// registered before it and the waits-for relation cannot form a cycle.
// Sorting alone would not be enough; with only per-cown locking, two
// behaviors over the same pair of cowns can interleave their registrations
// so that each sits ahead of the other on one queue, and neither readiness
// counter ever reaches zero.
//
// Releasing takes no admission mutex. Promotion only pops queue heads and
// never reorders waiters, so the registration order invariant survives any
// interleaving of releases.
package admission
