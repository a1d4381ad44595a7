// Package cown defines the runtime data model for concurrent owners and the
// behaviors scheduled against them.
//
// A Cown (concurrent owner) wraps a single mutable payload together with a
// FIFO queue of access requests. A Behavior couples a body with a fixed,
// identity-ordered set of requests and becomes ready to run once every
// request has been granted, that is once the behavior sits at the head of
// every queue it participates in. Payload access is only possible through
// the Binding handed to a running body, which keeps the exclusivity
// guarantee structural rather than conventional.
package cown
