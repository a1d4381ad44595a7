// Package whenly provides a behavior-oriented concurrency scheduler built
// around cowns (concurrent owners), handles that serialise access to the
// data they guard.
//
// A behavior couples a body with the set of cowns it needs. The scheduler
// runs the body only once it holds every cown in the set exclusively, so
// bodies touch payloads without locks and multi-cown updates are atomic.
// Behaviors over disjoint sets run in parallel; behaviors contending on a
// cown run in scheduling order. The engine is built from pluggable service
// layers:
//
//   - admission – request-set validation, ordering and cown handoff
//   - processor – the worker pool running ready behaviors
//   - progress  – counters and quiescence detection
//   - dao       – the behavior ledger (in-memory or filesystem backed)
//   - event     – typed lifecycle event streams
//
// Whenly is designed to be embedded in host applications.  End-users
// typically interact with the engine via the high-level Service façade
// exposed by the root package:
//
//	srv := whenly.New()
//	rt  := srv.Runtime()
//	_ = rt.Start(ctx)
//	account := whenly.NewCown(100)
//	_, _ = rt.When(ctx, []*cown.Cown{account}, func(ctx context.Context, binding *cown.Binding) error {
//		binding.SetPayload(0, binding.Payload(0).(int)+50)
//		return nil
//	})
//	_ = rt.RunToQuiescence(ctx)
//	_ = rt.Shutdown(ctx)
//
// For more details see the README and individual sub-packages.
package whenly
