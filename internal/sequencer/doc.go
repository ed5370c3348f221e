// Package sequencer drives producers, transformers and consumers over a
// range of independent events.
//
// LIFECYCLE:
//
//	Configured --Initialize--> Initialized --Run--> Running --> Finalized
//
// Components are registered while Configured. Initialize calls Initialize on
// every component that has one, in order: services, producers,
// transformers, consumers (each group in registration order). Any failure
// stops startup; components that were already initialized are finalized in
// reverse and no event is processed.
//
// Run processes events [skip, skip+count). For each event it creates a
// fresh event.Store and, per stage invocation, a fresh event.Context whose
// StageIndex counts up from 0 across the event. Producers run first, then
// transformers, then consumers, each in registration order.
//
// When the loop ends (all events done, end of data, or abort) Finalize runs
// on every component in the exact reverse of initialization order.
//
// CONCURRENCY:
//
// Events are handed to Config.Workers goroutines, one event in flight per
// worker. Stage calls are synchronous and run to completion. Nothing orders
// events relative to each other; reproducibility comes from per-event
// stores and per-(event, stage) random seeds instead. Services are shared
// by all workers and must synchronize any mutable state themselves.
//
// ABORT:
//
// A stage returning event.Abort (or an error, or panicking) stops its event
// immediately. Under AbortRun no further events are started, in-flight
// events finish, and Run returns a *RunError naming the event and stage.
// Under SkipEvent the failure is recorded in the Report and the loop
// continues. A producer returning event.EndOfData ends the loop normally.
package sequencer
