// Package stages provides the built-in producers, transformers, consumers
// and services that job files can wire into a sequencer.
//
// Every stage exchanges data through the event store as []Vertex
// collections. Stages are configured once, hold no per-event state, and are
// safe for concurrent use by all workers; randomness always comes from a
// generator spawned for the current (event, stage) pair.
package stages
