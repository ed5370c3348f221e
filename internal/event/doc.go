// Package event holds the per-event data exchange used by pipeline stages.
//
// A Store is a typed, write-once key/value board. It is created when an
// event starts, filled by producers and transformers, read by consumers,
// and dropped when the event is done. Because no key can be overwritten or
// removed, any stage may read a populated key without coordinating with
// the stage that wrote it.
//
// A Context is the immutable bundle handed to one stage invocation: the
// event index, the stage index within the event, the total number of
// events in the run, the event's Store, the job-wide Store, and opaque
// auxiliary handles (geometry, field maps) that this package never looks
// into.
//
// Stages report their outcome with a ProcessCode. Success and Abort apply
// to every stage; EndOfData is only meaningful from a producer and tells
// the sequencer that the input is exhausted.
package event
