package testutil

import (
	"context"
	"fmt"

	"github.com/roach88/evseq/internal/event"
)

// StageFunc is the per-event behaviour of a Stage.
type StageFunc func(ctx context.Context, ec event.Context) (event.ProcessCode, error)

// Stage is a scriptable component usable as service, producer, transformer
// or consumer.
//
// Every lifecycle call is recorded as "<name>.<method>" and every per-event
// call as "<name>.<method>@<event>/<stage>". When Fn is nil the stage
// returns event.Success.
type Stage struct {
	ID  string
	Log *Recorder
	Fn  StageFunc

	// InitErr and FinErr are returned by Initialize and Finalize.
	InitErr error
	FinErr  error
}

// NewStage creates a stage that records into log.
func NewStage(id string, log *Recorder) *Stage {
	return &Stage{ID: id, Log: log}
}

// WithFn sets the per-event behaviour and returns s.
func (s *Stage) WithFn(fn StageFunc) *Stage {
	s.Fn = fn
	return s
}

// Name implements the Named capability.
func (s *Stage) Name() string { return s.ID }

// Initialize records the call and returns InitErr.
func (s *Stage) Initialize(context.Context) error {
	s.record("Initialize")
	return s.InitErr
}

// Finalize records the call and returns FinErr.
func (s *Stage) Finalize(context.Context) error {
	s.record("Finalize")
	return s.FinErr
}

// Read implements the producer capability.
func (s *Stage) Read(ctx context.Context, ec event.Context) (event.ProcessCode, error) {
	return s.call(ctx, "Read", ec)
}

// Execute implements the transformer capability.
func (s *Stage) Execute(ctx context.Context, ec event.Context) (event.ProcessCode, error) {
	return s.call(ctx, "Execute", ec)
}

// Write implements the consumer capability.
func (s *Stage) Write(ctx context.Context, ec event.Context) (event.ProcessCode, error) {
	return s.call(ctx, "Write", ec)
}

func (s *Stage) call(ctx context.Context, method string, ec event.Context) (event.ProcessCode, error) {
	s.record(fmt.Sprintf("%s@%d/%d", method, ec.EventIndex, ec.StageIndex))
	if s.Fn == nil {
		return event.Success, nil
	}
	return s.Fn(ctx, ec)
}

func (s *Stage) record(call string) {
	if s.Log != nil {
		s.Log.Record(s.ID + "." + call)
	}
}

// AbortOn returns a StageFunc that aborts the given event and succeeds
// otherwise.
func AbortOn(eventIndex uint64, err error) StageFunc {
	return func(_ context.Context, ec event.Context) (event.ProcessCode, error) {
		if ec.EventIndex == eventIndex {
			return event.Abort, err
		}
		return event.Success, nil
	}
}

// EndOfDataFrom returns a producer StageFunc that signals end of data for
// every event at or after eventIndex.
func EndOfDataFrom(eventIndex uint64) StageFunc {
	return func(_ context.Context, ec event.Context) (event.ProcessCode, error) {
		if ec.EventIndex >= eventIndex {
			return event.EndOfData, nil
		}
		return event.Success, nil
	}
}
