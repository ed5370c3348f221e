package sequencer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/roach88/evseq/internal/event"
)

const (
	// JobStoreName is the name of the run-wide store.
	JobStoreName = "JobStore"

	// RunIDKey is the job store key holding the run id as a string.
	RunIDKey = "run_id"
)

// panicError wraps a value recovered from a panicking stage.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

// plan returns the per-event invocation sequence: producers, then
// transformers, then consumers, each in registration order.
func (s *Sequencer) plan() []stage {
	out := make([]stage, 0, len(s.producers)+len(s.transformers)+len(s.consumers))
	for _, p := range s.producers {
		out = append(out, stage{kind: KindProducer, name: p.Name(), call: p.Read})
	}
	for _, t := range s.transformers {
		out = append(out, stage{kind: KindTransformer, name: t.Name(), call: t.Execute})
	}
	for _, c := range s.consumers {
		out = append(out, stage{kind: KindConsumer, name: c.Name(), call: c.Write})
	}
	return out
}

// loop processes the configured event range with cfg.Workers goroutines.
//
// Workers stop claiming events when ctx is cancelled, when a producer
// signals end of data, or (under AbortRun) when an event aborts. Events
// already claimed always run to completion; stages get a context that is
// never cancelled so that an event is not torn down halfway.
func (s *Sequencer) loop(ctx context.Context, runID string) *Report {
	cfg := s.cfg
	report := &Report{
		RunID:       runID,
		Skip:        cfg.Skip,
		Events:      cfg.Events,
		TotalEvents: cfg.TotalEvents,
		Workers:     cfg.Workers,
		Policy:      cfg.AbortPolicy,
	}

	run := runState{
		plan:     s.plan(),
		jobStore: event.NewStore(JobStoreName, cfg.EventStoreLogger),
		handles:  event.NewHandles(cfg.Handles),
		stageCtx: context.WithoutCancel(ctx),
	}
	if err := run.jobStore.Add(RunIDKey, runID); err != nil {
		s.logger.Error("publish run id", "error", err)
	}
	cursor := newEventCursor(cfg.Events)

	workers := cfg.Workers
	if uint64(workers) > cfg.Events {
		workers = int(cfg.Events)
	}

	var (
		mu sync.Mutex // guards report
		wg sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				off, ok := cursor.claim()
				if !ok {
					return
				}
				res, runErr := s.processEvent(&run, cfg.Skip+off)

				mu.Lock()
				report.Results = append(report.Results, res)
				switch res.Status {
				case EventAborted:
					if cfg.AbortPolicy == AbortRun {
						cursor.stop()
						// Keep the lowest failing event so the outcome does
						// not depend on worker scheduling.
						if report.Abort == nil || runErr.Event < report.Abort.Event {
							report.Abort = runErr
						}
					}
				case EventEndOfData:
					cursor.stop()
					report.EndOfData = true
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if cursor.isStopped() {
		s.logger.Info("stopped scheduling events", "started", len(report.Results), "configured", cfg.Events)
	}
	report.sortResults()
	return report
}

// runState is shared, read-only, by all workers of one run.
type runState struct {
	plan     []stage
	jobStore *event.Store
	handles  event.Handles
	stageCtx context.Context
}

// processEvent runs the plan for one event on a fresh event store.
func (s *Sequencer) processEvent(run *runState, n uint64) (EventResult, *RunError) {
	cfg := s.cfg
	start := time.Now()
	log := s.logger.With("event", n)

	cfg.Observer.EventStarted(n)
	log.Info("start event")

	store := event.NewStore(fmt.Sprintf("EventStore#%d", n), cfg.EventStoreLogger.With("event", n))
	res := EventResult{Event: n, Status: EventDone}
	var runErr *RunError

	for i, st := range run.plan {
		ec := event.NewContext(n, uint64(i), cfg.TotalEvents, store, run.jobStore, run.handles)
		code, err := s.invoke(run.stageCtx, st, ec)
		if code == event.Success && err == nil {
			continue
		}

		res.Stage = st.name
		res.StageIndex = uint64(i)

		if code == event.EndOfData && st.kind == KindProducer && err == nil {
			res.Status = EventEndOfData
			log.Info("end of data", "producer", st.name)
			break
		}

		runErr = classify(st, ec, code, err)
		res.Status = EventAborted
		res.Message = runErr.Error()
		log.Error("event aborted",
			"kind", st.kind.String(),
			"stage", st.name,
			"stage_index", i,
			"code", string(runErr.Code),
			"error", runErr.Err,
		)
		if pe := (*panicError)(nil); errors.As(err, &pe) {
			log.Debug("stage panic stack", "stack", string(pe.stack))
		}
		break
	}

	res.Elapsed = time.Since(start)
	cfg.Observer.EventFinished(n, res.Status, res.Elapsed)
	if res.Status == EventDone {
		log.Info("event done", "duration_ms", res.Elapsed.Milliseconds(), "entries", store.Len())
		log.Debug("event store contents", "keys", store.Keys())
	}
	return res, runErr
}

// classify turns a non-success stage outcome into a RunError.
func classify(st stage, ec event.Context, code event.ProcessCode, err error) *RunError {
	re := &RunError{
		Code:       ErrCodeStageAborted,
		Event:      ec.EventIndex,
		Stage:      st.name,
		Kind:       st.kind,
		StageIndex: ec.StageIndex,
		Err:        err,
	}

	var pe *panicError
	switch {
	case errors.As(err, &pe):
		re.Code = ErrCodeStageFailed
	case code == event.Abort:
		// STAGE_ABORTED, with or without a cause.
	case code == event.EndOfData && st.kind != KindProducer:
		re.Code = ErrCodeStageFailed
		re.Err = errors.Join(errEndOfDataNotProducer, err)
	case code == event.Success || code == event.EndOfData:
		// A returned error wins over the code.
	default:
		re.Code = ErrCodeStageFailed
		re.Err = errors.Join(fmt.Errorf("invalid process code %d", int(code)), err)
	}
	return re
}

// invoke calls one stage, recovering panics and reporting timing.
func (s *Sequencer) invoke(ctx context.Context, st stage, ec event.Context) (code event.ProcessCode, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			code = event.Abort
			err = &panicError{value: r, stack: debug.Stack()}
		}
		s.cfg.Observer.StageFinished(st.kind, st.name, code, time.Since(start))
	}()

	s.logger.Debug("invoke stage", "event", ec.EventIndex, "stage_index", ec.StageIndex, "kind", st.kind.String(), "stage", st.name)
	return st.call(ctx, ec)
}
