package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// State is a lifecycle state of the Sequencer.
type State int

const (
	StateConfigured State = iota
	StateInitialized
	StateRunning
	StateFinalized
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sequencer owns the registered components and drives the event loop.
//
// Thread-safety model:
//   - Registration, Initialize, Run and Finalize serialize on an internal
//     mutex and must follow the lifecycle order
//   - During Run, stage methods are called from Config.Workers goroutines
//   - State never blocks; it may be called from stages and observers
//
// INVARIANTS:
//   - Registration order never changes once Initialize has been called
//   - Finalize order is the exact reverse of Initialize order
//   - A component is finalized only if its Initialize succeeded (or it has none)
type Sequencer struct {
	cfg    Config
	logger *slog.Logger

	mu           sync.Mutex
	state        atomic.Int32 // State; written only with mu held
	services     []Service
	producers    []Producer
	transformers []Transformer
	consumers    []Consumer

	// started holds the components whose startup completed, in order.
	started []component
}

// New creates a Sequencer in the Configured state.
func New(cfg Config) (*Sequencer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Sequencer{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "Sequencer"),
	}, nil
}

// State returns the current lifecycle state.
func (s *Sequencer) State() State {
	return State(s.state.Load())
}

func (s *Sequencer) setState(st State) {
	s.state.Store(int32(st))
}

// Config returns the effective configuration (defaults applied).
func (s *Sequencer) Config() Config {
	return s.cfg
}

// AddServices registers process-wide services.
func (s *Sequencer) AddServices(svcs ...Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRegistrable(KindService, toNamed(svcs)); err != nil {
		return err
	}
	s.services = append(s.services, svcs...)
	s.logAdded("added service", toNamed(svcs))
	return nil
}

// AddProducers registers producers (readers).
func (s *Sequencer) AddProducers(ps ...Producer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRegistrable(KindProducer, toNamed(ps)); err != nil {
		return err
	}
	s.producers = append(s.producers, ps...)
	s.logAdded("added producer", toNamed(ps))
	return nil
}

// PrependTransformers inserts transformers ahead of all registered ones,
// keeping the order in which they are passed.
func (s *Sequencer) PrependTransformers(ts ...Transformer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRegistrable(KindTransformer, toNamed(ts)); err != nil {
		return err
	}
	merged := make([]Transformer, 0, len(ts)+len(s.transformers))
	merged = append(merged, ts...)
	merged = append(merged, s.transformers...)
	s.transformers = merged
	s.logAdded("prepended transformer", toNamed(ts))
	return nil
}

// AppendTransformers adds transformers after all registered ones.
func (s *Sequencer) AppendTransformers(ts ...Transformer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRegistrable(KindTransformer, toNamed(ts)); err != nil {
		return err
	}
	s.transformers = append(s.transformers, ts...)
	s.logAdded("appended transformer", toNamed(ts))
	return nil
}

// AddConsumers registers consumers (writers).
func (s *Sequencer) AddConsumers(cs ...Consumer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRegistrable(KindConsumer, toNamed(cs)); err != nil {
		return err
	}
	s.consumers = append(s.consumers, cs...)
	s.logAdded("added consumer", toNamed(cs))
	return nil
}

// checkRegistrable validates a batch before any of it is registered, so a
// rejected batch leaves the sequencer unchanged.
func (s *Sequencer) checkRegistrable(kind Kind, items []Named) error {
	if s.State() != StateConfigured {
		return &RunError{
			Code: ErrCodeInvalidState,
			Err:  fmt.Errorf("cannot register %s in state %s", kind, s.State()),
		}
	}
	for i, it := range items {
		if isNil(it) {
			return &ConfigError{Message: fmt.Sprintf("trying to add empty %s (position %d)", kind, i)}
		}
		if it.Name() == "" {
			return &ConfigError{Message: fmt.Sprintf("%s at position %d has an empty name", kind, i)}
		}
	}
	return nil
}

func (s *Sequencer) logAdded(msg string, items []Named) {
	for _, it := range items {
		s.logger.Info(msg, "name", it.Name())
	}
}

// lifecycle returns all components in initialization order.
func (s *Sequencer) lifecycle() []component {
	out := make([]component, 0, len(s.services)+len(s.producers)+len(s.transformers)+len(s.consumers))
	for _, c := range s.services {
		out = append(out, component{kind: KindService, impl: c})
	}
	for _, c := range s.producers {
		out = append(out, component{kind: KindProducer, impl: c})
	}
	for _, c := range s.transformers {
		out = append(out, component{kind: KindTransformer, impl: c})
	}
	for _, c := range s.consumers {
		out = append(out, component{kind: KindConsumer, impl: c})
	}
	return out
}

// Initialize moves the sequencer from Configured to Initialized.
//
// On failure, components that already started are finalized in reverse,
// the sequencer moves to Finalized, and a *RunError with ErrCodeInitFailed
// is returned.
func (s *Sequencer) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked(ctx)
}

func (s *Sequencer) initializeLocked(ctx context.Context) error {
	if s.State() != StateConfigured {
		return &RunError{Code: ErrCodeInvalidState, Err: fmt.Errorf("initialize in state %s", s.State())}
	}

	s.logger.Info("initialize the event loop",
		"services", len(s.services),
		"producers", len(s.producers),
		"transformers", len(s.transformers),
		"consumers", len(s.consumers),
	)

	for _, c := range s.lifecycle() {
		if init, ok := c.impl.(Initializer); ok {
			if err := init.Initialize(ctx); err != nil {
				s.logger.Error("initialize failed", "kind", c.kind.String(), "name", c.impl.Name(), "error", err)
				finErr := s.finalizeStarted(ctx)
				s.setState(StateFinalized)
				initErr := &RunError{Code: ErrCodeInitFailed, Stage: c.impl.Name(), Kind: c.kind, Err: err}
				if finErr != nil {
					return errors.Join(initErr, finErr)
				}
				return initErr
			}
		}
		s.started = append(s.started, c)
	}

	s.setState(StateInitialized)
	return nil
}

// Finalize tears down every started component in reverse order. All
// components are finalized even if some fail; failures are joined into one
// *RunError with ErrCodeFinalizeFailed.
func (s *Sequencer) Finalize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizeLocked(ctx)
}

func (s *Sequencer) finalizeLocked(ctx context.Context) error {
	if s.State() == StateFinalized {
		return &RunError{Code: ErrCodeInvalidState, Err: errors.New("already finalized")}
	}

	s.logger.Info("finalize the event loop", "components", len(s.started))
	err := s.finalizeStarted(ctx)
	s.setState(StateFinalized)
	return err
}

// finalizeStarted finalizes s.started in reverse and clears it.
func (s *Sequencer) finalizeStarted(ctx context.Context) error {
	var (
		errs  []error
		first *component
	)
	for i := len(s.started) - 1; i >= 0; i-- {
		c := s.started[i]
		fin, ok := c.impl.(Finalizer)
		if !ok {
			continue
		}
		if err := fin.Finalize(ctx); err != nil {
			s.logger.Error("finalize failed", "kind", c.kind.String(), "name", c.impl.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s %q: %w", c.kind, c.impl.Name(), err))
			if first == nil {
				first = &s.started[i]
			}
		}
	}
	s.started = nil

	if len(errs) == 0 {
		return nil
	}
	return &RunError{
		Code:  ErrCodeFinalizeFailed,
		Stage: first.impl.Name(),
		Kind:  first.kind,
		Err:   errors.Join(errs...),
	}
}

// Run executes the whole lifecycle: Initialize (if still Configured), the
// event loop, and Finalize.
//
// The returned Report is non-nil whenever the event loop ran. The error is
// a *RunError for an abort under AbortRun, ctx.Err() if the context was
// cancelled before all events were scheduled, a finalize failure, or a
// join of these.
func (s *Sequencer) Run(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == StateConfigured {
		if err := s.initializeLocked(ctx); err != nil {
			return nil, err
		}
	}
	if s.State() != StateInitialized {
		return nil, &RunError{Code: ErrCodeInvalidState, Err: fmt.Errorf("run in state %s", s.State())}
	}

	s.setState(StateRunning)
	runID := s.cfg.RunIDs.Generate()
	s.logger.Info("run the event loop",
		"run_id", runID,
		"skip", s.cfg.Skip,
		"events", s.cfg.Events,
		"workers", s.cfg.Workers,
		"abort_policy", s.cfg.AbortPolicy.String(),
	)

	start := time.Now()
	report := s.loop(ctx, runID)
	report.Elapsed = time.Since(start)

	var errs []error
	if report.Abort != nil {
		errs = append(errs, report.Abort)
	} else if err := ctx.Err(); err != nil && len(report.Results) < int(s.cfg.Events) && !report.EndOfData {
		errs = append(errs, err)
	}
	// Finalizers run even when ctx was cancelled during the loop.
	if err := s.finalizeLocked(context.WithoutCancel(ctx)); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("event loop finished",
		"run_id", runID,
		"processed", report.Processed(),
		"aborted", report.Count(EventAborted),
		"end_of_data", report.EndOfData,
		"duration_ms", report.Elapsed.Milliseconds(),
	)

	return report, errors.Join(errs...)
}

func toNamed[T Named](items []T) []Named {
	out := make([]Named, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// isNil catches both nil interfaces and interfaces holding a nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
