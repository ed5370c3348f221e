package stages

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/evseq/internal/event"
	"github.com/roach88/evseq/internal/sequencer"
	"github.com/roach88/evseq/internal/store"
)

// RunLogWriterConfig configures a RunLogWriter.
type RunLogWriterConfig struct {
	// Name overrides the stage name. Defaults to "RunLogWriter".
	Name string

	// Inputs are the event store keys of the []Vertex collections to log.
	Inputs []string

	Store  *store.Store
	Logger *slog.Logger
}

// RunLogWriter is a consumer that appends the particles of each event to
// the SQLite run log, tagged with the run id published in the job store.
//
// Thread-safety: writes from all workers are serialized on an internal
// mutex, so one event's rows are committed in one transaction.
type RunLogWriter struct {
	cfg    RunLogWriterConfig
	logger *slog.Logger

	mu      sync.Mutex
	written int
}

// NewRunLogWriter validates cfg and creates the writer.
func NewRunLogWriter(cfg RunLogWriterConfig) (*RunLogWriter, error) {
	cfg.Name = nameOr(cfg.Name, "RunLogWriter")
	if len(cfg.Inputs) == 0 {
		return nil, configError(cfg.Name, "missing input collections")
	}
	if cfg.Store == nil {
		return nil, configError(cfg.Name, "missing run log store")
	}
	return &RunLogWriter{cfg: cfg, logger: orDiscard(cfg.Logger).With("stage", cfg.Name)}, nil
}

// Name implements sequencer.Named.
func (w *RunLogWriter) Name() string { return w.cfg.Name }

// Write implements sequencer.Consumer.
func (w *RunLogWriter) Write(ctx context.Context, ec event.Context) (event.ProcessCode, error) {
	runID, err := event.Get[string](ec.JobStore, sequencer.RunIDKey)
	if err != nil {
		return event.Abort, fmt.Errorf("run id: %w", err)
	}

	var rows []store.Particle
	for _, key := range w.cfg.Inputs {
		vertices, err := readVertices(ec, key)
		if err != nil {
			return event.Abort, err
		}
		for _, p := range Flatten(vertices) {
			rows = append(rows, store.Particle{
				RunID:      runID,
				Event:      ec.EventIndex,
				Collection: key,
				Barcode:    p.Barcode,
				PDG:        p.PDG,
				VX:         p.Position.X,
				VY:         p.Position.Y,
				VZ:         p.Position.Z,
				VT:         p.Time,
				PX:         p.Momentum.X,
				PY:         p.Momentum.Y,
				PZ:         p.Momentum.Z,
				Q:          p.Charge,
			})
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.cfg.Store.WriteParticles(ctx, rows); err != nil {
		return event.Abort, err
	}
	w.written += len(rows)
	return event.Success, nil
}

// Finalize reports how many rows were written.
func (w *RunLogWriter) Finalize(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger.Info("run log particles written", "rows", w.written)
	return nil
}
