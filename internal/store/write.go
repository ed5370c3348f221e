package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/roach88/evseq/internal/sequencer"
)

// particleBatch bounds the rows per INSERT so the statement stays below
// SQLite's bound-variable limit.
const particleBatch = 500

// BeginRun records a run before its first event, with status "running".
// Particles written during the run reference this row.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.Status == "" {
		run.Status = RunRunning
	}
	query, args, err := s.dialect.Insert("runs").Rows(toRunRow(run)).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("begin run: build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// StatusOf derives the stored run status from a sequencer outcome.
func StatusOf(report *sequencer.Report, runErr error) RunStatus {
	switch {
	case report != nil && report.Abort != nil:
		return RunAborted
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		return RunCancelled
	case runErr != nil:
		return RunFailed
	case report != nil && report.EndOfData:
		return RunEndOfData
	default:
		return RunDone
	}
}

// FinishRun stores the final status, counters and fingerprint of a run and
// its per-event results, in one transaction.
//
// Returns ErrRunNotFound if BeginRun was not called for report.RunID.
func (s *Store) FinishRun(ctx context.Context, report *sequencer.Report, status RunStatus, fingerprint string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finish run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	update := s.dialect.Update("runs").
		Set(goqu.Record{
			"status":      string(status),
			"processed":   report.Processed(),
			"aborted":     report.Count(sequencer.EventAborted),
			"end_of_data": report.EndOfData,
			"fingerprint": fingerprint,
			"duration_ms": report.Elapsed.Milliseconds(),
		}).
		Where(goqu.C("id").Eq(report.RunID))

	query, args, err := update.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("finish run: build update: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finish run: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %q: %w", report.RunID, ErrRunNotFound)
	}

	if len(report.Results) > 0 {
		rows := make([]eventResultRow, len(report.Results))
		for i, r := range report.Results {
			rows[i] = eventResultRow{
				RunID:      report.RunID,
				Event:      int64(r.Event),
				Status:     r.Status.String(),
				Stage:      r.Stage,
				StageIndex: int64(r.StageIndex),
				Message:    r.Message,
				DurationUS: r.Elapsed.Microseconds(),
			}
		}
		for start := 0; start < len(rows); start += particleBatch {
			end := min(start+particleBatch, len(rows))
			query, args, err := s.dialect.Insert("event_results").
				Rows(rows[start:end]).
				OnConflict(goqu.DoNothing()).
				Prepared(true).
				ToSQL()
			if err != nil {
				return fmt.Errorf("finish run: build insert: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("finish run: insert event results: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finish run: commit: %w", err)
	}
	return nil
}

// WriteParticles appends particle rows in one transaction. Rows already
// present for the same (run, event, collection, barcode) are ignored, so a
// retried write is harmless.
func (s *Store) WriteParticles(ctx context.Context, particles []Particle) error {
	if len(particles) == 0 {
		return nil
	}

	rows := make([]particleRow, len(particles))
	for i, p := range particles {
		rows[i] = toParticleRow(p)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write particles: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for start := 0; start < len(rows); start += particleBatch {
		end := min(start+particleBatch, len(rows))
		query, args, err := s.dialect.Insert("particles").
			Rows(rows[start:end]).
			OnConflict(goqu.DoNothing()).
			Prepared(true).
			ToSQL()
		if err != nil {
			return fmt.Errorf("write particles: build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("write particles: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write particles: commit: %w", err)
	}
	return nil
}
