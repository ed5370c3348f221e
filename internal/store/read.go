package store

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
)

// ListRuns returns every run, oldest first.
//
// Returns an empty slice (not nil) if the log has no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	var rows []runRow
	ds := s.dialect.From("runs").Order(goqu.I("id").Asc())
	if err := s.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]Run, len(rows))
	for i, r := range rows {
		runs[i] = r.toRun()
	}
	return runs, nil
}

// GetRun returns the run with the given id, or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	var rows []runRow
	ds := s.dialect.From("runs").Where(goqu.C("id").Eq(id)).Limit(1)
	if err := s.selectAll(ctx, &rows, ds); err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	if len(rows) == 0 {
		return Run{}, fmt.Errorf("get run %q: %w", id, ErrRunNotFound)
	}
	return rows[0].toRun(), nil
}

// EventFilter narrows ReadEventResults. Zero values match everything.
type EventFilter struct {
	Status string
	Event  *uint64
}

// ReadEventResults returns the event results of a run ordered by event.
func (s *Store) ReadEventResults(ctx context.Context, runID string, f EventFilter) ([]EventResult, error) {
	ds := s.dialect.From("event_results").
		Where(goqu.C("run_id").Eq(runID)).
		Order(goqu.I("event").Asc())
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(f.Status))
	}
	if f.Event != nil {
		ds = ds.Where(goqu.C("event").Eq(int64(*f.Event)))
	}

	var rows []eventResultRow
	if err := s.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("read event results: %w", err)
	}

	out := make([]EventResult, len(rows))
	for i, r := range rows {
		out[i] = r.toEventResult()
	}
	return out, nil
}

// ParticleFilter narrows ReadParticles. Zero values match everything.
type ParticleFilter struct {
	Event      *uint64
	Collection string
	Vertex     *uint64
	Generation *uint64
}

func (s *Store) particleQuery(runID string, f ParticleFilter) *goqu.SelectDataset {
	ds := s.dialect.From("particles").Where(goqu.C("run_id").Eq(runID))
	if f.Event != nil {
		ds = ds.Where(goqu.C("event").Eq(int64(*f.Event)))
	}
	if f.Collection != "" {
		ds = ds.Where(goqu.C("collection").Eq(f.Collection))
	}
	if f.Vertex != nil {
		ds = ds.Where(goqu.C("vertex").Eq(int64(*f.Vertex)))
	}
	if f.Generation != nil {
		ds = ds.Where(goqu.C("generation").Eq(int64(*f.Generation)))
	}
	return ds
}

// ReadParticles returns the particles of a run ordered by event,
// collection and barcode fields from the most significant down.
//
// The barcode column holds the value as a signed 64-bit integer, so it
// cannot be sorted on directly once the vertex field reaches 2048.
func (s *Store) ReadParticles(ctx context.Context, runID string, f ParticleFilter) ([]Particle, error) {
	ds := s.particleQuery(runID, f).Order(
		goqu.I("event").Asc(),
		goqu.I("collection").Asc(),
		goqu.I("vertex").Asc(),
		goqu.I("primary_idx").Asc(),
		goqu.I("generation").Asc(),
		goqu.I("secondary").Asc(),
		goqu.I("process").Asc(),
	)

	var rows []particleRow
	if err := s.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("read particles: %w", err)
	}

	out := make([]Particle, len(rows))
	for i, r := range rows {
		out[i] = r.toParticle()
	}
	return out, nil
}

// CountParticles returns how many particles match f.
func (s *Store) CountParticles(ctx context.Context, runID string, f ParticleFilter) (int, error) {
	query, args, err := s.particleQuery(runID, f).
		Select(goqu.COUNT(goqu.Star())).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("count particles: build query: %w", err)
	}

	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count particles: %w", err)
	}
	return n, nil
}
