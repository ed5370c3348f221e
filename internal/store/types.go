package store

import (
	"time"

	"github.com/roach88/evseq/internal/barcode"
)

// RunStatus is the final state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunDone      RunStatus = "done"
	RunAborted   RunStatus = "aborted"
	RunEndOfData RunStatus = "end_of_data"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// Run is one row of the runs table.
type Run struct {
	ID          string
	BaseSeed    uint64
	Skip        uint64
	Events      uint64
	TotalEvents uint64
	Workers     int
	AbortPolicy string
	Status      RunStatus
	Processed   int
	Aborted     int
	EndOfData   bool
	Fingerprint string
	Duration    time.Duration
}

type runRow struct {
	ID          string `db:"id"`
	BaseSeed    int64  `db:"base_seed"`
	Skip        int64  `db:"skip"`
	Events      int64  `db:"events"`
	TotalEvents int64  `db:"total_events"`
	Workers     int    `db:"workers"`
	AbortPolicy string `db:"abort_policy"`
	Status      string `db:"status"`
	Processed   int    `db:"processed"`
	Aborted     int    `db:"aborted"`
	EndOfData   bool   `db:"end_of_data"`
	Fingerprint string `db:"fingerprint"`
	DurationMS  int64  `db:"duration_ms"`
}

func toRunRow(r Run) runRow {
	return runRow{
		ID:          r.ID,
		BaseSeed:    int64(r.BaseSeed),
		Skip:        int64(r.Skip),
		Events:      int64(r.Events),
		TotalEvents: int64(r.TotalEvents),
		Workers:     r.Workers,
		AbortPolicy: r.AbortPolicy,
		Status:      string(r.Status),
		Processed:   r.Processed,
		Aborted:     r.Aborted,
		EndOfData:   r.EndOfData,
		Fingerprint: r.Fingerprint,
		DurationMS:  r.Duration.Milliseconds(),
	}
}

func (r runRow) toRun() Run {
	return Run{
		ID:          r.ID,
		BaseSeed:    uint64(r.BaseSeed),
		Skip:        uint64(r.Skip),
		Events:      uint64(r.Events),
		TotalEvents: uint64(r.TotalEvents),
		Workers:     r.Workers,
		AbortPolicy: r.AbortPolicy,
		Status:      RunStatus(r.Status),
		Processed:   r.Processed,
		Aborted:     r.Aborted,
		EndOfData:   r.EndOfData,
		Fingerprint: r.Fingerprint,
		Duration:    time.Duration(r.DurationMS) * time.Millisecond,
	}
}

// EventResult is one row of the event_results table.
type EventResult struct {
	RunID      string
	Event      uint64
	Status     string
	Stage      string
	StageIndex uint64
	Message    string
	Duration   time.Duration
}

type eventResultRow struct {
	RunID      string `db:"run_id"`
	Event      int64  `db:"event"`
	Status     string `db:"status"`
	Stage      string `db:"stage"`
	StageIndex int64  `db:"stage_index"`
	Message    string `db:"message"`
	DurationUS int64  `db:"duration_us"`
}

func (r eventResultRow) toEventResult() EventResult {
	return EventResult{
		RunID:      r.RunID,
		Event:      uint64(r.Event),
		Status:     r.Status,
		Stage:      r.Stage,
		StageIndex: uint64(r.StageIndex),
		Message:    r.Message,
		Duration:   time.Duration(r.DurationUS) * time.Microsecond,
	}
}

// Particle is one row of the particles table.
type Particle struct {
	RunID      string
	Event      uint64
	Collection string
	Barcode    barcode.Barcode
	PDG        int32

	VX, VY, VZ, VT float64
	PX, PY, PZ     float64
	Q              float64
}

type particleRow struct {
	RunID      string  `db:"run_id"`
	Event      int64   `db:"event"`
	Collection string  `db:"collection"`
	Barcode    int64   `db:"barcode"`
	Vertex     int64   `db:"vertex"`
	Primary    int64   `db:"primary_idx"`
	Generation int64   `db:"generation"`
	Secondary  int64   `db:"secondary"`
	Process    int64   `db:"process"`
	PDG        int32   `db:"pdg"`
	VX         float64 `db:"vx"`
	VY         float64 `db:"vy"`
	VZ         float64 `db:"vz"`
	VT         float64 `db:"vt"`
	PX         float64 `db:"px"`
	PY         float64 `db:"py"`
	PZ         float64 `db:"pz"`
	Q          float64 `db:"q"`
}

func toParticleRow(p Particle) particleRow {
	b := p.Barcode
	return particleRow{
		RunID:      p.RunID,
		Event:      int64(p.Event),
		Collection: p.Collection,
		Barcode:    int64(b.Value()),
		Vertex:     int64(b.Vertex()),
		Primary:    int64(b.Primary()),
		Generation: int64(b.Generation()),
		Secondary:  int64(b.Secondary()),
		Process:    int64(b.Process()),
		PDG:        p.PDG,
		VX:         p.VX,
		VY:         p.VY,
		VZ:         p.VZ,
		VT:         p.VT,
		PX:         p.PX,
		PY:         p.PY,
		PZ:         p.PZ,
		Q:          p.Q,
	}
}

func (r particleRow) toParticle() Particle {
	return Particle{
		RunID:      r.RunID,
		Event:      uint64(r.Event),
		Collection: r.Collection,
		Barcode:    barcode.Barcode(uint64(r.Barcode)),
		PDG:        r.PDG,
		VX:         r.VX,
		VY:         r.VY,
		VZ:         r.VZ,
		VT:         r.VT,
		PX:         r.PX,
		PY:         r.PY,
		PZ:         r.PZ,
		Q:          r.Q,
	}
}
