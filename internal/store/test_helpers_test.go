package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/evseq/internal/sequencer"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// beginTestRun inserts a running run with minimal fields.
func beginTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.BeginRun(context.Background(), Run{
		ID:          id,
		BaseSeed:    42,
		Events:      3,
		TotalEvents: 3,
		Workers:     1,
		AbortPolicy: sequencer.AbortRun.String(),
	})
	if err != nil {
		t.Fatalf("BeginRun(%q) failed: %v", id, err)
	}
}

// createTestReport builds a report for three events, the middle one aborted.
func createTestReport(runID string) *sequencer.Report {
	return &sequencer.Report{
		RunID:       runID,
		Events:      3,
		TotalEvents: 3,
		Workers:     1,
		Policy:      sequencer.SkipEvent,
		Results: []sequencer.EventResult{
			{Event: 0, Status: sequencer.EventDone, Elapsed: time.Millisecond},
			{Event: 1, Status: sequencer.EventAborted, Stage: "spawner", StageIndex: 1, Message: "STAGE_ABORTED"},
			{Event: 2, Status: sequencer.EventDone},
		},
		Elapsed: 25 * time.Millisecond,
	}
}
