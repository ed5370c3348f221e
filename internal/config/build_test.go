package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/evseq/internal/event"
	"github.com/roach88/evseq/internal/sequencer"
	"github.com/roach88/evseq/internal/stages"
	"github.com/roach88/evseq/internal/store"
)

func loadSmoke(t *testing.T, workers int) *Job {
	t.Helper()
	job, err := Load("testdata/job.yaml")
	require.NoError(t, err)
	job.Workers = workers
	job.OutputDir = t.TempDir()
	return job
}

func runPipeline(t *testing.T, p *Pipeline) *sequencer.Report {
	t.Helper()
	report, err := p.Sequencer.Run(context.Background())
	require.NoError(t, err)
	return report
}

func TestBuild_RunsSmokeJob(t *testing.T) {
	job := loadSmoke(t, 3)
	p, err := Build(job, Options{RunIDs: sequencer.NewFixedGenerator("run-1")})
	require.NoError(t, err)
	require.NotNil(t, p.Digests)
	assert.Equal(t, uint64(42), p.Random.BaseSeed())

	report := runPipeline(t, p)
	assert.Equal(t, 12, report.Processed())
	assert.Equal(t, uint64(2), report.Results[0].Event)
	assert.Equal(t, 12, p.Digests.Len())
	assert.Len(t, p.Digests.Fingerprint(), 64)

	first, end, err := stages.EventFilesRange(job.OutputDir, "secondaries.csv")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), first)
	assert.Equal(t, uint64(14), end)
}

func TestBuild_FingerprintIndependentOfWorkers(t *testing.T) {
	fingerprint := func(workers int) string {
		p, err := Build(loadSmoke(t, workers), Options{RunIDs: sequencer.NewFixedGenerator("run")})
		require.NoError(t, err)
		runPipeline(t, p)
		return p.Digests.Fingerprint()
	}
	serial := fingerprint(1)
	assert.Equal(t, serial, fingerprint(4))
	assert.Equal(t, serial, fingerprint(12))
}

func TestBuild_SeedChangesFingerprint(t *testing.T) {
	fingerprint := func(seed uint64) string {
		job := loadSmoke(t, 2)
		job.Seed = &seed
		p, err := Build(job, Options{RunIDs: sequencer.NewFixedGenerator("run")})
		require.NoError(t, err)
		runPipeline(t, p)
		return p.Digests.Fingerprint()
	}
	assert.NotEqual(t, fingerprint(1), fingerprint(2))
}

func TestBuild_PrependOrder(t *testing.T) {
	job := &Job{Events: 1, Stages: []Stage{
		gunStage("p"),
		stage(TypeRandomDraws, map[string]any{"output": "late"}),
		{Type: TypeRandomDraws, Name: "Early", Prepend: true, Params: map[string]any{"output": "early"}},
		{Type: TypeRandomDraws, Name: "Earliest", Prepend: true, Params: map[string]any{"output": "earliest"}},
		stage(TypeDigest, map[string]any{"inputs": []any{"p"}}),
	}}
	obs := &stageOrder{}
	p, err := Build(job, Options{RunIDs: sequencer.NewFixedGenerator("run"), Observer: obs})
	require.NoError(t, err)
	runPipeline(t, p)

	// Each prepended stage goes ahead of the ones before it.
	want := []string{"ParticleGun", "Earliest", "Early", "RandomDraws", "Digest"}
	assert.Equal(t, want, obs.names)

	var planned []string
	for _, st := range job.Plan() {
		planned = append(planned, StageName(st))
	}
	assert.Equal(t, want, planned)
}

func TestBuild_RunLog(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.BeginRun(context.Background(), store.Run{ID: "run-log", Events: 3, TotalEvents: 3, Workers: 2}))

	job := &Job{Events: 3, Workers: 2, DB: "runs.db", Stages: []Stage{
		gunStage("p"),
		stage(TypeRunLog, map[string]any{"inputs": []any{"p"}}),
	}}
	p, err := Build(job, Options{RunIDs: sequencer.NewFixedGenerator("run-log"), RunLog: db})
	require.NoError(t, err)
	runPipeline(t, p)

	n, err := db.CountParticles(context.Background(), "run-log", store.ParticleFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestBuild_StageConstructorErrors(t *testing.T) {
	// Validation passes, but the gun has no output key.
	job := &Job{Events: 1, Stages: []Stage{stage(TypeParticleGun, map[string]any{"count": 1})}}
	_, err := Build(job, Options{})
	require.Error(t, err)
	assert.True(t, sequencer.IsConfigError(err))
	assert.Contains(t, err.Error(), "stages[0] (particle_gun)")

	// A run_log stage without an open store.
	job = &Job{Events: 1, DB: "x.db", Stages: []Stage{
		gunStage("p"),
		stage(TypeRunLog, map[string]any{"inputs": []any{"p"}}),
	}}
	_, err = Build(job, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing run log store")
}

func TestBuild_InvalidJob(t *testing.T) {
	_, err := Build(&Job{Workers: -1}, Options{})
	assert.True(t, sequencer.IsConfigError(err))
}

// stageOrder records the stage names of the first event.
type stageOrder struct {
	names []string
}

func (o *stageOrder) EventStarted(uint64)                                        {}
func (o *stageOrder) EventFinished(uint64, sequencer.EventStatus, time.Duration) {}
func (o *stageOrder) StageFinished(_ sequencer.Kind, name string, _ event.ProcessCode, _ time.Duration) {
	o.names = append(o.names, name)
}
