package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/evseq/internal/sequencer"
	"github.com/roach88/evseq/internal/store"
)

const overflowJob = `
events: 4
seed: 3
abort_policy: abort-run
stages:
  - type: particle_gun
    params: {output: particles, count: 1}
  - type: secondary_spawner
    params: {input: particles, output: secondaries, multiplicity: 5000}
`

func runSmoke(t *testing.T, args ...string) (RunSummary, string) {
	t.Helper()
	job := writeJob(t, "job.yaml", smokeJob)
	db := filepath.Join(t.TempDir(), "runs.db")
	out, _, err := execute(t, append([]string{"--format", "json", "run", job, "--db", db}, args...)...)
	require.NoError(t, err, out)

	var summary RunSummary
	decodeData(t, out, &summary)
	return summary, db
}

func TestRun_Smoke(t *testing.T) {
	summary, db := runSmoke(t)

	assert.Equal(t, "done", summary.Status)
	assert.Equal(t, uint64(6), summary.Events)
	assert.Equal(t, 6, summary.Processed)
	assert.Zero(t, summary.Aborted)
	assert.Len(t, summary.Fingerprint, 64)
	assert.NotEmpty(t, summary.RunID)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.GetRun(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.RunDone, run.Status)
	assert.Equal(t, summary.Fingerprint, run.Fingerprint)
	assert.Equal(t, uint64(11), run.BaseSeed)

	n, err := st.CountParticles(context.Background(), summary.RunID, store.ParticleFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6*(3+6), n)
}

func TestRun_FingerprintIndependentOfWorkers(t *testing.T) {
	one, _ := runSmoke(t, "--workers", "1")
	four, _ := runSmoke(t, "-j", "4")

	assert.NotEqual(t, one.RunID, four.RunID)
	assert.Equal(t, one.Fingerprint, four.Fingerprint)
}

func TestRun_SeedChangesFingerprint(t *testing.T) {
	a, _ := runSmoke(t)
	b, _ := runSmoke(t, "--seed", "12")
	assert.NotEqual(t, a.Fingerprint, b.Fingerprint)
}

func TestRun_FlagOverrides(t *testing.T) {
	summary, _ := runSmoke(t, "-n", "3", "--skip", "2")
	assert.Equal(t, uint64(3), summary.Events)
	assert.Equal(t, uint64(2), summary.Skip)
	assert.Equal(t, 3, summary.Processed)
}

func TestRun_EnvOverrides(t *testing.T) {
	t.Setenv("EVSEQ_EVENTS", "2")
	summary, _ := runSmoke(t)
	assert.Equal(t, 2, summary.Processed)

	// Flags win over the environment.
	summary, _ = runSmoke(t, "--events", "4")
	assert.Equal(t, 4, summary.Processed)
}

func TestRun_FixedRunID(t *testing.T) {
	job := writeJob(t, "job.yaml", smokeJob)
	db := filepath.Join(t.TempDir(), "runs.db")

	out := &strings.Builder{}
	cmd := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: "json", LogFormat: "text"},
		RunIDs:      sequencer.NewFixedGenerator("run-fixed"),
	})
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{job, "--db", db})

	require.NoError(t, cmd.Execute())

	var summary RunSummary
	decodeData(t, out.String(), &summary)
	assert.Equal(t, "run-fixed", summary.RunID)
}

func TestRun_InvalidJob(t *testing.T) {
	job := writeJob(t, "job.yaml", `
events: 2
stages:
  - type: secondary_spawner
    params: {input: particles, output: secondaries}
`)
	out, _, err := execute(t, "--format", "json", "run", job)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeInvalidJob, decodeError(t, out).Code)
}

func TestRun_MissingFile(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "run", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeLoadFailed, decodeError(t, out).Code)
}

func TestRun_Aborted(t *testing.T) {
	job := writeJob(t, "job.yaml", overflowJob)
	db := filepath.Join(t.TempDir(), "runs.db")

	out, _, err := execute(t, "--format", "json", "run", job, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	cliErr := decodeError(t, out)
	assert.Equal(t, ErrCodeRunFailed, cliErr.Code)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunAborted, runs[0].Status)
}

func TestRun_AbortedTextOutput(t *testing.T) {
	job := writeJob(t, "job.yaml", overflowJob)

	out, _, err := execute(t, "run", job)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeRunFailed+"]")
	assert.Contains(t, out, ": aborted")
}

func TestRun_SkipEventPolicy(t *testing.T) {
	job := writeJob(t, "job.yaml", overflowJob)

	out, _, err := execute(t, "--format", "json", "run", job, "--abort-policy", "skip-event")
	require.NoError(t, err, out)

	var summary RunSummary
	decodeData(t, out, &summary)
	assert.Equal(t, "done", summary.Status)
	assert.Equal(t, 4, summary.Aborted)
	assert.Zero(t, summary.Processed)
	require.Len(t, summary.Failures, 4)
	assert.Equal(t, "SecondarySpawner", summary.Failures[0].Stage)
}

func TestRun_TruncatePolicy(t *testing.T) {
	job := writeJob(t, "job.yaml", overflowJob)

	out, _, err := execute(t, "--format", "json", "run", job, "--barcode-policy", "truncate")
	require.NoError(t, err, out)

	var summary RunSummary
	decodeData(t, out, &summary)
	assert.Equal(t, 4, summary.Processed)
}

func TestRun_Cancelled(t *testing.T) {
	job := writeJob(t, "job.yaml", overflowJob)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := &strings.Builder{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--format", "json", "run", job})
	err := cmd.ExecuteContext(ctx)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "evseq_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Add(3)

	addr, stop, err := serveMetrics("127.0.0.1:0", reg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer stop()

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "evseq_test_total 3")
}
