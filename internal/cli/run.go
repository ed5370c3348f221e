package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/evseq/internal/config"
	"github.com/roach88/evseq/internal/metrics"
	"github.com/roach88/evseq/internal/sequencer"
	"github.com/roach88/evseq/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	Events        uint64
	Skip          uint64
	Seed          uint64
	Workers       int
	Database      string
	OutputDir     string
	AbortPolicy   string
	BarcodePolicy string
	MetricsAddr   string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs sequencer.RunIDGenerator
}

// RunSummary is the result printed after a run.
type RunSummary struct {
	RunID       string         `json:"run_id"`
	Status      string         `json:"status"`
	Skip        uint64         `json:"skip"`
	Events      uint64         `json:"events"`
	Workers     int            `json:"workers"`
	Processed   int            `json:"processed"`
	Aborted     int            `json:"aborted"`
	EndOfData   bool           `json:"end_of_data"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
	Failures    []EventFailure `json:"failures,omitempty"`
}

// EventFailure describes one aborted event.
type EventFailure struct {
	Event      uint64 `json:"event"`
	Stage      string `json:"stage"`
	StageIndex uint64 `json:"stage_index"`
	Message    string `json:"message"`
}

// String renders the summary for text output.
func (s RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %s\n", s.RunID, s.Status)
	fmt.Fprintf(&b, "  events:    [%d, %d) with %d worker(s)\n", s.Skip, s.Skip+s.Events, s.Workers)
	fmt.Fprintf(&b, "  processed: %d\n", s.Processed)
	fmt.Fprintf(&b, "  aborted:   %d\n", s.Aborted)
	if s.EndOfData {
		fmt.Fprintf(&b, "  input exhausted before the last event\n")
	}
	if s.Fingerprint != "" {
		fmt.Fprintf(&b, "  fingerprint: %s\n", s.Fingerprint)
	}
	fmt.Fprintf(&b, "  duration:  %dms", s.DurationMS)
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "\n  event %d failed in %s (stage %d): %s", f.Event, f.Stage, f.StageIndex, f.Message)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <job-file>",
		Short: "Run a job",
		Long: `Run the stages of a job file over its event range.

Values from the job file are overridden by EVSEQ_* environment variables,
which are overridden by flags.

Example:
  evseq run job.yaml
  evseq run job.cue -n 1000 -j 8 --seed 7 --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint64VarP(&opts.Events, "events", "n", 0, "number of events")
	cmd.Flags().Uint64Var(&opts.Skip, "skip", 0, "index of the first event")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "base random seed")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "j", 0, "events processed in parallel")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite run log")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "default directory of file writers")
	cmd.Flags().StringVar(&opts.AbortPolicy, "abort-policy", "", "abort-run or skip-event")
	cmd.Flags().StringVar(&opts.BarcodePolicy, "barcode-policy", "", "reject or truncate")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")

	return cmd
}

// loadJob reads the job file and applies environment and flag overrides.
func loadJob(path string, cmd *cobra.Command, opts *RunOptions) (*config.Job, error) {
	job, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(job); err != nil {
		return nil, err
	}
	if opts == nil {
		return job, nil
	}

	flags := cmd.Flags()
	if flags.Changed("events") {
		job.Events = opts.Events
	}
	if flags.Changed("skip") {
		job.Skip = opts.Skip
	}
	if flags.Changed("seed") {
		seed := opts.Seed
		job.Seed = &seed
	}
	if flags.Changed("workers") {
		job.Workers = opts.Workers
	}
	if flags.Changed("db") {
		job.DB = opts.Database
	}
	if flags.Changed("output-dir") {
		job.OutputDir = opts.OutputDir
	}
	if flags.Changed("abort-policy") {
		job.AbortPolicy = opts.AbortPolicy
	}
	if flags.Changed("barcode-policy") {
		job.BarcodePolicy = opts.BarcodePolicy
	}
	return job, nil
}

func runJob(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	job, err := loadJob(path, cmd, opts)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeLoadFailed, "failed to load job", err)
	}
	if err := job.Validate(); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeInvalidJob, "invalid job", err)
	}

	level, _ := config.ParseLevel(job.LogLevel)
	logger := opts.newLogger(cmd.ErrOrStderr(), level)
	storeLogger := logger
	if job.StoreLogLevel != "" {
		storeLevel, _ := config.ParseLevel(job.StoreLogLevel)
		storeLogger = opts.newLogger(cmd.ErrOrStderr(), storeLevel)
	}

	ids := opts.RunIDs
	if ids == nil {
		ids = sequencer.UUIDv7Generator{}
	}
	runID := ids.Generate()
	logger = logger.With("run_id", runID)
	logger.Info("loaded job", "path", path, "job", job.String())

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping after events in flight", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	var runLog *store.Store
	if job.DB != "" {
		runLog, err = store.Open(job.DB)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to open run log", err)
		}
		defer func() {
			if closeErr := runLog.Close(); closeErr != nil {
				logger.Error("error closing run log", "error", closeErr)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	if opts.MetricsAddr != "" {
		_, stop, err := serveMetrics(opts.MetricsAddr, reg, logger)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeInvalidArgs, "failed to serve metrics", err)
		}
		defer stop()
	}

	pipeline, err := config.Build(job, config.Options{
		Logger:           logger,
		EventStoreLogger: storeLogger,
		Observer:         collector,
		RunIDs:           sequencer.NewFixedGenerator(runID),
		RunLog:           runLog,
	})
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeInvalidJob, "invalid job", err)
	}
	cfg := pipeline.Sequencer.Config()

	if runLog != nil {
		err := runLog.BeginRun(ctx, store.Run{
			ID:          runID,
			BaseSeed:    job.BaseSeed(),
			Skip:        cfg.Skip,
			Events:      cfg.Events,
			TotalEvents: cfg.TotalEvents,
			Workers:     cfg.Workers,
			AbortPolicy: cfg.AbortPolicy.String(),
		})
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to record run", err)
		}
	}

	report, runErr := pipeline.Sequencer.Run(ctx)
	if report == nil {
		return formatter.fail(ExitFailure, ErrCodeRunFailed, "run failed", runErr)
	}

	fingerprint := ""
	if pipeline.Digests != nil {
		fingerprint = pipeline.Digests.Fingerprint()
	}
	status := store.StatusOf(report, runErr)
	if runLog != nil {
		// The run is over; record it even if ctx was cancelled.
		if err := runLog.FinishRun(context.WithoutCancel(ctx), report, status, fingerprint); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to record run result", err)
		}
	}

	summary := summarize(report, status, fingerprint)
	if runErr != nil {
		details := summary
		if err := formatter.Error(ErrCodeRunFailed, runErr.Error(), details); err != nil {
			return err
		}
		if formatter.Format != "json" {
			fmt.Fprintln(formatter.Writer, summary)
		}
		return WrapExitError(ExitFailure, "run "+string(status), runErr)
	}
	return formatter.Success(summary)
}

func summarize(report *sequencer.Report, status store.RunStatus, fingerprint string) RunSummary {
	s := RunSummary{
		RunID:       report.RunID,
		Status:      string(status),
		Skip:        report.Skip,
		Events:      report.Events,
		Workers:     report.Workers,
		Processed:   report.Processed(),
		Aborted:     report.Count(sequencer.EventAborted),
		EndOfData:   report.EndOfData,
		Fingerprint: fingerprint,
		DurationMS:  report.Elapsed.Milliseconds(),
	}
	for _, res := range report.Failed() {
		s.Failures = append(s.Failures, EventFailure{
			Event:      res.Event,
			Stage:      res.Stage,
			StageIndex: res.StageIndex,
			Message:    res.Message,
		})
	}
	return s
}

// serveMetrics exposes reg on addr until the returned stop function runs.
// It returns the address actually bound.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
