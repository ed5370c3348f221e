package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/evseq/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database   string
	RunID      string
	Event      uint64
	Status     string
	Collection string
}

// RunView is a run as shown by inspect.
type RunView struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	BaseSeed    uint64 `json:"base_seed"`
	Skip        uint64 `json:"skip"`
	Events      uint64 `json:"events"`
	Workers     int    `json:"workers"`
	AbortPolicy string `json:"abort_policy"`
	Processed   int    `json:"processed"`
	Aborted     int    `json:"aborted"`
	EndOfData   bool   `json:"end_of_data"`
	Fingerprint string `json:"fingerprint,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

// EventView is an event result as shown by inspect.
type EventView struct {
	Event      uint64 `json:"event"`
	Status     string `json:"status"`
	Stage      string `json:"stage,omitempty"`
	StageIndex uint64 `json:"stage_index,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ParticleView is a particle row as shown by inspect.
type ParticleView struct {
	Collection string     `json:"collection"`
	Barcode    uint64     `json:"barcode"`
	Components [5]uint64  `json:"components"`
	PDG        int32      `json:"pdg"`
	Position   [4]float64 `json:"position"`
	Momentum   [3]float64 `json:"momentum"`
	Charge     float64    `json:"charge"`
}

// InspectResult is the output of inspect. Which parts are filled depends
// on the flags.
type InspectResult struct {
	Runs      []RunView      `json:"runs,omitempty"`
	Run       *RunView       `json:"run,omitempty"`
	Events    []EventView    `json:"events,omitempty"`
	Particles []ParticleView `json:"particles,omitempty"`
}

// String renders the result for text output.
func (r InspectResult) String() string {
	var b strings.Builder
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "%s  %-11s  events=%d processed=%d aborted=%d\n",
			run.ID, run.Status, run.Events, run.Processed, run.Aborted)
	}
	if r.Run != nil {
		fmt.Fprintf(&b, "Run %s: %s\n", r.Run.ID, r.Run.Status)
		fmt.Fprintf(&b, "  seed=%d events=[%d, %d) workers=%d policy=%s\n",
			r.Run.BaseSeed, r.Run.Skip, r.Run.Skip+r.Run.Events, r.Run.Workers, r.Run.AbortPolicy)
		if r.Run.Fingerprint != "" {
			fmt.Fprintf(&b, "  fingerprint=%s\n", r.Run.Fingerprint)
		}
	}
	for _, ev := range r.Events {
		fmt.Fprintf(&b, "  event %d: %s", ev.Event, ev.Status)
		if ev.Stage != "" {
			fmt.Fprintf(&b, " at %s (stage %d): %s", ev.Stage, ev.StageIndex, ev.Message)
		}
		b.WriteString("\n")
	}
	for _, p := range r.Particles {
		fmt.Fprintf(&b, "  %s %d %v pdg=%d q=%g p=(%g, %g, %g)\n",
			p.Collection, p.Barcode, p.Components, p.PDG, p.Charge, p.Momentum[0], p.Momentum[1], p.Momentum[2])
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show runs, event results and particles from a run log",
		Long: `Read the SQLite run log.

Without --run, lists all runs. With --run, shows the run and its event
results. With --run and --event, also shows the particles of that event.

Example:
  evseq inspect --db runs.db
  evseq inspect --db runs.db --run <id> --status aborted
  evseq inspect --db runs.db --run <id> --event 7 --collection secondaries`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite run log (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id")
	cmd.Flags().Uint64Var(&opts.Event, "event", 0, "event index (requires --run)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only events with this status (done, aborted, end_of_data)")
	cmd.Flags().StringVar(&opts.Collection, "collection", "", "only particles of this collection")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "run log not found", err)
	}
	eventSet := cmd.Flags().Changed("event")
	if eventSet && opts.RunID == "" {
		return formatter.fail(ExitCommandError, ErrCodeInvalidArgs, "--event requires --run", nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to open run log", err)
	}
	defer st.Close()

	var result InspectResult
	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to list runs", err)
		}
		for _, r := range runs {
			result.Runs = append(result.Runs, runView(r))
		}
		return formatter.Success(result)
	}

	run, err := st.GetRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "run not found", err)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to read run", err)
	}
	view := runView(run)
	result.Run = &view

	filter := store.EventFilter{Status: opts.Status}
	if eventSet {
		filter.Event = &opts.Event
	}
	events, err := st.ReadEventResults(ctx, opts.RunID, filter)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to read event results", err)
	}
	for _, ev := range events {
		result.Events = append(result.Events, EventView{
			Event:      ev.Event,
			Status:     ev.Status,
			Stage:      ev.Stage,
			StageIndex: ev.StageIndex,
			Message:    ev.Message,
		})
	}

	if eventSet {
		particles, err := st.ReadParticles(ctx, opts.RunID, store.ParticleFilter{
			Event:      &opts.Event,
			Collection: opts.Collection,
		})
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to read particles", err)
		}
		for _, p := range particles {
			result.Particles = append(result.Particles, ParticleView{
				Collection: p.Collection,
				Barcode:    p.Barcode.Value(),
				Components: p.Barcode.Components(),
				PDG:        p.PDG,
				Position:   [4]float64{p.VX, p.VY, p.VZ, p.VT},
				Momentum:   [3]float64{p.PX, p.PY, p.PZ},
				Charge:     p.Q,
			})
		}
	}
	return formatter.Success(result)
}

func runView(r store.Run) RunView {
	return RunView{
		ID:          r.ID,
		Status:      string(r.Status),
		BaseSeed:    r.BaseSeed,
		Skip:        r.Skip,
		Events:      r.Events,
		Workers:     r.Workers,
		AbortPolicy: r.AbortPolicy,
		Processed:   r.Processed,
		Aborted:     r.Aborted,
		EndOfData:   r.EndOfData,
		Fingerprint: r.Fingerprint,
		DurationMS:  r.Duration.Milliseconds(),
	}
}
