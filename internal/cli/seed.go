package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/evseq/internal/random"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Base  uint64
	Total uint64
	Event uint64
	Stage uint64
}

// SeedResult is the derived seed of one stage invocation.
type SeedResult struct {
	Base  uint64 `json:"base"`
	Total uint64 `json:"total_events"`
	Event uint64 `json:"event"`
	Stage uint64 `json:"stage"`
	Seed  uint64 `json:"seed"`
}

// String renders the seed alone, for scripting.
func (r SeedResult) String() string {
	return fmt.Sprintf("%d", r.Seed)
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Print the seed of one (event, stage) invocation",
		Long: `Print the seed the random numbers service derives for a stage
invocation: base + stage*total + event.

Example:
  evseq seed --base 42 --total 100 --event 7 --stage 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Base, "base", random.DefaultSeed, "base seed of the run")
	cmd.Flags().Uint64Var(&opts.Total, "total", 0, "total events of the run (required)")
	cmd.Flags().Uint64Var(&opts.Event, "event", 0, "event index")
	cmd.Flags().Uint64Var(&opts.Stage, "stage", 0, "stage index within the event")
	_ = cmd.MarkFlagRequired("total")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if opts.Event >= opts.Total {
		return formatter.fail(ExitCommandError, ErrCodeInvalidArgs,
			fmt.Sprintf("event %d is outside [0, %d)", opts.Event, opts.Total), nil)
	}
	return formatter.Success(SeedResult{
		Base:  opts.Base,
		Total: opts.Total,
		Event: opts.Event,
		Stage: opts.Stage,
		Seed:  random.Seed(opts.Base, opts.Event, opts.Stage, opts.Total),
	})
}
