package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/evseq/internal/config"
	"github.com/roach88/evseq/internal/store"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Events uint64         `json:"events"`
	Skip   uint64         `json:"skip"`
	Seed   uint64         `json:"seed"`
	Plan   []PlannedStage `json:"plan,omitempty"`
	Errors []string       `json:"errors,omitempty"`
}

// PlannedStage is one stage in invocation order.
type PlannedStage struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	Name  string `json:"name"`
}

// String renders the result for text output.
func (r ValidationResult) String() string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "Job is valid: events [%d, %d), seed %d\n", r.Skip, r.Skip+r.Events, r.Seed)
	}
	for _, st := range r.Plan {
		fmt.Fprintf(&b, "  %d. %s (%s)\n", st.Index, st.Name, st.Type)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <job-file>",
		Short: "Validate a job without running it",
		Long: `Load a job file, apply environment overrides, and check it: schema,
policies, stage parameters, and that every stage input is written by an
earlier stage. Stages are constructed but no event is processed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	job, err := loadJob(path, cmd, nil)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeLoadFailed, "failed to load job", err)
	}
	formatter.VerboseLog("Loaded %s: %s", path, job.String())

	if err := dryBuild(job); err != nil {
		result := ValidationResult{Valid: false, Errors: splitJoined(err)}
		if outErr := formatter.Error(ErrCodeInvalidJob, "invalid job", result.Errors); outErr != nil {
			return outErr
		}
		if formatter.Format != "json" {
			for _, msg := range result.Errors {
				fmt.Fprintf(formatter.Writer, "  - %s\n", msg)
			}
		}
		return WrapExitError(ExitFailure, "invalid job", err)
	}

	result := ValidationResult{Valid: true, Events: job.Events, Skip: job.Skip, Seed: job.BaseSeed()}
	for i, st := range job.Plan() {
		result.Plan = append(result.Plan, PlannedStage{Index: i, Type: st.Type, Name: config.StageName(st)})
	}
	return formatter.Success(result)
}

// dryBuild constructs every stage. A job with a run_log stage gets a
// throwaway run log.
func dryBuild(job *config.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	var opts config.Options
	if job.DB != "" {
		dir, err := os.MkdirTemp("", "evseq-validate-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		runLog, err := store.Open(filepath.Join(dir, "validate.db"))
		if err != nil {
			return err
		}
		defer runLog.Close()
		opts.RunLog = runLog
	}
	_, err := config.Build(job, opts)
	return err
}

// splitJoined flattens an errors.Join tree into messages.
func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, splitJoined(e)...)
		}
		return out
	}
	return []string{err.Error()}
}
