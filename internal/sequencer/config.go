package sequencer

import (
	"fmt"
	"io"
	"log/slog"
)

// AbortPolicy decides what a stage abort does to the rest of the run.
type AbortPolicy int

const (
	// AbortRun stops scheduling new events and fails the run.
	AbortRun AbortPolicy = iota
	// SkipEvent drops the failing event and keeps going.
	SkipEvent
)

// String returns the policy name used in job files.
func (p AbortPolicy) String() string {
	switch p {
	case AbortRun:
		return "abort-run"
	case SkipEvent:
		return "skip-event"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseAbortPolicy converts a job-file name to an AbortPolicy.
// The empty string selects AbortRun.
func ParseAbortPolicy(s string) (AbortPolicy, error) {
	switch s {
	case "", "abort-run":
		return AbortRun, nil
	case "skip-event":
		return SkipEvent, nil
	default:
		return AbortRun, fmt.Errorf("unknown abort policy %q (want abort-run or skip-event)", s)
	}
}

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 1

// Config configures a Sequencer.
type Config struct {
	// Events is the number of events to process.
	Events uint64

	// Skip is the index of the first event.
	Skip uint64

	// TotalEvents is the run-wide event count used for seed derivation.
	// Zero means Skip+Events. It must cover every processed event index.
	TotalEvents uint64

	// Workers is the number of events processed concurrently.
	// Zero means DefaultWorkers.
	Workers int

	// AbortPolicy selects abort-run (default) or skip-event behavior.
	AbortPolicy AbortPolicy

	// Handles are opaque read-only context objects passed to every stage.
	Handles map[string]any

	// Logger receives sequencer output. Nil discards.
	Logger *slog.Logger

	// EventStoreLogger, if set, is used for the per-event stores instead of
	// Logger, so store chatter can run at a different level.
	EventStoreLogger *slog.Logger

	// Observer receives timing callbacks. Nil disables them.
	Observer Observer

	// RunIDs generates the run identifier. Nil uses UUIDv7Generator.
	RunIDs RunIDGenerator
}

// withDefaults fills zero values.
func (c Config) withDefaults() Config {
	if c.TotalEvents == 0 {
		c.TotalEvents = c.Skip + c.Events
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.EventStoreLogger == nil {
		c.EventStoreLogger = c.Logger
	}
	if c.Observer == nil {
		c.Observer = noopObserver{}
	}
	if c.RunIDs == nil {
		c.RunIDs = UUIDv7Generator{}
	}
	return c
}

// validate checks the event range and policy.
func (c Config) validate() error {
	if c.Skip+c.Events < c.Skip {
		return &ConfigError{Message: "event range overflows"}
	}
	if c.Skip+c.Events > c.TotalEvents {
		return &ConfigError{Message: fmt.Sprintf(
			"event range [%d, %d) exceeds total events %d; seeds would collide",
			c.Skip, c.Skip+c.Events, c.TotalEvents)}
	}
	if c.AbortPolicy != AbortRun && c.AbortPolicy != SkipEvent {
		return &ConfigError{Message: fmt.Sprintf("invalid abort policy %d", int(c.AbortPolicy))}
	}
	return nil
}
