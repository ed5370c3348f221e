package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/evseq/internal/barcode"
	"github.com/roach88/evseq/internal/random"
	"github.com/roach88/evseq/internal/sequencer"
)

// Job is a decoded job file.
type Job struct {
	Name        string  `yaml:"name" json:"name,omitempty"`
	Events      uint64  `yaml:"events" json:"events"`
	Skip        uint64  `yaml:"skip" json:"skip,omitempty"`
	TotalEvents uint64  `yaml:"total_events" json:"total_events,omitempty"`
	Seed        *uint64 `yaml:"seed" json:"seed,omitempty"`
	Workers     int     `yaml:"workers" json:"workers,omitempty"`

	AbortPolicy   string `yaml:"abort_policy" json:"abort_policy,omitempty"`
	BarcodePolicy string `yaml:"barcode_policy" json:"barcode_policy,omitempty"`

	// OutputDir is the default directory of file writers.
	OutputDir string `yaml:"output_dir" json:"output_dir,omitempty"`

	// DB is the SQLite run log path. Empty disables the run log.
	DB string `yaml:"db" json:"db,omitempty"`

	LogLevel      string `yaml:"log_level" json:"log_level,omitempty"`
	StoreLogLevel string `yaml:"store_log_level" json:"store_log_level,omitempty"`

	Stages []Stage `yaml:"stages" json:"stages"`
}

// Stage is one entry of the stage list.
type Stage struct {
	Type string `yaml:"type" json:"type"`

	// Name overrides the component name; it defaults to the stage
	// type's component name.
	Name string `yaml:"name" json:"name,omitempty"`

	// Prepend registers a transformer ahead of those already registered.
	Prepend bool `yaml:"prepend" json:"prepend,omitempty"`

	Params map[string]any `yaml:"params" json:"params,omitempty"`
}

// Stage types.
const (
	TypeParticleGun      = "particle_gun"
	TypeCSVReader        = "csv_reader"
	TypeSecondarySpawner = "secondary_spawner"
	TypeRandomDraws      = "random_draws"
	TypeCSVWriter        = "csv_writer"
	TypeJSONWriter       = "json_writer"
	TypeDigest           = "digest"
	TypeRunLog           = "run_log"
)

// KindOf returns the component kind of a stage type.
func KindOf(stageType string) (sequencer.Kind, bool) {
	switch stageType {
	case TypeParticleGun, TypeCSVReader:
		return sequencer.KindProducer, true
	case TypeSecondarySpawner, TypeRandomDraws:
		return sequencer.KindTransformer, true
	case TypeCSVWriter, TypeJSONWriter, TypeDigest, TypeRunLog:
		return sequencer.KindConsumer, true
	default:
		return 0, false
	}
}

// BaseSeed returns the configured seed or random.DefaultSeed.
func (j *Job) BaseSeed() uint64 {
	if j.Seed == nil {
		return random.DefaultSeed
	}
	return *j.Seed
}

// ParseLevel converts a log level name to a slog.Level. The empty string
// selects info.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// Validate checks the job without building anything. All problems are
// reported, joined, as *sequencer.ConfigError values.
func (j *Job) Validate() error {
	var errs []error
	fail := func(component, format string, args ...any) {
		errs = append(errs, &sequencer.ConfigError{Component: component, Message: fmt.Sprintf(format, args...)})
	}

	if j.Skip+j.Events < j.Skip {
		fail("job", "event range overflows")
	}
	if j.TotalEvents != 0 && j.Skip+j.Events > j.TotalEvents {
		fail("job", "event range [%d, %d) exceeds total_events %d", j.Skip, j.Skip+j.Events, j.TotalEvents)
	}
	if j.Workers < 0 {
		fail("job", "negative worker count %d", j.Workers)
	}
	if _, err := sequencer.ParseAbortPolicy(j.AbortPolicy); err != nil {
		fail("job", "%v", err)
	}
	if _, err := barcode.ParsePolicy(j.BarcodePolicy); err != nil {
		fail("job", "%v", err)
	}
	if _, err := ParseLevel(j.LogLevel); err != nil {
		fail("job", "log_level: %v", err)
	}
	if _, err := ParseLevel(j.StoreLogLevel); err != nil {
		fail("job", "store_log_level: %v", err)
	}

	names := make(map[string]int)
	for i, st := range j.Stages {
		component := fmt.Sprintf("stages[%d]", i)
		if _, ok := KindOf(st.Type); !ok {
			fail(component, "unknown stage type %q", st.Type)
			continue
		}
		if st.Prepend && st.Type != TypeSecondarySpawner && st.Type != TypeRandomDraws {
			fail(component, "prepend is only valid for transformers")
		}
		if st.Type == TypeRunLog && j.DB == "" {
			fail(component, "run_log stage requires db")
		}
		if _, err := decodeParams(st); err != nil {
			fail(component, "%v", err)
			continue
		}
		name := stageName(st)
		if prev, ok := names[name]; ok {
			fail(component, "duplicate stage name %q (also stages[%d])", name, prev)
		}
		names[name] = i
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return checkDataFlow(j)
}

// stageName returns the component name a stage will register under.
func stageName(st Stage) string {
	if st.Name != "" {
		return st.Name
	}
	return defaultNames[st.Type]
}

var defaultNames = map[string]string{
	TypeParticleGun:      "ParticleGun",
	TypeCSVReader:        "CSVParticleReader",
	TypeSecondarySpawner: "SecondarySpawner",
	TypeRandomDraws:      "RandomDraws",
	TypeCSVWriter:        "CSVParticleWriter",
	TypeJSONWriter:       "JSONParticleWriter",
	TypeDigest:           "Digest",
	TypeRunLog:           "RunLogWriter",
}

// planOrder returns the indices of j.Stages in per-event invocation order:
// producers, then transformers (prepended ones in reverse file order ahead
// of appended ones), then consumers.
func planOrder(j *Job) []int {
	var producers, prepended, appended, consumers []int
	for i, st := range j.Stages {
		kind, _ := KindOf(st.Type)
		switch {
		case kind == sequencer.KindProducer:
			producers = append(producers, i)
		case kind == sequencer.KindTransformer && st.Prepend:
			prepended = append([]int{i}, prepended...)
		case kind == sequencer.KindTransformer:
			appended = append(appended, i)
		default:
			consumers = append(consumers, i)
		}
	}
	out := append(producers, prepended...)
	out = append(out, appended...)
	return append(out, consumers...)
}

// Plan returns the stages in per-event invocation order.
func (j *Job) Plan() []Stage {
	order := planOrder(j)
	out := make([]Stage, len(order))
	for i, idx := range order {
		out[i] = j.Stages[idx]
	}
	return out
}

// StageName returns the component name a stage registers under.
func StageName(st Stage) string { return stageName(st) }

// checkDataFlow verifies that every input collection is written by an
// earlier stage and that no key is written twice. Empty keys are left to
// the stage constructors.
func checkDataFlow(j *Job) error {
	var errs []error
	written := make(map[string]string)
	for _, i := range planOrder(j) {
		st := j.Stages[i]
		p, _ := decodeParams(st)
		name := stageName(st)
		for _, in := range p.inputs() {
			if in == "" {
				continue
			}
			if _, ok := written[in]; !ok {
				errs = append(errs, &sequencer.ConfigError{
					Component: name,
					Message:   fmt.Sprintf("input %q is not written by an earlier stage", in),
				})
			}
		}
		for _, out := range p.outputs() {
			if out == "" {
				continue
			}
			if prev, ok := written[out]; ok {
				errs = append(errs, &sequencer.ConfigError{
					Component: name,
					Message:   fmt.Sprintf("output %q is already written by %s", out, prev),
				})
				continue
			}
			written[out] = name
		}
	}
	return errors.Join(errs...)
}

// String summarizes the job for logs.
func (j *Job) String() string {
	types := make([]string, len(j.Stages))
	for i, st := range j.Stages {
		types[i] = st.Type
	}
	return fmt.Sprintf("events=%d skip=%d seed=%d workers=%d stages=[%s]",
		j.Events, j.Skip, j.BaseSeed(), j.Workers, strings.Join(types, " "))
}
