// Package random derives reproducible per-(event, stage) random generators.
//
// Every stage invocation that needs randomness calls SpawnGenerator exactly
// once with its event.Context and draws from the returned generator. The
// generator's seed depends only on the base seed, the run's total event
// count, and the (event, stage) pair:
//
//	seed(event, stage) = baseSeed + stage*totalEvents + event
//
// so the output stream is identical no matter which worker runs the event,
// in what order events are scheduled, or how many events run concurrently.
// Generators are never shared between stages or events.
//
// Distributions (uniform, gaussian, gamma, poisson) come from
// gonum.org/v1/gonum/stat/distuv and use the spawned generator as their
// only source of randomness.
package random

import (
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/roach88/evseq/internal/event"
)

// DefaultSeed is the base seed used when none is configured.
const DefaultSeed uint64 = 1234567890

// pcgStream is the fixed second PCG state word. Only the first word varies
// with the derived seed.
const pcgStream uint64 = 0x9e3779b97f4a7c15

// Generator is the per-invocation random source handed to stages.
type Generator = rand.Rand

// Config configures the seed deriver.
type Config struct {
	// Seed is the base seed of the run.
	Seed uint64

	// Logger receives debug output. Nil discards.
	Logger *slog.Logger
}

// Service spawns generators for stages. It holds no mutable state and is
// safe to share across all workers.
type Service struct {
	seed   uint64
	logger *slog.Logger
}

// NewService creates a seed deriver with the given base seed.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{seed: cfg.Seed, logger: logger.With("service", "RandomNumbersSvc")}
}

// Name implements the sequencer service naming contract.
func (s *Service) Name() string { return "RandomNumbersSvc" }

// BaseSeed returns the configured base seed.
func (s *Service) BaseSeed() uint64 { return s.seed }

// Seed returns the derived seed for an (event, stage) pair. Arithmetic is
// modulo 2^64; seeds are unique as long as stage*totalEvents+event stays
// below 2^64 and event < totalEvents.
func Seed(baseSeed, eventIndex, stageIndex, totalEvents uint64) uint64 {
	return baseSeed + stageIndex*totalEvents + eventIndex
}

// SeedFor returns the derived seed for a stage invocation.
func (s *Service) SeedFor(ctx event.Context) uint64 {
	return Seed(s.seed, ctx.EventIndex, ctx.StageIndex, ctx.TotalEvents)
}

// SpawnGenerator returns a freshly seeded generator for one stage
// invocation. Call it once per invocation and reuse the result for all
// draws in that invocation.
func (s *Service) SpawnGenerator(ctx event.Context) *Generator {
	seed := s.SeedFor(ctx)
	s.logger.Debug("spawned generator",
		"event", ctx.EventIndex,
		"stage_index", ctx.StageIndex,
		"seed", seed,
	)
	return NewGenerator(seed)
}

// NewGenerator creates a generator from an explicit seed.
func NewGenerator(seed uint64) *Generator {
	return rand.New(NewSource(seed))
}

// NewSource creates the PCG source behind a generator. Distributions that
// take a rand.Source (gonum distuv) are fed this directly.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, pcgStream)
}
