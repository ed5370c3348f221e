package stages

import (
	"context"
	"log/slog"

	"github.com/roach88/evseq/internal/event"
	"github.com/roach88/evseq/internal/random"
)

// RandomDrawsConfig configures a RandomDraws transformer.
type RandomDrawsConfig struct {
	// Name overrides the stage name. Defaults to "RandomDraws".
	Name string

	// Output is the event store key for the DrawSummary.
	Output string

	// Draws is the number of draws per distribution and event.
	Draws int

	GaussMean, GaussSigma  float64
	UniformMin, UniformMax float64
	// GammaShape and GammaScale parameterize the gamma distribution
	// (scale, not rate).
	GammaShape, GammaScale float64
	PoissonMean            float64

	Random *random.Service
	Logger *slog.Logger
}

// DrawSummary holds the sample means of one event's draws.
type DrawSummary struct {
	Draws   int
	Gauss   float64
	Uniform float64
	Gamma   float64
	Poisson float64
}

// RandomDraws is a transformer that exercises the per-invocation generator:
// each draw takes a gaussian, uniform, gamma and poisson value in that
// order from one spawned generator.
type RandomDraws struct {
	cfg    RandomDrawsConfig
	logger *slog.Logger
}

// NewRandomDraws validates cfg and creates the transformer.
func NewRandomDraws(cfg RandomDrawsConfig) (*RandomDraws, error) {
	cfg.Name = nameOr(cfg.Name, "RandomDraws")
	switch {
	case cfg.Output == "":
		return nil, configError(cfg.Name, "missing output key")
	case cfg.Random == nil:
		return nil, configError(cfg.Name, "missing random numbers service")
	case cfg.Draws < 0:
		return nil, configError(cfg.Name, "negative draw count %d", cfg.Draws)
	case cfg.GaussSigma < 0, cfg.GammaShape < 0, cfg.GammaScale < 0, cfg.PoissonMean < 0:
		return nil, configError(cfg.Name, "negative distribution parameter")
	case cfg.UniformMax < cfg.UniformMin:
		return nil, configError(cfg.Name, "uniform range [%g, %g) is inverted", cfg.UniformMin, cfg.UniformMax)
	}
	if cfg.GaussSigma == 0 {
		cfg.GaussSigma = 1
	}
	if cfg.UniformMin == 0 && cfg.UniformMax == 0 {
		cfg.UniformMin, cfg.UniformMax = 0, 1
	}
	if cfg.GammaShape == 0 {
		cfg.GammaShape = 1
	}
	if cfg.GammaScale == 0 {
		cfg.GammaScale = 1
	}
	if cfg.PoissonMean == 0 {
		cfg.PoissonMean = 1
	}
	return &RandomDraws{cfg: cfg, logger: orDiscard(cfg.Logger).With("stage", cfg.Name)}, nil
}

// Name implements sequencer.Named.
func (r *RandomDraws) Name() string { return r.cfg.Name }

// Execute implements sequencer.Transformer.
func (r *RandomDraws) Execute(_ context.Context, ec event.Context) (event.ProcessCode, error) {
	cfg := r.cfg
	rng := cfg.Random.SpawnGenerator(ec)

	gauss := random.Gauss(rng, cfg.GaussMean, cfg.GaussSigma)
	uniform := random.Uniform(rng, cfg.UniformMin, cfg.UniformMax)
	gamma := random.Gamma(rng, cfg.GammaShape, 1/cfg.GammaScale)
	poisson := random.Poisson(rng, cfg.PoissonMean)

	sum := DrawSummary{Draws: cfg.Draws}
	for i := 0; i < cfg.Draws; i++ {
		g := gauss.Rand()
		u := uniform.Rand()
		gm := gamma.Rand()
		p := poisson.Rand()
		r.logger.Debug("draw", "event", ec.EventIndex, "gauss", g, "uniform", u, "gamma", gm, "poisson", p)
		sum.Gauss += g
		sum.Uniform += u
		sum.Gamma += gm
		sum.Poisson += p
	}
	if cfg.Draws > 0 {
		n := float64(cfg.Draws)
		sum.Gauss /= n
		sum.Uniform /= n
		sum.Gamma /= n
		sum.Poisson /= n
	}

	if err := ec.Store.Add(cfg.Output, sum); err != nil {
		return event.Abort, err
	}
	return event.Success, nil
}
