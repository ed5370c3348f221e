package stages

import (
	"context"
	"log/slog"

	"github.com/roach88/evseq/internal/barcode"
	"github.com/roach88/evseq/internal/event"
	"github.com/roach88/evseq/internal/random"
)

// SecondarySpawnerConfig configures a SecondarySpawner.
type SecondarySpawnerConfig struct {
	// Name overrides the stage name. Defaults to "SecondarySpawner".
	Name string

	// Input is the key of the parent []Vertex; Output receives one vertex
	// per parent that produced secondaries.
	Input  string
	Output string

	// Multiplicity is the fixed number of secondaries per parent. If Mean
	// is positive, the count is Poisson(Mean) instead.
	Multiplicity int
	Mean         float64

	// Process is written into the secondaries' barcode process field.
	Process uint64

	PDG    int32
	Charge float64
	Mass   float64

	// MomentumFraction bounds the share of the parent momentum a
	// secondary carries; each draws uniformly from [0, MomentumFraction).
	// Zero means 0.5.
	MomentumFraction float64

	Random *random.Service
	Codec  *barcode.Codec
	Logger *slog.Logger
}

// SecondarySpawner is a transformer that attaches secondaries to every
// particle of a collection. Secondary j of a parent gets the parent's
// vertex and primary fields, generation+1, secondary=j (from 1) and the
// configured process.
//
// With the Reject barcode policy, a parent with more secondaries than the
// secondary field can hold aborts the event with a barcode overflow.
type SecondarySpawner struct {
	cfg    SecondarySpawnerConfig
	logger *slog.Logger
}

// NewSecondarySpawner validates cfg and creates the spawner.
func NewSecondarySpawner(cfg SecondarySpawnerConfig) (*SecondarySpawner, error) {
	cfg.Name = nameOr(cfg.Name, "SecondarySpawner")
	switch {
	case cfg.Input == "":
		return nil, configError(cfg.Name, "missing input collection")
	case cfg.Output == "":
		return nil, configError(cfg.Name, "missing output collection")
	case cfg.Input == cfg.Output:
		return nil, configError(cfg.Name, "input and output collection are both %q", cfg.Input)
	case cfg.Random == nil:
		return nil, configError(cfg.Name, "missing random numbers service")
	case cfg.Codec == nil:
		return nil, configError(cfg.Name, "missing barcode service")
	case cfg.Multiplicity < 0 || cfg.Mean < 0:
		return nil, configError(cfg.Name, "negative multiplicity")
	}
	if cfg.MomentumFraction == 0 {
		cfg.MomentumFraction = 0.5
	}
	return &SecondarySpawner{cfg: cfg, logger: orDiscard(cfg.Logger).With("stage", cfg.Name)}, nil
}

// Name implements sequencer.Named.
func (s *SecondarySpawner) Name() string { return s.cfg.Name }

// Execute implements sequencer.Transformer.
func (s *SecondarySpawner) Execute(_ context.Context, ec event.Context) (event.ProcessCode, error) {
	cfg := s.cfg
	parents, err := readVertices(ec, cfg.Input)
	if err != nil {
		return event.Abort, err
	}

	rng := cfg.Random.SpawnGenerator(ec)
	share := random.Uniform(rng, 0, cfg.MomentumFraction)
	var count func() int
	if cfg.Mean > 0 {
		dist := random.Poisson(rng, cfg.Mean)
		count = func() int { return int(dist.Rand()) }
	} else {
		count = func() int { return cfg.Multiplicity }
	}

	out := []Vertex{}
	total := 0
	for _, parent := range Flatten(parents) {
		k := count()
		if k == 0 {
			continue
		}
		v := Vertex{Position: parent.Position, Outgoing: make([]Particle, 0, k)}
		for j := 1; j <= k; j++ {
			bc, err := cfg.Codec.Derive(parent.Barcode, uint64(j), cfg.Process)
			if err != nil {
				return event.Abort, err
			}
			v.Outgoing = append(v.Outgoing, Particle{
				Barcode:  bc,
				PDG:      cfg.PDG,
				Position: parent.Position,
				Time:     parent.Time,
				Momentum: parent.Momentum.Scale(share.Rand()),
				Mass:     cfg.Mass,
				Charge:   cfg.Charge,
			})
		}
		total += k
		out = append(out, v)
	}

	s.logger.Debug("spawned secondaries", "event", ec.EventIndex, "vertices", len(out), "particles", total)
	return writeCollection(ec, cfg.Output, out)
}
