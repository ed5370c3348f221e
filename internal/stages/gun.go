package stages

import (
	"context"
	"log/slog"
	"math"

	"github.com/roach88/evseq/internal/barcode"
	"github.com/roach88/evseq/internal/event"
	"github.com/roach88/evseq/internal/random"
)

// Range is a closed-open interval [Min, Max).
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// ParticleGunConfig configures a ParticleGun.
type ParticleGunConfig struct {
	// Name overrides the stage name. Defaults to "ParticleGun".
	Name string

	// Output is the event store key for the generated []Vertex.
	Output string

	// Count is the number of particles per event.
	Count int

	// Impact parameter (mm), longitudinal position (mm), azimuth,
	// pseudorapidity and transverse momentum (GeV) ranges.
	D0, Z0, Phi, Eta, PT Range

	Mass   float64
	Charge float64
	PDG    int32

	// RandomCharge flips charge and PDG id with probability 1/2.
	RandomCharge bool

	Random *random.Service
	Codec  *barcode.Codec
	Logger *slog.Logger
}

// DefaultParticleGunConfig returns the gun defaults: d0 in [0, 1) mm,
// z0 in [-100, 100) mm, full azimuth, |eta| < 3, pT in [0.1, 10) GeV.
func DefaultParticleGunConfig() ParticleGunConfig {
	return ParticleGunConfig{
		D0:  Range{0, 1},
		Z0:  Range{-100, 100},
		Phi: Range{-math.Pi, math.Pi},
		Eta: Range{-3, 3},
		PT:  Range{0.1, 10},
	}
}

// ParticleGun is a producer that generates a single primary vertex per
// event with Count particles drawn uniformly from the configured ranges.
//
// Particle i carries barcode (vertex=1, primary=i+1).
type ParticleGun struct {
	cfg    ParticleGunConfig
	logger *slog.Logger
}

// NewParticleGun validates cfg and creates the gun.
func NewParticleGun(cfg ParticleGunConfig) (*ParticleGun, error) {
	cfg.Name = nameOr(cfg.Name, "ParticleGun")
	switch {
	case cfg.Output == "":
		return nil, configError(cfg.Name, "missing output collection")
	case cfg.Random == nil:
		return nil, configError(cfg.Name, "missing random numbers service")
	case cfg.Codec == nil:
		return nil, configError(cfg.Name, "missing barcode service")
	case cfg.Count < 0:
		return nil, configError(cfg.Name, "negative particle count %d", cfg.Count)
	}
	ranges := []struct {
		name string
		r    Range
	}{{"d0", cfg.D0}, {"z0", cfg.Z0}, {"phi", cfg.Phi}, {"eta", cfg.Eta}, {"pt", cfg.PT}}
	for _, nr := range ranges {
		if nr.r.Max < nr.r.Min {
			return nil, configError(cfg.Name, "%s range [%g, %g) is inverted", nr.name, nr.r.Min, nr.r.Max)
		}
	}

	logger := orDiscard(cfg.Logger).With("stage", cfg.Name)
	logger.Debug("particle gun settings",
		"d0", cfg.D0, "z0", cfg.Z0, "phi", cfg.Phi, "eta", cfg.Eta, "pt", cfg.PT,
		"count", cfg.Count,
	)
	return &ParticleGun{cfg: cfg, logger: logger}, nil
}

// Name implements sequencer.Named.
func (g *ParticleGun) Name() string { return g.cfg.Name }

// Read implements sequencer.Producer.
func (g *ParticleGun) Read(_ context.Context, ec event.Context) (event.ProcessCode, error) {
	cfg := g.cfg
	rng := cfg.Random.SpawnGenerator(ec)

	d0Dist := random.Uniform(rng, cfg.D0.Min, cfg.D0.Max)
	z0Dist := random.Uniform(rng, cfg.Z0.Min, cfg.Z0.Max)
	phiDist := random.Uniform(rng, cfg.Phi.Min, cfg.Phi.Max)
	etaDist := random.Uniform(rng, cfg.Eta.Min, cfg.Eta.Max)
	ptDist := random.Uniform(rng, cfg.PT.Min, cfg.PT.Max)
	chargeDist := random.Uniform(rng, 0, 1)

	particles := make([]Particle, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		d0 := d0Dist.Rand()
		z0 := z0Dist.Rand()
		phi := phiDist.Rand()
		eta := etaDist.Rand()
		pt := ptDist.Rand()

		flip := 1.0
		if cfg.RandomCharge && chargeDist.Rand() >= 0.5 {
			flip = -1
		}

		bc, err := cfg.Codec.Encode(1, uint64(i)+1, 0, 0, 0)
		if err != nil {
			return event.Abort, err
		}

		particles = append(particles, Particle{
			Barcode:  bc,
			PDG:      int32(flip) * cfg.PDG,
			Position: Vector3{X: d0 * math.Sin(phi), Y: -d0 * math.Cos(phi), Z: z0},
			Momentum: Vector3{X: pt * math.Cos(phi), Y: pt * math.Sin(phi), Z: pt * math.Sinh(eta)},
			Mass:     cfg.Mass,
			Charge:   flip * cfg.Charge,
		})
	}

	g.logger.Debug("generated 1 vertex", "event", ec.EventIndex, "particles", len(particles))
	return writeCollection(ec, cfg.Output, []Vertex{{Outgoing: particles}})
}
