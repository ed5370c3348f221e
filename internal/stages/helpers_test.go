package stages

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/evseq/internal/barcode"
	"github.com/roach88/evseq/internal/event"
	"github.com/roach88/evseq/internal/random"
)

const testTotalEvents = 100

// newEventContext builds the context of the first stage of event n with a
// fresh event store and job store.
func newEventContext(n uint64) event.Context {
	return event.NewContext(n, 0, testTotalEvents,
		event.NewStore(fmt.Sprintf("EventStore#%d", n), nil),
		event.NewStore("JobStore", nil),
		event.Handles{},
	)
}

// nextStage returns ec advanced to the following stage of the same event.
func nextStage(ec event.Context) event.Context {
	ec.StageIndex++
	return ec
}

func newTestGun(t *testing.T, count int, mutate func(*ParticleGunConfig)) *ParticleGun {
	t.Helper()
	cfg := DefaultParticleGunConfig()
	cfg.Output = "particles"
	cfg.Count = count
	cfg.PDG = 13
	cfg.Charge = -1
	cfg.Mass = 0.105658
	cfg.Random = random.NewService(random.Config{Seed: 42})
	cfg.Codec = barcode.NewCodec(barcode.Reject)
	if mutate != nil {
		mutate(&cfg)
	}
	gun, err := NewParticleGun(cfg)
	require.NoError(t, err)
	return gun
}

// testParticles is a fixed two-particle collection used by the writers.
func testParticles() []Vertex {
	return []Vertex{
		{
			Position: Vector3{X: 0.5, Y: -0.25, Z: 10},
			Outgoing: []Particle{{
				Barcode:  barcode.MustEncode(1, 1, 0, 0, 0),
				PDG:      13,
				Position: Vector3{X: 0.5, Y: -0.25, Z: 10},
				Momentum: Vector3{X: 1.5, Y: 2, Z: 3.25},
				Mass:     0.105658,
				Charge:   -1,
			}},
		},
		{
			Position: Vector3{X: 0.123456789, Y: 1e-7, Z: 1234567},
			Outgoing: []Particle{{
				Barcode:  barcode.MustEncode(1, 2, 1, 3, 7),
				PDG:      -211,
				Position: Vector3{X: 0.123456789, Y: 1e-7, Z: 1234567},
				Time:     2.5,
				Mass:     0.13957,
				Charge:   1,
			}},
		},
	}
}

// stored reports whether key was written to the event store of ec.
func stored(ec event.Context, key string) bool {
	return slices.Contains(ec.Store.Keys(), key)
}
