package stages

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/evseq/internal/barcode"
	"github.com/roach88/evseq/internal/event"
	"github.com/roach88/evseq/internal/random"
	"github.com/roach88/evseq/internal/sequencer"
)

func readGun(t *testing.T, gun *ParticleGun, n uint64) []Vertex {
	t.Helper()
	ec := newEventContext(n)
	code, err := gun.Read(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, event.Success, code)
	vertices, err := event.Get[[]Vertex](ec.Store, "particles")
	require.NoError(t, err)
	return vertices
}

func TestParticleGun_Kinematics(t *testing.T) {
	gun := newTestGun(t, 50, nil)
	vertices := readGun(t, gun, 3)

	require.Len(t, vertices, 1)
	particles := vertices[0].Outgoing
	require.Len(t, particles, 50)

	for i, p := range particles {
		assert.Equal(t, uint64(1), p.Barcode.Vertex())
		assert.Equal(t, uint64(i+1), p.Barcode.Primary())
		assert.Equal(t, uint64(0), p.Barcode.Generation())
		assert.Equal(t, int32(13), p.PDG)
		assert.Equal(t, -1.0, p.Charge)

		pt := math.Hypot(p.Momentum.X, p.Momentum.Y)
		assert.GreaterOrEqual(t, pt, 0.1-1e-9)
		assert.Less(t, pt, 10.0+1e-9)

		eta := math.Asinh(p.Momentum.Z / pt)
		assert.GreaterOrEqual(t, eta, -3.0-1e-9)
		assert.Less(t, eta, 3.0+1e-9)

		d0 := math.Hypot(p.Position.X, p.Position.Y)
		assert.Less(t, d0, 1.0+1e-9)
		assert.GreaterOrEqual(t, p.Position.Z, -100.0)
		assert.Less(t, p.Position.Z, 100.0)

		// The impact parameter is perpendicular to the transverse momentum.
		assert.InDelta(t, 0, p.Position.X*p.Momentum.X+p.Position.Y*p.Momentum.Y, 1e-9)
	}
}

func TestParticleGun_Deterministic(t *testing.T) {
	a := readGun(t, newTestGun(t, 10, nil), 7)
	b := readGun(t, newTestGun(t, 10, nil), 7)
	assert.Equal(t, a, b)

	other := readGun(t, newTestGun(t, 10, nil), 8)
	assert.NotEqual(t, a[0].Outgoing[0].Momentum, other[0].Outgoing[0].Momentum)
}

func TestParticleGun_SeedChangesOutput(t *testing.T) {
	a := readGun(t, newTestGun(t, 5, nil), 0)
	b := readGun(t, newTestGun(t, 5, func(cfg *ParticleGunConfig) {
		cfg.Random = random.NewService(random.Config{Seed: 43})
	}), 0)
	assert.NotEqual(t, a[0].Outgoing[0].Momentum, b[0].Outgoing[0].Momentum)
}

func TestParticleGun_RandomCharge(t *testing.T) {
	gun := newTestGun(t, 200, func(cfg *ParticleGunConfig) {
		cfg.RandomCharge = true
	})
	particles := readGun(t, gun, 1)[0].Outgoing

	var pos, neg int
	for _, p := range particles {
		switch p.Charge {
		case 1:
			pos++
			assert.Equal(t, int32(-13), p.PDG)
		case -1:
			neg++
			assert.Equal(t, int32(13), p.PDG)
		default:
			t.Fatalf("unexpected charge %v", p.Charge)
		}
	}
	assert.Positive(t, pos)
	assert.Positive(t, neg)
}

func TestParticleGun_ZeroCount(t *testing.T) {
	vertices := readGun(t, newTestGun(t, 0, nil), 0)
	require.Len(t, vertices, 1)
	assert.Empty(t, vertices[0].Outgoing)
}

func TestParticleGun_PrimaryOverflow(t *testing.T) {
	gun := newTestGun(t, 0x10000, nil)
	ec := newEventContext(0)
	code, err := gun.Read(context.Background(), ec)
	assert.Equal(t, event.Abort, code)
	assert.True(t, barcode.IsOverflow(err))
	assert.False(t, stored(ec, "particles"))
}

func TestNewParticleGun_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ParticleGunConfig)
		want   string
	}{
		{"no output", func(c *ParticleGunConfig) { c.Output = "" }, "missing output collection"},
		{"no random", func(c *ParticleGunConfig) { c.Random = nil }, "missing random numbers service"},
		{"no codec", func(c *ParticleGunConfig) { c.Codec = nil }, "missing barcode service"},
		{"negative count", func(c *ParticleGunConfig) { c.Count = -1 }, "negative particle count"},
		{"inverted eta", func(c *ParticleGunConfig) { c.Eta = Range{2, 1} }, "eta range"},
		{"first inverted range wins", func(c *ParticleGunConfig) {
			c.PT = Range{5, 1}
			c.D0 = Range{1, 0}
		}, "d0 range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultParticleGunConfig()
			cfg.Output = "particles"
			cfg.Random = random.NewService(random.Config{})
			cfg.Codec = barcode.NewCodec(barcode.Reject)
			tt.mutate(&cfg)

			_, err := NewParticleGun(cfg)
			require.Error(t, err)
			assert.True(t, sequencer.IsConfigError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// runDigestPipeline runs gun, spawner and digest through a sequencer and
// returns the run fingerprint.
func runDigestPipeline(t *testing.T, workers int) string {
	t.Helper()
	rng := random.NewService(random.Config{Seed: 7})
	codec := barcode.NewCodec(barcode.Reject)
	digests := NewDigestService()

	gunCfg := DefaultParticleGunConfig()
	gunCfg.Output = "particles"
	gunCfg.Count = 4
	gunCfg.RandomCharge = true
	gunCfg.Random = rng
	gunCfg.Codec = codec
	gun, err := NewParticleGun(gunCfg)
	require.NoError(t, err)

	spawner, err := NewSecondarySpawner(SecondarySpawnerConfig{
		Input:   "particles",
		Output:  "secondaries",
		Mean:    2,
		Process: 5,
		Random:  rng,
		Codec:   codec,
	})
	require.NoError(t, err)

	digest, err := NewDigest(DigestConfig{Inputs: []string{"particles", "secondaries"}, Service: digests})
	require.NoError(t, err)

	seq, err := sequencer.New(sequencer.Config{
		Events:  40,
		Workers: workers,
		RunIDs:  sequencer.NewFixedGenerator("run"),
	})
	require.NoError(t, err)
	require.NoError(t, seq.AddServices(rng, codec, digests))
	require.NoError(t, seq.AddProducers(gun))
	require.NoError(t, seq.AppendTransformers(spawner))
	require.NoError(t, seq.AddConsumers(digest))

	report, err := seq.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 40, report.Processed())
	require.Equal(t, 40, digests.Len())
	return digests.Fingerprint()
}

func TestPipeline_FingerprintIndependentOfWorkers(t *testing.T) {
	serial := runDigestPipeline(t, 1)
	assert.Len(t, serial, 64)
	assert.Equal(t, serial, runDigestPipeline(t, 4))
	assert.Equal(t, serial, runDigestPipeline(t, 16))
}
