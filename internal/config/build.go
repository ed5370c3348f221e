package config

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/evseq/internal/barcode"
	"github.com/roach88/evseq/internal/random"
	"github.com/roach88/evseq/internal/sequencer"
	"github.com/roach88/evseq/internal/stages"
	"github.com/roach88/evseq/internal/store"
)

// Options carries the collaborators Build cannot create from the job file.
type Options struct {
	Logger           *slog.Logger
	EventStoreLogger *slog.Logger
	Observer         sequencer.Observer
	RunIDs           sequencer.RunIDGenerator
	Handles          map[string]any

	// RunLog is required when the job has a run_log stage.
	RunLog *store.Store
}

// Pipeline is a built job: the sequencer with every service and stage
// registered, plus the services callers read results from.
type Pipeline struct {
	Job       *Job
	Sequencer *sequencer.Sequencer
	Random    *random.Service
	Codec     *barcode.Codec

	// Digests is nil unless the job has a digest stage.
	Digests *stages.DigestService
}

// Build validates j and wires it into a sequencer.
func Build(j *Job, opts Options) (*Pipeline, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	abortPolicy, _ := sequencer.ParseAbortPolicy(j.AbortPolicy)
	barcodePolicy, _ := barcode.ParsePolicy(j.BarcodePolicy)

	seq, err := sequencer.New(sequencer.Config{
		Events:           j.Events,
		Skip:             j.Skip,
		TotalEvents:      j.TotalEvents,
		Workers:          j.Workers,
		AbortPolicy:      abortPolicy,
		Handles:          opts.Handles,
		Logger:           logger,
		EventStoreLogger: opts.EventStoreLogger,
		Observer:         opts.Observer,
		RunIDs:           opts.RunIDs,
	})
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Job:       j,
		Sequencer: seq,
		Random:    random.NewService(random.Config{Seed: j.BaseSeed(), Logger: logger}),
		Codec:     barcode.NewCodec(barcodePolicy),
	}
	for _, st := range j.Stages {
		if st.Type == TypeDigest {
			p.Digests = stages.NewDigestService()
			break
		}
	}

	services := []sequencer.Service{p.Random, p.Codec}
	if p.Digests != nil {
		services = append(services, p.Digests)
	}
	if err := seq.AddServices(services...); err != nil {
		return nil, err
	}

	b := builder{job: j, opts: opts, logger: logger, pipeline: p}
	for i, st := range j.Stages {
		if err := b.add(st); err != nil {
			return nil, fmt.Errorf("stages[%d] (%s): %w", i, st.Type, err)
		}
	}
	return p, nil
}

type builder struct {
	job      *Job
	opts     Options
	logger   *slog.Logger
	pipeline *Pipeline
}

func (b *builder) add(st Stage) error {
	params, err := decodeParams(st)
	if err != nil {
		return err
	}
	seq := b.pipeline.Sequencer

	switch p := params.(type) {
	case *particleGunParams:
		gun, err := b.particleGun(st, p)
		if err != nil {
			return err
		}
		return seq.AddProducers(gun)

	case *csvReaderParams:
		r, err := stages.NewCSVParticleReader(stages.CSVParticleReaderConfig{
			Name:      st.Name,
			InputDir:  p.InputDir,
			InputStem: p.Stem,
			Output:    p.Output,
			Logger:    b.logger,
		})
		if err != nil {
			return err
		}
		return seq.AddProducers(r)

	case *spawnerParams:
		s, err := stages.NewSecondarySpawner(stages.SecondarySpawnerConfig{
			Name:             st.Name,
			Input:            p.Input,
			Output:           p.Output,
			Multiplicity:     p.Multiplicity,
			Mean:             p.Mean,
			Process:          p.Process,
			PDG:              p.PDG,
			Charge:           p.Charge,
			Mass:             p.Mass,
			MomentumFraction: p.MomentumFraction,
			Random:           b.pipeline.Random,
			Codec:            b.pipeline.Codec,
			Logger:           b.logger,
		})
		if err != nil {
			return err
		}
		return b.addTransformer(st, s)

	case *drawsParams:
		d, err := stages.NewRandomDraws(stages.RandomDrawsConfig{
			Name:        st.Name,
			Output:      p.Output,
			Draws:       p.Draws,
			GaussMean:   p.GaussMean,
			GaussSigma:  p.GaussSigma,
			UniformMin:  p.UniformMin,
			UniformMax:  p.UniformMax,
			GammaShape:  p.GammaShape,
			GammaScale:  p.GammaScale,
			PoissonMean: p.PoissonMean,
			Random:      b.pipeline.Random,
			Logger:      b.logger,
		})
		if err != nil {
			return err
		}
		return b.addTransformer(st, d)

	case *csvWriterParams:
		w, err := stages.NewCSVParticleWriter(stages.CSVParticleWriterConfig{
			Name:       st.Name,
			Input:      p.Input,
			OutputDir:  b.outputDir(p.OutputDir),
			OutputStem: p.Stem,
			Precision:  p.Precision,
			Logger:     b.logger,
		})
		if err != nil {
			return err
		}
		return seq.AddConsumers(w)

	case *jsonWriterParams:
		w, err := stages.NewJSONParticleWriter(stages.JSONParticleWriterConfig{
			Name:       st.Name,
			Input:      p.Input,
			OutputDir:  b.outputDir(p.OutputDir),
			OutputStem: p.Stem,
			Indent:     p.Indent,
			Logger:     b.logger,
		})
		if err != nil {
			return err
		}
		return seq.AddConsumers(w)

	case *collectionsParams:
		if st.Type == TypeDigest {
			d, err := stages.NewDigest(stages.DigestConfig{
				Name:    st.Name,
				Inputs:  p.Inputs,
				Service: b.pipeline.Digests,
				Logger:  b.logger,
			})
			if err != nil {
				return err
			}
			return seq.AddConsumers(d)
		}
		w, err := stages.NewRunLogWriter(stages.RunLogWriterConfig{
			Name:   st.Name,
			Inputs: p.Inputs,
			Store:  b.opts.RunLog,
			Logger: b.logger,
		})
		if err != nil {
			return err
		}
		return seq.AddConsumers(w)

	default:
		return fmt.Errorf("no builder for stage type %q", st.Type)
	}
}

func (b *builder) particleGun(st Stage, p *particleGunParams) (*stages.ParticleGun, error) {
	cfg := stages.DefaultParticleGunConfig()
	cfg.Name = st.Name
	cfg.Output = p.Output
	cfg.Count = p.Count
	for _, r := range []struct {
		dst *stages.Range
		src *stages.Range
	}{{&cfg.D0, p.D0}, {&cfg.Z0, p.Z0}, {&cfg.Phi, p.Phi}, {&cfg.Eta, p.Eta}, {&cfg.PT, p.PT}} {
		if r.src != nil {
			*r.dst = *r.src
		}
	}
	cfg.Mass = p.Mass
	cfg.Charge = p.Charge
	cfg.PDG = p.PDG
	cfg.RandomCharge = p.RandomCharge
	cfg.Random = b.pipeline.Random
	cfg.Codec = b.pipeline.Codec
	cfg.Logger = b.logger
	return stages.NewParticleGun(cfg)
}

func (b *builder) addTransformer(st Stage, t sequencer.Transformer) error {
	if st.Prepend {
		return b.pipeline.Sequencer.PrependTransformers(t)
	}
	return b.pipeline.Sequencer.AppendTransformers(t)
}

func (b *builder) outputDir(dir string) string {
	if dir != "" {
		return dir
	}
	if b.job.OutputDir != "" {
		return b.job.OutputDir
	}
	return "."
}
