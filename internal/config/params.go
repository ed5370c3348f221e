package config

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/roach88/evseq/internal/stages"
)

// strictJSON rejects parameters the target struct does not declare.
var strictJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// stageParams is the typed parameter block of one stage type.
type stageParams interface {
	inputs() []string
	outputs() []string
}

type particleGunParams struct {
	Output       string        `json:"output"`
	Count        int           `json:"count"`
	D0           *stages.Range `json:"d0"`
	Z0           *stages.Range `json:"z0"`
	Phi          *stages.Range `json:"phi"`
	Eta          *stages.Range `json:"eta"`
	PT           *stages.Range `json:"pt"`
	Mass         float64       `json:"mass"`
	Charge       float64       `json:"charge"`
	PDG          int32         `json:"pdg"`
	RandomCharge bool          `json:"random_charge"`
}

func (p *particleGunParams) inputs() []string  { return nil }
func (p *particleGunParams) outputs() []string { return []string{p.Output} }

type csvReaderParams struct {
	InputDir string `json:"input_dir"`
	Stem     string `json:"stem"`
	Output   string `json:"output"`
}

func (p *csvReaderParams) inputs() []string  { return nil }
func (p *csvReaderParams) outputs() []string { return []string{p.Output} }

type spawnerParams struct {
	Input            string  `json:"input"`
	Output           string  `json:"output"`
	Multiplicity     int     `json:"multiplicity"`
	Mean             float64 `json:"mean"`
	Process          uint64  `json:"process"`
	PDG              int32   `json:"pdg"`
	Charge           float64 `json:"charge"`
	Mass             float64 `json:"mass"`
	MomentumFraction float64 `json:"momentum_fraction"`
}

func (p *spawnerParams) inputs() []string  { return []string{p.Input} }
func (p *spawnerParams) outputs() []string { return []string{p.Output} }

type drawsParams struct {
	Output      string  `json:"output"`
	Draws       int     `json:"draws"`
	GaussMean   float64 `json:"gauss_mean"`
	GaussSigma  float64 `json:"gauss_sigma"`
	UniformMin  float64 `json:"uniform_min"`
	UniformMax  float64 `json:"uniform_max"`
	GammaShape  float64 `json:"gamma_shape"`
	GammaScale  float64 `json:"gamma_scale"`
	PoissonMean float64 `json:"poisson_mean"`
}

func (p *drawsParams) inputs() []string  { return nil }
func (p *drawsParams) outputs() []string { return []string{p.Output} }

type csvWriterParams struct {
	Input     string `json:"input"`
	OutputDir string `json:"output_dir"`
	Stem      string `json:"stem"`
	Precision int    `json:"precision"`
}

func (p *csvWriterParams) inputs() []string  { return []string{p.Input} }
func (p *csvWriterParams) outputs() []string { return nil }

type jsonWriterParams struct {
	Input     string `json:"input"`
	OutputDir string `json:"output_dir"`
	Stem      string `json:"stem"`
	Indent    bool   `json:"indent"`
}

func (p *jsonWriterParams) inputs() []string  { return []string{p.Input} }
func (p *jsonWriterParams) outputs() []string { return nil }

// collectionsParams serves the digest and run_log stages.
type collectionsParams struct {
	Inputs []string `json:"inputs"`
}

func (p *collectionsParams) inputs() []string  { return p.Inputs }
func (p *collectionsParams) outputs() []string { return nil }

// decodeParams converts the generic params map of st into the typed
// parameter struct of its type.
func decodeParams(st Stage) (stageParams, error) {
	var p stageParams
	switch st.Type {
	case TypeParticleGun:
		p = &particleGunParams{}
	case TypeCSVReader:
		p = &csvReaderParams{}
	case TypeSecondarySpawner:
		p = &spawnerParams{}
	case TypeRandomDraws:
		p = &drawsParams{}
	case TypeCSVWriter:
		p = &csvWriterParams{}
	case TypeJSONWriter:
		p = &jsonWriterParams{}
	case TypeDigest, TypeRunLog:
		p = &collectionsParams{}
	default:
		return nil, fmt.Errorf("unknown stage type %q", st.Type)
	}
	if len(st.Params) == 0 {
		return p, nil
	}

	data, err := strictJSON.Marshal(st.Params)
	if err != nil {
		return nil, fmt.Errorf("%s params: %w", st.Type, err)
	}
	if err := strictJSON.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%s params: %w", st.Type, err)
	}
	return p, nil
}
