package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. EVSEQ_WORKERS.
const EnvPrefix = "EVSEQ"

// Env holds the environment overrides. Unset variables leave the job
// unchanged.
type Env struct {
	Events        *uint64 `envconfig:"EVENTS"`
	Skip          *uint64 `envconfig:"SKIP"`
	Seed          *uint64 `envconfig:"SEED"`
	Workers       *int    `envconfig:"WORKERS"`
	AbortPolicy   string  `envconfig:"ABORT_POLICY"`
	BarcodePolicy string  `envconfig:"BARCODE_POLICY"`
	OutputDir     string  `envconfig:"OUTPUT_DIR"`
	DB            string  `envconfig:"DB"`
	LogLevel      string  `envconfig:"LOG_LEVEL"`
}

// ReadEnv reads the EVSEQ_ variables.
func ReadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return env, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

// Apply overwrites the job fields whose variables were set.
func (e Env) Apply(j *Job) {
	if e.Events != nil {
		j.Events = *e.Events
	}
	if e.Skip != nil {
		j.Skip = *e.Skip
	}
	if e.Seed != nil {
		seed := *e.Seed
		j.Seed = &seed
	}
	if e.Workers != nil {
		j.Workers = *e.Workers
	}
	if e.AbortPolicy != "" {
		j.AbortPolicy = e.AbortPolicy
	}
	if e.BarcodePolicy != "" {
		j.BarcodePolicy = e.BarcodePolicy
	}
	if e.OutputDir != "" {
		j.OutputDir = e.OutputDir
	}
	if e.DB != "" {
		j.DB = e.DB
	}
	if e.LogLevel != "" {
		j.LogLevel = e.LogLevel
	}
}

// ApplyEnv reads the environment and applies it to j.
func ApplyEnv(j *Job) error {
	env, err := ReadEnv()
	if err != nil {
		return err
	}
	env.Apply(j)
	return nil
}
