package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Load reads a job file, choosing the format from its extension.
func Load(path string) (*Job, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".cue":
		return LoadCUE(path)
	default:
		return nil, fmt.Errorf("unsupported job file %s: want .yaml, .yml or .cue", path)
	}
}

// LoadYAML reads a YAML job file. Unknown fields are rejected.
func LoadYAML(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a YAML job document.
func ParseYAML(data []byte) (*Job, error) {
	var job Job
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &job, nil
}

// LoadCUE reads a CUE job file, unifies it with the job schema and decodes
// the concrete result.
func LoadCUE(path string) (*Job, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{filepath.Base(path)}, &load.Config{Dir: filepath.Dir(path)})
	if len(instances) == 0 {
		return nil, fmt.Errorf("loading %s: no CUE instances loaded", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building %s: %w", path, err)
	}
	return decodeCUE(ctx, value)
}

// ParseCUE decodes a CUE job document held in memory.
func ParseCUE(src []byte) (*Job, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename("job.cue"))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compiling job: %w", err)
	}
	return decodeCUE(ctx, value)
}

func decodeCUE(ctx *cue.Context, value cue.Value) (*Job, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling job schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Job")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("job does not match schema: %w", err)
	}

	// Going through JSON keeps numbers plain in the generic params maps.
	data, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding job: %w", err)
	}
	var job Job
	if err := strictJSON.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}
	return &job, nil
}
