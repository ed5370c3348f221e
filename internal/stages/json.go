package stages

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/roach88/evseq/internal/event"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// EventDocument is the per-event JSON file layout.
type EventDocument struct {
	Event      uint64   `json:"event"`
	Collection string   `json:"collection"`
	Vertices   []Vertex `json:"vertices"`
}

// JSONParticleWriterConfig configures a JSONParticleWriter.
type JSONParticleWriterConfig struct {
	// Name overrides the stage name. Defaults to "JSONParticleWriter".
	Name string

	// Input is the event store key of the []Vertex to write.
	Input string

	// OutputDir and OutputStem locate the files; event n is written to
	// PerEventPath(OutputDir, OutputStem+".json", n).
	OutputDir  string
	OutputStem string

	// Indent pretty-prints the output.
	Indent bool

	Logger *slog.Logger
}

// JSONParticleWriter is a consumer that writes a vertex collection, with
// its vertex structure, to one JSON file per event.
type JSONParticleWriter struct {
	cfg    JSONParticleWriterConfig
	logger *slog.Logger
}

// NewJSONParticleWriter validates cfg and creates the writer.
func NewJSONParticleWriter(cfg JSONParticleWriterConfig) (*JSONParticleWriter, error) {
	cfg.Name = nameOr(cfg.Name, "JSONParticleWriter")
	if cfg.Input == "" {
		return nil, configError(cfg.Name, "missing input collection")
	}
	if cfg.OutputStem == "" {
		return nil, configError(cfg.Name, "missing output filename stem")
	}
	return &JSONParticleWriter{cfg: cfg, logger: orDiscard(cfg.Logger).With("stage", cfg.Name)}, nil
}

// Name implements sequencer.Named.
func (w *JSONParticleWriter) Name() string { return w.cfg.Name }

// Initialize creates the output directory.
func (w *JSONParticleWriter) Initialize(context.Context) error {
	return ensureDir(w.cfg.OutputDir)
}

// Write implements sequencer.Consumer.
func (w *JSONParticleWriter) Write(_ context.Context, ec event.Context) (event.ProcessCode, error) {
	vertices, err := readVertices(ec, w.cfg.Input)
	if err != nil {
		return event.Abort, err
	}

	doc := EventDocument{Event: ec.EventIndex, Collection: w.cfg.Input, Vertices: vertices}
	var data []byte
	if w.cfg.Indent {
		data, err = jsonAPI.MarshalIndent(doc, "", "  ")
	} else {
		data, err = jsonAPI.Marshal(doc)
	}
	if err != nil {
		return event.Abort, fmt.Errorf("encode event %d: %w", ec.EventIndex, err)
	}
	data = append(data, '\n')

	path := PerEventPath(w.cfg.OutputDir, w.cfg.OutputStem+".json", ec.EventIndex)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return event.Abort, err
	}
	w.logger.Debug("wrote event document", "event", ec.EventIndex, "path", path)
	return event.Success, nil
}

// readEventDocument decodes a file written by JSONParticleWriter.
func readEventDocument(path string) (EventDocument, error) {
	var doc EventDocument
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := jsonAPI.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}
