package stages

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/roach88/evseq/internal/barcode"
	"github.com/roach88/evseq/internal/event"
)

// csvColumns is the particle file layout, in order.
var csvColumns = []string{"particle_id", "particle_type", "vx", "vy", "vz", "vt", "px", "py", "pz", "q"}

// csvOptional lists columns a reader tolerates being absent.
var csvOptional = map[string]bool{"vt": true}

// CSVParticleReaderConfig configures a CSVParticleReader.
type CSVParticleReaderConfig struct {
	// Name overrides the stage name. Defaults to "CSVParticleReader".
	Name string

	// InputDir and InputStem locate the files; event n is read from
	// PerEventPath(InputDir, InputStem+".csv", n).
	InputDir  string
	InputStem string

	// Output is the event store key for the read []Vertex.
	Output string

	Logger *slog.Logger
}

// CSVParticleReader is a producer that reads one particle file per event.
// All particles of a file are placed on a single vertex at the origin.
// A missing file ends the input: Read returns event.EndOfData.
type CSVParticleReader struct {
	cfg    CSVParticleReaderConfig
	logger *slog.Logger

	first, end uint64
}

// NewCSVParticleReader validates cfg and creates the reader.
func NewCSVParticleReader(cfg CSVParticleReaderConfig) (*CSVParticleReader, error) {
	cfg.Name = nameOr(cfg.Name, "CSVParticleReader")
	if cfg.Output == "" {
		return nil, configError(cfg.Name, "missing output collection")
	}
	if cfg.InputStem == "" {
		return nil, configError(cfg.Name, "missing input filename stem")
	}
	if cfg.InputDir == "" {
		cfg.InputDir = "."
	}
	return &CSVParticleReader{cfg: cfg, logger: orDiscard(cfg.Logger).With("stage", cfg.Name)}, nil
}

// Name implements sequencer.Named.
func (r *CSVParticleReader) Name() string { return r.cfg.Name }

// Initialize scans the input directory for the available event range.
func (r *CSVParticleReader) Initialize(context.Context) error {
	first, end, err := EventFilesRange(r.cfg.InputDir, r.cfg.InputStem+".csv")
	if err != nil {
		return err
	}
	r.first, r.end = first, end
	r.logger.Info("available input events", "first", first, "end", end, "dir", r.cfg.InputDir)
	return nil
}

// availableEvents returns the half-open event range found by Initialize.
func (r *CSVParticleReader) availableEvents() (first, end uint64) {
	return r.first, r.end
}

// Read implements sequencer.Producer.
func (r *CSVParticleReader) Read(_ context.Context, ec event.Context) (event.ProcessCode, error) {
	path := PerEventPath(r.cfg.InputDir, r.cfg.InputStem+".csv", ec.EventIndex)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("no input for event", "event", ec.EventIndex, "path", path)
		return event.EndOfData, nil
	}
	if err != nil {
		return event.Abort, err
	}
	defer f.Close()

	particles, err := readParticlesCSV(f)
	if err != nil {
		return event.Abort, fmt.Errorf("read %s: %w", path, err)
	}
	r.logger.Debug("read particles", "event", ec.EventIndex, "particles", len(particles))
	return writeCollection(ec, r.cfg.Output, []Vertex{{Outgoing: particles}})
}

func readParticlesCSV(rd io.Reader) ([]Particle, error) {
	cr := csv.NewReader(rd)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return []Particle{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok && !csvOptional[col] {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	particles := []Particle{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var p Particle
		var perr error
		num := func(col string) float64 {
			i, ok := index[col]
			if !ok || perr != nil {
				return 0
			}
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				perr = fmt.Errorf("line %d, column %s: %w", line, col, err)
			}
			return v
		}

		id, err := strconv.ParseUint(rec[index["particle_id"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d, column particle_id: %w", line, err)
		}
		pdg, err := strconv.ParseInt(rec[index["particle_type"]], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d, column particle_type: %w", line, err)
		}
		p.Barcode = barcode.Barcode(id)
		p.PDG = int32(pdg)
		p.Position = Vector3{X: num("vx"), Y: num("vy"), Z: num("vz")}
		p.Time = num("vt")
		p.Momentum = Vector3{X: num("px"), Y: num("py"), Z: num("pz")}
		p.Charge = num("q")
		if perr != nil {
			return nil, perr
		}
		particles = append(particles, p)
	}
	return particles, nil
}

// CSVParticleWriterConfig configures a CSVParticleWriter.
type CSVParticleWriterConfig struct {
	// Name overrides the stage name. Defaults to "CSVParticleWriter".
	Name string

	// Input is the event store key of the []Vertex to write.
	Input string

	// OutputDir and OutputStem locate the files; event n is written to
	// PerEventPath(OutputDir, OutputStem+".csv", n).
	OutputDir  string
	OutputStem string

	// Precision is the number of significant digits for floats.
	// Zero means 6.
	Precision int

	Logger *slog.Logger
}

// CSVParticleWriter is a consumer that writes the outgoing particles of a
// vertex collection to one CSV file per event.
type CSVParticleWriter struct {
	cfg    CSVParticleWriterConfig
	logger *slog.Logger
}

// NewCSVParticleWriter validates cfg and creates the writer.
func NewCSVParticleWriter(cfg CSVParticleWriterConfig) (*CSVParticleWriter, error) {
	cfg.Name = nameOr(cfg.Name, "CSVParticleWriter")
	if cfg.Input == "" {
		return nil, configError(cfg.Name, "missing input collection")
	}
	if cfg.OutputStem == "" {
		return nil, configError(cfg.Name, "missing output filename stem")
	}
	if cfg.Precision == 0 {
		cfg.Precision = 6
	}
	return &CSVParticleWriter{cfg: cfg, logger: orDiscard(cfg.Logger).With("stage", cfg.Name)}, nil
}

// Name implements sequencer.Named.
func (w *CSVParticleWriter) Name() string { return w.cfg.Name }

// Initialize creates the output directory.
func (w *CSVParticleWriter) Initialize(context.Context) error {
	return ensureDir(w.cfg.OutputDir)
}

// Write implements sequencer.Consumer.
func (w *CSVParticleWriter) Write(_ context.Context, ec event.Context) (event.ProcessCode, error) {
	vertices, err := readVertices(ec, w.cfg.Input)
	if err != nil {
		return event.Abort, err
	}

	path := PerEventPath(w.cfg.OutputDir, w.cfg.OutputStem+".csv", ec.EventIndex)
	f, err := os.Create(path)
	if err != nil {
		return event.Abort, err
	}
	if err := writeParticlesCSV(f, Flatten(vertices), w.cfg.Precision); err != nil {
		f.Close()
		return event.Abort, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return event.Abort, err
	}
	w.logger.Debug("wrote particles", "event", ec.EventIndex, "path", path)
	return event.Success, nil
}

func writeParticlesCSV(wr io.Writer, particles []Particle, precision int) error {
	cw := csv.NewWriter(wr)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}

	ff := func(v float64) string { return strconv.FormatFloat(v, 'g', precision, 64) }
	rec := make([]string, len(csvColumns))
	for _, p := range particles {
		rec[0] = strconv.FormatUint(p.Barcode.Value(), 10)
		rec[1] = strconv.FormatInt(int64(p.PDG), 10)
		rec[2] = ff(p.Position.X)
		rec[3] = ff(p.Position.Y)
		rec[4] = ff(p.Position.Z)
		rec[5] = ff(p.Time)
		rec[6] = ff(p.Momentum.X)
		rec[7] = ff(p.Momentum.Y)
		rec[8] = ff(p.Momentum.Z)
		rec[9] = ff(p.Charge)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}
