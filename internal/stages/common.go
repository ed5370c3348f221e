package stages

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/evseq/internal/event"
	"github.com/roach88/evseq/internal/sequencer"
)

func configError(component, format string, args ...any) error {
	return &sequencer.ConfigError{Component: component, Message: fmt.Sprintf(format, args...)}
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// readVertices fetches a vertex collection from the event store.
func readVertices(ec event.Context, key string) ([]Vertex, error) {
	return event.Get[[]Vertex](ec.Store, key)
}

// writeCollection stores a vertex collection, turning a store failure into
// an abort.
func writeCollection(ec event.Context, key string, vertices []Vertex) (event.ProcessCode, error) {
	if err := ec.Store.Add(key, vertices); err != nil {
		return event.Abort, err
	}
	return event.Success, nil
}
