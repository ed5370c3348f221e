package sequencer

import (
	"context"
	"fmt"

	"github.com/roach88/evseq/internal/event"
)

// Named is implemented by every registered component.
type Named interface {
	Name() string
}

// Initializer is implemented by components that need setup before the
// first event.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Finalizer is implemented by components that release resources after the
// last event.
type Finalizer interface {
	Finalize(ctx context.Context) error
}

// Service is a process-wide component shared read-only by all stages once
// initialized (random numbers, barcode codec, output sinks).
type Service interface {
	Named
}

// Producer injects data into the event store.
//
// Read may return event.EndOfData when its input is exhausted.
type Producer interface {
	Named
	Read(ctx context.Context, ec event.Context) (event.ProcessCode, error)
}

// Transformer reads data from the event store and writes derived data.
type Transformer interface {
	Named
	Execute(ctx context.Context, ec event.Context) (event.ProcessCode, error)
}

// Consumer reads data from the event store and emits it externally.
type Consumer interface {
	Named
	Write(ctx context.Context, ec event.Context) (event.ProcessCode, error)
}

// Kind classifies a registered component.
type Kind int

const (
	KindService Kind = iota
	KindProducer
	KindTransformer
	KindConsumer
)

// String returns the kind name used in logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindService:
		return "service"
	case KindProducer:
		return "producer"
	case KindTransformer:
		return "transformer"
	case KindConsumer:
		return "consumer"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// component is a registered element in lifecycle order.
type component struct {
	kind Kind
	impl Named
}

// stageFunc adapts the three stage capabilities to one call shape.
type stageFunc func(ctx context.Context, ec event.Context) (event.ProcessCode, error)

// stage is one entry of the per-event invocation plan.
type stage struct {
	kind Kind
	name string
	call stageFunc
}
