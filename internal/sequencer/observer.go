package sequencer

import (
	"time"

	"github.com/roach88/evseq/internal/event"
)

// Observer receives callbacks from the event loop. Implementations are
// called concurrently from all workers and must be safe for that.
type Observer interface {
	// EventStarted is called before the first stage of an event.
	EventStarted(eventIndex uint64)

	// EventFinished is called after an event stops, whatever the outcome.
	EventFinished(eventIndex uint64, status EventStatus, elapsed time.Duration)

	// StageFinished is called after every stage invocation.
	StageFinished(kind Kind, name string, code event.ProcessCode, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) EventStarted(uint64)                                          {}
func (noopObserver) EventFinished(uint64, EventStatus, time.Duration)             {}
func (noopObserver) StageFinished(Kind, string, event.ProcessCode, time.Duration) {}
