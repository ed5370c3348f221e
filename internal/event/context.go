package event

import "fmt"

// Handles holds opaque, read-only context objects supplied by external
// collaborators (geometry, magnetic field, calibration). The pipeline
// passes them through without inspecting them.
type Handles struct {
	m map[string]any
}

// NewHandles copies m into an immutable handle set.
func NewHandles(m map[string]any) Handles {
	if len(m) == 0 {
		return Handles{}
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Handles{m: cp}
}

// Lookup returns the handle registered under name.
func (h Handles) Lookup(name string) (any, bool) {
	v, ok := h.m[name]
	return v, ok
}

// Len returns the number of handles.
func (h Handles) Len() int {
	return len(h.m)
}

// Handle returns the named handle as a T.
func Handle[T any](h Handles, name string) (T, error) {
	var zero T
	v, ok := h.m[name]
	if !ok {
		return zero, fmt.Errorf("context handle %q not provided", name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("context handle %q has type %T, requested %T", name, v, zero)
	}
	return t, nil
}

// Context is what a stage receives for one invocation. It is built fresh
// for every (event, stage) pair and passed by value, so a stage cannot
// alter what the next stage sees other than through Store.
type Context struct {
	// EventIndex is the absolute event number in [skip, skip+count).
	EventIndex uint64

	// StageIndex counts stage invocations within the event, starting at 0
	// for the first producer and increasing through transformers and
	// consumers.
	StageIndex uint64

	// TotalEvents is the number of events the run was configured for. It
	// is fixed for the whole run and is part of the seed derivation.
	TotalEvents uint64

	// Store is this event's board.
	Store *Store

	// JobStore is shared by all events of the run.
	JobStore *Store

	// Handles are the auxiliary read-only context objects.
	Handles Handles
}

// NewContext builds the context for one stage invocation.
func NewContext(eventIndex, stageIndex, totalEvents uint64, store, jobStore *Store, handles Handles) Context {
	return Context{
		EventIndex:  eventIndex,
		StageIndex:  stageIndex,
		TotalEvents: totalEvents,
		Store:       store,
		JobStore:    jobStore,
		Handles:     handles,
	}
}

// String identifies the invocation in logs.
func (c Context) String() string {
	return fmt.Sprintf("event=%d stage=%d", c.EventIndex, c.StageIndex)
}
