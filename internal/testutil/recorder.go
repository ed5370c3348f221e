package testutil

import "sync"

// Recorder collects labelled calls from stages in the order they happen.
//
// Unlike a plain slice, Recorder can be shared by stages running on
// different workers.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one call.
func (r *Recorder) Record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset forgets all calls.
//
// Used for test reuse. After Reset(), Calls() returns an empty slice.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
