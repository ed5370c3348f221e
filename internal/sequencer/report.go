package sequencer

import (
	"fmt"
	"sort"
	"time"
)

// EventStatus is the final state of one event.
type EventStatus int

const (
	// EventDone means every stage succeeded.
	EventDone EventStatus = iota
	// EventAborted means a stage aborted or failed.
	EventAborted
	// EventEndOfData means a producer ran out of input; the event was dropped.
	EventEndOfData
)

// String returns the status name stored in the run log.
func (s EventStatus) String() string {
	switch s {
	case EventDone:
		return "done"
	case EventAborted:
		return "aborted"
	case EventEndOfData:
		return "end_of_data"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// EventResult records how one event ended.
type EventResult struct {
	Event      uint64
	Status     EventStatus
	Stage      string // stage that ended the event early, if any
	StageIndex uint64
	Message    string
	Elapsed    time.Duration
}

// Report summarizes a run.
type Report struct {
	RunID       string
	Skip        uint64
	Events      uint64
	TotalEvents uint64
	Workers     int
	Policy      AbortPolicy

	// Results has one entry per started event, sorted by event index.
	Results []EventResult

	// EndOfData is set when a producer signalled the end of its input.
	EndOfData bool

	// Abort is the first abort under AbortRun, nil otherwise.
	Abort *RunError

	Elapsed time.Duration
}

// Count returns how many started events ended with status s.
func (r *Report) Count(s EventStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Processed returns the number of events that completed every stage.
func (r *Report) Processed() int {
	return r.Count(EventDone)
}

// Failed returns the results of aborted events.
func (r *Report) Failed() []EventResult {
	var out []EventResult
	for _, res := range r.Results {
		if res.Status == EventAborted {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) sortResults() {
	sort.Slice(r.Results, func(i, j int) bool {
		return r.Results[i].Event < r.Results[j].Event
	})
}
