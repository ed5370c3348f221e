package event

import "fmt"

// ProcessCode is the outcome a stage hands back to the sequencer.
type ProcessCode int

const (
	// Success means the stage finished its work for this event.
	Success ProcessCode = iota
	// Abort means the stage failed; the event stops here.
	Abort
	// EndOfData means a producer has no more input. It is not an error.
	EndOfData
)

// String returns the code name used in logs and run reports.
func (c ProcessCode) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case Abort:
		return "ABORT"
	case EndOfData:
		return "END_OF_DATA"
	default:
		return fmt.Sprintf("ProcessCode(%d)", int(c))
	}
}
