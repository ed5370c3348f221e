package sequencer

import (
	"errors"
	"fmt"
)

// RunErrorCode categorizes run failures.
type RunErrorCode string

const (
	// ErrCodeInitFailed indicates a component failed to initialize.
	ErrCodeInitFailed RunErrorCode = "INIT_FAILED"

	// ErrCodeStageAborted indicates a stage returned event.Abort.
	ErrCodeStageAborted RunErrorCode = "STAGE_ABORTED"

	// ErrCodeStageFailed indicates a stage panicked or returned an invalid code.
	ErrCodeStageFailed RunErrorCode = "STAGE_FAILED"

	// ErrCodeFinalizeFailed indicates one or more components failed to finalize.
	ErrCodeFinalizeFailed RunErrorCode = "FINALIZE_FAILED"

	// ErrCodeInvalidState indicates a lifecycle call in the wrong state.
	ErrCodeInvalidState RunErrorCode = "INVALID_STATE"
)

// RunError reports a failure of the event loop or its lifecycle.
//
// For stage failures, Event, Stage and StageIndex identify exactly which
// invocation caused the abort.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Event is the event index (stage failures only).
	Event uint64

	// Stage is the failing component's name.
	Stage string

	// Kind is the failing component's kind.
	Kind Kind

	// StageIndex is the invocation index within the event (stage failures only).
	StageIndex uint64

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	switch e.Code {
	case ErrCodeStageAborted, ErrCodeStageFailed:
		msg := fmt.Sprintf("%s: event %d, %s %q (stage index %d)", e.Code, e.Event, e.Kind, e.Stage, e.StageIndex)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	default:
		msg := string(e.Code)
		if e.Stage != "" {
			msg += fmt.Sprintf(": %s %q", e.Kind, e.Stage)
		}
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	}
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

// IsAbort reports whether err is a stage abort or stage failure.
// Uses errors.As to handle wrapped errors.
func IsAbort(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStageAborted || re.Code == ErrCodeStageFailed
	}
	return false
}

// ConfigError reports a wiring mistake detected before any event runs:
// a nil component, an empty name, an invalid event range.
type ConfigError struct {
	Component string
	Message   string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Component, e.Message)
	}
	return "configuration error: " + e.Message
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// errEndOfDataNotProducer is attached when a non-producer returns EndOfData.
var errEndOfDataNotProducer = errors.New("END_OF_DATA is only valid from a producer")
