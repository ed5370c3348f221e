package event

import (
	"errors"
	"fmt"
)

// StoreErrorCode categorizes store contract violations.
type StoreErrorCode string

const (
	// ErrCodeDuplicateKey indicates a second write to an existing key.
	ErrCodeDuplicateKey StoreErrorCode = "DUPLICATE_KEY"

	// ErrCodeKeyNotFound indicates a read of a key nobody wrote.
	ErrCodeKeyNotFound StoreErrorCode = "KEY_NOT_FOUND"

	// ErrCodeTypeMismatch indicates a read with a type other than the stored one.
	ErrCodeTypeMismatch StoreErrorCode = "TYPE_MISMATCH"

	// ErrCodeEmptyKey indicates an empty key on write or read.
	ErrCodeEmptyKey StoreErrorCode = "EMPTY_KEY"

	// ErrCodeNilValue indicates an attempt to store nil.
	ErrCodeNilValue StoreErrorCode = "NIL_VALUE"
)

// Sentinels for errors.Is matching against a *StoreError.
var (
	ErrDuplicateKey = errors.New("duplicate key")
	ErrKeyNotFound  = errors.New("key not found")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrEmptyKey     = errors.New("empty key")
	ErrNilValue     = errors.New("nil value")
)

// StoreError reports a violated store contract. These always point at a
// wiring bug between stages: two writers for one key, or a reader that
// expects a type no writer produced.
type StoreError struct {
	// Code identifies the violation.
	Code StoreErrorCode

	// Store is the name of the store (e.g. "EventStore#42").
	Store string

	// Key is the offending key.
	Key string

	// Stored is the type held under Key (type mismatch and duplicate key).
	Stored string

	// Requested is the type the caller asked for or tried to write.
	Requested string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	switch e.Code {
	case ErrCodeDuplicateKey:
		return fmt.Sprintf("%s: %s: key %q already holds %s", e.Code, e.Store, e.Key, e.Stored)
	case ErrCodeTypeMismatch:
		return fmt.Sprintf("%s: %s: key %q holds %s, requested %s", e.Code, e.Store, e.Key, e.Stored, e.Requested)
	default:
		return fmt.Sprintf("%s: %s: key %q", e.Code, e.Store, e.Key)
	}
}

// Is maps the code onto the package sentinels.
func (e *StoreError) Is(target error) bool {
	switch e.Code {
	case ErrCodeDuplicateKey:
		return target == ErrDuplicateKey
	case ErrCodeKeyNotFound:
		return target == ErrKeyNotFound
	case ErrCodeTypeMismatch:
		return target == ErrTypeMismatch
	case ErrCodeEmptyKey:
		return target == ErrEmptyKey
	case ErrCodeNilValue:
		return target == ErrNilValue
	}
	return false
}

// IsDuplicateKey reports whether err is a duplicate-key violation.
func IsDuplicateKey(err error) bool { return errors.Is(err, ErrDuplicateKey) }

// IsKeyNotFound reports whether err is a missing-key violation.
func IsKeyNotFound(err error) bool { return errors.Is(err, ErrKeyNotFound) }

// IsTypeMismatch reports whether err is a type-mismatch violation.
func IsTypeMismatch(err error) bool { return errors.Is(err, ErrTypeMismatch) }
