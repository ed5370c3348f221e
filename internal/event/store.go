package event

import (
	"io"
	"log/slog"
	"reflect"
	"sort"
	"sync"
)

type entry struct {
	value any
	typ   reflect.Type
}

// Store is a typed, write-once key/value board.
//
// Thread-safety: all methods are safe for concurrent use. An event store is
// only ever written by the stages of its own event, which run one after
// another, so the lock is uncontended on that path; the job store is shared
// by all events and relies on it.
//
// INVARIANTS:
//   - A key is written at most once; a failed Add leaves the store unchanged
//   - A read succeeds only with the exact type that was written
//   - There is no remove or update
type Store struct {
	name   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry
}

// NewStore creates an empty store. The name shows up in errors and logs
// (e.g. "EventStore#7"). A nil logger discards output.
func NewStore(name string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		name:    name,
		logger:  logger.With("store", name),
		entries: make(map[string]entry),
	}
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

// Add stores value under key. It fails with a DUPLICATE_KEY StoreError if
// the key is already taken, in which case the existing value is kept.
func (s *Store) Add(key string, value any) error {
	if key == "" {
		return &StoreError{Code: ErrCodeEmptyKey, Store: s.name}
	}
	if value == nil {
		return &StoreError{Code: ErrCodeNilValue, Store: s.name, Key: key}
	}
	typ := reflect.TypeOf(value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok {
		s.logger.Error("duplicate write", "key", key, "stored", existing.typ.String(), "written", typ.String())
		return &StoreError{
			Code:      ErrCodeDuplicateKey,
			Store:     s.name,
			Key:       key,
			Stored:    existing.typ.String(),
			Requested: typ.String(),
		}
	}

	s.entries[key] = entry{value: value, typ: typ}
	s.logger.Debug("added collection", "key", key, "type", typ.String())
	return nil
}

// lookup returns the raw entry for key.
func (s *Store) lookup(key string) (entry, error) {
	if key == "" {
		return entry{}, &StoreError{Code: ErrCodeEmptyKey, Store: s.name}
	}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return entry{}, &StoreError{Code: ErrCodeKeyNotFound, Store: s.name, Key: key}
	}
	return e, nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Get returns the value stored under key as a T.
//
// It fails with KEY_NOT_FOUND if nothing was written under key, and with
// TYPE_MISMATCH unless the stored dynamic type is exactly T. Asking for an
// interface type therefore fails even if the stored value implements it;
// readers name the concrete type the writer produced.
func Get[T any](s *Store, key string) (T, error) {
	var zero T

	e, err := s.lookup(key)
	if err != nil {
		s.logger.Error("read failed", "key", key, "error", err)
		return zero, err
	}

	want := reflect.TypeFor[T]()
	if e.typ != want {
		err := &StoreError{
			Code:      ErrCodeTypeMismatch,
			Store:     s.name,
			Key:       key,
			Stored:    e.typ.String(),
			Requested: want.String(),
		}
		s.logger.Error("read failed", "key", key, "error", err)
		return zero, err
	}

	s.logger.Debug("read collection", "key", key)
	return e.value.(T), nil
}

// MustGet is Get for tests and fixtures; it panics on error.
func MustGet[T any](s *Store, key string) T {
	v, err := Get[T](s, key)
	if err != nil {
		panic(err)
	}
	return v
}
