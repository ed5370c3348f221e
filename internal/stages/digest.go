package stages

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/evseq/internal/canonical"
	"github.com/roach88/evseq/internal/event"
)

// DigestService collects one digest per event and combines them into a run
// fingerprint. The fingerprint depends only on the (event, digest) pairs,
// not on the order they were recorded in, so it is identical for any
// worker count.
//
// Thread-safety: safe for concurrent use via internal mutex.
type DigestService struct {
	mu      sync.Mutex
	digests map[uint64]string
}

// NewDigestService creates an empty digest service.
func NewDigestService() *DigestService {
	return &DigestService{digests: make(map[uint64]string)}
}

// Name implements sequencer.Named.
func (s *DigestService) Name() string { return "DigestSvc" }

// Record stores the digest of an event. An event is recorded at most once.
func (s *DigestService) Record(eventIndex uint64, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.digests[eventIndex]; ok {
		return fmt.Errorf("digest for event %d already recorded", eventIndex)
	}
	s.digests[eventIndex] = digest
	return nil
}

// Digest returns the recorded digest of an event.
func (s *DigestService) Digest(eventIndex uint64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.digests[eventIndex]
	return d, ok
}

// Len returns the number of recorded events.
func (s *DigestService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.digests)
}

// Fingerprint hashes all recorded digests in event order. It returns the
// empty string if nothing was recorded.
func (s *DigestService) Fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.digests) == 0 {
		return ""
	}

	events := make([]uint64, 0, len(s.digests))
	for n := range s.digests {
		events = append(events, n)
	}
	slices.Sort(events)

	entries := make([]any, len(events))
	for i, n := range events {
		entries[i] = map[string]any{"event": n, "digest": s.digests[n]}
	}
	return canonical.MustHash(canonical.DomainRun, entries)
}

// DigestConfig configures a Digest consumer.
type DigestConfig struct {
	// Name overrides the stage name. Defaults to "Digest".
	Name string

	// Inputs are the []Vertex collections covered by the digest.
	Inputs []string

	Service *DigestService
	Logger  *slog.Logger
}

// Digest is a consumer that hashes the canonical JSON of an event's
// collections and records it in a DigestService.
type Digest struct {
	cfg    DigestConfig
	logger *slog.Logger
}

// NewDigest validates cfg and creates the consumer.
func NewDigest(cfg DigestConfig) (*Digest, error) {
	cfg.Name = nameOr(cfg.Name, "Digest")
	if len(cfg.Inputs) == 0 {
		return nil, configError(cfg.Name, "missing input collections")
	}
	if cfg.Service == nil {
		return nil, configError(cfg.Name, "missing digest service")
	}
	return &Digest{cfg: cfg, logger: orDiscard(cfg.Logger).With("stage", cfg.Name)}, nil
}

// Name implements sequencer.Named.
func (d *Digest) Name() string { return d.cfg.Name }

// Write implements sequencer.Consumer.
func (d *Digest) Write(_ context.Context, ec event.Context) (event.ProcessCode, error) {
	collections := make(map[string]any, len(d.cfg.Inputs))
	for _, key := range d.cfg.Inputs {
		vertices, err := readVertices(ec, key)
		if err != nil {
			return event.Abort, err
		}
		collections[key] = canonical.Values(vertices)
	}

	digest, err := EventDigest(ec.EventIndex, collections)
	if err != nil {
		return event.Abort, err
	}
	if err := d.cfg.Service.Record(ec.EventIndex, digest); err != nil {
		return event.Abort, err
	}
	d.logger.Debug("event digest", "event", ec.EventIndex, "digest", digest)
	return event.Success, nil
}

// EventDigest hashes an event number together with its collections.
func EventDigest(eventIndex uint64, collections map[string]any) (string, error) {
	return canonical.Hash(canonical.DomainEvent, map[string]any{
		"event":       eventIndex,
		"collections": collections,
	})
}
