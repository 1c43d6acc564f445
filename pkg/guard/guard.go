package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"shop-api/pkg/errors"
)

// Store holds in-flight submission markers. Implementations must be safe
// for concurrent use.
type Store interface {
	// TryAcquire marks the key in-flight and reports whether it was free.
	TryAcquire(key string) bool

	// Release removes the in-flight marker for the key.
	Release(key string)
}

// MemoryStore is the default in-process Store
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]struct{})}
}

// TryAcquire marks the key in-flight and reports whether it was free
func (s *MemoryStore) TryAcquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// Release removes the in-flight marker for the key
func (s *MemoryStore) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

// Guard rejects duplicate in-flight submissions. Two layers: a coarse
// one-submission-per-principal lock, and a fingerprint lock tied to the
// exact request payload.
type Guard struct {
	fingerprints Store
	sessions     Store
}

// New creates a Guard backed by in-memory stores
func New() *Guard {
	return NewWithStores(NewMemoryStore(), NewMemoryStore())
}

// NewWithStores creates a Guard with injected storage
func NewWithStores(fingerprints, sessions Store) *Guard {
	return &Guard{
		fingerprints: fingerprints,
		sessions:     sessions,
	}
}

// Fingerprint derives a deterministic identifier from an operation and its
// full request payload.
func Fingerprint(operation string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte("::"))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Begin marks the fingerprint in-flight. Returns a duplicate-submission
// error if an identical submission has not yet resolved.
func (g *Guard) Begin(fingerprint string) error {
	if !g.fingerprints.TryAcquire(fingerprint) {
		return errors.NewDuplicate("an identical submission is already in flight")
	}
	return nil
}

// End releases the fingerprint. Callers must invoke it on every exit path.
func (g *Guard) End(fingerprint string) {
	g.fingerprints.Release(fingerprint)
}

// BeginSession marks the principal as having a submission in progress,
// regardless of payload content.
func (g *Guard) BeginSession(principal string) error {
	if !g.sessions.TryAcquire(principal) {
		return errors.NewDuplicate("a submission is already in progress")
	}
	return nil
}

// EndSession releases the principal's in-progress marker
func (g *Guard) EndSession(principal string) {
	g.sessions.Release(principal)
}
