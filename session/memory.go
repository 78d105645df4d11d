package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the encoded entries in process memory. The entries are
// encoded exactly as the durable backends encode them so round-trip behaviour
// is identical.
type MemoryStore struct {
	mu      sync.Mutex
	entries entries
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (Record, error) {
	s.mu.Lock()
	e := s.entries
	s.mu.Unlock()

	return decodeEntries(e)
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	e, err := encodeEntries(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = entries{}
	s.mu.Unlock()
	return nil
}
