package store

import (
	"fmt"
	"sync"

	"github.com/chazu/tern/pkg/bytecode"
)

// MemoryStore holds programs in process. It is safe for concurrent use.
// Programs are stored in encoded form so callers cannot mutate a stored
// program through a pointer they still hold.
type MemoryStore struct {
	mu       sync.RWMutex
	programs map[Hash][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{programs: make(map[Hash][]byte)}
}

// Put validates p and stores it under its content hash.
func (s *MemoryStore) Put(p *bytecode.Program) (Hash, error) {
	if err := p.Validate(); err != nil {
		return Hash{}, fmt.Errorf("storing program: %w", err)
	}
	data, err := p.Serialize()
	if err != nil {
		return Hash{}, fmt.Errorf("storing program: %w", err)
	}
	h := hashBytes(data)

	s.mu.Lock()
	s.programs[h] = data
	s.mu.Unlock()
	return h, nil
}

// Get decodes the program stored under h.
func (s *MemoryStore) Get(h Hash) (*bytecode.Program, error) {
	s.mu.RLock()
	data, ok := s.programs[h]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", h, ErrNotFound)
	}
	return bytecode.Deserialize(data)
}

// Has reports whether a program is stored under h.
func (s *MemoryStore) Has(h Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.programs[h]
	return ok
}

// Len returns the number of stored programs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.programs)
}
