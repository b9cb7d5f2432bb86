package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/lucasmbraga/taxflow/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.State
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.State),
	}
}

// clone deep-copies a state through its JSON form. This keeps parity with
// the durable stores: nested records are isolated and the transient payload
// is never retained.
func clone(state *domain.State) (*domain.State, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to copy state: %w", err)
	}
	var out domain.State
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to copy state: %w", err)
	}
	return &out, nil
}

// Save persists the state in memory.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	copied, err := clone(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load retrieves the state from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	s.mu.RLock()
	state, ok := s.data[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	// Copy on read so the caller can't mutate store state through pointers.
	return clone(state)
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns active sessions, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return s.data[sessions[i]].Meta.UpdatedAt.After(s.data[sessions[j]].Meta.UpdatedAt)
	})
	return sessions, nil
}
