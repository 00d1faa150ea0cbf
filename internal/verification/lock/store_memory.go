package lock

import (
	"context"
	"sync"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]State)}
}

func (s *InMemoryStore) Get(_ context.Context, docID string) (State, error) {
	s.mu.RLock()
	state, ok := s.states[docID]
	s.mu.RUnlock()
	if ok {
		return state, nil
	}
	return NewState(docID), nil
}

func (s *InMemoryStore) Save(_ context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.DocID] = state
	return nil
}
