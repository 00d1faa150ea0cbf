package receipt

import (
	"context"
	"sync"

	"docgate/pkg/sentinel"
)

// InMemoryStore keeps the initial implementation lightweight and testable. It
// intentionally favors clarity over performance.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]Receipt
	byDoc map[string][]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[string]Receipt),
		byDoc: make(map[string][]string),
	}
}

func (s *InMemoryStore) Save(_ context.Context, r Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.ID.String()
	if _, exists := s.byID[id]; exists {
		return sentinel.ErrConflict
	}
	s.byID[id] = r
	s.byDoc[r.DocID] = append(s.byDoc[r.DocID], id)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.byID[id]; ok {
		return r, nil
	}
	return Receipt{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Latest(_ context.Context, docID string) (Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byDoc[docID]
	if len(ids) == 0 {
		return Receipt{}, sentinel.ErrNotFound
	}
	return s.byID[ids[len(ids)-1]], nil
}

func (s *InMemoryStore) ListByDoc(_ context.Context, docID string) ([]Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byDoc[docID]
	out := make([]Receipt, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}
