package docstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/codedeck/codedeck-backend/internal/types"
)

// MemoryViewStore mirrors the redis store for tests and single-process runs.
// Documents are stored serialized so Get hands out copies, like a real store
// would.
type MemoryViewStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID][]byte
}

func NewMemoryViewStore() *MemoryViewStore {
	return &MemoryViewStore{docs: make(map[uuid.UUID][]byte)}
}

func (s *MemoryViewStore) Get(ctx context.Context, lessonID uuid.UUID) (*types.LessonView, error) {
	s.mu.RLock()
	raw, ok := s.docs[lessonID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrViewNotFound
	}
	var view types.LessonView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *MemoryViewStore) Put(ctx context.Context, view *types.LessonView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[view.LessonID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryViewStore) Delete(ctx context.Context, lessonID uuid.UUID) error {
	s.mu.Lock()
	delete(s.docs, lessonID)
	s.mu.Unlock()
	return nil
}

// Len reports how many documents are stored; test helper.
func (s *MemoryViewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
