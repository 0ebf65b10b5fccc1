package db

import (
	"context"
	"sort"
	"sync"

	"storybook_backend/finetune"
)

// MemoryStore implements finetune.RecordStore in process memory. Used
// when RECORD_STORE=memory and in tests; records do not survive a
// restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]finetune.TrainingJobRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]finetune.TrainingJobRecord)}
}

func (s *MemoryStore) Save(ctx context.Context, record finetune.TrainingJobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*finetune.TrainingJobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, finetune.ErrNotFound
	}
	return &record, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]finetune.TrainingJobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finetune.TrainingJobRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) TriggerWordExists(ctx context.Context, word string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.TriggerWord == word {
			return true, nil
		}
	}
	return false, nil
}
