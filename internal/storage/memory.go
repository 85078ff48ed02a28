package storage

import (
	"context"
	"errors"
	"sync"

	"smod/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	models      map[string][]byte
	latest      string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.models = make(map[string][]byte)
	s.latest = ""
	return nil
}

// SaveModel keeps the encoded form so later mutation of record by the caller
// cannot leak into the store.
func (s *MemoryStore) SaveModel(_ context.Context, record model.ModelRecord) error {
	payload, err := EncodeModel(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.models[record.ID] = payload
	s.latest = record.ID
	return nil
}

func (s *MemoryStore) GetModel(_ context.Context, id string) (model.ModelRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.models[id]
	if !ok {
		return model.ModelRecord{}, false, nil
	}
	record, err := DecodeModel(payload)
	if err != nil {
		return model.ModelRecord{}, false, err
	}
	return record, true, nil
}

func (s *MemoryStore) LatestModel(ctx context.Context) (model.ModelRecord, bool, error) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()

	if latest == "" {
		return model.ModelRecord{}, false, nil
	}
	return s.GetModel(ctx, latest)
}
