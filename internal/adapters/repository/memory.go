package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ndiyar/vigil/internal/domain/model"
	"github.com/ndiyar/vigil/pkg/metrics"
)

// MemoryStore implements Store in memory. It backs tests and instances
// started without a store DSN.
type MemoryStore struct {
	mu         sync.RWMutex
	records    []Record
	capacities map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		capacities: make(map[string]int),
	}
}

// InsertResult appends a classified result and returns the record id.
func (s *MemoryStore) InsertResult(_ context.Context, res model.ClassifiedResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.records = append(s.records, Record{
		ID:        id,
		Subject:   res.Subject,
		Count:     res.Count,
		Status:    res.Status,
		CreatedAt: res.Timestamp.String(),
	})

	metrics.RecordStoreWrite()
	return id, nil
}

// Capacity returns the seeded capacity for an area.
func (s *MemoryStore) Capacity(_ context.Context, areaID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	capacity, ok := s.capacities[areaID]
	if !ok {
		return 0, fmt.Errorf("%w: area %s", ErrNotFound, areaID)
	}
	return capacity, nil
}

// Count returns the number of persisted results.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// SeedArea sets an area capacity.
func (s *MemoryStore) SeedArea(_ context.Context, areaID string, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capacities[areaID] = capacity
	return nil
}

// Records returns a copy of the persisted records, oldest first.
func (s *MemoryStore) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
