package repository

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"go.uber.org/zap"
)

// MemoryKeyValueStore is an in-memory KeyValueStore for tests and the memory backend
type MemoryKeyValueStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	logger *zap.Logger
}

// NewMemoryKeyValueStore creates an empty in-memory store
func NewMemoryKeyValueStore(logger *zap.Logger) *MemoryKeyValueStore {
	return &MemoryKeyValueStore{
		values: make(map[string][]byte),
		logger: logger,
	}
}

// Get returns a copy of the value stored under key
func (s *MemoryKeyValueStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("key %s: %w", key, ErrNotFound)
	}
	return bytes.Clone(value), nil
}

// Put stores a copy of value under key
func (s *MemoryKeyValueStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = bytes.Clone(value)

	if s.logger != nil {
		s.logger.Debug("memory: key written",
			zap.String("key", key),
			zap.Int("size_bytes", len(value)),
		)
	}
	return nil
}

// Delete removes key
func (s *MemoryKeyValueStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Keys returns every stored key
func (s *MemoryKeyValueStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

var _ KeyValueStore = (*MemoryKeyValueStore)(nil)

// MemoryHistoryRepository keeps migraines and tracking entries in memory
type MemoryHistoryRepository struct {
	mu        sync.RWMutex
	migraines []model.MigraineEvent
	entries   []model.TrackingEntry
}

// NewMemoryHistoryRepository creates an empty in-memory history
func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{}
}

// CreateMigraine appends a migraine event
func (r *MemoryHistoryRepository) CreateMigraine(_ context.Context, m *model.MigraineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.migraines = append(r.migraines, *m)
	return nil
}

// ListMigraines returns migraines ordered by date, then start time
func (r *MemoryHistoryRepository) ListMigraines(_ context.Context) ([]model.MigraineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	migraines := append([]model.MigraineEvent(nil), r.migraines...)
	sort.SliceStable(migraines, func(i, j int) bool {
		di, dj := model.DateOnly(migraines[i].Date), model.DateOnly(migraines[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return migraines[i].StartTime < migraines[j].StartTime
	})
	return migraines, nil
}

// CreateTrackingEntry appends a tracking entry
func (r *MemoryHistoryRepository) CreateTrackingEntry(_ context.Context, entry model.TrackingEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	return nil
}

// ListTrackingEntries returns entries in recording order
func (r *MemoryHistoryRepository) ListTrackingEntries(_ context.Context) ([]model.TrackingEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.TrackingEntry(nil), r.entries...), nil
}

// DeleteAll clears the history
func (r *MemoryHistoryRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.migraines = nil
	r.entries = nil
	return nil
}
