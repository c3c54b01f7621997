package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps records in process; used when Redis is disabled
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	maxSize int
}

// NewMemoryStore creates a store holding at most maxSize records (0 = unbounded)
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
		maxSize: maxSize,
	}
}

// Save stores a copy of rec
func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", rec.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = data
	s.evictLocked()
	return nil
}

// Get returns a copy of the stored record
func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	data, ok := s.records[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return decode(data)
}

// List returns the newest records first
func (s *MemoryStore) List(_ context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	all := make([]*Record, 0, len(s.records))
	for _, data := range s.records {
		rec, err := decode(data)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		all = append(all, rec)
	}
	s.mu.RUnlock()

	sortNewest(all)
	if limit = clampLimit(limit); len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// evictLocked drops the oldest records beyond maxSize
func (s *MemoryStore) evictLocked() {
	if s.maxSize <= 0 || len(s.records) <= s.maxSize {
		return
	}

	all := make([]*Record, 0, len(s.records))
	for _, data := range s.records {
		if rec, err := decode(data); err == nil {
			all = append(all, rec)
		}
	}
	sortNewest(all)
	for _, rec := range all[s.maxSize:] {
		delete(s.records, rec.ID)
	}
}

func decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &rec, nil
}

func sortNewest(recs []*Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].QueuedAt.Equal(recs[j].QueuedAt) {
			return recs[i].QueuedAt.After(recs[j].QueuedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}
