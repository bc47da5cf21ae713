package memory

import (
	"context"
	"sort"
	"sync"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data []*domain.PortfolioSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Insert appends a snapshot.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.PortfolioSnapshot) error {
	if snap == nil || snap.SnapshotTime <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *snap
	s.data = append(s.data, &copy)
	return nil
}

// GetLatest retrieves the most recent snapshot. Returns ErrNotFound if none exist.
func (s *SnapshotStore) GetLatest(_ context.Context) (*domain.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return nil, storage.ErrNotFound
	}

	latest := s.data[0]
	for _, snap := range s.data[1:] {
		if snap.SnapshotTime > latest.SnapshotTime {
			latest = snap
		}
	}

	copy := *latest
	return &copy, nil
}

// GetByTimeRange retrieves snapshots within [start, end] (inclusive), ordered
// by snapshot_time ASC.
func (s *SnapshotStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PortfolioSnapshot
	for _, snap := range s.data {
		if snap.SnapshotTime >= start && snap.SnapshotTime <= end {
			copy := *snap
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SnapshotTime < result[j].SnapshotTime
	})

	return result, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
