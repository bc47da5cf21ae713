package memory

import (
	"context"
	"sort"
	"sync"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// FunnelStore is an in-memory implementation of storage.FunnelStore.
type FunnelStore struct {
	mu   sync.RWMutex
	data []*domain.FunnelStat
}

// NewFunnelStore creates a new in-memory funnel store.
func NewFunnelStore() *FunnelStore {
	return &FunnelStore{}
}

// InsertBulk appends the stage stats of one scan.
func (s *FunnelStore) InsertBulk(_ context.Context, stats []*domain.FunnelStat) error {
	if len(stats) == 0 {
		return nil
	}

	for _, st := range stats {
		if st == nil || st.ScanID == "" || !st.Phase.IsValid() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range stats {
		s.data = append(s.data, copyFunnelStat(st))
	}
	return nil
}

// GetByScanID retrieves the stats of one scan, ordered by stage.
func (s *FunnelStore) GetByScanID(_ context.Context, scanID string) ([]*domain.FunnelStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FunnelStat
	for _, st := range s.data {
		if st.ScanID == scanID {
			result = append(result, copyFunnelStat(st))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Phase < result[j].Phase
	})

	return result, nil
}

// GetRecent retrieves stats of the most recent scans, newest first, capped at
// limit rows.
func (s *FunnelStore) GetRecent(_ context.Context, limit int) ([]*domain.FunnelStat, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FunnelStat, 0, len(s.data))
	for _, st := range s.data {
		result = append(result, copyFunnelStat(st))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RecordedAt != result[j].RecordedAt {
			return result[i].RecordedAt > result[j].RecordedAt
		}
		return result[i].Phase > result[j].Phase
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyFunnelStat(st *domain.FunnelStat) *domain.FunnelStat {
	copy := *st
	if st.Survivors != nil {
		copy.Survivors = append([]string(nil), st.Survivors...)
	}
	return &copy
}

var _ storage.FunnelStore = (*FunnelStore)(nil)
