package memory

import (
	"context"
	"sync"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu      sync.RWMutex
	summary *domain.PerformanceSummary
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{}
}

// Upsert replaces the stored summary.
func (s *SummaryStore) Upsert(_ context.Context, sum *domain.PerformanceSummary) error {
	if sum == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.summary = copySummary(sum)
	return nil
}

// Get retrieves the stored summary. Returns ErrNotFound if never written.
func (s *SummaryStore) Get(_ context.Context) (*domain.PerformanceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.summary == nil {
		return nil, storage.ErrNotFound
	}

	return copySummary(s.summary), nil
}

func copySummary(sum *domain.PerformanceSummary) *domain.PerformanceSummary {
	copy := *sum
	if sum.ByReason != nil {
		copy.ByReason = make(map[domain.ExitReason]domain.ExitReasonStats, len(sum.ByReason))
		for reason, stats := range sum.ByReason {
			copy.ByReason[reason] = stats
		}
	}
	return &copy
}

var _ storage.SummaryStore = (*SummaryStore)(nil)
