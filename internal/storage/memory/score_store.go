package memory

import (
	"context"
	"sort"
	"sync"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// ScoreStore is an in-memory implementation of storage.ScoreStore.
type ScoreStore struct {
	mu   sync.RWMutex
	data []*domain.ScoreSnapshot
}

// NewScoreStore creates a new in-memory score store.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{}
}

// InsertBulk appends the scores of one scan.
func (s *ScoreStore) InsertBulk(_ context.Context, scores []*domain.ScoreSnapshot) error {
	if len(scores) == 0 {
		return nil
	}

	for _, sc := range scores {
		if sc == nil || sc.ScanID == "" || sc.TokenAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range scores {
		copy := *sc
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetByToken retrieves score history for a token, ordered by scored_at ASC.
func (s *ScoreStore) GetByToken(_ context.Context, address string) ([]*domain.ScoreSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreSnapshot
	for _, sc := range s.data {
		if sc.TokenAddress == address {
			copy := *sc
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ScoredAt < result[j].ScoredAt
	})

	return result, nil
}

// GetByScanID retrieves all scores of one scan, ordered by composite DESC.
func (s *ScoreStore) GetByScanID(_ context.Context, scanID string) ([]*domain.ScoreSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreSnapshot
	for _, sc := range s.data {
		if sc.ScanID == scanID {
			copy := *sc
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CompositeScore != result[j].CompositeScore {
			return result[i].CompositeScore > result[j].CompositeScore
		}
		return result[i].TokenAddress < result[j].TokenAddress
	})

	return result, nil
}

var _ storage.ScoreStore = (*ScoreStore)(nil)
