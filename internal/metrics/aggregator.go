package metrics

import (
	"context"
	"fmt"
	"time"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// Aggregator recomputes the cached performance summary from the ledger.
type Aggregator struct {
	positions storage.PositionStore
	trades    storage.TradeStore
	snapshots storage.SnapshotStore
	summaries storage.SummaryStore

	now func() time.Time
}

// NewAggregator creates a metrics aggregator over the ledger stores.
func NewAggregator(positions storage.PositionStore, trades storage.TradeStore, snapshots storage.SnapshotStore, summaries storage.SummaryStore) *Aggregator {
	return &Aggregator{
		positions: positions,
		trades:    trades,
		snapshots: snapshots,
		summaries: summaries,
		now:       time.Now,
	}
}

// Recompute loads the full ledger, computes the summary and replaces the
// cached row. Returns the fresh summary.
func (a *Aggregator) Recompute(ctx context.Context) (*domain.PerformanceSummary, error) {
	positions, err := a.positions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	trades, err := a.trades.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	now := a.now().UnixMilli()
	snapshots, err := a.snapshots.GetByTimeRange(ctx, 0, now)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	summary := Compute(positions, trades, snapshots, now)
	if err := a.summaries.Upsert(ctx, summary); err != nil {
		return nil, fmt.Errorf("cache summary: %w", err)
	}
	return summary, nil
}

// Cached returns the last stored summary without recomputing. Returns
// storage.ErrNotFound when nothing was ever cached.
func (a *Aggregator) Cached(ctx context.Context) (*domain.PerformanceSummary, error) {
	return a.summaries.Get(ctx)
}
