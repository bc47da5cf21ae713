package storage

import (
	"context"

	"solana-revival-scanner/internal/domain"
)

// PositionStore provides access to positions storage. Positions are the only
// mutable records in the ledger; everything else is append-only.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, p *domain.Position) error

	// Update replaces a stored position. Returns ErrNotFound if not exists.
	Update(ctx context.Context, p *domain.Position) error

	// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Position, error)

	// GetOpen retrieves positions with status OPEN or PARTIALLY_CLOSED,
	// ordered by entry_time ASC.
	GetOpen(ctx context.Context) ([]*domain.Position, error)

	// GetAll retrieves every position, ordered by entry_time ASC.
	GetAll(ctx context.Context) ([]*domain.Position, error)

	// Wipe removes every position. Used by the portfolio reset operation;
	// cash recovery replays the ledger, so resetting means truncating it.
	Wipe(ctx context.Context) error
}

// TradeStore provides access to trades storage. Trades are append-only; a
// replayed close attempt surfaces as ErrDuplicateKey and is treated as
// already recorded.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// GetByPositionID retrieves all trades for a position, ordered by
	// executed_at ASC.
	GetByPositionID(ctx context.Context, positionID string) ([]*domain.Trade, error)

	// GetByTimeRange retrieves trades executed within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Trade, error)

	// GetAll retrieves every trade, ordered by executed_at ASC.
	GetAll(ctx context.Context) ([]*domain.Trade, error)

	// Wipe removes every trade. Used by the portfolio reset operation.
	Wipe(ctx context.Context) error
}

// SummaryStore holds the cached performance summary, a single row replaced
// on every recomputation.
type SummaryStore interface {
	// Upsert replaces the stored summary.
	Upsert(ctx context.Context, s *domain.PerformanceSummary) error

	// Get retrieves the stored summary. Returns ErrNotFound if never written.
	Get(ctx context.Context) (*domain.PerformanceSummary, error)
}

// SnapshotStore provides access to portfolio_snapshots storage (append-only
// timeseries, one row per monitor cycle).
type SnapshotStore interface {
	// Insert appends a snapshot.
	Insert(ctx context.Context, s *domain.PortfolioSnapshot) error

	// GetLatest retrieves the most recent snapshot. Returns ErrNotFound if
	// none exist.
	GetLatest(ctx context.Context) (*domain.PortfolioSnapshot, error)

	// GetByTimeRange retrieves snapshots within [start, end] (inclusive),
	// ordered by snapshot_time ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.PortfolioSnapshot, error)
}

// ScoreStore provides access to score_snapshots storage (append-only, one
// row per scored token per scan).
type ScoreStore interface {
	// InsertBulk appends the scores of one scan.
	InsertBulk(ctx context.Context, scores []*domain.ScoreSnapshot) error

	// GetByToken retrieves score history for a token, ordered by scored_at ASC.
	GetByToken(ctx context.Context, address string) ([]*domain.ScoreSnapshot, error)

	// GetByScanID retrieves all scores of one scan, ordered by composite DESC.
	GetByScanID(ctx context.Context, scanID string) ([]*domain.ScoreSnapshot, error)
}

// FunnelStore provides access to funnel_stats storage (append-only, one row
// per pipeline stage per scan).
type FunnelStore interface {
	// InsertBulk appends the stage stats of one scan.
	InsertBulk(ctx context.Context, stats []*domain.FunnelStat) error

	// GetByScanID retrieves the stats of one scan, ordered by stage.
	GetByScanID(ctx context.Context, scanID string) ([]*domain.FunnelStat, error)

	// GetRecent retrieves stats of the most recent scans, newest first,
	// capped at limit rows.
	GetRecent(ctx context.Context, limit int) ([]*domain.FunnelStat, error)
}
