package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// SummaryStore implements storage.SummaryStore using PostgreSQL. The summary
// lives in a single row that is replaced on every recomputation.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// Upsert replaces the stored summary.
func (s *SummaryStore) Upsert(ctx context.Context, sum *domain.PerformanceSummary) error {
	if sum == nil {
		return storage.ErrInvalidInput
	}

	byReason, err := json.Marshal(sum.ByReason)
	if err != nil {
		return fmt.Errorf("marshal by_reason: %w", err)
	}

	query := `
		INSERT INTO metrics_summary (
			id, total_trades, wins, losses, win_rate, profit_factor,
			realized_pnl_usd, avg_trade_pnl_usd, sharpe, max_drawdown_pct,
			avg_hold_hours, by_reason, cash_usd, equity_usd, updated_at
		) VALUES (
			1, $1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14
		)
		ON CONFLICT (id) DO UPDATE SET
			total_trades = EXCLUDED.total_trades,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			win_rate = EXCLUDED.win_rate,
			profit_factor = EXCLUDED.profit_factor,
			realized_pnl_usd = EXCLUDED.realized_pnl_usd,
			avg_trade_pnl_usd = EXCLUDED.avg_trade_pnl_usd,
			sharpe = EXCLUDED.sharpe,
			max_drawdown_pct = EXCLUDED.max_drawdown_pct,
			avg_hold_hours = EXCLUDED.avg_hold_hours,
			by_reason = EXCLUDED.by_reason,
			cash_usd = EXCLUDED.cash_usd,
			equity_usd = EXCLUDED.equity_usd,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		sum.TotalTrades, sum.Wins, sum.Losses, sum.WinRate, sum.ProfitFactor,
		sum.RealizedPnLUSD, sum.AvgTradePnLUSD, sum.Sharpe, sum.MaxDrawdownPct,
		sum.AvgHoldHours, byReason, sum.CashUSD, sum.EquityUSD, sum.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

// Get retrieves the stored summary. Returns ErrNotFound if never written.
func (s *SummaryStore) Get(ctx context.Context) (*domain.PerformanceSummary, error) {
	query := `
		SELECT
			total_trades, wins, losses, win_rate, profit_factor,
			realized_pnl_usd, avg_trade_pnl_usd, sharpe, max_drawdown_pct,
			avg_hold_hours, by_reason, cash_usd, equity_usd, updated_at
		FROM metrics_summary
		WHERE id = 1
	`

	var sum domain.PerformanceSummary
	var byReason []byte

	err := s.pool.QueryRow(ctx, query).Scan(
		&sum.TotalTrades, &sum.Wins, &sum.Losses, &sum.WinRate, &sum.ProfitFactor,
		&sum.RealizedPnLUSD, &sum.AvgTradePnLUSD, &sum.Sharpe, &sum.MaxDrawdownPct,
		&sum.AvgHoldHours, &byReason, &sum.CashUSD, &sum.EquityUSD, &sum.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}

	if len(byReason) > 0 {
		if err := json.Unmarshal(byReason, &sum.ByReason); err != nil {
			return nil, fmt.Errorf("unmarshal by_reason: %w", err)
		}
	}

	return &sum, nil
}
