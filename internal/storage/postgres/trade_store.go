package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, position_id, token_address, symbol,
	fraction, quantity, entry_price, exit_price,
	slippage_pct, fee_usd, proceeds_usd, pnl_usd,
	reason, executed_at, remaining_after
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.TradeID == "" || t.PositionID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (` + tradeColumns + `) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.PositionID, t.TokenAddress, t.Symbol,
		t.Fraction, t.Quantity, t.EntryPrice, t.ExitPrice,
		t.SlippagePct, t.FeeUSD, t.ProceedsUSD, t.PnLUSD,
		string(t.Reason), t.ExecutedAt, t.RemainingAfter,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByPositionID retrieves all trades for a position, ordered by executed_at ASC.
func (s *TradeStore) GetByPositionID(ctx context.Context, positionID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE position_id = $1
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("get trades by position id: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByTimeRange retrieves trades executed within [start, end] (inclusive).
func (s *TradeStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE executed_at >= $1 AND executed_at <= $2
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get trades by time range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetAll retrieves every trade, ordered by executed_at ASC.
func (s *TradeStore) GetAll(ctx context.Context) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// Wipe removes every trade.
func (s *TradeStore) Wipe(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM trades`); err != nil {
		return fmt.Errorf("wipe trades: %w", err)
	}
	return nil
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var t domain.Trade
		var reason string

		err := rows.Scan(
			&t.TradeID, &t.PositionID, &t.TokenAddress, &t.Symbol,
			&t.Fraction, &t.Quantity, &t.EntryPrice, &t.ExitPrice,
			&t.SlippagePct, &t.FeeUSD, &t.ProceedsUSD, &t.PnLUSD,
			&reason, &t.ExecutedAt, &t.RemainingAfter,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		t.Reason = domain.ExitReason(reason)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
