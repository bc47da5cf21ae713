package clickhouse

import (
	"context"
	"fmt"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends a snapshot.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.PortfolioSnapshot) error {
	query := `
		INSERT INTO portfolio_snapshots (
			snapshot_time, cash_usd, open_value_usd, equity_usd, realized_pnl_usd, open_positions
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		uint64(snap.SnapshotTime), snap.CashUSD, snap.OpenValueUSD,
		snap.EquityUSD, snap.RealizedPnLUSD, uint32(snap.OpenPositions),
	)
	if err != nil {
		return fmt.Errorf("insert portfolio snapshot: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot.
func (s *SnapshotStore) GetLatest(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	query := `
		SELECT snapshot_time, cash_usd, open_value_usd, equity_usd, realized_pnl_usd, open_positions
		FROM portfolio_snapshots
		ORDER BY snapshot_time DESC
		LIMIT 1
	`

	row := s.conn.QueryRow(ctx, query)

	var snap domain.PortfolioSnapshot
	var snapshotTime uint64
	var openPositions uint32

	err := row.Scan(
		&snapshotTime, &snap.CashUSD, &snap.OpenValueUSD,
		&snap.EquityUSD, &snap.RealizedPnLUSD, &openPositions,
	)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	snap.SnapshotTime = int64(snapshotTime)
	snap.OpenPositions = int(openPositions)
	return &snap, nil
}

// GetByTimeRange retrieves snapshots within [start, end] (inclusive), ordered
// by snapshot_time ASC.
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.PortfolioSnapshot, error) {
	query := `
		SELECT snapshot_time, cash_usd, open_value_usd, equity_usd, realized_pnl_usd, open_positions
		FROM portfolio_snapshots
		WHERE snapshot_time >= ? AND snapshot_time <= ?
		ORDER BY snapshot_time ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// scanSnapshots scans multiple rows.
func scanSnapshots(rows chRows) ([]*domain.PortfolioSnapshot, error) {
	var snapshots []*domain.PortfolioSnapshot

	for rows.Next() {
		var snap domain.PortfolioSnapshot
		var snapshotTime uint64
		var openPositions uint32

		err := rows.Scan(
			&snapshotTime, &snap.CashUSD, &snap.OpenValueUSD,
			&snap.EquityUSD, &snap.RealizedPnLUSD, &openPositions,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snap.SnapshotTime = int64(snapshotTime)
		snap.OpenPositions = int(openPositions)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}
