package clickhouse

import (
	"context"
	"fmt"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// FunnelStore implements storage.FunnelStore using ClickHouse.
type FunnelStore struct {
	conn *Conn
}

// NewFunnelStore creates a new FunnelStore.
func NewFunnelStore(conn *Conn) *FunnelStore {
	return &FunnelStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FunnelStore = (*FunnelStore)(nil)

// InsertBulk appends the stage stats of one scan.
func (s *FunnelStore) InsertBulk(ctx context.Context, stats []*domain.FunnelStat) error {
	if len(stats) == 0 {
		return nil
	}

	for _, st := range stats {
		if !st.Phase.IsValid() {
			return fmt.Errorf("%w: unknown phase %d", storage.ErrInvalidInput, int(st.Phase))
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO funnel_stats (
			scan_id, phase, survivor_count, survivors, recorded_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, st := range stats {
		survivors := st.Survivors
		if survivors == nil {
			survivors = []string{}
		}
		err = batch.Append(
			st.ScanID, uint8(st.Phase), uint32(st.SurvivorCount),
			survivors, uint64(st.RecordedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByScanID retrieves the stats of one scan in funnel order.
func (s *FunnelStore) GetByScanID(ctx context.Context, scanID string) ([]*domain.FunnelStat, error) {
	query := `
		SELECT scan_id, phase, survivor_count, survivors, recorded_at
		FROM funnel_stats
		WHERE scan_id = ?
		ORDER BY phase ASC
	`

	rows, err := s.conn.Query(ctx, query, scanID)
	if err != nil {
		return nil, fmt.Errorf("query by scan id: %w", err)
	}
	defer rows.Close()

	return scanFunnelStats(rows)
}

// GetRecent retrieves stats of the most recent scans, newest first, capped at
// limit rows.
func (s *FunnelStore) GetRecent(ctx context.Context, limit int) ([]*domain.FunnelStat, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidInput)
	}

	query := `
		SELECT scan_id, phase, survivor_count, survivors, recorded_at
		FROM funnel_stats
		ORDER BY recorded_at DESC, phase DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	return scanFunnelStats(rows)
}

// scanFunnelStats scans multiple rows.
func scanFunnelStats(rows chRows) ([]*domain.FunnelStat, error) {
	var stats []*domain.FunnelStat

	for rows.Next() {
		var st domain.FunnelStat
		var phase uint8
		var survivorCount uint32
		var recordedAt uint64

		err := rows.Scan(
			&st.ScanID, &phase, &survivorCount, &st.Survivors, &recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan funnel stat row: %w", err)
		}

		st.Phase = domain.Phase(phase)
		st.SurvivorCount = int(survivorCount)
		st.RecordedAt = int64(recordedAt)
		stats = append(stats, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate funnel stat rows: %w", err)
	}

	return stats, nil
}
