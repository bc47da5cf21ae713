package clickhouse

import (
	"context"
	"fmt"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// ScoreStore implements storage.ScoreStore using ClickHouse.
type ScoreStore struct {
	conn *Conn
}

// NewScoreStore creates a new ScoreStore.
func NewScoreStore(conn *Conn) *ScoreStore {
	return &ScoreStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoreStore = (*ScoreStore)(nil)

// InsertBulk appends the scores of one scan.
func (s *ScoreStore) InsertBulk(ctx context.Context, scores []*domain.ScoreSnapshot) error {
	if len(scores) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO score_snapshots (
			scan_id, token_address, symbol,
			price_score, smart_money_score, volume_score, social_score, composite_score,
			security_flagged, scored_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sc := range scores {
		err = batch.Append(
			sc.ScanID, sc.TokenAddress, sc.Symbol,
			sc.PriceScore, sc.SmartMoneyScore, sc.VolumeScore, sc.SocialScore, sc.CompositeScore,
			boolToUint8(sc.SecurityFlagged), uint64(sc.ScoredAt),
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

// GetByToken retrieves score history for a token, ordered by scored_at ASC.
func (s *ScoreStore) GetByToken(ctx context.Context, address string) ([]*domain.ScoreSnapshot, error) {
	query := `
		SELECT scan_id, token_address, symbol,
			price_score, smart_money_score, volume_score, social_score, composite_score,
			security_flagged, scored_at
		FROM score_snapshots
		WHERE token_address = ?
		ORDER BY scored_at ASC
	`

	rows, err := s.conn.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanScoreSnapshots(rows)
}

// GetByScanID retrieves all scores of one scan, best composite first.
func (s *ScoreStore) GetByScanID(ctx context.Context, scanID string) ([]*domain.ScoreSnapshot, error) {
	query := `
		SELECT scan_id, token_address, symbol,
			price_score, smart_money_score, volume_score, social_score, composite_score,
			security_flagged, scored_at
		FROM score_snapshots
		WHERE scan_id = ?
		ORDER BY composite_score DESC, token_address ASC
	`

	rows, err := s.conn.Query(ctx, query, scanID)
	if err != nil {
		return nil, fmt.Errorf("query by scan id: %w", err)
	}
	defer rows.Close()

	return scanScoreSnapshots(rows)
}

// scanScoreSnapshots scans multiple rows.
func scanScoreSnapshots(rows chRows) ([]*domain.ScoreSnapshot, error) {
	var scores []*domain.ScoreSnapshot

	for rows.Next() {
		var sc domain.ScoreSnapshot
		var securityFlagged uint8
		var scoredAt uint64

		err := rows.Scan(
			&sc.ScanID, &sc.TokenAddress, &sc.Symbol,
			&sc.PriceScore, &sc.SmartMoneyScore, &sc.VolumeScore, &sc.SocialScore, &sc.CompositeScore,
			&securityFlagged, &scoredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan score snapshot row: %w", err)
		}

		sc.SecurityFlagged = securityFlagged != 0
		sc.ScoredAt = int64(scoredAt)
		scores = append(scores, &sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score snapshot rows: %w", err)
	}

	return scores, nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
