package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	id, token_address, symbol,
	entry_price, entry_time, size_usd, entry_fee_usd, quantity,
	remaining_fraction, status, realized_pnl_usd, exit_reason,
	entry_score, fired_tiers, exit_retries, closed_at, updated_at
`

// Insert adds a new position. Returns ErrDuplicateKey if the ID exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (` + positionColumns + `) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16, $17
		)
	`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.TokenAddress, p.Symbol,
		p.EntryPrice, p.EntryTime, p.SizeUSD, p.EntryFeeUSD, p.Quantity,
		p.RemainingFraction, string(p.Status), p.RealizedPnLUSD, reasonToDB(p.ExitReason),
		p.EntryScore, tiersToDB(p.FiredTiers), p.ExitRetries, p.ClosedAt, p.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// Update replaces a stored position. Returns ErrNotFound if not exists.
func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE positions SET
			token_address = $2, symbol = $3,
			entry_price = $4, entry_time = $5, size_usd = $6, entry_fee_usd = $7, quantity = $8,
			remaining_fraction = $9, status = $10, realized_pnl_usd = $11, exit_reason = $12,
			entry_score = $13, fired_tiers = $14, exit_retries = $15, closed_at = $16, updated_at = $17
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.TokenAddress, p.Symbol,
		p.EntryPrice, p.EntryTime, p.SizeUSD, p.EntryFeeUSD, p.Quantity,
		p.RemainingFraction, string(p.Status), p.RealizedPnLUSD, reasonToDB(p.ExitReason),
		p.EntryScore, tiersToDB(p.FiredTiers), p.ExitRetries, p.ClosedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// GetOpen retrieves positions with status OPEN or PARTIALLY_CLOSED, ordered
// by entry_time ASC.
func (s *PositionStore) GetOpen(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status IN ($1, $2)
		ORDER BY entry_time ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query,
		string(domain.PositionOpen), string(domain.PositionPartiallyClosed))
	if err != nil {
		return nil, fmt.Errorf("get open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetAll retrieves every position, ordered by entry_time ASC.
func (s *PositionStore) GetAll(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		ORDER BY entry_time ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// Wipe removes every position.
func (s *PositionStore) Wipe(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("wipe positions: %w", err)
	}
	return nil
}

// scanPosition scans a single row into a Position.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var status string
	var exitReason *string
	var tiers []int32

	err := row.Scan(
		&p.ID, &p.TokenAddress, &p.Symbol,
		&p.EntryPrice, &p.EntryTime, &p.SizeUSD, &p.EntryFeeUSD, &p.Quantity,
		&p.RemainingFraction, &status, &p.RealizedPnLUSD, &exitReason,
		&p.EntryScore, &tiers, &p.ExitRetries, &p.ClosedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PositionStatus(status)
	p.ExitReason = reasonFromDB(exitReason)
	p.FiredTiers = tiersFromDB(tiers)
	return &p, nil
}

// scanPositions scans multiple rows into a slice of Position.
func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position

	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}

	return positions, nil
}

func reasonToDB(r *domain.ExitReason) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

func reasonFromDB(s *string) *domain.ExitReason {
	if s == nil {
		return nil
	}
	r := domain.ExitReason(*s)
	return &r
}

func tiersToDB(tiers []int) []int32 {
	out := make([]int32, len(tiers))
	for i, t := range tiers {
		out[i] = int32(t)
	}
	return out
}

func tiersFromDB(tiers []int32) []int {
	if len(tiers) == 0 {
		return nil
	}
	out := make([]int, len(tiers))
	for i, t := range tiers {
		out[i] = int(t)
	}
	return out
}
