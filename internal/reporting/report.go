package reporting

import (
	"time"

	"solana-revival-scanner/internal/domain"
)

// Report is the assembled paper trading report.
type Report struct {
	GeneratedAt time.Time

	// Summary is recomputed from the ledger at generation time.
	Summary *domain.PerformanceSummary

	// OpenPositions holds every OPEN and PARTIALLY_CLOSED position,
	// oldest first.
	OpenPositions []PositionRow

	// Trades is the full trade ledger in execution order.
	Trades []TradeRow

	// Funnel holds per-scan stage survivor counts, newest scan first.
	Funnel []FunnelRow

	// Scores of the most recent scan, composite descending. Empty when no
	// scan has run yet.
	LatestScanID string
	Scores       []*domain.ScoreSnapshot
}

// PositionRow is one open position in the report.
type PositionRow struct {
	Symbol            string
	TokenAddress      string
	Status            string
	EntryPrice        float64
	SizeUSD           float64
	RemainingFraction float64
	RealizedPnLUSD    float64
	EntryScore        float64
	HeldHours         float64
}

// TradeRow is one ledger trade in the report.
type TradeRow struct {
	TradeID      string
	PositionID   string
	ExecutedAt   int64 // Unix ms
	Symbol       string
	TokenAddress string
	Reason       string
	Fraction     float64
	Quantity     float64
	EntryPrice   float64
	ExitPrice    float64
	FeeUSD       float64
	ProceedsUSD  float64
	PnLUSD       float64
}

// FunnelRow is one scan's per-stage survivor counts.
type FunnelRow struct {
	ScanID          string
	RecordedAt      int64 // Unix ms
	Discovered      int
	Prefiltered     int
	AgeVerified     int
	SecurityChecked int
	Scored          int
}
