package domain

// ExitReasonStats aggregates closed-trade outcomes for one exit reason.
type ExitReasonStats struct {
	Trades int
	PnLUSD float64
}

// PerformanceSummary is the cached portfolio metrics record, recomputed after
// trading activity and persisted so dashboards do not replay trade history.
// Corresponds to the metrics_summary table in PostgreSQL (single row, replaced).
type PerformanceSummary struct {
	TotalTrades    int
	Wins           int
	Losses         int
	WinRate        float64 // wins / total, 0 when no trades
	ProfitFactor   float64 // gross profit / gross loss, 0 when no losing trades
	RealizedPnLUSD float64
	AvgTradePnLUSD float64
	Sharpe         float64 // mean/stddev of per-trade returns, not annualized
	MaxDrawdownPct float64 // worst peak-to-trough equity decline, in [0,1]
	AvgHoldHours   float64

	ByReason map[ExitReason]ExitReasonStats

	CashUSD   float64
	EquityUSD float64
	UpdatedAt int64
}
