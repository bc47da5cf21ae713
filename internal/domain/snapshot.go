package domain

// PortfolioSnapshot captures portfolio state at the end of a monitor cycle.
// Corresponds to the portfolio_snapshots table in ClickHouse (append-only).
type PortfolioSnapshot struct {
	SnapshotTime   int64   // Unix timestamp in milliseconds
	CashUSD        float64
	OpenValueUSD   float64 // mark-to-market value of open positions
	EquityUSD      float64 // CashUSD + OpenValueUSD
	RealizedPnLUSD float64 // cumulative, fees included
	OpenPositions  int
}
