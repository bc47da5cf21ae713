package domain

// Trade is the immutable record of one exit slice.
// Corresponds to the trades table in PostgreSQL (append-only).
type Trade struct {
	TradeID      string // PRIMARY KEY, deterministic hash
	PositionID   string
	TokenAddress string
	Symbol       string

	// Fraction of the position's remaining quantity closed by this slice.
	Fraction float64
	Quantity float64 // tokens sold

	EntryPrice  float64
	ExitPrice   float64 // actual fill after exit slippage
	SlippagePct float64 // slippage fraction applied to the exit fill
	FeeUSD      float64
	ProceedsUSD float64 // cash returned after fee
	PnLUSD      float64 // realized for this slice, net of exit fee

	Reason     ExitReason
	ExecutedAt int64 // Unix timestamp in milliseconds

	// RemainingAfter is the position's remaining fraction after this slice,
	// recorded to make trade history replayable on its own.
	RemainingAfter float64
}
