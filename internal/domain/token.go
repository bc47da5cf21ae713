package domain

// Token is a normalized market record for a single mint, as returned by the
// discovery source. Enrichment and verification fields stay nil until the
// pipeline stage that produces them has run.
type Token struct {
	Address      string  // mint address, unique key across the pipeline
	Symbol       string
	Name         string
	PriceUSD     float64
	LiquidityUSD float64
	MarketCapUSD float64
	Volume24hUSD float64

	// Set by age verification (stage 3).
	AgeHours *float64

	// Set by the security stage (stage 4). Fraction of supply held by the
	// top-10 holders, excluding off-curve (program-owned) accounts.
	TopHolderShare *float64

	// Enrichment fields, set by the prefilter stage (stage 2).
	Buys1h           *int64
	Sells1h          *int64
	UniqueWallets24h *int64
	Watchers         *int64
	Views24h         *int64
	Holders          *int64
	BuyRatio         *float64 // buys/(buys+sells) over the last hour, in [0,1]

	DiscoveredAt int64 // Unix timestamp in milliseconds
}

// Trades1h returns the hourly trade count when enrichment data is present.
func (t *Token) Trades1h() (int64, bool) {
	if t.Buys1h == nil || t.Sells1h == nil {
		return 0, false
	}
	return *t.Buys1h + *t.Sells1h, true
}

// EstimatedVolume1hUSD estimates hourly volume as 24h volume / 24.
// The discovery source does not expose exact 1h volume on the list endpoint;
// this estimation mode is intentional and documented, not a data defect.
func (t *Token) EstimatedVolume1hUSD() float64 {
	return t.Volume24hUSD / 24
}
