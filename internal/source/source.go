// Package source defines the external data-source contracts and the typed
// failure taxonomy shared by all adapters. Normalization happens at the
// adapter boundary: callers never see vendor field names or vendor errors.
package source

import (
	"context"

	"solana-revival-scanner/internal/domain"
)

// Source identifies one external data provider.
type Source string

const (
	BirdEye   Source = "birdeye"
	SolanaRPC Source = "solana-rpc"
	GoPlus    Source = "goplus"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == BirdEye || s == SolanaRPC || s == GoPlus
}

// DiscoverySource lists the token universe and enriches single tokens.
type DiscoverySource interface {
	// ListTokens returns up to limit tokens sorted by liquidity descending,
	// normalized and deduplicated per page. Malformed rows are skipped.
	ListTokens(ctx context.Context, limit int) ([]*domain.Token, error)

	// TokenOverview fetches the enrichment metrics for one token and
	// returns a copy of the token with enrichment fields populated.
	TokenOverview(ctx context.Context, token *domain.Token) (*domain.Token, error)
}

// HistorySource fetches OHLCV history for scoring.
type HistorySource interface {
	PriceHistory(ctx context.Context, address string, granularity domain.Granularity, from, to int64) ([]*domain.Candle, error)
}

// PriceSource fetches current prices for the monitor loop.
type PriceSource interface {
	Price(ctx context.Context, address string) (float64, error)
	Prices(ctx context.Context, addresses []string) (map[string]float64, error)
}

// TraderStat is one entry of a token's top-trader list.
type TraderStat struct {
	Wallet   string
	ValueUSD float64
}

// TraderSource fetches top-trader activity for smart-money scoring.
type TraderSource interface {
	TopTraders(ctx context.Context, address string) ([]TraderStat, error)
}

// AgeSource resolves a mint's on-chain creation time.
type AgeSource interface {
	// TokenAge returns the age in hours at the time of the call.
	TokenAge(ctx context.Context, mint string) (float64, error)
}

// SecuritySource runs the automated scam heuristics for one mint.
type SecuritySource interface {
	Inspect(ctx context.Context, mint string) (*domain.SecurityReport, error)
}

// HolderSource fetches the top holders of a mint for concentration checks.
type HolderSource interface {
	// TopHolderShare returns the fraction of supply held by the top-10
	// holders, excluding off-curve (program-owned) accounts.
	TopHolderShare(ctx context.Context, mint string) (float64, error)
}
