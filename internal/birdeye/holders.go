package birdeye

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"solana-revival-scanner/internal/solana"
	"solana-revival-scanner/internal/source"
)

const (
	holdersPath = "/defi/v3/token/holder"

	// topHolderCount is how many holders enter the concentration check.
	topHolderCount = 10
)

// holderResult is the raw holder list payload.
type holderResult struct {
	Items []holderItem `json:"items"`
}

type holderItem struct {
	Owner    string  `json:"owner"`
	UIAmount float64 `json:"uiAmount"`
}

// TopHolderShare returns the fraction of total supply held by the top-10
// holders. Program-derived owners (AMM pools, lockers, vaults) sit off the
// ed25519 curve and are excluded; they are liquidity, not holders.
func (c *Client) TopHolderShare(ctx context.Context, mint string) (float64, error) {
	q := url.Values{}
	q.Set("address", mint)
	q.Set("offset", "0")
	q.Set("limit", strconv.Itoa(topHolderCount))

	var res holderResult
	if err := c.get(ctx, holdersPath, q, &res); err != nil {
		return 0, err
	}
	if len(res.Items) == 0 {
		return 0, source.Malformed(source.BirdEye, fmt.Errorf("no holder data for %s", mint))
	}

	q = url.Values{}
	q.Set("address", mint)

	var overview overviewResult
	if err := c.get(ctx, overviewPath, q, &overview); err != nil {
		return 0, err
	}
	if overview.Supply <= 0 {
		return 0, source.Malformed(source.BirdEye, fmt.Errorf("no supply for %s", mint))
	}

	var held float64
	for _, h := range res.Items {
		if !solana.IsOnCurve(h.Owner) {
			continue
		}
		held += h.UIAmount
	}

	share := held / overview.Supply
	if share > 1 {
		share = 1
	}
	return share, nil
}

// Compile-time interface check.
var _ source.HolderSource = (*Client)(nil)
