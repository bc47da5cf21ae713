package birdeye

import (
	"context"
	"net/url"

	"solana-revival-scanner/internal/source"
)

const (
	topTradersPath = "/defi/v2/tokens/top_traders"

	// topTradersCap bounds how many traders the whale analysis looks at.
	topTradersCap = 20
)

// tradersResult is the raw top traders payload.
type tradersResult struct {
	Items []traderItem `json:"items"`
}

type traderItem struct {
	Owner    string  `json:"owner"`
	ValueUSD float64 `json:"value_usd"`
}

// TopTraders returns the top traders of a token by position value, capped at
// the first 20 entries.
func (c *Client) TopTraders(ctx context.Context, address string) ([]source.TraderStat, error) {
	q := url.Values{}
	q.Set("address", address)

	var res tradersResult
	if err := c.get(ctx, topTradersPath, q, &res); err != nil {
		return nil, err
	}

	items := res.Items
	if len(items) > topTradersCap {
		items = items[:topTradersCap]
	}

	out := make([]source.TraderStat, 0, len(items))
	for _, item := range items {
		out = append(out, source.TraderStat{
			Wallet:   item.Owner,
			ValueUSD: item.ValueUSD,
		})
	}
	return out, nil
}

// Compile-time interface check.
var _ source.TraderSource = (*Client)(nil)
