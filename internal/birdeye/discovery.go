package birdeye

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/solana"
	"solana-revival-scanner/internal/source"
)

const (
	memeListPath = "/defi/v3/token/meme/list"
	overviewPath = "/defi/token_overview"

	// discoveryPageSize is the page size accepted by the meme list endpoint.
	discoveryPageSize = 50

	sortByLiquidity = "liquidity"
)

// memeListResult is the raw meme list payload.
type memeListResult struct {
	Items []memeListItem `json:"items"`
}

type memeListItem struct {
	Address      string  `json:"address"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	PriceUSD     float64 `json:"price"`
	LiquidityUSD float64 `json:"liquidity"`
	MarketCapUSD float64 `json:"market_cap"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
}

// ListTokens walks the meme token list sorted by liquidity descending and
// returns up to limit normalized tokens. Rows with an invalid mint address
// are skipped; a mint appearing on more than one page keeps its first slot
// but the last record wins.
func (c *Client) ListTokens(ctx context.Context, limit int) ([]*domain.Token, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	pages := (limit + discoveryPageSize - 1) / discoveryPageSize
	seen := make(map[string]int, limit)
	out := make([]*domain.Token, 0, limit)
	now := time.Now().UnixMilli()

	for page := 0; page < pages; page++ {
		q := url.Values{}
		q.Set("chain", chainSolana)
		q.Set("sort_by", sortByLiquidity)
		q.Set("sort_type", "desc")
		q.Set("offset", strconv.Itoa(page*discoveryPageSize))
		q.Set("limit", strconv.Itoa(discoveryPageSize))

		var res memeListResult
		if err := c.get(ctx, memeListPath, q, &res); err != nil {
			return nil, err
		}
		if len(res.Items) == 0 {
			break
		}

		for _, item := range res.Items {
			if solana.ValidateAddress(item.Address) != nil {
				continue
			}
			tok := &domain.Token{
				Address:      item.Address,
				Symbol:       item.Symbol,
				Name:         item.Name,
				PriceUSD:     item.PriceUSD,
				LiquidityUSD: item.LiquidityUSD,
				MarketCapUSD: item.MarketCapUSD,
				Volume24hUSD: item.Volume24hUSD,
				DiscoveredAt: now,
			}
			if idx, ok := seen[item.Address]; ok {
				out[idx] = tok
				continue
			}
			seen[item.Address] = len(out)
			out = append(out, tok)
		}

		if len(res.Items) < discoveryPageSize {
			// End of list
			break
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// overviewResult is the raw token overview payload.
type overviewResult struct {
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	PriceUSD        float64 `json:"price"`
	LiquidityUSD    float64 `json:"liquidity"`
	MarketCapUSD    float64 `json:"mc"`
	Volume24hUSD    float64 `json:"v24hUSD"`
	Supply          float64 `json:"supply"`
	Holder          int64   `json:"holder"`
	UniqueWallet24h int64   `json:"uniqueWallet24h"`
	Buy1h           int64   `json:"buy1h"`
	Sell1h          int64   `json:"sell1h"`
	Watch           int64   `json:"watch"`
	View24h         int64   `json:"view24h"`
}

// TokenOverview fetches the overview metrics for one token and returns a
// copy with the enrichment fields filled in. Market fields from the list
// are refreshed when the overview carries a value for them.
func (c *Client) TokenOverview(ctx context.Context, token *domain.Token) (*domain.Token, error) {
	q := url.Values{}
	q.Set("address", token.Address)

	var res overviewResult
	if err := c.get(ctx, overviewPath, q, &res); err != nil {
		return nil, err
	}

	out := *token
	if out.Symbol == "" {
		out.Symbol = res.Symbol
	}
	if out.Name == "" {
		out.Name = res.Name
	}
	if res.PriceUSD > 0 {
		out.PriceUSD = res.PriceUSD
	}
	if res.LiquidityUSD > 0 {
		out.LiquidityUSD = res.LiquidityUSD
	}
	if res.MarketCapUSD > 0 {
		out.MarketCapUSD = res.MarketCapUSD
	}
	if res.Volume24hUSD > 0 {
		out.Volume24hUSD = res.Volume24hUSD
	}

	out.Buys1h = i64(res.Buy1h)
	out.Sells1h = i64(res.Sell1h)
	out.UniqueWallets24h = i64(res.UniqueWallet24h)
	out.Watchers = i64(res.Watch)
	out.Views24h = i64(res.View24h)
	out.Holders = i64(res.Holder)

	if total := res.Buy1h + res.Sell1h; total > 0 {
		out.BuyRatio = f64(float64(res.Buy1h) / float64(total))
	}

	return &out, nil
}

func i64(v int64) *int64 {
	return &v
}

func f64(v float64) *float64 {
	return &v
}

// Compile-time interface check.
var _ source.DiscoverySource = (*Client)(nil)
