package birdeye

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/source"
)

const ohlcvPath = "/defi/ohlcv"

// ohlcvResult is the raw OHLCV payload. Candle timestamps are Unix seconds.
type ohlcvResult struct {
	Items []ohlcvItem `json:"items"`
}

type ohlcvItem struct {
	UnixTime int64   `json:"unixTime"`
	Open     float64 `json:"o"`
	High     float64 `json:"h"`
	Low      float64 `json:"l"`
	Close    float64 `json:"c"`
	Volume   float64 `json:"v"`
}

// PriceHistory fetches OHLCV candles for the window [from, to], both Unix
// seconds, and returns them in ascending time order.
func (c *Client) PriceHistory(ctx context.Context, address string, granularity domain.Granularity, from, to int64) ([]*domain.Candle, error) {
	if !granularity.IsValid() {
		return nil, fmt.Errorf("invalid granularity %q", granularity)
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("type", granularity.String())
	q.Set("currency", "usd")
	q.Set("time_from", strconv.FormatInt(from, 10))
	q.Set("time_to", strconv.FormatInt(to, 10))

	var res ohlcvResult
	if err := c.get(ctx, ohlcvPath, q, &res); err != nil {
		return nil, err
	}

	out := make([]*domain.Candle, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, &domain.Candle{
			StartTime: item.UnixTime * 1000,
			Open:      item.Open,
			High:      item.High,
			Low:       item.Low,
			Close:     item.Close,
			VolumeUSD: item.Volume,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

// Compile-time interface check.
var _ source.HistorySource = (*Client)(nil)
