package birdeye

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"solana-revival-scanner/internal/source"
)

const (
	pricePath      = "/defi/price"
	multiPricePath = "/defi/multi_price"

	// priceBatchSize is the address cap per multi_price request.
	priceBatchSize = 100
)

// priceResult is the raw price payload, shared by both price endpoints.
type priceResult struct {
	Value          float64 `json:"value"`
	UpdateUnixTime int64   `json:"updateUnixTime"`
}

// Price fetches the current USD price for one mint.
func (c *Client) Price(ctx context.Context, address string) (float64, error) {
	q := url.Values{}
	q.Set("address", address)

	var res priceResult
	if err := c.get(ctx, pricePath, q, &res); err != nil {
		return 0, err
	}
	if res.Value <= 0 {
		return 0, source.Malformed(source.BirdEye, fmt.Errorf("no price for %s", address))
	}
	return res.Value, nil
}

// Prices fetches current USD prices for a batch of mints. Mints the provider
// does not know are absent from the result rather than reported as errors.
func (c *Client) Prices(ctx context.Context, addresses []string) (map[string]float64, error) {
	out := make(map[string]float64, len(addresses))

	for start := 0; start < len(addresses); start += priceBatchSize {
		end := start + priceBatchSize
		if end > len(addresses) {
			end = len(addresses)
		}

		q := url.Values{}
		q.Set("list_address", strings.Join(addresses[start:end], ","))

		var res map[string]*priceResult
		if err := c.get(ctx, multiPricePath, q, &res); err != nil {
			return nil, err
		}
		for addr, p := range res {
			if p == nil || p.Value <= 0 {
				continue
			}
			out[addr] = p.Value
		}
	}

	return out, nil
}

// Compile-time interface check.
var _ source.PriceSource = (*Client)(nil)
