package domain

import "time"

// Granularity is a candle interval supported by the history source.
type Granularity string

const (
	Granularity1H Granularity = "1H"
	Granularity4H Granularity = "4H"
	Granularity1D Granularity = "1D"
)

// String returns the string representation of Granularity.
func (g Granularity) String() string {
	return string(g)
}

// IsValid checks if the granularity is a valid value.
func (g Granularity) IsValid() bool {
	return g == Granularity1H || g == Granularity4H || g == Granularity1D
}

// Duration returns the candle interval length.
func (g Granularity) Duration() time.Duration {
	switch g {
	case Granularity1H:
		return time.Hour
	case Granularity4H:
		return 4 * time.Hour
	case Granularity1D:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Candle is one OHLCV bar of a token's price history.
type Candle struct {
	StartTime int64 // Unix timestamp in milliseconds
	Open      float64
	High      float64
	Low       float64
	Close     float64
	VolumeUSD float64
}
