// Package scoring computes the four-factor revival score: price pattern,
// smart money, volume and social engagement, mixed by fixed weights into a
// composite in [0,1]. The pattern analysis covers the token's whole fetched
// lifetime with a granularity picked by age, not just a recent window.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"solana-revival-scanner/internal/cache"
	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/source"
)

// DefaultCacheTTL bounds how long a computed score is reused when the same
// token reappears across scan cycles.
const DefaultCacheTTL = 5 * time.Minute

// defaultAgeHours stands in when a token reaches scoring without verified
// age.
const defaultAgeHours = 72

const scoreKeyPrefix = "score:"

// Weights holds the composite mix. The four weights are expected to sum
// to 1.
type Weights struct {
	Price      float64
	SmartMoney float64
	Volume     float64
	Social     float64
}

// DefaultWeights returns the production composite mix.
func DefaultWeights() Weights {
	return Weights{
		Price:      0.60,
		SmartMoney: 0.15,
		Volume:     0.15,
		Social:     0.10,
	}
}

// Engine scores tokens against the revival profile. Safe for concurrent use
// as long as the cache implementation is.
type Engine struct {
	history source.HistorySource
	traders source.TraderSource
	cache   cache.Cache

	weights  Weights
	whaleUSD float64
	ttl      time.Duration
	log      zerolog.Logger
}

// Option configures Engine.
type Option func(*Engine)

// WithWeights overrides the composite mix.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		e.weights = w
	}
}

// WithWhaleThreshold overrides the smart-money position value floor.
func WithWhaleThreshold(usd float64) Option {
	return func(e *Engine) {
		e.whaleUSD = usd
	}
}

// WithCacheTTL overrides how long scores are reused.
func WithCacheTTL(d time.Duration) Option {
	return func(e *Engine) {
		e.ttl = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = logger
	}
}

// NewEngine creates a scoring engine. scores should be a bounded cache; the
// engine writes one entry per scored address.
func NewEngine(history source.HistorySource, traders source.TraderSource, scores cache.Cache, opts ...Option) *Engine {
	e := &Engine{
		history:  history,
		traders:  traders,
		cache:    scores,
		weights:  DefaultWeights(),
		whaleUSD: DefaultWhaleThresholdUSD,
		ttl:      DefaultCacheTTL,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score computes the weighted revival score for a token. Results are cached
// by address for the configured TTL. Vendor trouble on the history or trader
// feeds zeroes that component rather than failing the token; only context
// cancellation aborts.
func (e *Engine) Score(ctx context.Context, token *domain.Token) (domain.ScoreBreakdown, error) {
	key := scoreKeyPrefix + token.Address
	if raw, ok := e.cache.Get(ctx, key); ok {
		var cached domain.ScoreBreakdown
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		e.cache.Delete(ctx, key)
	}

	age := float64(defaultAgeHours)
	if token.AgeHours != nil {
		age = *token.AgeHours
	}

	granularity := GranularityForAge(age)
	to := time.Now().Unix()
	from := to - int64(HistoryDays(age))*24*3600

	priceScore := 0.0
	candles, err := e.history.PriceHistory(ctx, token.Address, granularity, from, to)
	switch {
	case err == nil:
		var detail PatternDetail
		priceScore, detail = PatternScore(candles)
		e.log.Debug().
			Str("address", token.Address).
			Float64("dump", detail.DumpSeverity).
			Float64("recovery", detail.RecoveryRatio).
			Bool("higher_lows", detail.HigherLows).
			Float64("volume_increase", detail.VolumeIncrease).
			Int("candles", detail.Candles).
			Msg("price pattern analyzed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.ScoreBreakdown{}, err
	default:
		e.log.Warn().Err(err).Str("address", token.Address).
			Msg("price history unavailable, pattern scores zero")
	}

	smartScore := 0.0
	traders, err := e.traders.TopTraders(ctx, token.Address)
	switch {
	case err == nil:
		var whales int
		smartScore, whales = SmartMoneyScore(traders, e.whaleUSD)
		e.log.Debug().
			Str("address", token.Address).
			Int("whales", whales).
			Msg("smart money analyzed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.ScoreBreakdown{}, err
	default:
		e.log.Warn().Err(err).Str("address", token.Address).
			Msg("top traders unavailable, smart money scores zero")
	}

	breakdown := domain.ScoreBreakdown{
		Price:      priceScore,
		SmartMoney: smartScore,
		Volume:     VolumeScore(token),
		Social:     SocialScore(token),
	}
	breakdown.Composite = clamp01(
		breakdown.Price*e.weights.Price +
			breakdown.SmartMoney*e.weights.SmartMoney +
			breakdown.Volume*e.weights.Volume +
			breakdown.Social*e.weights.Social)

	if raw, err := json.Marshal(breakdown); err == nil {
		e.cache.Set(ctx, key, raw, e.ttl)
	}

	return breakdown, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
