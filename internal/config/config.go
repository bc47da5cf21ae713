// Package config holds every tunable of the scanner in one struct with
// defaults matching the production deployment. A YAML file can overlay any
// subset of fields; endpoints, API keys and DSNs stay on command flags.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Discovery DiscoveryConfig `yaml:"discovery"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Paper     PaperConfig     `yaml:"paper"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Sources   SourcesConfig   `yaml:"sources"`
}

// DiscoveryConfig bounds the scan funnel.
type DiscoveryConfig struct {
	UniverseSize      int     `yaml:"universe_size"`        // tokens pulled from the discovery source per scan
	MinLiquidityUSD   float64 `yaml:"min_liquidity_usd"`    // prefilter floor
	MaxMarketCapUSD   float64 `yaml:"max_market_cap_usd"`   // prefilter ceiling
	MinVolume1hUSD    float64 `yaml:"min_volume_1h_usd"`    // estimated from 24h volume / 24
	MinAgeHours       float64 `yaml:"min_age_hours"`        // tokens younger than this are rejected
	MaxAgeHours       float64 `yaml:"max_age_hours"`        // tokens older than this are rejected
	MaxTopHolderShare float64 `yaml:"max_top_holder_share"` // top-10 holder fraction ceiling
	MaxCandidates     int     `yaml:"max_candidates"`       // tokens entering the scoring stage
	SecurityWorkers   int     `yaml:"security_workers"`     // concurrent security inspections
	ScanIntervalSecs  int     `yaml:"scan_interval_secs"`   // continuous mode scan period
}

// ScoringConfig holds the composite weights and score cache sizing.
type ScoringConfig struct {
	WeightPrice       float64 `yaml:"weight_price"`
	WeightSmartMoney  float64 `yaml:"weight_smart_money"`
	WeightVolume      float64 `yaml:"weight_volume"`
	WeightSocial      float64 `yaml:"weight_social"`
	WhaleThresholdUSD float64 `yaml:"whale_threshold_usd"` // trader volume counting as smart money
	CacheTTLSecs      int     `yaml:"cache_ttl_secs"`
	CacheSize         int     `yaml:"cache_size"`
}

// TakeProfitTier describes one rung of the profit ladder. TriggerPct is the
// gain over entry that arms the tier; SellFraction is the share of the
// remaining position sold when it fires.
type TakeProfitTier struct {
	TriggerPct   float64 `yaml:"trigger_pct"`
	SellFraction float64 `yaml:"sell_fraction"`
}

// PaperConfig drives the simulated portfolio.
type PaperConfig struct {
	StartingCashUSD       float64          `yaml:"starting_cash_usd"`
	PositionSizeUSD       float64          `yaml:"position_size_usd"`
	MaxPositions          int              `yaml:"max_positions"`
	MinEntryScore         float64          `yaml:"min_entry_score"`
	StopLossPct           float64          `yaml:"stop_loss_pct"`
	TakeProfits           []TakeProfitTier `yaml:"take_profits"`
	MaxHoldHours          float64          `yaml:"max_hold_hours"`
	EntrySlippagePct      float64          `yaml:"entry_slippage_pct"`
	ProfitSlippagePct     float64          `yaml:"profit_slippage_pct"`
	StopSlippagePct       float64          `yaml:"stop_slippage_pct"`
	FeePct                float64          `yaml:"fee_pct"`
	FailedExitProbability float64          `yaml:"failed_exit_probability"`
	MaxExitRetries        int              `yaml:"max_exit_retries"` // stop-loss failures tolerated before forced close
}

// MonitorConfig drives the position monitor loop.
type MonitorConfig struct {
	IntervalSecs int `yaml:"interval_secs"`
}

// SourceBudget is the request budget for one external source.
type SourceBudget struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CircuitConfig tunes the breaker wrapped around HTTP sources.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold"` // consecutive failures to open circuit
	SuccessThreshold int `yaml:"success_threshold"` // successes needed to close circuit
	TimeoutMS        int `yaml:"timeout_ms"`        // open-state probe delay
}

// SourcesConfig holds per-source budgets and shared source behavior.
type SourcesConfig struct {
	BirdEye         SourceBudget  `yaml:"birdeye"`
	SolanaRPC       SourceBudget  `yaml:"solana_rpc"`
	GoPlus          SourceBudget  `yaml:"goplus"`
	Circuit         CircuitConfig `yaml:"circuit"`
	AgeCacheTTLSecs int           `yaml:"age_cache_ttl_secs"`
}

// Default returns the configuration used in production. All values mirror
// the deployed scanner.
func Default() Config {
	return Config{
		Discovery: DiscoveryConfig{
			UniverseSize:      1000,
			MinLiquidityUSD:   20_000,
			MaxMarketCapUSD:   30_000_000,
			MinVolume1hUSD:    500,
			MinAgeHours:       72,
			MaxAgeHours:       4320,
			MaxTopHolderShare: 0.30,
			MaxCandidates:     20,
			SecurityWorkers:   3,
			ScanIntervalSecs:  7200,
		},
		Scoring: ScoringConfig{
			WeightPrice:       0.60,
			WeightSmartMoney:  0.15,
			WeightVolume:      0.15,
			WeightSocial:      0.10,
			WhaleThresholdUSD: 100_000,
			CacheTTLSecs:      300,
			CacheSize:         2048,
		},
		Paper: PaperConfig{
			StartingCashUSD: 10_000,
			PositionSizeUSD: 1_000,
			MaxPositions:    10,
			MinEntryScore:   0.4,
			StopLossPct:     0.20,
			TakeProfits: []TakeProfitTier{
				{TriggerPct: 0.35, SellFraction: 0.40},
				{TriggerPct: 0.75, SellFraction: 0.30},
			},
			MaxHoldHours:          120,
			EntrySlippagePct:      0.02,
			ProfitSlippagePct:     0.02,
			StopSlippagePct:       0.10,
			FeePct:                0.0006,
			FailedExitProbability: 0.05,
			MaxExitRetries:        3,
		},
		Monitor: MonitorConfig{
			IntervalSecs: 30,
		},
		Sources: SourcesConfig{
			BirdEye:   SourceBudget{RPS: 1, Burst: 2},
			SolanaRPC: SourceBudget{RPS: 10, Burst: 10},
			GoPlus:    SourceBudget{RPS: 1, Burst: 1},
			Circuit: CircuitConfig{
				FailureThreshold: 5,
				SuccessThreshold: 2,
				TimeoutMS:        30_000,
			},
			AgeCacheTTLSecs: 86_400,
		},
	}
}

// Load reads a YAML file and overlays it on the defaults. Fields absent from
// the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate ensures the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.Discovery.validate(); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if err := c.Scoring.validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Paper.validate(); err != nil {
		return fmt.Errorf("paper: %w", err)
	}
	if c.Monitor.IntervalSecs <= 0 {
		return fmt.Errorf("monitor: interval_secs must be positive, got %d", c.Monitor.IntervalSecs)
	}
	if err := c.Sources.validate(); err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	return nil
}

func (d *DiscoveryConfig) validate() error {
	if d.UniverseSize <= 0 {
		return fmt.Errorf("universe_size must be positive, got %d", d.UniverseSize)
	}
	if d.MinLiquidityUSD < 0 {
		return fmt.Errorf("min_liquidity_usd cannot be negative, got %f", d.MinLiquidityUSD)
	}
	if d.MaxMarketCapUSD <= 0 {
		return fmt.Errorf("max_market_cap_usd must be positive, got %f", d.MaxMarketCapUSD)
	}
	if d.MinVolume1hUSD < 0 {
		return fmt.Errorf("min_volume_1h_usd cannot be negative, got %f", d.MinVolume1hUSD)
	}
	if d.MinAgeHours <= 0 || d.MaxAgeHours <= d.MinAgeHours {
		return fmt.Errorf("age window [%f, %f] must satisfy 0 < min < max", d.MinAgeHours, d.MaxAgeHours)
	}
	if d.MaxTopHolderShare <= 0 || d.MaxTopHolderShare > 1 {
		return fmt.Errorf("max_top_holder_share must be in (0, 1], got %f", d.MaxTopHolderShare)
	}
	if d.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be positive, got %d", d.MaxCandidates)
	}
	if d.SecurityWorkers <= 0 {
		return fmt.Errorf("security_workers must be positive, got %d", d.SecurityWorkers)
	}
	if d.ScanIntervalSecs <= 0 {
		return fmt.Errorf("scan_interval_secs must be positive, got %d", d.ScanIntervalSecs)
	}
	return nil
}

func (s *ScoringConfig) validate() error {
	for name, w := range map[string]float64{
		"weight_price":       s.WeightPrice,
		"weight_smart_money": s.WeightSmartMoney,
		"weight_volume":      s.WeightVolume,
		"weight_social":      s.WeightSocial,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %f", name, w)
		}
	}
	sum := s.WeightPrice + s.WeightSmartMoney + s.WeightVolume + s.WeightSocial
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %f", sum)
	}
	if s.WhaleThresholdUSD <= 0 {
		return fmt.Errorf("whale_threshold_usd must be positive, got %f", s.WhaleThresholdUSD)
	}
	if s.CacheTTLSecs <= 0 {
		return fmt.Errorf("cache_ttl_secs must be positive, got %d", s.CacheTTLSecs)
	}
	if s.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", s.CacheSize)
	}
	return nil
}

func (p *PaperConfig) validate() error {
	if p.StartingCashUSD <= 0 {
		return fmt.Errorf("starting_cash_usd must be positive, got %f", p.StartingCashUSD)
	}
	if p.PositionSizeUSD <= 0 || p.PositionSizeUSD > p.StartingCashUSD {
		return fmt.Errorf("position_size_usd must be in (0, starting_cash], got %f", p.PositionSizeUSD)
	}
	if p.MaxPositions <= 0 {
		return fmt.Errorf("max_positions must be positive, got %d", p.MaxPositions)
	}
	if p.MinEntryScore < 0 || p.MinEntryScore > 1 {
		return fmt.Errorf("min_entry_score must be in [0, 1], got %f", p.MinEntryScore)
	}
	if p.StopLossPct <= 0 || p.StopLossPct >= 1 {
		return fmt.Errorf("stop_loss_pct must be in (0, 1), got %f", p.StopLossPct)
	}
	if len(p.TakeProfits) < 1 || len(p.TakeProfits) > 2 {
		return fmt.Errorf("take_profits must have 1 or 2 tiers, got %d", len(p.TakeProfits))
	}
	prev := 0.0
	for i, tier := range p.TakeProfits {
		if tier.TriggerPct <= prev {
			return fmt.Errorf("take_profits[%d]: trigger_pct must be ascending and positive, got %f", i, tier.TriggerPct)
		}
		if tier.SellFraction <= 0 || tier.SellFraction > 1 {
			return fmt.Errorf("take_profits[%d]: sell_fraction must be in (0, 1], got %f", i, tier.SellFraction)
		}
		prev = tier.TriggerPct
	}
	if p.MaxHoldHours <= 0 {
		return fmt.Errorf("max_hold_hours must be positive, got %f", p.MaxHoldHours)
	}
	for name, pct := range map[string]float64{
		"entry_slippage_pct":  p.EntrySlippagePct,
		"profit_slippage_pct": p.ProfitSlippagePct,
		"stop_slippage_pct":   p.StopSlippagePct,
	} {
		if pct < 0 || pct >= 1 {
			return fmt.Errorf("%s must be in [0, 1), got %f", name, pct)
		}
	}
	if p.FeePct < 0 || p.FeePct >= 1 {
		return fmt.Errorf("fee_pct must be in [0, 1), got %f", p.FeePct)
	}
	if p.FailedExitProbability < 0 || p.FailedExitProbability >= 1 {
		return fmt.Errorf("failed_exit_probability must be in [0, 1), got %f", p.FailedExitProbability)
	}
	if p.MaxExitRetries <= 0 {
		return fmt.Errorf("max_exit_retries must be positive, got %d", p.MaxExitRetries)
	}
	return nil
}

func (s *SourcesConfig) validate() error {
	for name, b := range map[string]SourceBudget{
		"birdeye":    s.BirdEye,
		"solana_rpc": s.SolanaRPC,
		"goplus":     s.GoPlus,
	} {
		if b.RPS <= 0 {
			return fmt.Errorf("%s: rps must be positive, got %f", name, b.RPS)
		}
		if b.Burst <= 0 {
			return fmt.Errorf("%s: burst must be positive, got %d", name, b.Burst)
		}
	}
	if s.Circuit.FailureThreshold <= 0 {
		return fmt.Errorf("circuit: failure_threshold must be positive, got %d", s.Circuit.FailureThreshold)
	}
	if s.Circuit.SuccessThreshold <= 0 {
		return fmt.Errorf("circuit: success_threshold must be positive, got %d", s.Circuit.SuccessThreshold)
	}
	if s.Circuit.TimeoutMS <= 0 {
		return fmt.Errorf("circuit: timeout_ms must be positive, got %d", s.Circuit.TimeoutMS)
	}
	if s.AgeCacheTTLSecs <= 0 {
		return fmt.Errorf("age_cache_ttl_secs must be positive, got %d", s.AgeCacheTTLSecs)
	}
	return nil
}

// ScanInterval returns the continuous mode scan period.
func (d *DiscoveryConfig) ScanInterval() time.Duration {
	return time.Duration(d.ScanIntervalSecs) * time.Second
}

// Interval returns the monitor loop period.
func (m *MonitorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalSecs) * time.Second
}

// CacheTTL returns the score cache entry lifetime.
func (s *ScoringConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSecs) * time.Second
}

// AgeCacheTTL returns the token age cache entry lifetime.
func (s *SourcesConfig) AgeCacheTTL() time.Duration {
	return time.Duration(s.AgeCacheTTLSecs) * time.Second
}

// CircuitTimeout returns the breaker open-state probe delay.
func (c *CircuitConfig) CircuitTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// MaxHold returns the position expiry age.
func (p *PaperConfig) MaxHold() time.Duration {
	return time.Duration(p.MaxHoldHours * float64(time.Hour))
}
