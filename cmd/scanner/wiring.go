package main

import (
	"github.com/rs/zerolog"

	"solana-revival-scanner/internal/birdeye"
	"solana-revival-scanner/internal/cache"
	"solana-revival-scanner/internal/config"
	"solana-revival-scanner/internal/goplus"
	"solana-revival-scanner/internal/pipeline"
	"solana-revival-scanner/internal/ratelimit"
	"solana-revival-scanner/internal/scoring"
	"solana-revival-scanner/internal/solana"
	"solana-revival-scanner/internal/source"
)

// ageCacheEntries bounds the in-memory age cache. Entries live a day, so
// this covers several scans of the discovery universe.
const ageCacheEntries = 4096

// buildScanner assembles the discovery funnel: rate limiter, caches, the
// three external sources and the scoring engine. The BirdEye client comes
// back separately because the monitor reuses it as its price source.
func buildScanner(cfg config.Config, logger zerolog.Logger) (*pipeline.Pipeline, *birdeye.Client) {
	limiter := newLimiter(cfg.Sources)
	scoreCache, ageCache := buildCaches(cfg)
	circuit := cfg.Sources.Circuit

	bird := birdeye.NewClient(birdeyeKey, limiter,
		birdeye.WithLogger(logger),
		birdeye.WithBreaker(birdeye.BreakerConfig{
			FailureThreshold: uint32(circuit.FailureThreshold),
			SuccessThreshold: uint32(circuit.SuccessThreshold),
			Timeout:          circuit.CircuitTimeout(),
		}))

	goplusOpts := []goplus.ClientOption{
		goplus.WithLogger(logger),
		goplus.WithBreaker(goplus.BreakerConfig{
			FailureThreshold: uint32(circuit.FailureThreshold),
			SuccessThreshold: uint32(circuit.SuccessThreshold),
			Timeout:          circuit.CircuitTimeout(),
		}),
	}
	if goplusKey != "" {
		goplusOpts = append(goplusOpts, goplus.WithAPIKey(goplusKey))
	}
	gop := goplus.NewClient(limiter, goplusOpts...)

	rpc := solana.NewHTTPClient(rpcEndpoint)
	age := solana.NewAgeResolver(rpc, limiter, ageCache, cfg.Sources.AgeCacheTTL())

	engine := scoring.NewEngine(bird, bird, scoreCache,
		scoring.WithWeights(scoring.Weights{
			Price:      cfg.Scoring.WeightPrice,
			SmartMoney: cfg.Scoring.WeightSmartMoney,
			Volume:     cfg.Scoring.WeightVolume,
			Social:     cfg.Scoring.WeightSocial,
		}),
		scoring.WithWhaleThreshold(cfg.Scoring.WhaleThresholdUSD),
		scoring.WithCacheTTL(cfg.Scoring.CacheTTL()),
		scoring.WithLogger(logger))

	pipe := pipeline.New(pipeline.Options{
		Config:    cfg.Discovery,
		Discovery: bird,
		Age:       age,
		Security:  gop,
		Holders:   bird,
		Scorer:    engine,
		Logger:    logger,
	})

	return pipe, bird
}

func newLimiter(sources config.SourcesConfig) *ratelimit.Limiter {
	budgets := map[source.Source]ratelimit.Budget{
		source.BirdEye:   {RPS: sources.BirdEye.RPS, Burst: sources.BirdEye.Burst},
		source.SolanaRPC: {RPS: sources.SolanaRPC.RPS, Burst: sources.SolanaRPC.Burst},
		source.GoPlus:    {RPS: sources.GoPlus.RPS, Burst: sources.GoPlus.Burst},
	}
	return ratelimit.NewLimiter(budgets, ratelimit.Budget{RPS: 1, Burst: 1})
}

// buildCaches returns the score and age caches. With a Redis address both
// share the server; otherwise each gets its own in-process cache.
func buildCaches(cfg config.Config) (scoreCache, ageCache cache.Cache) {
	if redisAddr != "" {
		shared := cache.NewRedis(redisAddr, redisPassword, 0)
		return shared, shared
	}
	return cache.NewMemory(cfg.Scoring.CacheSize), cache.NewMemory(ageCacheEntries)
}
