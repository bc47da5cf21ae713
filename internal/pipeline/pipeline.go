// Package pipeline runs the five-stage discovery funnel: list the token
// universe, prefilter on market structure, verify on-chain age, vet security
// and holder concentration, then score the survivors. Every stage records
// its survivor set for funnel reporting; per-token trouble drops or flags
// that token and moves on.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-revival-scanner/internal/config"
	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/idhash"
	"solana-revival-scanner/internal/observability"
	"solana-revival-scanner/internal/source"
)

// Scorer is the slice of the scoring engine the funnel drives.
type Scorer interface {
	Score(ctx context.Context, token *domain.Token) (domain.ScoreBreakdown, error)
}

// Options configures a Pipeline.
type Options struct {
	Config    config.DiscoveryConfig
	Discovery source.DiscoverySource
	Age       source.AgeSource
	Security  source.SecuritySource
	Holders   source.HolderSource
	Scorer    Scorer
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Pipeline is the five-stage discovery funnel.
type Pipeline struct {
	cfg       config.DiscoveryConfig
	discovery source.DiscoverySource
	age       source.AgeSource
	security  source.SecuritySource
	holders   source.HolderSource
	scorer    Scorer
	log       zerolog.Logger
	now       func() time.Time
}

// New creates a discovery pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		cfg:       opts.Config,
		discovery: opts.Discovery,
		age:       opts.Age,
		security:  opts.Security,
		holders:   opts.Holders,
		scorer:    opts.Scorer,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run executes one funnel pass. Only a dead universe listing or context
// cancellation fails the run; everything below that is absorbed per token.
func (p *Pipeline) Run(ctx context.Context) (*ScanResult, error) {
	startedAt := p.now()
	scanID := idhash.ComputeScanID(startedAt.UnixMilli(), p.cfg.UniverseSize)
	log := p.log.With().Str("scan_id", scanID).Logger()
	report := &FunnelReport{}

	log.Info().Int("universe_size", p.cfg.UniverseSize).Msg("scan started")

	stageStart := startedAt
	tokens, err := p.discovery.ListTokens(ctx, p.cfg.UniverseSize)
	if err != nil {
		return nil, fmt.Errorf("list universe: %w", err)
	}
	observability.RecordDiscovered(len(tokens))
	p.finishStage(log, report, domain.PhaseDiscovered, tokenAddresses(tokens), stageStart)

	stageStart = p.now()
	tokens, err = p.prefilter(ctx, log, tokens)
	if err != nil {
		return nil, err
	}
	p.finishStage(log, report, domain.PhasePrefiltered, tokenAddresses(tokens), stageStart)

	stageStart = p.now()
	tokens, err = p.verifyAge(ctx, log, tokens)
	if err != nil {
		return nil, err
	}
	p.finishStage(log, report, domain.PhaseAgeVerified, tokenAddresses(tokens), stageStart)

	stageStart = p.now()
	survivors, err := p.vetSecurity(ctx, log, tokens)
	if err != nil {
		return nil, err
	}
	p.finishStage(log, report, domain.PhaseSecurityChecked, vettedAddresses(survivors), stageStart)

	stageStart = p.now()
	candidates, err := p.score(ctx, log, survivors)
	if err != nil {
		return nil, err
	}
	p.finishStage(log, report, domain.PhaseScored, candidateAddresses(candidates), stageStart)

	finishedAt := p.now()
	log.Info().
		Int("candidates", len(candidates)).
		Dur("took", finishedAt.Sub(startedAt)).
		Msg("scan complete")

	return &ScanResult{
		ScanID:     scanID,
		Candidates: candidates,
		Funnel:     report,
		StartedAt:  startedAt.UnixMilli(),
		FinishedAt: finishedAt.UnixMilli(),
	}, nil
}

// finishStage records a completed stage: survivor set, funnel gauge, stage
// duration and the transition log.
func (p *Pipeline) finishStage(log zerolog.Logger, report *FunnelReport, phase domain.Phase, survivors []string, since time.Time) {
	report.record(phase, survivors)
	observability.RecordFunnelStage(phase.String(), len(survivors))
	observability.RecordStageDuration(phase.String(), p.now().Sub(since).Seconds())
	log.Info().
		Str("stage", phase.String()).
		Int("survivors", len(survivors)).
		Msg("stage complete")
}

// prefilter keeps tokens inside the market-structure envelope, then enriches
// the survivors with overview metrics. A failed enrichment keeps the bare
// token; the score components that need the missing fields degrade instead
// of dropping it.
func (p *Pipeline) prefilter(ctx context.Context, log zerolog.Logger, tokens []*domain.Token) ([]*domain.Token, error) {
	kept := make([]*domain.Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.LiquidityUSD < p.cfg.MinLiquidityUSD {
			continue
		}
		if tok.MarketCapUSD > p.cfg.MaxMarketCapUSD {
			continue
		}
		if tok.EstimatedVolume1hUSD() < p.cfg.MinVolume1hUSD {
			continue
		}
		kept = append(kept, tok)
	}

	for i, tok := range kept {
		enriched, err := p.discovery.TokenOverview(ctx, tok)
		switch {
		case err == nil:
			kept[i] = enriched
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			log.Warn().Err(err).Str("address", tok.Address).
				Msg("overview enrichment failed, token kept bare")
		}
	}
	return kept, nil
}

// verifyAge resolves on-chain creation time per token and keeps those inside
// the configured window. The resolved age rides on the token into scoring,
// which picks candle granularity by it. No age, no pass: a failed lookup
// drops the token.
func (p *Pipeline) verifyAge(ctx context.Context, log zerolog.Logger, tokens []*domain.Token) ([]*domain.Token, error) {
	kept := make([]*domain.Token, 0, len(tokens))
	for _, tok := range tokens {
		age, err := p.age.TokenAge(ctx, tok.Address)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			log.Warn().Err(err).Str("address", tok.Address).
				Msg("age lookup failed, token dropped")
			continue
		}
		if age < p.cfg.MinAgeHours || age > p.cfg.MaxAgeHours {
			continue
		}
		tok.AgeHours = &age
		kept = append(kept, tok)
	}
	return kept, nil
}

// vetted pairs a surviving token with its security report.
type vetted struct {
	token  *domain.Token
	report *domain.SecurityReport
}

// vetSecurity runs the scam heuristics and the holder-concentration check
// over a bounded worker pool. A vendor outage fails open: the token passes
// flagged instead of dying with the outage. Input order is preserved.
func (p *Pipeline) vetSecurity(ctx context.Context, log zerolog.Logger, tokens []*domain.Token) ([]vetted, error) {
	workers := p.cfg.SecurityWorkers
	if workers <= 0 {
		workers = 1
	}

	results := make([]*vetted, len(tokens))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, tok := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = p.vetOne(ctx, log, tok)
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kept := make([]vetted, 0, len(tokens))
	for _, r := range results {
		if r != nil {
			kept = append(kept, *r)
		}
	}
	return kept, nil
}

// vetOne vets a single token. Returns nil when the token is rejected or the
// context died under it.
func (p *Pipeline) vetOne(ctx context.Context, log zerolog.Logger, tok *domain.Token) *vetted {
	report, err := p.security.Inspect(ctx, tok.Address)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil
	default:
		observability.RecordSecurityFailOpen()
		log.Warn().Err(err).Str("address", tok.Address).
			Msg("security source unavailable, failing open")
		report = &domain.SecurityReport{
			RiskScore:   100,
			Passed:      true,
			Unavailable: true,
			CheckedAt:   p.now().UnixMilli(),
		}
	}
	if !report.Passed {
		log.Debug().Str("address", tok.Address).
			Int("risk_score", report.RiskScore).
			Msg("security check rejected token")
		return nil
	}

	share, err := p.holders.TopHolderShare(ctx, tok.Address)
	switch {
	case err == nil:
		tok.TopHolderShare = &share
		report.TopHolderShare = &share
		if share > p.cfg.MaxTopHolderShare {
			log.Debug().Str("address", tok.Address).
				Float64("top_holder_share", share).
				Msg("holder concentration rejected token")
			return nil
		}
	case ctx.Err() != nil:
		return nil
	default:
		log.Warn().Err(err).Str("address", tok.Address).
			Msg("holder data unavailable, concentration unchecked")
	}

	return &vetted{token: tok, report: report}
}

// score caps the vetted set, computes the composite per survivor and returns
// candidates sorted by composite descending. Ties keep the liquidity order
// inherited from discovery.
func (p *Pipeline) score(ctx context.Context, log zerolog.Logger, survivors []vetted) ([]*domain.Candidate, error) {
	if len(survivors) > p.cfg.MaxCandidates && p.cfg.MaxCandidates > 0 {
		survivors = survivors[:p.cfg.MaxCandidates]
	}

	candidates := make([]*domain.Candidate, 0, len(survivors))
	for _, v := range survivors {
		breakdown, err := p.scorer.Score(ctx, v.token)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			log.Warn().Err(err).Str("address", v.token.Address).
				Msg("scoring failed, token dropped")
			continue
		}
		observability.RecordTokenScored(breakdown.Composite)
		candidates = append(candidates, &domain.Candidate{
			Token:    *v.token,
			Scores:   breakdown,
			Phase:    domain.PhaseScored,
			Security: v.report,
			ScoredAt: p.now().UnixMilli(),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Scores.Composite > candidates[j].Scores.Composite
	})
	return candidates, nil
}

func tokenAddresses(tokens []*domain.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Address
	}
	return out
}

func vettedAddresses(survivors []vetted) []string {
	out := make([]string, len(survivors))
	for i, v := range survivors {
		out[i] = v.token.Address
	}
	return out
}

func candidateAddresses(candidates []*domain.Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Address
	}
	return out
}
