package pipeline

import (
	"solana-revival-scanner/internal/domain"
)

// StageResult is the survivor set of one funnel stage.
type StageResult struct {
	Phase     domain.Phase
	Survivors []string
}

// FunnelReport holds the per-stage survivor record of one scan, in stage
// order.
type FunnelReport struct {
	Stages []StageResult
}

func (r *FunnelReport) record(phase domain.Phase, survivors []string) {
	r.Stages = append(r.Stages, StageResult{Phase: phase, Survivors: survivors})
}

// Survivors returns the surviving addresses of one stage, nil when the run
// never reached it.
func (r *FunnelReport) Survivors(phase domain.Phase) []string {
	for _, s := range r.Stages {
		if s.Phase == phase {
			return s.Survivors
		}
	}
	return nil
}

// ScanResult is the outcome of one funnel run.
type ScanResult struct {
	ScanID     string
	Candidates []*domain.Candidate // sorted by composite descending
	Funnel     *FunnelReport
	StartedAt  int64 // Unix milliseconds
	FinishedAt int64
}

// FunnelStats converts the funnel report into ledger rows.
func (r *ScanResult) FunnelStats() []*domain.FunnelStat {
	stats := make([]*domain.FunnelStat, 0, len(r.Funnel.Stages))
	for _, s := range r.Funnel.Stages {
		stats = append(stats, &domain.FunnelStat{
			ScanID:        r.ScanID,
			Phase:         s.Phase,
			SurvivorCount: len(s.Survivors),
			Survivors:     s.Survivors,
			RecordedAt:    r.FinishedAt,
		})
	}
	return stats
}

// ScoreSnapshots converts the scored candidates into ledger rows.
func (r *ScanResult) ScoreSnapshots() []*domain.ScoreSnapshot {
	rows := make([]*domain.ScoreSnapshot, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		rows = append(rows, &domain.ScoreSnapshot{
			ScanID:          r.ScanID,
			TokenAddress:    c.Address,
			Symbol:          c.Symbol,
			PriceScore:      c.Scores.Price,
			SmartMoneyScore: c.Scores.SmartMoney,
			VolumeScore:     c.Scores.Volume,
			SocialScore:     c.Scores.Social,
			CompositeScore:  c.Scores.Composite,
			SecurityFlagged: c.Security != nil && c.Security.Unavailable,
			ScoredAt:        c.ScoredAt,
		})
	}
	return rows
}
