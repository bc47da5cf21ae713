package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/metrics"
	"solana-revival-scanner/internal/storage"
)

// funnelReportScans bounds the funnel section to the most recent scans.
const funnelReportScans = 10

const millisPerHour = 3_600_000

// Generator produces reports from the ledger.
type Generator struct {
	positions storage.PositionStore
	trades    storage.TradeStore
	funnel    storage.FunnelStore
	scores    storage.ScoreStore
	metrics   *metrics.Aggregator
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	positions storage.PositionStore,
	trades storage.TradeStore,
	funnel storage.FunnelStore,
	scores storage.ScoreStore,
	agg *metrics.Aggregator,
) *Generator {
	return &Generator{
		positions: positions,
		trades:    trades,
		funnel:    funnel,
		scores:    scores,
		metrics:   agg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate recomputes the performance summary and assembles the full report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	summary, err := g.metrics.Recompute(ctx)
	if err != nil {
		return nil, fmt.Errorf("recompute summary: %w", err)
	}

	openRows, err := g.generateOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("open positions: %w", err)
	}

	tradeRows, err := g.generateTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}

	funnelRows, err := g.generateFunnel(ctx)
	if err != nil {
		return nil, fmt.Errorf("funnel: %w", err)
	}

	report := &Report{
		GeneratedAt:   g.now(),
		Summary:       summary,
		OpenPositions: openRows,
		Trades:        tradeRows,
		Funnel:        funnelRows,
	}

	if len(funnelRows) > 0 {
		report.LatestScanID = funnelRows[0].ScanID
		scores, err := g.scores.GetByScanID(ctx, report.LatestScanID)
		if err != nil {
			return nil, fmt.Errorf("scores for scan %s: %w", report.LatestScanID, err)
		}
		report.Scores = scores
	}

	return report, nil
}

// generateOpenPositions builds rows for the open book, oldest first.
func (g *Generator) generateOpenPositions(ctx context.Context) ([]PositionRow, error) {
	open, err := g.positions.GetOpen(ctx)
	if err != nil {
		return nil, err
	}

	nowMs := g.now().UnixMilli()
	rows := make([]PositionRow, len(open))
	for i, p := range open {
		rows[i] = PositionRow{
			Symbol:            p.Symbol,
			TokenAddress:      p.TokenAddress,
			Status:            string(p.Status),
			EntryPrice:        p.EntryPrice,
			SizeUSD:           p.SizeUSD,
			RemainingFraction: p.RemainingFraction,
			RealizedPnLUSD:    p.RealizedPnLUSD,
			EntryScore:        p.EntryScore,
			HeldHours:         float64(nowMs-p.EntryTime) / millisPerHour,
		}
	}
	return rows, nil
}

// generateTrades builds rows for the full trade ledger in execution order.
func (g *Generator) generateTrades(ctx context.Context) ([]TradeRow, error) {
	trades, err := g.trades.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]TradeRow, len(trades))
	for i, t := range trades {
		rows[i] = TradeRow{
			TradeID:      t.TradeID,
			PositionID:   t.PositionID,
			ExecutedAt:   t.ExecutedAt,
			Symbol:       t.Symbol,
			TokenAddress: t.TokenAddress,
			Reason:       string(t.Reason),
			Fraction:     t.Fraction,
			Quantity:     t.Quantity,
			EntryPrice:   t.EntryPrice,
			ExitPrice:    t.ExitPrice,
			FeeUSD:       t.FeeUSD,
			ProceedsUSD:  t.ProceedsUSD,
			PnLUSD:       t.PnLUSD,
		}
	}
	return rows, nil
}

// generateFunnel pivots the stage rows of the most recent scans into one row
// per scan, newest first.
func (g *Generator) generateFunnel(ctx context.Context) ([]FunnelRow, error) {
	stats, err := g.funnel.GetRecent(ctx, funnelReportScans*5)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var rows []FunnelRow
	for _, s := range stats {
		i, ok := index[s.ScanID]
		if !ok {
			i = len(rows)
			index[s.ScanID] = i
			rows = append(rows, FunnelRow{ScanID: s.ScanID, RecordedAt: s.RecordedAt})
		}
		switch s.Phase {
		case domain.PhaseDiscovered:
			rows[i].Discovered = s.SurvivorCount
		case domain.PhasePrefiltered:
			rows[i].Prefiltered = s.SurvivorCount
		case domain.PhaseAgeVerified:
			rows[i].AgeVerified = s.SurvivorCount
		case domain.PhaseSecurityChecked:
			rows[i].SecurityChecked = s.SurvivorCount
		case domain.PhaseScored:
			rows[i].Scored = s.SurvivorCount
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].RecordedAt != rows[j].RecordedAt {
			return rows[i].RecordedAt > rows[j].RecordedAt
		}
		return rows[i].ScanID < rows[j].ScanID
	})

	return rows, nil
}
