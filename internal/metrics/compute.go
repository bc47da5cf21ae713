package metrics

import (
	"math"
	"sort"

	"solana-revival-scanner/internal/domain"
)

// millisPerHour converts hold times recorded in epoch milliseconds.
const millisPerHour = 3_600_000

// Compute builds a performance summary from the full ledger. Trades are
// sorted by ExecutedAt ASC, TradeID ASC before any order-dependent work.
// Failed exits are write-offs, not fills: they count in the per-reason
// breakdown and the realized totals but stay out of win rate, profit factor,
// hold time and the return series. Cash, equity and realized P&L come from
// the latest snapshot when one exists, since only the snapshot sees entry
// fees and open value.
func Compute(positions []*domain.Position, trades []*domain.Trade, snapshots []*domain.PortfolioSnapshot, now int64) *domain.PerformanceSummary {
	summary := &domain.PerformanceSummary{
		ByReason:  make(map[domain.ExitReason]domain.ExitReasonStats),
		UpdatedAt: now,
	}

	entryTimes := make(map[string]int64, len(positions))
	for _, p := range positions {
		entryTimes[p.ID] = p.EntryTime
	}

	sorted := make([]*domain.Trade, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ExecutedAt != sorted[j].ExecutedAt {
			return sorted[i].ExecutedAt < sorted[j].ExecutedAt
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})

	var (
		valid     int
		pnlSum    float64
		allPnLSum float64
		grossGain float64
		grossLoss float64
		holdSum   float64
		holdCount int
		returns   []float64
	)
	for _, t := range sorted {
		stats := summary.ByReason[t.Reason]
		stats.Trades++
		stats.PnLUSD += t.PnLUSD
		summary.ByReason[t.Reason] = stats
		allPnLSum += t.PnLUSD

		if t.Reason == domain.ExitFailed {
			continue
		}
		valid++
		pnlSum += t.PnLUSD
		if t.PnLUSD > 0 {
			summary.Wins++
			grossGain += t.PnLUSD
		} else {
			summary.Losses++
			grossLoss -= t.PnLUSD
		}
		if basis := t.Quantity * t.EntryPrice; basis > 0 {
			returns = append(returns, t.PnLUSD/basis)
		}
		if entry, ok := entryTimes[t.PositionID]; ok && t.ExecutedAt >= entry {
			holdSum += float64(t.ExecutedAt-entry) / millisPerHour
			holdCount++
		}
	}

	summary.TotalTrades = valid
	summary.WinRate = winRate(summary.Wins, valid)
	summary.ProfitFactor = profitFactor(grossGain, grossLoss)
	if valid > 0 {
		summary.AvgTradePnLUSD = pnlSum / float64(valid)
	}
	if holdCount > 0 {
		summary.AvgHoldHours = holdSum / float64(holdCount)
	}
	summary.Sharpe = sharpe(returns)
	summary.MaxDrawdownPct = maxDrawdown(snapshots)

	if last := latestSnapshot(snapshots); last != nil {
		summary.RealizedPnLUSD = last.RealizedPnLUSD
		summary.CashUSD = last.CashUSD
		summary.EquityUSD = last.EquityUSD
	} else {
		summary.RealizedPnLUSD = allPnLSum
	}

	return summary
}

// winRate is wins / total.
func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// profitFactor is gross profit over gross loss, 0 when nothing was lost.
func profitFactor(gain, loss float64) float64 {
	if loss <= 0 {
		return 0
	}
	return gain / loss
}

// sharpe is mean over sample standard deviation of per-trade returns,
// unannualized. Needs at least two returns and non-zero dispersion.
func sharpe(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	sumSq := 0.0
	for _, r := range returns {
		diff := r - mean
		sumSq += diff * diff
	}
	std := math.Sqrt(sumSq / float64(n-1))
	if std == 0 {
		return 0
	}
	return mean / std
}

// maxDrawdown is the worst peak-to-trough equity decline as a fraction of
// the peak, from the snapshot curve in chronological order.
func maxDrawdown(snapshots []*domain.PortfolioSnapshot) float64 {
	if len(snapshots) < 2 {
		return 0
	}

	curve := make([]*domain.PortfolioSnapshot, len(snapshots))
	copy(curve, snapshots)
	sort.Slice(curve, func(i, j int) bool {
		return curve[i].SnapshotTime < curve[j].SnapshotTime
	})

	peak := 0.0
	worst := 0.0
	for _, s := range curve {
		if s.EquityUSD > peak {
			peak = s.EquityUSD
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - s.EquityUSD) / peak
		if dd > worst {
			worst = dd
		}
	}
	return worst
}

func latestSnapshot(snapshots []*domain.PortfolioSnapshot) *domain.PortfolioSnapshot {
	var last *domain.PortfolioSnapshot
	for _, s := range snapshots {
		if last == nil || s.SnapshotTime > last.SnapshotTime {
			last = s
		}
	}
	return last
}
