package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"solana-revival-scanner/internal/domain"
)

// tradeHistoryLimit caps the markdown trade table; the CSV export carries
// the full ledger.
const tradeHistoryLimit = 30

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Paper Trading Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Performance summary
	sb.WriteString("## Performance\n\n")
	s := r.Summary
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", s.Wins, s.Losses))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.1f%% |\n", s.WinRate*100))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.2f |\n", s.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| Realized P&L | $%.2f |\n", s.RealizedPnLUSD))
	sb.WriteString(fmt.Sprintf("| Avg Trade P&L | $%.2f |\n", s.AvgTradePnLUSD))
	sb.WriteString(fmt.Sprintf("| Sharpe | %.2f |\n", s.Sharpe))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.1f%% |\n", s.MaxDrawdownPct*100))
	sb.WriteString(fmt.Sprintf("| Avg Hold | %.1fh |\n", s.AvgHoldHours))
	sb.WriteString(fmt.Sprintf("| Cash | $%.2f |\n", s.CashUSD))
	sb.WriteString(fmt.Sprintf("| Equity | $%.2f |\n", s.EquityUSD))
	sb.WriteString("\n")

	// Exit breakdown
	sb.WriteString("## Exits by Reason\n\n")
	if len(s.ByReason) > 0 {
		reasons := make([]string, 0, len(s.ByReason))
		for reason := range s.ByReason {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)

		sb.WriteString("| Reason | Trades | P&L (USD) |\n")
		sb.WriteString("|--------|--------|----------|\n")
		for _, reason := range reasons {
			stats := s.ByReason[domain.ExitReason(reason)]
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f |\n", reason, stats.Trades, stats.PnLUSD))
		}
	} else {
		sb.WriteString("No trades recorded.\n")
	}
	sb.WriteString("\n")

	// Open positions
	sb.WriteString("## Open Positions\n\n")
	if len(r.OpenPositions) > 0 {
		sb.WriteString("| Symbol | Status | Entry | Size (USD) | Remaining | Realized (USD) | Score | Held (h) |\n")
		sb.WriteString("|--------|--------|-------|-----------|-----------|----------------|-------|---------|\n")
		for _, p := range r.OpenPositions {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.6g | %.2f | %.2f | %.2f | %.3f | %.1f |\n",
				p.Symbol, p.Status, p.EntryPrice, p.SizeUSD,
				p.RemainingFraction, p.RealizedPnLUSD, p.EntryScore, p.HeldHours))
		}
	} else {
		sb.WriteString("No open positions.\n")
	}
	sb.WriteString("\n")

	// Trade history
	sb.WriteString("## Trade History\n\n")
	if len(r.Trades) > 0 {
		trades := r.Trades
		if len(trades) > tradeHistoryLimit {
			sb.WriteString(fmt.Sprintf("Showing the most recent %d of %d trades.\n\n",
				tradeHistoryLimit, len(trades)))
			trades = trades[len(trades)-tradeHistoryLimit:]
		}
		sb.WriteString("| Executed | Symbol | Reason | Fraction | Exit | P&L (USD) |\n")
		sb.WriteString("|----------|--------|--------|----------|------|----------|\n")
		for _, t := range trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f | %.6g | %.2f |\n",
				time.UnixMilli(t.ExecutedAt).UTC().Format(time.RFC3339),
				t.Symbol, t.Reason, t.Fraction, t.ExitPrice, t.PnLUSD))
		}
	} else {
		sb.WriteString("No trades recorded.\n")
	}
	sb.WriteString("\n")

	// Discovery funnel
	sb.WriteString("## Discovery Funnel\n\n")
	if len(r.Funnel) > 0 {
		sb.WriteString("| Scan | Recorded | Discovered | Prefiltered | Age Verified | Security | Scored |\n")
		sb.WriteString("|------|----------|------------|-------------|--------------|----------|--------|\n")
		for _, f := range r.Funnel {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %d |\n",
				f.ScanID, time.UnixMilli(f.RecordedAt).UTC().Format(time.RFC3339),
				f.Discovered, f.Prefiltered, f.AgeVerified, f.SecurityChecked, f.Scored))
		}
	} else {
		sb.WriteString("No scans recorded.\n")
	}
	sb.WriteString("\n")

	// Latest scan scores
	sb.WriteString("## Latest Scan Scores\n\n")
	if len(r.Scores) > 0 {
		sb.WriteString(fmt.Sprintf("Scan `%s`, %d scored tokens.\n\n", r.LatestScanID, len(r.Scores)))
		sb.WriteString("| Symbol | Composite | Price | Smart Money | Volume | Social | Flagged |\n")
		sb.WriteString("|--------|-----------|-------|-------------|--------|--------|--------|\n")
		for _, sc := range r.Scores {
			flagged := ""
			if sc.SecurityFlagged {
				flagged = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %.3f | %.3f | %.3f | %.3f | %.3f | %s |\n",
				sc.Symbol, sc.CompositeScore, sc.PriceScore, sc.SmartMoneyScore,
				sc.VolumeScore, sc.SocialScore, flagged))
		}
	} else {
		sb.WriteString("No scored tokens available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
