package reporting

import (
	"fmt"
	"strings"

	"solana-revival-scanner/internal/domain"
)

// RenderTradesCSV renders the trade ledger as CSV string.
func RenderTradesCSV(rows []TradeRow) string {
	var sb strings.Builder

	sb.WriteString("trade_id,position_id,executed_at,symbol,token_address,reason,")
	sb.WriteString("fraction,quantity,entry_price,exit_price,fee_usd,proceeds_usd,pnl_usd\n")

	for _, t := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%s,%.6f,%.6f,%.10f,%.10f,%.6f,%.6f,%.6f\n",
			t.TradeID,
			t.PositionID,
			t.ExecutedAt,
			t.Symbol,
			t.TokenAddress,
			t.Reason,
			t.Fraction,
			t.Quantity,
			t.EntryPrice,
			t.ExitPrice,
			t.FeeUSD,
			t.ProceedsUSD,
			t.PnLUSD,
		))
	}

	return sb.String()
}

// RenderFunnelCSV renders per-scan stage survivor counts as CSV string.
func RenderFunnelCSV(rows []FunnelRow) string {
	var sb strings.Builder

	sb.WriteString("scan_id,recorded_at,discovered,prefiltered,age_verified,security_checked,scored\n")

	for _, f := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%d,%d,%d\n",
			f.ScanID,
			f.RecordedAt,
			f.Discovered,
			f.Prefiltered,
			f.AgeVerified,
			f.SecurityChecked,
			f.Scored,
		))
	}

	return sb.String()
}

// RenderScoresCSV renders one scan's score snapshots as CSV string.
func RenderScoresCSV(rows []*domain.ScoreSnapshot) string {
	var sb strings.Builder

	sb.WriteString("scan_id,token_address,symbol,price_score,smart_money_score,")
	sb.WriteString("volume_score,social_score,composite_score,security_flagged,scored_at\n")

	for _, s := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.6f,%.6f,%.6f,%.6f,%.6f,%t,%d\n",
			s.ScanID,
			s.TokenAddress,
			s.Symbol,
			s.PriceScore,
			s.SmartMoneyScore,
			s.VolumeScore,
			s.SocialScore,
			s.CompositeScore,
			s.SecurityFlagged,
			s.ScoredAt,
		))
	}

	return sb.String()
}
