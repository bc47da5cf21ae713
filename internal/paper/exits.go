package paper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/idhash"
	"solana-revival-scanner/internal/observability"
	"solana-revival-scanner/internal/storage"
)

// ExitDecision names the rule that fired for a position at a price.
type ExitDecision struct {
	Reason   domain.ExitReason
	Tier     int     // take-profit ladder index, -1 for non-tier exits
	Fraction float64 // fraction of the remaining quantity to close
}

// EvaluateExit runs the exit ladder for one position: stop-loss first, then
// the lowest unfired take-profit tier, then the hold-time cap. At most one
// rule fires per call; a price that clears several tiers at once walks the
// ladder one tier per monitor cycle. Returns false when the position should
// be held. Pure: no lock, no mutation.
func (m *Manager) EvaluateExit(p *domain.Position, price float64, at time.Time) (ExitDecision, bool) {
	if !p.Open() || price <= 0 {
		return ExitDecision{}, false
	}

	if price <= p.EntryPrice*(1-m.cfg.StopLossPct) {
		return ExitDecision{Reason: domain.ExitStopLoss, Tier: -1, Fraction: 1}, true
	}

	for i, tier := range m.cfg.TakeProfits {
		if p.TierFired(i) {
			continue
		}
		if price >= p.EntryPrice*(1+tier.TriggerPct) {
			return ExitDecision{Reason: tierReason(i), Tier: i, Fraction: tier.SellFraction}, true
		}
	}

	maxHold := time.Duration(m.cfg.MaxHoldHours * float64(time.Hour))
	if at.Sub(time.UnixMilli(p.EntryTime)) >= maxHold {
		return ExitDecision{Reason: domain.ExitExpired, Tier: -1, Fraction: 1}, true
	}

	return ExitDecision{}, false
}

func tierReason(index int) domain.ExitReason {
	if index == 0 {
		return domain.ExitTakeProfit1
	}
	return domain.ExitTakeProfit2
}

// CheckExit evaluates and applies the exit ladder for one position against
// the current price, atomically. A nil trade with nil error means hold, a
// position already closed by a concurrent cycle, or a simulated failed exit
// that will retry next cycle.
//
// The failed-exit roll applies to stop-loss fills only: sell pressure on a
// dying token is exactly when a Solana swap is most likely to revert. Each
// failure is persisted so retries survive a restart; once retries are
// exhausted the rest of the position is written off at a zero fill.
func (m *Manager) CheckExit(ctx context.Context, positionID string, price float64) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.open[positionID]
	if !ok {
		return nil, nil
	}

	decision, exit := m.EvaluateExit(p, price, m.now())
	if !exit {
		return nil, nil
	}

	if decision.Reason == domain.ExitStopLoss && m.roll() < m.cfg.FailedExitProbability {
		p.ExitRetries++
		p.UpdatedAt = m.now().UnixMilli()
		observability.RecordExitRetry()
		if p.ExitRetries >= m.cfg.MaxExitRetries {
			m.log.Warn().
				Str("position_id", p.ID).
				Str("symbol", p.Symbol).
				Int("attempts", p.ExitRetries).
				Msg("exit retries exhausted, writing position off")
			return m.applyExit(ctx, p, ExitDecision{Reason: domain.ExitFailed, Tier: -1, Fraction: 1}, 0)
		}
		if err := m.positions.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("persist exit retry: %w", err)
		}
		m.log.Warn().
			Str("position_id", p.ID).
			Str("symbol", p.Symbol).
			Int("attempts", p.ExitRetries).
			Msg("simulated exit failure, retrying next cycle")
		return nil, nil
	}

	return m.applyExit(ctx, p, decision, price)
}

// CloseManual closes whatever remains of a position at the given price,
// bypassing the failed-exit roll.
func (m *Manager) CloseManual(ctx context.Context, positionID string, price float64) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.open[positionID]
	if !ok {
		return nil, fmt.Errorf("close %s: %w", positionID, ErrPositionClosed)
	}
	if price <= 0 {
		return nil, fmt.Errorf("close %s: %w", positionID, ErrInvalidPrice)
	}

	return m.applyExit(ctx, p, ExitDecision{Reason: domain.ExitManual, Tier: -1, Fraction: 1}, price)
}

// applyExit executes one slice of an exit under the manager lock: trade row
// first, then the position row, then memory. A crash between the two rows
// leaves a trade the next cycle regenerates verbatim; the duplicate guard
// adopts the stored fill so replayed numbers stay exact.
func (m *Manager) applyExit(ctx context.Context, p *domain.Position, d ExitDecision, price float64) (*domain.Trade, error) {
	var slippage float64
	switch d.Reason {
	case domain.ExitFailed:
		slippage = 0
	case domain.ExitStopLoss:
		slippage = m.cfg.StopSlippagePct
	default:
		slippage = m.cfg.ProfitSlippagePct
	}

	fill := price * (1 - slippage)
	quantity := p.RemainingQuantity() * d.Fraction
	gross := quantity * fill
	costBasis := quantity * p.EntryPrice
	fee := gross * m.cfg.FeePct
	proceeds := gross - fee
	pnl := gross - costBasis - fee

	now := m.now().UnixMilli()
	remainingAfter := p.RemainingFraction * (1 - d.Fraction)
	if remainingAfter < 1e-9 {
		remainingAfter = 0
	}

	trade := &domain.Trade{
		TradeID:        idhash.ComputeTradeID(p.ID, d.Reason, remainingAfter),
		PositionID:     p.ID,
		TokenAddress:   p.TokenAddress,
		Symbol:         p.Symbol,
		Fraction:       d.Fraction,
		Quantity:       quantity,
		EntryPrice:     p.EntryPrice,
		ExitPrice:      fill,
		SlippagePct:    slippage,
		FeeUSD:         fee,
		ProceedsUSD:    proceeds,
		PnLUSD:         pnl,
		Reason:         d.Reason,
		ExecutedAt:     now,
		RemainingAfter: remainingAfter,
	}

	if err := m.trades.Insert(ctx, trade); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("persist trade: %w", err)
		}
		if prior := m.findTrade(ctx, p.ID, trade.TradeID); prior != nil {
			trade = prior
			proceeds = prior.ProceedsUSD
			pnl = prior.PnLUSD
		}
		m.log.Debug().
			Str("trade_id", trade.TradeID).
			Msg("trade already recorded, replaying position update")
	}

	next := p.Clone()
	next.RemainingFraction = remainingAfter
	next.RealizedPnLUSD += pnl
	next.ExitRetries = 0
	next.UpdatedAt = now
	if d.Tier >= 0 {
		next.FiredTiers = append(next.FiredTiers, d.Tier)
	}
	if remainingAfter == 0 {
		reason := d.Reason
		next.Status = domain.PositionClosed
		next.ExitReason = &reason
		next.ClosedAt = &now
	} else {
		next.Status = domain.PositionPartiallyClosed
	}

	if err := m.positions.Update(ctx, next); err != nil {
		return nil, fmt.Errorf("persist position: %w", err)
	}

	m.cash += proceeds
	m.realized += pnl
	if remainingAfter == 0 {
		delete(m.open, p.ID)
	} else {
		m.open[p.ID] = next
	}

	m.log.Info().
		Str("position_id", p.ID).
		Str("symbol", p.Symbol).
		Str("reason", string(d.Reason)).
		Float64("fraction", d.Fraction).
		Float64("exit_price", fill).
		Float64("pnl_usd", pnl).
		Float64("remaining", remainingAfter).
		Msg("position exit")

	return trade, nil
}

// findTrade looks up an already-recorded trade by ID. Best effort: a lookup
// failure falls back to the regenerated numbers.
func (m *Manager) findTrade(ctx context.Context, positionID, tradeID string) *domain.Trade {
	existing, err := m.trades.GetByPositionID(ctx, positionID)
	if err != nil {
		return nil
	}
	for _, t := range existing {
		if t.TradeID == tradeID {
			return t
		}
	}
	return nil
}
