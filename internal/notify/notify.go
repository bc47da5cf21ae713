// Package notify delivers position lifecycle events. Delivery is fire and
// forget: implementations handle their own failures and never block or fail
// the caller.
package notify

import (
	"github.com/rs/zerolog"

	"solana-revival-scanner/internal/domain"
)

// Notifier receives position lifecycle events.
type Notifier interface {
	PositionOpened(p *domain.Position)
	PositionClosed(p *domain.Position, t *domain.Trade)
}

// Log emits events to a zerolog logger, the notification channel for
// unattended runs.
type Log struct {
	log zerolog.Logger
}

// NewLog returns a Notifier writing to logger.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{log: logger}
}

func (n *Log) PositionOpened(p *domain.Position) {
	n.log.Info().
		Str("event", "position_opened").
		Str("position_id", p.ID).
		Str("symbol", p.Symbol).
		Str("token", p.TokenAddress).
		Float64("entry_price", p.EntryPrice).
		Float64("size_usd", p.SizeUSD).
		Float64("score", p.EntryScore).
		Msg("paper position opened")
}

func (n *Log) PositionClosed(p *domain.Position, t *domain.Trade) {
	n.log.Info().
		Str("event", "position_closed").
		Str("position_id", p.ID).
		Str("symbol", p.Symbol).
		Str("reason", string(t.Reason)).
		Float64("exit_price", t.ExitPrice).
		Float64("pnl_usd", t.PnLUSD).
		Float64("remaining", t.RemainingAfter).
		Msg("paper position exit")
}

// Multi fans events out to several notifiers in order.
type Multi []Notifier

func (m Multi) PositionOpened(p *domain.Position) {
	for _, n := range m {
		n.PositionOpened(p)
	}
}

func (m Multi) PositionClosed(p *domain.Position, t *domain.Trade) {
	for _, n := range m {
		n.PositionClosed(p, t)
	}
}

var (
	_ Notifier = (*Log)(nil)
	_ Notifier = (Multi)(nil)
)
