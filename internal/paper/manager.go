// Package paper simulates portfolio execution for scored candidates. One
// Manager owns all Position and Trade mutation behind a single mutex; the
// monitor loop and the orchestrator call in, reads come out as copies.
// Fills model DEX execution: slippage on both sides of the trade, a swap fee
// on notional, and a configured chance that a stop-loss exit fails outright.
package paper

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-revival-scanner/internal/config"
	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

// Manager errors
var (
	ErrScoreBelowThreshold = errors.New("composite score below entry threshold")
	ErrPositionLimit       = errors.New("max concurrent positions reached")
	ErrInsufficientCash    = errors.New("insufficient cash")
	ErrInvalidPrice        = errors.New("price must be positive")
	ErrPositionClosed      = errors.New("position is not open")
)

// Options configures a Manager.
type Options struct {
	Config    config.PaperConfig
	Positions storage.PositionStore
	Trades    storage.TradeStore
	Logger    zerolog.Logger

	// Now and Roll exist for deterministic tests; nil means real time and
	// the shared PRNG.
	Now  func() time.Time
	Roll func() float64
}

// Manager owns the simulated portfolio.
type Manager struct {
	mu   sync.Mutex
	cfg  config.PaperConfig
	open map[string]*domain.Position // OPEN and PARTIALLY_CLOSED only

	cash     float64
	realized float64 // cumulative realized P&L, entry fees included

	positions storage.PositionStore
	trades    storage.TradeStore

	now  func() time.Time
	roll func() float64
	log  zerolog.Logger
}

// NewManager creates a manager holding the full starting balance. Call
// Recover before trading to reload a persisted portfolio.
func NewManager(opts Options) *Manager {
	m := &Manager{
		cfg:       opts.Config,
		open:      make(map[string]*domain.Position),
		cash:      opts.Config.StartingCashUSD,
		positions: opts.Positions,
		trades:    opts.Trades,
		now:       opts.Now,
		roll:      opts.Roll,
		log:       opts.Logger,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.roll == nil {
		m.roll = rand.Float64
	}
	return m
}

// Recover rebuilds in-memory state from the ledger. Cash is replayed from
// committed position sizes and trade proceeds rather than trusted from the
// last snapshot row; open and partially closed positions resume monitoring.
func (m *Manager) Recover(ctx context.Context) error {
	all, err := m.positions.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	trades, err := m.trades.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.open = make(map[string]*domain.Position, len(all))
	m.cash = m.cfg.StartingCashUSD
	m.realized = 0
	for _, p := range all {
		m.cash -= p.SizeUSD
		m.realized += p.RealizedPnLUSD
		if p.Open() {
			m.open[p.ID] = p
		}
	}
	for _, t := range trades {
		m.cash += t.ProceedsUSD
	}

	m.log.Info().
		Int("open_positions", len(m.open)).
		Float64("cash_usd", m.cash).
		Float64("realized_pnl_usd", m.realized).
		Msg("portfolio recovered from ledger")
	return nil
}

// Open opens a position for a scored candidate at the candidate's current
// price. The gate is re-checked here regardless of upstream filtering: score
// threshold first, then the concurrent position cap, then available cash.
// The fill pays entry slippage and the swap fee comes out of the committed
// size. A non-positive sizeUSD falls back to the configured position size.
func (m *Manager) Open(ctx context.Context, cand *domain.Candidate, sizeUSD float64) (*domain.Position, error) {
	if sizeUSD <= 0 {
		sizeUSD = m.cfg.PositionSizeUSD
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cand.Scores.Composite < m.cfg.MinEntryScore {
		return nil, fmt.Errorf("open %s: score %.3f: %w", cand.Symbol, cand.Scores.Composite, ErrScoreBelowThreshold)
	}
	if len(m.open) >= m.cfg.MaxPositions {
		return nil, fmt.Errorf("open %s: %d open: %w", cand.Symbol, len(m.open), ErrPositionLimit)
	}
	if m.cash < sizeUSD {
		return nil, fmt.Errorf("open %s: cash %.2f < size %.2f: %w", cand.Symbol, m.cash, sizeUSD, ErrInsufficientCash)
	}
	if cand.PriceUSD <= 0 {
		return nil, fmt.Errorf("open %s: %w", cand.Symbol, ErrInvalidPrice)
	}

	now := m.now().UnixMilli()
	fill := cand.PriceUSD * (1 + m.cfg.EntrySlippagePct)
	fee := sizeUSD * m.cfg.FeePct

	p := &domain.Position{
		ID:                uuid.NewString(),
		TokenAddress:      cand.Address,
		Symbol:            cand.Symbol,
		EntryPrice:        fill,
		EntryTime:         now,
		SizeUSD:           sizeUSD,
		EntryFeeUSD:       fee,
		Quantity:          (sizeUSD - fee) / fill,
		RemainingFraction: 1.0,
		Status:            domain.PositionOpen,
		RealizedPnLUSD:    -fee,
		EntryScore:        cand.Scores.Composite,
		UpdatedAt:         now,
	}

	if err := m.positions.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("persist position: %w", err)
	}

	m.open[p.ID] = p
	m.cash -= sizeUSD
	m.realized -= fee

	m.log.Info().
		Str("position_id", p.ID).
		Str("symbol", p.Symbol).
		Float64("fill_price", fill).
		Float64("size_usd", sizeUSD).
		Float64("score", cand.Scores.Composite).
		Msg("position opened")

	return p.Clone(), nil
}

// OpenPositions returns copies of every open and partially closed position,
// oldest first.
func (m *Manager) OpenPositions() []*domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Position, 0, len(m.open))
	for _, p := range m.open {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime != out[j].EntryTime {
			return out[i].EntryTime < out[j].EntryTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Portfolio computes a snapshot of the current portfolio. marks supplies the
// current price per token address; positions without a usable mark are
// valued at entry.
func (m *Manager) Portfolio(marks map[string]float64) *domain.PortfolioSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	openValue := 0.0
	for _, p := range m.open {
		mark := p.EntryPrice
		if v, ok := marks[p.TokenAddress]; ok && v > 0 {
			mark = v
		}
		openValue += p.RemainingQuantity() * mark
	}

	return &domain.PortfolioSnapshot{
		SnapshotTime:   m.now().UnixMilli(),
		CashUSD:        m.cash,
		OpenValueUSD:   openValue,
		EquityUSD:      m.cash + openValue,
		RealizedPnLUSD: m.realized,
		OpenPositions:  len(m.open),
	}
}

// Reset truncates the position and trade ledger and restores the starting
// balance. Destructive: cash recovery replays the ledger, so resetting the
// portfolio means wiping its history.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.trades.Wipe(ctx); err != nil {
		return fmt.Errorf("wipe trades: %w", err)
	}
	if err := m.positions.Wipe(ctx); err != nil {
		return fmt.Errorf("wipe positions: %w", err)
	}

	m.open = make(map[string]*domain.Position)
	m.cash = m.cfg.StartingCashUSD
	m.realized = 0

	m.log.Info().Float64("cash_usd", m.cash).Msg("paper portfolio reset")
	return nil
}
