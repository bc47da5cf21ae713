// Package monitor runs the position-watch loop: every interval it prices the
// open book, walks each position through the exit ladder and appends a
// portfolio snapshot. Cycle errors are logged and counted, never fatal; only
// context cancellation stops the loop.
package monitor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-revival-scanner/internal/birdeye"
	"solana-revival-scanner/internal/config"
	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/notify"
	"solana-revival-scanner/internal/observability"
	"solana-revival-scanner/internal/source"
	"solana-revival-scanner/internal/storage"
)

// priceStaleAfter bounds how old a stream tick may be before the cycle falls
// back to an HTTP quote for that token.
const priceStaleAfter = 2 * time.Minute

// PositionManager is the slice of the paper manager the loop drives.
type PositionManager interface {
	OpenPositions() []*domain.Position
	CheckExit(ctx context.Context, positionID string, price float64) (*domain.Trade, error)
	Portfolio(marks map[string]float64) *domain.PortfolioSnapshot
}

// PriceStream is the live tick feed keeping the price cache warm.
// Implemented by birdeye.Stream.
type PriceStream interface {
	Watch(ctx context.Context, addresses []string) error
	Updates() <-chan birdeye.PriceUpdate
}

// Options configures a Loop.
type Options struct {
	Config    config.MonitorConfig
	Book      PositionManager
	Prices    source.PriceSource
	Stream    PriceStream // optional, nil disables the live cache
	Snapshots storage.SnapshotStore
	Notifier  notify.Notifier
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Loop is the position monitor.
type Loop struct {
	cfg      config.MonitorConfig
	book     PositionManager
	prices   source.PriceSource
	stream   PriceStream
	snaps    storage.SnapshotStore
	notifier notify.Notifier
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	cache    map[string]tick
	watchKey string
}

type tick struct {
	price float64
	at    time.Time
}

// New creates a monitor loop.
func New(opts Options) *Loop {
	l := &Loop{
		cfg:      opts.Config,
		book:     opts.Book,
		prices:   opts.Prices,
		stream:   opts.Stream,
		snaps:    opts.Snapshots,
		notifier: opts.Notifier,
		log:      opts.Logger,
		now:      opts.Now,
		cache:    make(map[string]tick),
	}
	if l.notifier == nil {
		l.notifier = notify.NewLog(opts.Logger)
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// Run drives the loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l.stream != nil {
		go l.consumeStream(ctx)
	}

	interval := l.cfg.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.log.Info().Dur("interval", interval).Msg("position monitor started")
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("position monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			l.Cycle(ctx)
		}
	}
}

// Cycle runs one monitor pass: price the open book, check exits, append the
// snapshot. Run calls it on the ticker; it is also safe to call directly.
func (l *Loop) Cycle(ctx context.Context) {
	start := l.now()

	positions := l.book.OpenPositions()
	marks := l.collectPrices(ctx, positions)

	for _, p := range positions {
		price, ok := marks[p.TokenAddress]
		if !ok {
			l.log.Debug().
				Str("symbol", p.Symbol).
				Str("token", p.TokenAddress).
				Msg("no price this cycle, holding")
			continue
		}
		trade, err := l.book.CheckExit(ctx, p.ID, price)
		if err != nil {
			l.log.Error().Err(err).Str("position_id", p.ID).Msg("exit check failed")
			continue
		}
		if trade != nil {
			observability.RecordExitFill(string(trade.Reason), trade.PnLUSD)
			l.notifier.PositionClosed(p, trade)
		}
	}

	l.appendSnapshot(ctx, marks)
	observability.RecordMonitorCycle(l.now().Sub(start).Seconds())
}

// consumeStream drains live ticks into the price cache.
func (l *Loop) consumeStream(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-l.stream.Updates():
			if !ok {
				return
			}
			l.mu.Lock()
			l.cache[u.Address] = tick{price: u.PriceUSD, at: u.At}
			l.mu.Unlock()
		}
	}
}

// collectPrices resolves a price per distinct token: fresh stream ticks
// first, one batched HTTP quote for the rest. A token neither source can
// price is skipped this cycle rather than failing the others.
func (l *Loop) collectPrices(ctx context.Context, positions []*domain.Position) map[string]float64 {
	seen := make(map[string]struct{}, len(positions))
	addrs := make([]string, 0, len(positions))
	for _, p := range positions {
		if _, ok := seen[p.TokenAddress]; ok {
			continue
		}
		seen[p.TokenAddress] = struct{}{}
		addrs = append(addrs, p.TokenAddress)
	}
	sort.Strings(addrs)
	l.updateWatch(ctx, addrs)

	marks := make(map[string]float64, len(addrs))
	var missing []string
	cutoff := l.now().Add(-priceStaleAfter)

	l.mu.RLock()
	for _, a := range addrs {
		if tk, ok := l.cache[a]; ok && tk.price > 0 && tk.at.After(cutoff) {
			marks[a] = tk.price
			observability.RecordPriceLookup("stream")
			continue
		}
		missing = append(missing, a)
	}
	l.mu.RUnlock()

	if len(missing) == 0 {
		return marks
	}

	fetched, err := l.prices.Prices(ctx, missing)
	if err != nil {
		l.log.Warn().Err(err).Int("tokens", len(missing)).Msg("price fallback fetch failed")
	}
	for _, a := range missing {
		if v, ok := fetched[a]; ok && v > 0 {
			marks[a] = v
			observability.RecordPriceLookup("http")
			continue
		}
		observability.RecordPriceLookup("missing")
	}
	return marks
}

// updateWatch pushes the deduped address set to the stream when it changed.
func (l *Loop) updateWatch(ctx context.Context, addrs []string) {
	if l.stream == nil {
		return
	}
	key := strings.Join(addrs, ",")

	l.mu.Lock()
	defer l.mu.Unlock()
	if key == l.watchKey {
		return
	}
	if err := l.stream.Watch(ctx, addrs); err != nil {
		l.log.Warn().Err(err).Msg("stream watch update failed")
		return
	}
	l.watchKey = key
}

// appendSnapshot writes the cycle's portfolio row, retrying once before
// giving up until the next cycle.
func (l *Loop) appendSnapshot(ctx context.Context, marks map[string]float64) {
	snap := l.book.Portfolio(marks)
	observability.UpdatePortfolio(snap.CashUSD, snap.EquityUSD, snap.OpenPositions)

	err := l.snaps.Insert(ctx, snap)
	if err != nil {
		err = l.snaps.Insert(ctx, snap)
	}
	if err != nil {
		observability.RecordSnapshotFailure()
		l.log.Error().Err(err).Msg("snapshot append failed after retry")
	}
}
