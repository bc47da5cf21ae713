package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solana-revival-scanner/internal/birdeye"
	"solana-revival-scanner/internal/config"
	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/paper"
	"solana-revival-scanner/internal/storage/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakePrices struct {
	mu     sync.Mutex
	calls  [][]string
	prices map[string]float64
	err    error
}

func (f *fakePrices) Price(_ context.Context, address string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.prices[address], nil
}

func (f *fakePrices) Prices(_ context.Context, addresses []string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), addresses...))
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]float64, len(addresses))
	for _, a := range addresses {
		if v, ok := f.prices[a]; ok {
			out[a] = v
		}
	}
	return out, nil
}

func (f *fakePrices) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeStream struct {
	mu      sync.Mutex
	watched [][]string
	updates chan birdeye.PriceUpdate
}

func newFakeStream() *fakeStream {
	return &fakeStream{updates: make(chan birdeye.PriceUpdate, 16)}
}

func (f *fakeStream) Watch(_ context.Context, addresses []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watched = append(f.watched, append([]string(nil), addresses...))
	return nil
}

func (f *fakeStream) Updates() <-chan birdeye.PriceUpdate { return f.updates }

func (f *fakeStream) watchCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.watched...)
}

type flakySnapshots struct {
	mu    sync.Mutex
	fails int
	rows  []*domain.PortfolioSnapshot
}

func (f *flakySnapshots) Insert(_ context.Context, s *domain.PortfolioSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("snapshot write refused")
	}
	f.rows = append(f.rows, s)
	return nil
}

func (f *flakySnapshots) GetLatest(context.Context) (*domain.PortfolioSnapshot, error) {
	return nil, errors.New("not implemented")
}

func (f *flakySnapshots) GetByTimeRange(context.Context, int64, int64) ([]*domain.PortfolioSnapshot, error) {
	return nil, errors.New("not implemented")
}

func (f *flakySnapshots) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type captureNotifier struct {
	mu     sync.Mutex
	closed []*domain.Trade
}

func (c *captureNotifier) PositionOpened(*domain.Position) {}

func (c *captureNotifier) PositionClosed(_ *domain.Position, t *domain.Trade) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = append(c.closed, t)
}

func (c *captureNotifier) closedTrades() []*domain.Trade {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.Trade(nil), c.closed...)
}

func paperConfig() config.PaperConfig {
	return config.PaperConfig{
		StartingCashUSD: 10_000,
		PositionSizeUSD: 1_000,
		MaxPositions:    10,
		MinEntryScore:   0.4,
		StopLossPct:     0.20,
		TakeProfits: []config.TakeProfitTier{
			{TriggerPct: 0.40, SellFraction: 0.35},
			{TriggerPct: 0.75, SellFraction: 0.30},
		},
		MaxHoldHours:   120,
		MaxExitRetries: 3,
	}
}

type loopEnv struct {
	loop   *Loop
	mgr    *paper.Manager
	prices *fakePrices
	stream *fakeStream
	snaps  *flakySnapshots
	notes  *captureNotifier
	clock  *testClock
}

func newLoopEnv(t *testing.T) *loopEnv {
	t.Helper()
	env := &loopEnv{
		prices: &fakePrices{prices: map[string]float64{}},
		stream: newFakeStream(),
		snaps:  &flakySnapshots{},
		notes:  &captureNotifier{},
		clock:  newTestClock(),
	}
	env.mgr = paper.NewManager(paper.Options{
		Config:    paperConfig(),
		Positions: memory.NewPositionStore(),
		Trades:    memory.NewTradeStore(),
		Now:       env.clock.Now,
	})
	env.loop = New(Options{
		Config:    config.MonitorConfig{IntervalSecs: 30},
		Book:      env.mgr,
		Prices:    env.prices,
		Stream:    env.stream,
		Snapshots: env.snaps,
		Notifier:  env.notes,
		Logger:    zerolog.Nop(),
		Now:       env.clock.Now,
	})
	return env
}

func (e *loopEnv) open(t *testing.T, address string, price float64) *domain.Position {
	t.Helper()
	p, err := e.mgr.Open(context.Background(), &domain.Candidate{
		Token: domain.Token{
			Address:  address,
			Symbol:   "RVL",
			PriceUSD: price,
		},
		Scores: domain.ScoreBreakdown{Composite: 0.72},
		Phase:  domain.PhaseScored,
	}, 1_000)
	if err != nil {
		t.Fatalf("open %s: %v", address, err)
	}
	e.clock.Advance(time.Second)
	return p
}

func TestCycle_ClosesOnFallbackPrice(t *testing.T) {
	ctx := context.Background()
	env := newLoopEnv(t)
	env.open(t, "mint-a", 1.0)
	env.prices.prices["mint-a"] = 0.79

	env.loop.Cycle(ctx)

	closed := env.notes.closedTrades()
	if len(closed) != 1 {
		t.Fatalf("closed trades = %d, want 1", len(closed))
	}
	if closed[0].Reason != domain.ExitStopLoss {
		t.Errorf("Reason = %s, want STOP_LOSS", closed[0].Reason)
	}
	if got := env.mgr.OpenPositions(); len(got) != 0 {
		t.Errorf("open positions = %d, want 0", len(got))
	}
	if env.snaps.count() != 1 {
		t.Errorf("snapshots = %d, want 1", env.snaps.count())
	}
	if env.snaps.rows[0].OpenPositions != 0 {
		t.Errorf("snapshot open positions = %d, want 0", env.snaps.rows[0].OpenPositions)
	}
}

func TestCycle_StreamCacheSkipsFallback(t *testing.T) {
	ctx := context.Background()
	env := newLoopEnv(t)
	env.open(t, "mint-a", 1.0)

	env.loop.cache["mint-a"] = tick{price: 1.45, at: env.clock.Now()}
	env.loop.Cycle(ctx)

	if n := env.prices.callCount(); n != 0 {
		t.Errorf("fallback calls = %d, want 0", n)
	}
	closed := env.notes.closedTrades()
	if len(closed) != 1 || closed[0].Reason != domain.ExitTakeProfit1 {
		t.Fatalf("closed = %+v, want one TAKE_PROFIT_1", closed)
	}
}

func TestCycle_StaleTickFallsBack(t *testing.T) {
	ctx := context.Background()
	env := newLoopEnv(t)
	env.open(t, "mint-a", 1.0)

	env.loop.cache["mint-a"] = tick{price: 1.45, at: env.clock.Now().Add(-3 * time.Minute)}
	env.prices.prices["mint-a"] = 1.10

	env.loop.Cycle(ctx)

	if n := env.prices.callCount(); n != 1 {
		t.Errorf("fallback calls = %d, want 1", n)
	}
	// 1.10 holds: no exits on the fresh quote, stale 1.45 ignored.
	if closed := env.notes.closedTrades(); len(closed) != 0 {
		t.Errorf("closed = %d, want 0", len(closed))
	}
}

func TestCycle_PriceFailureHoldsEverything(t *testing.T) {
	ctx := context.Background()
	env := newLoopEnv(t)
	env.open(t, "mint-a", 1.0)
	env.open(t, "mint-b", 2.0)
	env.prices.err = errors.New("rate limited")

	env.loop.Cycle(ctx)

	if got := env.mgr.OpenPositions(); len(got) != 2 {
		t.Fatalf("open positions = %d, want 2 held", len(got))
	}
	if env.snaps.count() != 1 {
		t.Fatalf("snapshots = %d, want 1 despite price failure", env.snaps.count())
	}
	// Valued at entry when no mark is available.
	if env.snaps.rows[0].EquityUSD != 10_000 {
		t.Errorf("EquityUSD = %v, want 10000", env.snaps.rows[0].EquityUSD)
	}
}

func TestCycle_PartialPriceFailure(t *testing.T) {
	ctx := context.Background()
	env := newLoopEnv(t)
	env.open(t, "mint-a", 1.0)
	env.open(t, "mint-b", 2.0)
	// Only mint-b resolves; mint-a is skipped, not fatal.
	env.prices.prices["mint-b"] = 1.0

	env.loop.Cycle(ctx)

	closed := env.notes.closedTrades()
	if len(closed) != 1 {
		t.Fatalf("closed = %d, want only the priced token", len(closed))
	}
	if closed[0].TokenAddress != "mint-b" || closed[0].Reason != domain.ExitStopLoss {
		t.Errorf("closed = %+v, want mint-b STOP_LOSS", closed[0])
	}
	open := env.mgr.OpenPositions()
	if len(open) != 1 || open[0].TokenAddress != "mint-a" {
		t.Errorf("open = %+v, want mint-a held", open)
	}
}

func TestCycle_DedupesTokenFetches(t *testing.T) {
	ctx := context.Background()
	env := newLoopEnv(t)
	env.open(t, "mint-a", 1.0)
	env.open(t, "mint-a", 1.0)
	env.open(t, "mint-b", 1.0)
	env.prices.prices["mint-a"] = 1.10
	env.prices.prices["mint-b"] = 1.10

	env.loop.Cycle(ctx)

	calls := env.prices.calls
	if len(calls) != 1 {
		t.Fatalf("fallback calls = %d, want one batch", len(calls))
	}
	if len(calls[0]) != 2 || calls[0][0] != "mint-a" || calls[0][1] != "mint-b" {
		t.Errorf("batch = %v, want deduped sorted [mint-a mint-b]", calls[0])
	}
}

func TestCycle_WatchSetFollowsBook(t *testing.T) {
	ctx := context.Background()
	env := newLoopEnv(t)
	env.open(t, "mint-a", 1.0)
	env.prices.prices["mint-a"] = 1.10

	env.loop.Cycle(ctx)
	env.loop.Cycle(ctx)

	calls := env.stream.watchCalls()
	if len(calls) != 1 {
		t.Fatalf("watch calls = %d, want 1 for an unchanged set", len(calls))
	}
	if len(calls[0]) != 1 || calls[0][0] != "mint-a" {
		t.Errorf("watch set = %v, want [mint-a]", calls[0])
	}

	// Stop the position out; the next cycle drops the subscription.
	env.prices.prices["mint-a"] = 0.79
	env.loop.Cycle(ctx)
	env.loop.Cycle(ctx)

	calls = env.stream.watchCalls()
	if len(calls) != 2 {
		t.Fatalf("watch calls = %d, want 2 after the set changed", len(calls))
	}
	if len(calls[1]) != 0 {
		t.Errorf("final watch set = %v, want empty", calls[1])
	}
}

func TestCycle_SnapshotRetriesOnce(t *testing.T) {
	ctx := context.Background()
	env := newLoopEnv(t)
	env.snaps.fails = 1

	env.loop.Cycle(ctx)

	if env.snaps.count() != 1 {
		t.Errorf("snapshots = %d, want 1 after a single retry", env.snaps.count())
	}

	env.snaps.fails = 2
	env.loop.Cycle(ctx)

	if env.snaps.count() != 1 {
		t.Errorf("snapshots = %d, want still 1 when both attempts fail", env.snaps.count())
	}
}

func TestConsumeStream_FeedsCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newLoopEnv(t)

	go env.loop.consumeStream(ctx)
	env.stream.updates <- birdeye.PriceUpdate{
		Address:  "mint-a",
		PriceUSD: 1.23,
		At:       env.clock.Now(),
	}

	deadline := time.After(2 * time.Second)
	for {
		env.loop.mu.RLock()
		tk, ok := env.loop.cache["mint-a"]
		env.loop.mu.RUnlock()
		if ok {
			if tk.price != 1.23 {
				t.Fatalf("cached price = %v, want 1.23", tk.price)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("tick never reached the cache")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	env := newLoopEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := env.loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
}
