package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
	"solana-revival-scanner/internal/storage/memory"
)

func TestAggregator_Recompute(t *testing.T) {
	ctx := context.Background()
	base := int64(1_700_000_000_000)

	positions := memory.NewPositionStore()
	trades := memory.NewTradeStore()
	snapshots := memory.NewSnapshotStore()
	summaries := memory.NewSummaryStore()

	if err := positions.Insert(ctx, &domain.Position{ID: "pos-1", TokenAddress: "mint-a", EntryTime: base}); err != nil {
		t.Fatalf("seed position: %v", err)
	}
	seedTrades := []*domain.Trade{
		{TradeID: "t-1", PositionID: "pos-1", Quantity: 500, EntryPrice: 1.0, PnLUSD: 200, Reason: domain.ExitTakeProfit1, ExecutedAt: base + 2*millisPerHour},
		{TradeID: "t-2", PositionID: "pos-1", Quantity: 500, EntryPrice: 1.0, PnLUSD: -100, Reason: domain.ExitStopLoss, ExecutedAt: base + 4*millisPerHour},
	}
	for _, tr := range seedTrades {
		if err := trades.Insert(ctx, tr); err != nil {
			t.Fatalf("seed trade %s: %v", tr.TradeID, err)
		}
	}
	seedSnaps := []*domain.PortfolioSnapshot{
		{SnapshotTime: base, EquityUSD: 10_000, CashUSD: 9_000},
		{SnapshotTime: base + 5*millisPerHour, EquityUSD: 10_100, CashUSD: 10_100, RealizedPnLUSD: 100},
	}
	for _, snap := range seedSnaps {
		if err := snapshots.Insert(ctx, snap); err != nil {
			t.Fatalf("seed snapshot: %v", err)
		}
	}

	agg := NewAggregator(positions, trades, snapshots, summaries)
	now := base + 6*millisPerHour
	agg.now = func() time.Time { return time.UnixMilli(now) }

	s, err := agg.Recompute(ctx)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if s.TotalTrades != 2 || s.Wins != 1 || s.Losses != 1 {
		t.Errorf("trades/wins/losses = %d/%d/%d, want 2/1/1", s.TotalTrades, s.Wins, s.Losses)
	}
	if !near(s.WinRate, 0.5) {
		t.Errorf("WinRate = %v, want 0.5", s.WinRate)
	}
	if !near(s.AvgHoldHours, 3) {
		t.Errorf("AvgHoldHours = %v, want 3", s.AvgHoldHours)
	}
	if !near(s.EquityUSD, 10_100) || !near(s.RealizedPnLUSD, 100) {
		t.Errorf("equity/realized = %v/%v, want 10100/100 from latest snapshot", s.EquityUSD, s.RealizedPnLUSD)
	}
	if s.UpdatedAt != now {
		t.Errorf("UpdatedAt = %d, want %d", s.UpdatedAt, now)
	}

	cached, err := agg.Cached(ctx)
	if err != nil {
		t.Fatalf("Cached after Recompute: %v", err)
	}
	if cached.TotalTrades != s.TotalTrades || !near(cached.WinRate, s.WinRate) || cached.UpdatedAt != s.UpdatedAt {
		t.Errorf("cached summary %+v does not match recomputed %+v", cached, s)
	}
}

func TestAggregator_CachedBeforeRecompute(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(memory.NewPositionStore(), memory.NewTradeStore(), memory.NewSnapshotStore(), memory.NewSummaryStore())

	if _, err := agg.Cached(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Cached on empty store: err = %v, want ErrNotFound", err)
	}
}
