package scoring

import (
	"context"
	"errors"
	"math"
	"testing"

	"solana-revival-scanner/internal/cache"
	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/source"
)

type fakeHistory struct {
	calls       int
	granularity domain.Granularity
	from, to    int64
	candles     []*domain.Candle
	err         error
}

func (f *fakeHistory) PriceHistory(ctx context.Context, address string, granularity domain.Granularity, from, to int64) ([]*domain.Candle, error) {
	f.calls++
	f.granularity = granularity
	f.from = from
	f.to = to
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

type fakeTraders struct {
	calls int
	stats []source.TraderStat
	err   error
}

func (f *fakeTraders) TopTraders(ctx context.Context, address string) ([]source.TraderStat, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

func newTestEngine(history *fakeHistory, traders *fakeTraders, opts ...Option) *Engine {
	return NewEngine(history, traders, cache.NewMemory(64), opts...)
}

func scoredToken(address string) *domain.Token {
	return &domain.Token{
		Address:          address,
		Symbol:           "RVL",
		LiquidityUSD:     25_000,
		MarketCapUSD:     2_000_000,
		Volume24hUSD:     60_000,
		AgeHours:         f64(96),
		Buys1h:           i64(75),
		Sells1h:          i64(50),
		UniqueWallets24h: i64(350),
		Watchers:         i64(60),
		Views24h:         i64(600),
		BuyRatio:         f64(0.6),
	}
}

func TestEngine_Score(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{candles: revivalCandles()}
	traders := &fakeTraders{stats: []source.TraderStat{
		{Wallet: "whale-1", ValueUSD: 150_000},
		{Wallet: "whale-2", ValueUSD: 250_000},
		{Wallet: "minnow", ValueUSD: 4_000},
	}}
	engine := newTestEngine(history, traders)

	got, err := engine.Score(ctx, scoredToken("mint-a"))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if got.Price != 1.0 {
		t.Errorf("price score = %f, want 1.0", got.Price)
	}
	if got.SmartMoney != 0.5 {
		t.Errorf("smart money score = %f, want 0.5", got.SmartMoney)
	}
	if got.Volume != 1.0 {
		t.Errorf("volume score = %f, want 1.0", got.Volume)
	}
	if math.Abs(got.Social-0.80) > 1e-9 {
		t.Errorf("social score = %f, want 0.80", got.Social)
	}
	// 0.6*1.0 + 0.15*0.5 + 0.15*1.0 + 0.10*0.80
	if math.Abs(got.Composite-0.905) > 1e-9 {
		t.Errorf("composite = %f, want 0.905", got.Composite)
	}

	if history.granularity != domain.Granularity1H {
		t.Errorf("granularity = %s, want 1H for a 96h token", history.granularity)
	}
	if window := history.to - history.from; window != 5*86400 {
		t.Errorf("history window = %ds, want 5 days", window)
	}
}

func TestEngine_Score_CachedWithinTTL(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{candles: revivalCandles()}
	traders := &fakeTraders{}
	engine := newTestEngine(history, traders)

	first, err := engine.Score(ctx, scoredToken("mint-a"))
	if err != nil {
		t.Fatalf("first Score: %v", err)
	}
	second, err := engine.Score(ctx, scoredToken("mint-a"))
	if err != nil {
		t.Fatalf("second Score: %v", err)
	}

	if history.calls != 1 || traders.calls != 1 {
		t.Errorf("expected sources hit once, got history=%d traders=%d", history.calls, traders.calls)
	}
	if first != second {
		t.Errorf("cached breakdown differs: %+v vs %+v", first, second)
	}

	if _, err := engine.Score(ctx, scoredToken("mint-b")); err != nil {
		t.Fatalf("third Score: %v", err)
	}
	if history.calls != 2 {
		t.Errorf("expected a fresh fetch for a new address, got %d calls", history.calls)
	}
}

func TestEngine_Score_HistoryUnavailable(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{err: source.Unavailable(source.BirdEye, errors.New("timeout"))}
	traders := &fakeTraders{stats: []source.TraderStat{{Wallet: "w", ValueUSD: 500_000}}}
	engine := newTestEngine(history, traders)

	got, err := engine.Score(ctx, scoredToken("mint-a"))
	if err != nil {
		t.Fatalf("vendor trouble must not fail the token: %v", err)
	}
	if got.Price != 0 {
		t.Errorf("price score = %f, want 0 without history", got.Price)
	}
	if got.SmartMoney != 0.25 {
		t.Errorf("smart money score = %f, want 0.25", got.SmartMoney)
	}
}

func TestEngine_Score_TradersUnavailable(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{candles: revivalCandles()}
	traders := &fakeTraders{err: source.RateLimited(source.BirdEye, errors.New("429"))}
	engine := newTestEngine(history, traders)

	got, err := engine.Score(ctx, scoredToken("mint-a"))
	if err != nil {
		t.Fatalf("vendor trouble must not fail the token: %v", err)
	}
	if got.SmartMoney != 0 {
		t.Errorf("smart money score = %f, want 0 without traders", got.SmartMoney)
	}
	if got.Price != 1.0 {
		t.Errorf("price score = %f, want 1.0", got.Price)
	}
}

func TestEngine_Score_ContextCanceled(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{err: context.Canceled}
	engine := newTestEngine(history, &fakeTraders{})

	if _, err := engine.Score(ctx, scoredToken("mint-a")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEngine_Score_DefaultAge(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{}
	engine := newTestEngine(history, &fakeTraders{})

	token := scoredToken("mint-a")
	token.AgeHours = nil
	if _, err := engine.Score(ctx, token); err != nil {
		t.Fatalf("Score: %v", err)
	}

	if history.granularity != domain.Granularity1H {
		t.Errorf("granularity = %s, want 1H for the default age", history.granularity)
	}
	if window := history.to - history.from; window != 4*86400 {
		t.Errorf("history window = %ds, want 4 days for the default age", window)
	}
}

func TestEngine_Score_OldTokenGranularity(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{}
	engine := newTestEngine(history, &fakeTraders{})

	token := scoredToken("mint-a")
	token.AgeHours = f64(5000)
	if _, err := engine.Score(ctx, token); err != nil {
		t.Fatalf("Score: %v", err)
	}

	if history.granularity != domain.Granularity1D {
		t.Errorf("granularity = %s, want 1D for a 5000h token", history.granularity)
	}
	if window := history.to - history.from; window != 30*86400 {
		t.Errorf("history window = %ds, want the 30 day cap", window)
	}
}

func TestEngine_Score_CompositeClamped(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{candles: revivalCandles()}
	engine := newTestEngine(history, &fakeTraders{},
		WithWeights(Weights{Price: 2.0}))

	got, err := engine.Score(ctx, scoredToken("mint-a"))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if got.Composite != 1.0 {
		t.Errorf("composite = %f, want clamp at 1.0", got.Composite)
	}
}
