package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

func createTestTrade(tradeID, positionID string, executedAt int64) *domain.Trade {
	return &domain.Trade{
		TradeID:        tradeID,
		PositionID:     positionID,
		TokenAddress:   "mint-1",
		Symbol:         "REVIVE",
		Fraction:       0.40,
		Quantity:       392.15,
		EntryPrice:     1.02,
		ExitPrice:      1.3720,
		SlippagePct:    0.02,
		FeeUSD:         0.32,
		ProceedsUSD:    537.7,
		PnLUSD:         137.6,
		Reason:         domain.ExitTakeProfit1,
		ExecutedAt:     executedAt,
		RemainingAfter: 0.60,
	}
}

func TestTradeStore_InsertAndGetByPositionID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trade := createTestTrade("trade-001", "pos-001", 1704067200000)
	require.NoError(t, store.Insert(ctx, trade))

	result, err := store.GetByPositionID(ctx, "pos-001")
	require.NoError(t, err)
	require.Len(t, result, 1)

	retrieved := result[0]
	assert.Equal(t, trade.TradeID, retrieved.TradeID)
	assert.Equal(t, trade.PositionID, retrieved.PositionID)
	assert.InDelta(t, trade.Fraction, retrieved.Fraction, 0.0001)
	assert.InDelta(t, trade.ExitPrice, retrieved.ExitPrice, 0.0001)
	assert.InDelta(t, trade.ProceedsUSD, retrieved.ProceedsUSD, 0.0001)
	assert.InDelta(t, trade.PnLUSD, retrieved.PnLUSD, 0.0001)
	assert.Equal(t, domain.ExitTakeProfit1, retrieved.Reason)
	assert.InDelta(t, trade.RemainingAfter, retrieved.RemainingAfter, 0.0001)
}

func TestTradeStore_DuplicateIsReplaySignal(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trade := createTestTrade("trade-001", "pos-001", 1704067200000)
	require.NoError(t, store.Insert(ctx, trade))

	err := store.Insert(ctx, trade)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "expected ErrDuplicateKey, got %v", err)

	// The original row is untouched
	result, err := store.GetByPositionID(ctx, "pos-001")
	require.NoError(t, err)
	assert.Len(t, result, 1)
}

func TestTradeStore_Ordering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	for _, tr := range []*domain.Trade{
		createTestTrade("trade-b", "pos-001", 3000),
		createTestTrade("trade-a", "pos-001", 1000),
		createTestTrade("trade-c", "pos-001", 2000),
	} {
		require.NoError(t, store.Insert(ctx, tr))
	}

	result, err := store.GetByPositionID(ctx, "pos-001")
	require.NoError(t, err)
	require.Len(t, result, 3)

	assert.Equal(t, "trade-a", result[0].TradeID)
	assert.Equal(t, "trade-c", result[1].TradeID)
	assert.Equal(t, "trade-b", result[2].TradeID)
}

func TestTradeStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	for i, ts := range []int64{1000, 2000, 3000, 4000} {
		trade := createTestTrade(string(rune('a'+i))+"-trade", "pos-001", ts)
		require.NoError(t, store.Insert(ctx, trade))
	}

	result, err := store.GetByTimeRange(ctx, 2000, 3000)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, int64(2000), result[0].ExecutedAt)
	assert.Equal(t, int64(3000), result[1].ExecutedAt)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestTradeStore_Wipe(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	require.NoError(t, store.Insert(ctx, createTestTrade("trade-a", "pos-001", 1000)))
	require.NoError(t, store.Insert(ctx, createTestTrade("trade-b", "pos-001", 2000)))

	require.NoError(t, store.Wipe(ctx))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
