package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

func TestFunnelStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFunnelStore(conn)
	ctx := context.Background()

	// Empty insert
	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)

	stats := []*domain.FunnelStat{
		{ScanID: "scan-1", Phase: domain.PhaseScored, SurvivorCount: 2, Survivors: []string{"token-a", "token-b"}, RecordedAt: 1000},
		{ScanID: "scan-1", Phase: domain.PhaseDiscovered, SurvivorCount: 100, Survivors: nil, RecordedAt: 1000},
		{ScanID: "scan-1", Phase: domain.PhasePrefiltered, SurvivorCount: 12, Survivors: []string{"token-a", "token-b", "token-c"}, RecordedAt: 1000},
	}

	err = store.InsertBulk(ctx, stats)
	require.NoError(t, err)

	got, err := store.GetByScanID(ctx, "scan-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Funnel order regardless of insert order
	assert.Equal(t, domain.PhaseDiscovered, got[0].Phase)
	assert.Equal(t, domain.PhasePrefiltered, got[1].Phase)
	assert.Equal(t, domain.PhaseScored, got[2].Phase)

	assert.Equal(t, 100, got[0].SurvivorCount)
	assert.Empty(t, got[0].Survivors)
	assert.Equal(t, []string{"token-a", "token-b", "token-c"}, got[1].Survivors)
	assert.Equal(t, []string{"token-a", "token-b"}, got[2].Survivors)
	assert.Equal(t, int64(1000), got[0].RecordedAt)
}

func TestFunnelStore_InsertBulk_InvalidPhase(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFunnelStore(conn)
	ctx := context.Background()

	stats := []*domain.FunnelStat{
		{ScanID: "scan-1", Phase: domain.Phase(99), SurvivorCount: 1, RecordedAt: 1000},
	}

	err := store.InsertBulk(ctx, stats)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestFunnelStore_GetByScanID_Empty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFunnelStore(conn)
	ctx := context.Background()

	got, err := store.GetByScanID(ctx, "scan-999")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFunnelStore_GetRecent(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFunnelStore(conn)
	ctx := context.Background()

	older := []*domain.FunnelStat{
		{ScanID: "scan-1", Phase: domain.PhaseDiscovered, SurvivorCount: 100, RecordedAt: 1000},
		{ScanID: "scan-1", Phase: domain.PhasePrefiltered, SurvivorCount: 10, RecordedAt: 1000},
	}
	newer := []*domain.FunnelStat{
		{ScanID: "scan-2", Phase: domain.PhaseDiscovered, SurvivorCount: 80, RecordedAt: 2000},
		{ScanID: "scan-2", Phase: domain.PhasePrefiltered, SurvivorCount: 8, RecordedAt: 2000},
	}
	require.NoError(t, store.InsertBulk(ctx, older))
	require.NoError(t, store.InsertBulk(ctx, newer))

	// Newest scan first, later phases first within a scan
	got, err := store.GetRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "scan-2", got[0].ScanID)
	assert.Equal(t, domain.PhasePrefiltered, got[0].Phase)
	assert.Equal(t, "scan-2", got[1].ScanID)
	assert.Equal(t, domain.PhaseDiscovered, got[1].Phase)
	assert.Equal(t, "scan-1", got[2].ScanID)

	// Limit larger than row count
	got, err = store.GetRecent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	// Invalid limit
	_, err = store.GetRecent(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
