package memory

import (
	"context"
	"errors"
	"testing"

	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/storage"
)

func TestFunnelStore_InsertBulkAndGetByScanID(t *testing.T) {
	store := NewFunnelStore()
	ctx := context.Background()

	stats := []*domain.FunnelStat{
		{ScanID: "scan1", Phase: domain.PhaseScored, SurvivorCount: 3, Survivors: []string{"m1", "m2", "m3"}, RecordedAt: 1000},
		{ScanID: "scan1", Phase: domain.PhaseDiscovered, SurvivorCount: 900, RecordedAt: 1000},
		{ScanID: "scan1", Phase: domain.PhasePrefiltered, SurvivorCount: 40, RecordedAt: 1000},
	}

	if err := store.InsertBulk(ctx, stats); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByScanID(ctx, "scan1")
	if err != nil {
		t.Fatalf("GetByScanID failed: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("Expected 3 stats, got %d", len(got))
	}
	// Ordered by funnel stage
	if got[0].Phase != domain.PhaseDiscovered || got[2].Phase != domain.PhaseScored {
		t.Errorf("Order = %s...%s; want discovered...scored", got[0].Phase, got[2].Phase)
	}
	if len(got[2].Survivors) != 3 {
		t.Errorf("Survivors = %d, want 3", len(got[2].Survivors))
	}
}

func TestFunnelStore_GetRecent(t *testing.T) {
	store := NewFunnelStore()
	ctx := context.Background()

	stats := []*domain.FunnelStat{
		{ScanID: "scan1", Phase: domain.PhaseDiscovered, RecordedAt: 1000},
		{ScanID: "scan2", Phase: domain.PhaseDiscovered, RecordedAt: 2000},
		{ScanID: "scan3", Phase: domain.PhaseDiscovered, RecordedAt: 3000},
	}
	if err := store.InsertBulk(ctx, stats); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 stats, got %d", len(got))
	}
	if got[0].ScanID != "scan3" || got[1].ScanID != "scan2" {
		t.Errorf("Order = %s, %s; want scan3, scan2", got[0].ScanID, got[1].ScanID)
	}
}

func TestFunnelStore_SurvivorIsolation(t *testing.T) {
	store := NewFunnelStore()
	ctx := context.Background()

	stat := &domain.FunnelStat{
		ScanID: "scan1", Phase: domain.PhaseScored,
		SurvivorCount: 1, Survivors: []string{"m1"}, RecordedAt: 1000,
	}
	if err := store.InsertBulk(ctx, []*domain.FunnelStat{stat}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	stat.Survivors[0] = "mutated"

	got, _ := store.GetByScanID(ctx, "scan1")
	if got[0].Survivors[0] != "m1" {
		t.Error("Survivors should be deep-copied on insert")
	}
}

func TestFunnelStore_InvalidInput(t *testing.T) {
	store := NewFunnelStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.FunnelStat{
		{ScanID: "scan1", Phase: domain.Phase(99)},
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for bad phase, got %v", err)
	}

	if _, err := store.GetRecent(ctx, 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero limit, got %v", err)
	}
}
