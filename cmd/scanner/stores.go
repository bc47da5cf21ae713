package main

import (
	"context"
	"fmt"

	"solana-revival-scanner/internal/storage"
	"solana-revival-scanner/internal/storage/clickhouse"
	"solana-revival-scanner/internal/storage/memory"
	"solana-revival-scanner/internal/storage/postgres"
)

// allStores bundles every store the commands wire. The ledger (positions,
// trades, summaries) lives in PostgreSQL; append-only analytics (funnel,
// scores, snapshots) live in ClickHouse.
type allStores struct {
	positions storage.PositionStore
	trades    storage.TradeStore
	summaries storage.SummaryStore

	funnel    storage.FunnelStore
	scores    storage.ScoreStore
	snapshots storage.SnapshotStore
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			positions: memory.NewPositionStore(),
			trades:    memory.NewTradeStore(),
			summaries: memory.NewSummaryStore(),
			funnel:    memory.NewFunnelStore(),
			scores:    memory.NewScoreStore(),
			snapshots: memory.NewSnapshotStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	conn, err := clickhouse.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := &allStores{
		positions: postgres.NewPositionStore(pool),
		trades:    postgres.NewTradeStore(pool),
		summaries: postgres.NewSummaryStore(pool),

		funnel:    clickhouse.NewFunnelStore(conn),
		scores:    clickhouse.NewScoreStore(conn),
		snapshots: clickhouse.NewSnapshotStore(conn),
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}
