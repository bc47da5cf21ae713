package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"solana-revival-scanner/internal/birdeye"
	"solana-revival-scanner/internal/metrics"
	"solana-revival-scanner/internal/monitor"
	"solana-revival-scanner/internal/notify"
	"solana-revival-scanner/internal/orchestrator"
	"solana-revival-scanner/internal/paper"
)

var (
	runListenAddr     string
	runStreamEndpoint string
	runNoStream       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scanner continuously",
	Long: `Continuous mode: the discovery funnel runs on its scan interval, the
monitor walks open positions against live prices, and a dashboard serves
portfolio state, Prometheus metrics and the performance summary.

The monitor polls BirdEye for prices; when the WebSocket stream connects
it keeps the price cache warm between polls. Stop with SIGINT or SIGTERM.

Example:
  scanner run --listen :8080 --postgres-dsn $POSTGRES_DSN --clickhouse-dsn $CLICKHOUSE_DSN`,
	RunE: runContinuous,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runListenAddr, "listen", ":8080", "Dashboard HTTP address, empty disables")
	runCmd.Flags().StringVar(&runStreamEndpoint, "stream-endpoint", birdeye.DefaultStreamURL, "BirdEye WebSocket endpoint")
	runCmd.Flags().BoolVar(&runNoStream, "no-stream", false, "Disable the WebSocket price stream, poll only")
}

func runContinuous(cmd *cobra.Command, args []string) error {
	if err := requireSourceFlags(); err != nil {
		return err
	}
	if err := requireStorageFlags(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := createStores(ctx, postgresDSN, clickhouseDSN, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	pipe, bird := buildScanner(cfg, logger)

	book := paper.NewManager(paper.Options{
		Config:    cfg.Paper,
		Positions: stores.positions,
		Trades:    stores.trades,
		Logger:    logger,
	})
	if err := book.Recover(ctx); err != nil {
		return fmt.Errorf("recover portfolio: %w", err)
	}

	notifier := notify.NewLog(logger)

	var stream monitor.PriceStream
	if !runNoStream && runStreamEndpoint != "" {
		s, err := birdeye.NewStream(ctx, runStreamEndpoint, birdeyeKey, logger, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("price stream unavailable, monitor will poll only")
		} else {
			defer s.Close()
			stream = s
		}
	}

	loop := monitor.New(monitor.Options{
		Config:    cfg.Monitor,
		Book:      book,
		Prices:    bird,
		Stream:    stream,
		Snapshots: stores.snapshots,
		Notifier:  notifier,
		Logger:    logger,
	})

	orch := orchestrator.New(orchestrator.Options{
		Config:     cfg,
		Scanner:    pipe,
		Book:       book,
		Monitor:    loop,
		Scores:     stores.scores,
		Funnel:     stores.funnel,
		Trades:     stores.trades,
		Metrics:    metrics.NewAggregator(stores.positions, stores.trades, stores.snapshots, stores.summaries),
		Notifier:   notifier,
		ListenAddr: runListenAddr,
		Logger:     logger,
	})

	if err := orch.RunContinuous(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}
