package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"solana-revival-scanner/internal/metrics"
	"solana-revival-scanner/internal/notify"
	"solana-revival-scanner/internal/orchestrator"
	"solana-revival-scanner/internal/paper"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one discovery cycle and open positions",
	Long: `Run a single pass of the discovery funnel, persist funnel stats and
score snapshots, and open paper positions for candidates clearing the
entry threshold. Exit monitoring is left to the run command.

Example:
  scanner scan --use-memory --birdeye-key KEY --rpc-endpoint https://api.mainnet-beta.solana.com`,
	RunE: runSingleScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runSingleScan(cmd *cobra.Command, args []string) error {
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

	pipe, _ := buildScanner(cfg, logger)

	book := paper.NewManager(paper.Options{
		Config:    cfg.Paper,
		Positions: stores.positions,
		Trades:    stores.trades,
		Logger:    logger,
	})
	if err := book.Recover(ctx); err != nil {
		return fmt.Errorf("recover portfolio: %w", err)
	}

	orch := orchestrator.New(orchestrator.Options{
		Config:   cfg,
		Scanner:  pipe,
		Book:     book,
		Scores:   stores.scores,
		Funnel:   stores.funnel,
		Trades:   stores.trades,
		Metrics:  metrics.NewAggregator(stores.positions, stores.trades, stores.snapshots, stores.summaries),
		Notifier: notify.NewLog(logger),
		Logger:   logger,
	})

	result, err := orch.RunScanCycle(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Scan %s completed:\n", result.ScanID)
	fmt.Printf("  Discovered: %d\n", result.Discovered)
	fmt.Printf("  Candidates: %d\n", result.Candidates)
	fmt.Printf("  Opened: %d\n", result.Opened)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	return nil
}
