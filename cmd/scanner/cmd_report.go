package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"solana-revival-scanner/internal/metrics"
	"solana-revival-scanner/internal/reporting"
)

var reportOutputDir string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate markdown and CSV reports from the ledger",
	Long: `Recompute the performance summary and write the full report set:
report.md with performance, exits, positions, trades and the discovery
funnel, plus trades.csv, funnel.csv and scores.csv for downstream tools.

Runs offline against storage; no API keys needed.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportOutputDir, "output", "output", "Output directory for report files")
}

func runReport(cmd *cobra.Command, args []string) error {
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

	agg := metrics.NewAggregator(stores.positions, stores.trades, stores.snapshots, stores.summaries)
	gen := reporting.NewGenerator(stores.positions, stores.trades, stores.funnel, stores.scores, agg)

	report, err := gen.Generate(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(reportOutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{"report.md", reporting.RenderMarkdown(report)},
		{"trades.csv", reporting.RenderTradesCSV(report.Trades)},
		{"funnel.csv", reporting.RenderFunnelCSV(report.Funnel)},
		{"scores.csv", reporting.RenderScoresCSV(report.Scores)},
	}
	for _, f := range files {
		path := filepath.Join(reportOutputDir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	fmt.Println("Reports generated:")
	for _, f := range files {
		fmt.Printf("  - %s\n", filepath.Join(reportOutputDir, f.name))
	}
	return nil
}
