package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"solana-revival-scanner/internal/paper"
)

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe the paper portfolio back to starting cash",
	Long: `Delete every position and trade and restore the starting balance.
Funnel stats, score snapshots and the equity curve are analytics history
and are kept.

Destructive; requires --yes.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "Confirm wiping all positions and trades")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetConfirmed {
		return errors.New("refusing to wipe the portfolio without --yes")
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

	book := paper.NewManager(paper.Options{
		Config:    cfg.Paper,
		Positions: stores.positions,
		Trades:    stores.trades,
		Logger:    logger,
	})
	if err := book.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("Paper portfolio reset to $%.2f starting cash\n", cfg.Paper.StartingCashUSD)
	return nil
}
