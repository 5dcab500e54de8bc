package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolScope/internal/chain"
	"poolScope/internal/collector"
	"poolScope/internal/config"
	"poolScope/internal/statedb"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSnapshot(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("--rpc is required")
	}
	if cfg.DB == "" {
		return fmt.Errorf("--db is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queries, err := loadQueries(cfg.Queries, cfg.PoolIDs)
	if err != nil {
		return err
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	block := cfg.Block
	if block == 0 {
		latest, err := chainClient.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		block = latest
	}

	snap, err := statedb.OpenSnapshot(cfg.DB)
	if err != nil {
		return err
	}
	defer snap.Close()

	rpcReader := statedb.NewRPCReader(chainClient, statedb.RPCReaderConfig{
		Block:        block,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	recorder := statedb.NewRecordingReader(rpcReader, snap)

	discoverTickSpacing(ctx, chainClient, queries, logger)

	logger.Info("snapshot start",
		zap.Int("queries", len(queries)),
		zap.String("db", cfg.DB),
		zap.Uint64("block", block),
		zap.Int("workers", cfg.Workers),
		zap.Int("tick_window", cfg.TickWindow),
	)

	coll := collector.New(recorder, collector.Config{
		Workers:    cfg.Workers,
		TickWindow: int16(cfg.TickWindow),
		Block:      block,
	}, logger)

	results := coll.Collect(ctx, queries)
	states, collectErrs := splitResults(results)
	for _, cerr := range collectErrs {
		logger.Warn("query not recorded",
			zap.String("address", cerr.Address),
			zap.String("protocol", string(cerr.Protocol)),
			zap.String("error", cerr.Error),
		)
	}

	if err := snap.SetHead(block); err != nil {
		return err
	}

	logger.Info("snapshot complete",
		zap.Int("collected", len(states)),
		zap.Int("failed", len(collectErrs)),
		zap.Int("recorded_slots", recorder.Recorded()),
		zap.Uint64("block", block),
	)

	return nil
}
