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
	"poolScope/internal/storage"
	"poolScope/internal/storage/postgres"
)

func runCollect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCollect(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.DB == "" && cfg.RPCURL == "" {
		return fmt.Errorf("either --db or --rpc is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queries, err := loadQueries(cfg.Queries, cfg.PoolIDs)
	if err != nil {
		return err
	}

	var chainClient *chain.Client
	if cfg.RPCURL != "" {
		chainClient, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
	}

	block := cfg.Block
	var reader statedb.Reader
	if cfg.DB != "" {
		snap, err := statedb.OpenSnapshotReadOnly(cfg.DB)
		if err != nil {
			return err
		}
		defer snap.Close()

		head, ok, err := snap.Head()
		if err != nil {
			return err
		}
		if ok && block == 0 {
			block = head
		}
		reader = snap
	} else {
		if block == 0 {
			latest, err := chainClient.LatestBlockNumber(ctx)
			if err != nil {
				return fmt.Errorf("get latest block: %w", err)
			}
			block = latest
		}
		reader = statedb.NewRPCReader(chainClient, statedb.RPCReaderConfig{
			Block:        block,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, logger)
	}

	discoverTickSpacing(ctx, chainClient, queries, logger)

	logger.Info("collect start",
		zap.Int("queries", len(queries)),
		zap.String("db", cfg.DB),
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("block", block),
		zap.Int("workers", cfg.Workers),
		zap.Int("tick_window", cfg.TickWindow),
		zap.String("out", cfg.Out),
	)

	coll := collector.New(reader, collector.Config{
		Workers:    cfg.Workers,
		TickWindow: int16(cfg.TickWindow),
		Block:      block,
	}, logger)

	results := coll.Collect(ctx, queries)
	states, collectErrs := splitResults(results)

	var sink storage.Storage = storage.NewJsonlStorage(cfg.Out, cfg.Errors)
	if err := sink.PutStateBatch(states); err != nil {
		return fmt.Errorf("store states: %w", err)
	}
	if err := sink.PutErrorBatch(collectErrs); err != nil {
		return fmt.Errorf("store errors: %w", err)
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.UpsertSnapshots(ctx, states); err != nil {
			return fmt.Errorf("upsert snapshots: %w", err)
		}
	}

	logger.Info("collect complete",
		zap.Int("collected", len(states)),
		zap.Int("failed", len(collectErrs)),
		zap.Uint64("block", block),
	)

	return nil
}
