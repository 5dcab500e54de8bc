package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "poolscope",
		Short:        "AMM pool state collector reading contract storage directly",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect pool state snapshots from a storage snapshot or RPC",
		RunE:  runCollect,
	}

	collectCmd.Flags().String("queries", "", "pool queries JSON path")
	collectCmd.Flags().StringSlice("pool-id", nil, "v4 pool ids, positionally matched to v4 queries (comma-separated)")
	collectCmd.Flags().String("db", "", "storage snapshot database path")
	collectCmd.Flags().String("rpc", "", "RPC URL (storage source when --db is unset, metadata source otherwise)")
	collectCmd.Flags().Uint64("block", 0, "block number to read at, 0 means latest / snapshot head")
	collectCmd.Flags().Int("workers", 4, "concurrent queries")
	collectCmd.Flags().Int("tick-window", 0, "bitmap words to scan around the current tick, 0 means full range")
	collectCmd.Flags().String("out", "./data/pool_states.jsonl", "output JSONL path")
	collectCmd.Flags().String("errors", "./data/collect_errors.jsonl", "per-query errors JSONL path")
	collectCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for snapshot rows")
	collectCmd.Flags().Int("max-retries", 5, "maximum RPC retry attempts")
	collectCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	collectCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(collectCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record the storage slots a collection touches into a local snapshot",
		RunE:  runSnapshot,
	}

	snapshotCmd.Flags().String("queries", "", "pool queries JSON path")
	snapshotCmd.Flags().StringSlice("pool-id", nil, "v4 pool ids, positionally matched to v4 queries (comma-separated)")
	snapshotCmd.Flags().String("rpc", "", "RPC URL")
	snapshotCmd.Flags().String("db", "./data/snapshot", "snapshot database path")
	snapshotCmd.Flags().Uint64("block", 0, "block number to snapshot at, 0 means latest")
	snapshotCmd.Flags().Int("workers", 4, "concurrent queries")
	snapshotCmd.Flags().Int("tick-window", 0, "bitmap words to scan around the current tick, 0 means full range")
	snapshotCmd.Flags().Int("max-retries", 5, "maximum RPC retry attempts")
	snapshotCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	snapshotCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(snapshotCmd)

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Cross-check snapshot-derived state against RPC",
		RunE:  runValidate,
	}

	validateCmd.Flags().String("queries", "", "pool queries JSON path")
	validateCmd.Flags().StringSlice("pool-id", nil, "v4 pool ids, positionally matched to v4 queries (comma-separated)")
	validateCmd.Flags().String("db", "", "storage snapshot database path")
	validateCmd.Flags().String("rpc", "", "RPC URL")
	validateCmd.Flags().Uint64("block", 0, "block number to validate at, 0 means snapshot head")
	validateCmd.Flags().Int("workers", 4, "concurrent queries")
	validateCmd.Flags().Int("tick-window", 0, "bitmap words to scan around the current tick, 0 means full range")
	validateCmd.Flags().Int("max-retries", 5, "maximum RPC retry attempts")
	validateCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	validateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(validateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
