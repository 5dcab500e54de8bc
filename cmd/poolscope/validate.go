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
	"poolScope/internal/dex"
	"poolScope/internal/model"
	"poolScope/internal/statedb"
)

func runValidate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadValidate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.DB == "" {
		return fmt.Errorf("--db is required")
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("--rpc is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queries, err := loadQueries(cfg.Queries, cfg.PoolIDs)
	if err != nil {
		return err
	}

	snap, err := statedb.OpenSnapshotReadOnly(cfg.DB)
	if err != nil {
		return err
	}
	defer snap.Close()

	block := cfg.Block
	if block == 0 {
		head, ok, err := snap.Head()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("snapshot has no pinned block; pass --block")
		}
		block = head
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	discoverTickSpacing(ctx, chainClient, queries, logger)

	logger.Info("validate start",
		zap.Int("queries", len(queries)),
		zap.String("db", cfg.DB),
		zap.Uint64("block", block),
	)

	collCfg := collector.Config{
		Workers:    cfg.Workers,
		TickWindow: int16(cfg.TickWindow),
		Block:      block,
	}
	rpcReader := statedb.NewRPCReader(chainClient, statedb.RPCReaderConfig{
		Block:        block,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)

	snapResults := collector.New(snap, collCfg, logger).Collect(ctx, queries)
	rpcResults := collector.New(rpcReader, collCfg, logger).Collect(ctx, queries)

	mismatches := 0
	for i := range queries {
		label := queries[i].Address.Hex()
		if queries[i].PoolID != nil {
			label = queries[i].PoolID.Hex()
		}

		diffs := compareResults(snapResults[i], rpcResults[i])
		diffs = append(diffs, crossCheckObserved(ctx, chainClient, queries[i], snapResults[i].State, block)...)
		if len(diffs) == 0 {
			logger.Info("pool matches", zap.String("pool", label))
			continue
		}
		mismatches++
		for _, diff := range diffs {
			logger.Warn("pool mismatch", zap.String("pool", label), zap.String("field", diff))
		}
	}

	logger.Info("validate complete",
		zap.Int("pools", len(queries)),
		zap.Int("mismatched", mismatches),
		zap.Uint64("block", block),
	)

	if mismatches > 0 {
		return fmt.Errorf("%d of %d pools mismatched", mismatches, len(queries))
	}
	return nil
}

// compareResults diffs the snapshot-derived state against the
// RPC-derived state for the same query, field by field.
func compareResults(snapRes, rpcRes model.Result) []string {
	if snapRes.Err != nil && rpcRes.Err != nil {
		return nil
	}
	if snapRes.Err != nil {
		return []string{fmt.Sprintf("snapshot collection failed: %v", snapRes.Err)}
	}
	if rpcRes.Err != nil {
		return []string{fmt.Sprintf("rpc collection failed: %v", rpcRes.Err)}
	}

	var diffs []string
	a, b := snapRes.State, rpcRes.State

	if (a.Reserves == nil) != (b.Reserves == nil) {
		diffs = append(diffs, "reserves presence")
	} else if a.Reserves != nil {
		if !a.Reserves.Reserve0.Eq(b.Reserves.Reserve0) {
			diffs = append(diffs, fmt.Sprintf("reserve0 %s != %s", a.Reserves.Reserve0.Dec(), b.Reserves.Reserve0.Dec()))
		}
		if !a.Reserves.Reserve1.Eq(b.Reserves.Reserve1) {
			diffs = append(diffs, fmt.Sprintf("reserve1 %s != %s", a.Reserves.Reserve1.Dec(), b.Reserves.Reserve1.Dec()))
		}
		if a.Reserves.BlockTimestampLast != b.Reserves.BlockTimestampLast {
			diffs = append(diffs, fmt.Sprintf("block_timestamp_last %d != %d", a.Reserves.BlockTimestampLast, b.Reserves.BlockTimestampLast))
		}
	}

	if (a.Slot0 == nil) != (b.Slot0 == nil) {
		diffs = append(diffs, "slot0 presence")
	} else if a.Slot0 != nil {
		if !a.Slot0.SqrtPriceX96.Eq(b.Slot0.SqrtPriceX96) {
			diffs = append(diffs, fmt.Sprintf("sqrt_price_x96 %s != %s", a.Slot0.SqrtPriceX96.Dec(), b.Slot0.SqrtPriceX96.Dec()))
		}
		if a.Slot0.Tick != b.Slot0.Tick {
			diffs = append(diffs, fmt.Sprintf("tick %d != %d", a.Slot0.Tick, b.Slot0.Tick))
		}
	}

	if (a.Liquidity == nil) != (b.Liquidity == nil) {
		diffs = append(diffs, "liquidity presence")
	} else if a.Liquidity != nil && !a.Liquidity.Eq(b.Liquidity) {
		diffs = append(diffs, fmt.Sprintf("liquidity %s != %s", a.Liquidity.Dec(), b.Liquidity.Dec()))
	}

	if len(a.Ticks) != len(b.Ticks) {
		diffs = append(diffs, fmt.Sprintf("tick count %d != %d", len(a.Ticks), len(b.Ticks)))
	}
	if len(a.Bitmaps) != len(b.Bitmaps) {
		diffs = append(diffs, fmt.Sprintf("bitmap count %d != %d", len(a.Bitmaps), len(b.Bitmaps)))
	}

	return diffs
}

// crossCheckObserved compares storage-derived state against the pool's
// own view functions. V4 pools live inside the manager and expose no
// per-pool views, so they are skipped.
func crossCheckObserved(ctx context.Context, client *chain.Client, query model.PoolQuery, state *model.PoolState, block uint64) []string {
	if state == nil {
		return nil
	}

	switch query.Protocol {
	case model.ProtocolV2:
		observed, err := dex.FetchObservedReserves(ctx, client, query.Address, block)
		if err != nil {
			return []string{fmt.Sprintf("getReserves call failed: %v", err)}
		}
		var diffs []string
		if state.Reserves != nil {
			if state.Reserves.Reserve0.ToBig().Cmp(observed.Reserve0) != 0 {
				diffs = append(diffs, fmt.Sprintf("reserve0 vs getReserves %s != %s", state.Reserves.Reserve0.Dec(), observed.Reserve0.String()))
			}
			if state.Reserves.Reserve1.ToBig().Cmp(observed.Reserve1) != 0 {
				diffs = append(diffs, fmt.Sprintf("reserve1 vs getReserves %s != %s", state.Reserves.Reserve1.Dec(), observed.Reserve1.String()))
			}
		}
		return diffs
	case model.ProtocolV3:
		observed, err := dex.FetchObservedState(ctx, client, query.Address, block)
		if err != nil {
			return []string{fmt.Sprintf("slot0 call failed: %v", err)}
		}
		var diffs []string
		if state.Slot0 != nil {
			if state.Slot0.SqrtPriceX96.ToBig().Cmp(observed.SqrtPriceX96) != 0 {
				diffs = append(diffs, fmt.Sprintf("sqrt_price_x96 vs slot0() %s != %s", state.Slot0.SqrtPriceX96.Dec(), observed.SqrtPriceX96.String()))
			}
			if state.Slot0.Tick != observed.Tick {
				diffs = append(diffs, fmt.Sprintf("tick vs slot0() %d != %d", state.Slot0.Tick, observed.Tick))
			}
		}
		if state.Liquidity != nil && state.Liquidity.ToBig().Cmp(observed.Liquidity) != 0 {
			diffs = append(diffs, fmt.Sprintf("liquidity vs liquidity() %s != %s", state.Liquidity.Dec(), observed.Liquidity.String()))
		}
		return diffs
	default:
		return nil
	}
}
