package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"poolScope/internal/chain"
	"poolScope/internal/dex"
	"poolScope/internal/model"
)

// loadQueries reads a JSON array of pool queries and attaches a
// positionally matched pool-id list to its V4 entries.
func loadQueries(path string, poolIDs []string) ([]model.PoolQuery, error) {
	if path == "" {
		return nil, fmt.Errorf("queries path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}

	var queries []model.PoolQuery
	if err := json.Unmarshal(data, &queries); err != nil {
		return nil, fmt.Errorf("parse queries: %w", err)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("queries file is empty")
	}

	if len(poolIDs) > 0 {
		ids, err := parsePoolIDs(poolIDs)
		if err != nil {
			return nil, err
		}
		queries, err = model.AssignPoolIDs(queries, ids)
		if err != nil {
			return nil, err
		}
	}
	return queries, nil
}

func parsePoolIDs(raw []string) ([]common.Hash, error) {
	ids := make([]common.Hash, 0, len(raw))
	for _, item := range raw {
		data, err := hexutil.Decode(item)
		if err != nil {
			return nil, fmt.Errorf("invalid pool id %q: %w", item, err)
		}
		if len(data) != common.HashLength {
			return nil, fmt.Errorf("pool id %q is %d bytes, want %d", item, len(data), common.HashLength)
		}
		ids = append(ids, common.BytesToHash(data))
	}
	return ids, nil
}

// discoverTickSpacing fills missing V3 tick spacings (and the factory,
// for layout-variant detection) from the pool's own view functions.
func discoverTickSpacing(ctx context.Context, client *chain.Client, queries []model.PoolQuery, logger *zap.Logger) {
	if client == nil {
		return
	}
	for i := range queries {
		if queries[i].Protocol != model.ProtocolV3 || queries[i].TickSpacing != 0 {
			continue
		}
		meta, err := dex.FetchPoolMeta(ctx, client, queries[i].Address)
		if err != nil {
			logger.Warn("tick spacing discovery failed",
				zap.String("pool", queries[i].Address.Hex()),
				zap.Error(err),
			)
			continue
		}
		queries[i].TickSpacing = meta.TickSpacing
		if queries[i].Factory == nil && meta.Factory != (common.Address{}) {
			factory := meta.Factory
			queries[i].Factory = &factory
		}
		logger.Info("discovered tick spacing",
			zap.String("pool", queries[i].Address.Hex()),
			zap.Int32("tick_spacing", meta.TickSpacing),
			zap.String("factory", meta.Factory.Hex()),
		)
	}
}

// splitResults separates collected states from per-query failures,
// preserving input order within each list.
func splitResults(results []model.Result) ([]*model.PoolState, []model.CollectError) {
	states := make([]*model.PoolState, 0, len(results))
	errs := make([]model.CollectError, 0)
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, model.NewCollectError(res))
			continue
		}
		states = append(states, res.State)
	}
	return states, errs
}
