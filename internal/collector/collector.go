// Package collector assembles per-pool state snapshots from raw
// storage reads: it derives slot addresses, decodes packed words, and
// walks the tick bitmap index to enumerate initialized ticks.
package collector

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolScope/internal/model"
	"poolScope/internal/statedb"
)

// Config holds runtime settings for a collection batch.
type Config struct {
	// Workers bounds concurrent queries; the accessor must tolerate
	// this many parallel reads. Values < 1 collapse to sequential.
	Workers int

	// TickWindow limits bitmap scans to this many words either side
	// of the pool's current tick. 0 scans the full tick domain.
	TickWindow int16

	// Block is stamped onto every snapshot; it does not influence
	// reads (the reader is already pinned to a view).
	Block uint64
}

// Collector executes pool state queries against a storage reader.
// Every derived address and decoded field is a pure function of its
// inputs, so a single Collector is safe for concurrent batches.
type Collector struct {
	reader statedb.Reader
	cfg    Config
	logger *zap.Logger
}

// New builds a Collector with its dependencies.
func New(reader statedb.Reader, cfg Config, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Collector{reader: reader, cfg: cfg, logger: logger}
}

// Collect runs every query and returns one result per query, in input
// order. Failures are isolated: a bad query or failed read surfaces in
// its own Result.Err and never aborts siblings.
func (c *Collector) Collect(ctx context.Context, queries []model.PoolQuery) []model.Result {
	results := make([]model.Result, len(queries))

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Workers)
	for i, query := range queries {
		i, query := i, query
		g.Go(func() error {
			state, err := c.collectOne(ctx, query)
			if err != nil {
				c.logger.Warn("query failed",
					zap.String("address", query.Address.Hex()),
					zap.String("protocol", string(query.Protocol)),
					zap.Error(err),
				)
			}
			results[i] = model.Result{Query: query, State: state, Err: err}
			return nil
		})
	}
	g.Wait()

	return results
}

func (c *Collector) collectOne(ctx context.Context, query model.PoolQuery) (*model.PoolState, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		state *model.PoolState
		err   error
	)
	switch query.Protocol {
	case model.ProtocolV2:
		state, err = c.collectV2(ctx, query)
	case model.ProtocolV3:
		state, err = c.collectV3(ctx, query)
	default:
		state, err = c.collectV4(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	state.BlockNumber = c.cfg.Block
	return state, nil
}

// readWord reads one slot, mapping an absent value to the zero word.
// Only accessor-level failures surface as errors.
func (c *Collector) readWord(ctx context.Context, account common.Address, slot common.Hash) (common.Hash, error) {
	word, ok, err := c.reader.StorageAt(ctx, account, slot)
	if err != nil {
		return common.Hash{}, fmt.Errorf("read slot %s of %s: %w", slot.Hex(), account.Hex(), err)
	}
	if !ok {
		return common.Hash{}, nil
	}
	return word, nil
}
