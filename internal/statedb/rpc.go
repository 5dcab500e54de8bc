package statedb

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolScope/internal/chain"
)

// RPCReaderConfig tunes retry behavior for the RPC-backed reader.
type RPCReaderConfig struct {
	// Block pins every read to a block number; 0 means latest.
	Block        uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// RPCReader reads storage words through eth_getStorageAt. The RPC
// surface cannot distinguish an absent slot from a stored zero word,
// so a zero response reports absent; the two decode identically.
type RPCReader struct {
	client *chain.Client
	block  *big.Int
	cfg    RPCReaderConfig
	logger *zap.Logger
}

func NewRPCReader(client *chain.Client, cfg RPCReaderConfig, logger *zap.Logger) *RPCReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	var block *big.Int
	if cfg.Block > 0 {
		block = new(big.Int).SetUint64(cfg.Block)
	}
	return &RPCReader{client: client, block: block, cfg: cfg, logger: logger}
}

// StorageAt implements Reader.
func (r *RPCReader) StorageAt(ctx context.Context, account common.Address, slot common.Hash) (common.Hash, bool, error) {
	var word common.Hash
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		word, err = r.client.StorageAt(ctx, account, slot, r.block)
		if err != nil {
			r.logger.Warn("storage read failed",
				zap.String("account", account.Hex()),
				zap.String("slot", slot.Hex()),
				zap.Error(err),
			)
		}
		return err
	})
	if err != nil {
		return common.Hash{}, false, err
	}
	return word, word != (common.Hash{}), nil
}
