package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/chain"
)

// PoolMeta captures immutable V3 pool metadata read via eth_call.
type PoolMeta struct {
	Token0      common.Address
	Token1      common.Address
	Fee         uint32
	TickSpacing int32
	Factory     common.Address
}

// ObservedState is the pool's self-reported live state, used to
// cross-check storage-derived snapshots.
type ObservedState struct {
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
}

// ObservedReserves is the V2 pair's self-reported reserve state.
type ObservedReserves struct {
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint32
}

// FetchPoolMeta loads immutable pool metadata from chain. Used to
// discover tick spacing (and the factory, for layout-variant
// detection) when a query omits them.
func FetchPoolMeta(ctx context.Context, client *chain.Client, pool common.Address) (PoolMeta, error) {
	if client == nil {
		return PoolMeta{}, fmt.Errorf("chain client is nil")
	}
	poolABI, err := PoolABI()
	if err != nil {
		return PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callPoolMethod(ctx, client, pool, poolABI, "token0", nil)
	if err != nil {
		return PoolMeta{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return PoolMeta{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callPoolMethod(ctx, client, pool, poolABI, "token1", nil)
	if err != nil {
		return PoolMeta{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return PoolMeta{}, fmt.Errorf("token1: %w", err)
	}

	values, err = callPoolMethod(ctx, client, pool, poolABI, "fee", nil)
	if err != nil {
		return PoolMeta{}, err
	}
	feeInt, err := asBigInt(values[0])
	if err != nil {
		return PoolMeta{}, fmt.Errorf("fee: %w", err)
	}

	values, err = callPoolMethod(ctx, client, pool, poolABI, "tickSpacing", nil)
	if err != nil {
		return PoolMeta{}, err
	}
	tickSpacingInt, err := asBigInt(values[0])
	if err != nil {
		return PoolMeta{}, fmt.Errorf("tick spacing: %w", err)
	}
	tickSpacing, err := int24FromBig(tickSpacingInt)
	if err != nil {
		return PoolMeta{}, fmt.Errorf("tick spacing: %w", err)
	}

	meta := PoolMeta{
		Token0:      token0,
		Token1:      token1,
		Fee:         uint32(feeInt.Uint64()),
		TickSpacing: tickSpacing,
	}

	// Not every fork exposes factory(); absence is not fatal.
	if values, err := callPoolMethod(ctx, client, pool, poolABI, "factory", nil); err == nil {
		if factory, err := asAddress(values[0]); err == nil {
			meta.Factory = factory
		}
	}

	return meta, nil
}

// FetchObservedState reads slot0 and liquidity through the pool's own
// view functions at a block height (nil-able via block 0).
func FetchObservedState(ctx context.Context, client *chain.Client, pool common.Address, block uint64) (ObservedState, error) {
	if client == nil {
		return ObservedState{}, fmt.Errorf("chain client is nil")
	}
	poolABI, err := PoolABI()
	if err != nil {
		return ObservedState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var blockPtr *big.Int
	if block > 0 {
		blockPtr = new(big.Int).SetUint64(block)
	}

	values, err := callPoolMethod(ctx, client, pool, poolABI, "slot0", blockPtr)
	if err != nil {
		return ObservedState{}, err
	}
	if len(values) < 2 {
		return ObservedState{}, fmt.Errorf("slot0 returned %d values", len(values))
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return ObservedState{}, fmt.Errorf("sqrt price: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return ObservedState{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return ObservedState{}, fmt.Errorf("tick: %w", err)
	}

	values, err = callPoolMethod(ctx, client, pool, poolABI, "liquidity", blockPtr)
	if err != nil {
		return ObservedState{}, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return ObservedState{}, fmt.Errorf("liquidity: %w", err)
	}

	return ObservedState{
		SqrtPriceX96: sqrtPrice,
		Tick:         tick,
		Liquidity:    liquidity,
	}, nil
}

// FetchObservedReserves reads the V2 pair reserves through
// getReserves at a block height.
func FetchObservedReserves(ctx context.Context, client *chain.Client, pool common.Address, block uint64) (ObservedReserves, error) {
	if client == nil {
		return ObservedReserves{}, fmt.Errorf("chain client is nil")
	}
	poolABI, err := PoolABI()
	if err != nil {
		return ObservedReserves{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var blockPtr *big.Int
	if block > 0 {
		blockPtr = new(big.Int).SetUint64(block)
	}

	values, err := callPoolMethod(ctx, client, pool, poolABI, "getReserves", blockPtr)
	if err != nil {
		return ObservedReserves{}, err
	}
	if len(values) != 3 {
		return ObservedReserves{}, fmt.Errorf("getReserves returned %d values", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return ObservedReserves{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return ObservedReserves{}, fmt.Errorf("reserve1: %w", err)
	}
	ts, err := asBigInt(values[2])
	if err != nil {
		return ObservedReserves{}, fmt.Errorf("timestamp: %w", err)
	}

	return ObservedReserves{
		Reserve0:           reserve0,
		Reserve1:           reserve1,
		BlockTimestampLast: uint32(ts.Uint64()),
	}, nil
}

func callPoolMethod(ctx context.Context, client *chain.Client, pool common.Address, poolABI abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := poolABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pool, Data: data}
	resp, err := client.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := poolABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
