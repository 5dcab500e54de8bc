package layout

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Fixed storage slot positions. These are protocol version facts pinned
// against live reference pools, not tunables.
const (
	// V2 pair: reserve0/reserve1/blockTimestampLast packed at slot 8.
	V2ReservesSlot uint64 = 8

	// V4 PoolManager: the _pools mapping sits at slot 6 (the manager
	// inherits from several contracts that occupy earlier slots).
	V4PoolsSlot uint64 = 6

	// Member offsets inside the V4 Pool.State struct, relative to the
	// pool's derived base slot.
	V4Slot0Offset      uint64 = 0
	V4LiquidityOffset  uint64 = 3
	V4TicksOffset      uint64 = 4
	V4TickBitmapOffset uint64 = 5
)

// V3Slots maps the storage positions of a V3-style pool contract.
type V3Slots struct {
	Slot0      uint64
	Liquidity  uint64
	Ticks      uint64
	TickBitmap uint64
}

// UniswapV3Slots is the canonical layout (also used by SushiSwap V3).
var UniswapV3Slots = V3Slots{Slot0: 0, Liquidity: 4, Ticks: 5, TickBitmap: 6}

// PancakeV3Slots accounts for the extra lmPool address at slot 1,
// which shifts every later member by one.
var PancakeV3Slots = V3Slots{Slot0: 0, Liquidity: 5, Ticks: 6, TickBitmap: 7}

// PancakeV3Factory deploys pools with the shifted layout.
var PancakeV3Factory = common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865")

// V3SlotsFor picks the slot table for a pool by its factory. A nil or
// unknown factory selects the canonical Uniswap layout.
func V3SlotsFor(factory *common.Address) V3Slots {
	if factory != nil && *factory == PancakeV3Factory {
		return PancakeV3Slots
	}
	return UniswapV3Slots
}

// SimpleSlot returns the storage address of a plain (non-mapping)
// variable at the given slot index.
func SimpleSlot(slot uint64) common.Hash {
	return common.Hash(uint256.NewInt(slot).Bytes32())
}

// MappingSlot derives the storage address of mapping entry
// base[key] as keccak256(key || base), both operands 32 bytes.
func MappingSlot(key common.Hash, base common.Hash) common.Hash {
	return crypto.Keccak256Hash(key[:], base[:])
}

// SignedKey encodes a signed mapping key as its 256-bit two's
// complement word. The key is always widened to the full word before
// hashing: hashing the raw int16/int24 bit pattern derives a wrong
// address.
func SignedKey(key int64) common.Hash {
	v := new(uint256.Int)
	if key < 0 {
		v.SetUint64(uint64(-key))
		v.Neg(v)
	} else {
		v.SetUint64(uint64(key))
	}
	return common.Hash(v.Bytes32())
}

// AddOffset returns slot + offset, for members of a storage struct.
func AddOffset(slot common.Hash, offset uint64) common.Hash {
	v := new(uint256.Int).SetBytes(slot[:])
	v.AddUint64(v, offset)
	return common.Hash(v.Bytes32())
}

// BitmapSlot derives the address of tickBitmap[wordPos] against the
// mapping's base slot.
func BitmapSlot(wordPos int16, base common.Hash) common.Hash {
	return MappingSlot(SignedKey(int64(wordPos)), base)
}

// TickSlot derives the address of ticks[tick] against the mapping's
// base slot.
func TickSlot(tick int32, base common.Hash) common.Hash {
	return MappingSlot(SignedKey(int64(tick)), base)
}

// V4BaseSlot derives where the Pool.State struct for a pool id begins
// inside the shared manager contract.
func V4BaseSlot(poolID common.Hash) common.Hash {
	return MappingSlot(poolID, SimpleSlot(V4PoolsSlot))
}

// V4Slot0Slot derives the slot0 address for a V4 pool.
func V4Slot0Slot(poolID common.Hash) common.Hash {
	return AddOffset(V4BaseSlot(poolID), V4Slot0Offset)
}

// V4LiquiditySlot derives the liquidity address for a V4 pool.
func V4LiquiditySlot(poolID common.Hash) common.Hash {
	return AddOffset(V4BaseSlot(poolID), V4LiquidityOffset)
}

// V4BitmapSlot chains the pool-id derivation with the inner bitmap
// mapping: the derived struct address acts as the base slot for the
// second hash.
func V4BitmapSlot(poolID common.Hash, wordPos int16) common.Hash {
	base := AddOffset(V4BaseSlot(poolID), V4TickBitmapOffset)
	return BitmapSlot(wordPos, base)
}

// V4TickSlot chains the pool-id derivation with the inner ticks
// mapping.
func V4TickSlot(poolID common.Hash, tick int32) common.Hash {
	base := AddOffset(V4BaseSlot(poolID), V4TicksOffset)
	return TickSlot(tick, base)
}
