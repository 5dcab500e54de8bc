package layout

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolScope/internal/model"
)

// Field is one packed sub-field of a 32-byte storage word.
type Field struct {
	Name   string
	Bits   uint
	Signed bool
}

// WordLayout lists the fields of a packed storage word MSB-first.
// Solidity packs declarations right-to-left, so a layout is the
// reverse of the struct declaration order. Field widths must total
// exactly 256 bits.
type WordLayout []Field

// Decode slices each field out of the word, interpreting it as
// unsigned and sign-extending by the field's own bit width where the
// layout marks it signed.
func (l WordLayout) Decode(word common.Hash) (map[string]*big.Int, error) {
	var total uint
	for _, f := range l {
		total += f.Bits
	}
	if total != 256 {
		return nil, fmt.Errorf("layout widths sum to %d bits, want 256", total)
	}

	value := new(big.Int).SetBytes(word[:])
	out := make(map[string]*big.Int, len(l))
	shift := uint(256)
	one := big.NewInt(1)
	for _, f := range l {
		shift -= f.Bits
		mask := new(big.Int).Lsh(one, f.Bits)
		mask.Sub(mask, one)
		v := new(big.Int).Rsh(value, shift)
		v.And(v, mask)
		if f.Signed && v.Bit(int(f.Bits)-1) == 1 {
			v.Sub(v, new(big.Int).Lsh(one, f.Bits))
		}
		out[f.Name] = v
	}
	return out, nil
}

// V2ReservesLayout covers the packed pair reserves word.
// Declaration order reserve0, reserve1, blockTimestampLast puts
// reserve0 in the least significant bits.
var V2ReservesLayout = WordLayout{
	{Name: "blockTimestampLast", Bits: 32},
	{Name: "reserve1", Bits: 112},
	{Name: "reserve0", Bits: 112},
}

// Slot0Layout covers the V3 slot0 word. The same layout is applied to
// V4 slot0: sqrtPriceX96 and tick line up, the trailing fields differ
// on-chain but carry no invariants here. Offsets pinned against live
// reference values rather than rederived from the packing rule.
var Slot0Layout = WordLayout{
	{Name: "_pad", Bits: 8},
	{Name: "unlocked", Bits: 8},
	{Name: "feeProtocol", Bits: 8},
	{Name: "observationCardinalityNext", Bits: 16},
	{Name: "observationCardinality", Bits: 16},
	{Name: "observationIndex", Bits: 16},
	{Name: "tick", Bits: 24, Signed: true},
	{Name: "sqrtPriceX96", Bits: 160},
}

// TickLayout covers the first word of a tick record: liquidityNet in
// the upper half, liquidityGross in the lower. Fee growth and the
// other trailing members live in later slots and are not collected.
var TickLayout = WordLayout{
	{Name: "liquidityNet", Bits: 128, Signed: true},
	{Name: "liquidityGross", Bits: 128},
}

// DecodeReserves decodes a V2 reserves word.
func DecodeReserves(word common.Hash) (*model.ReservesState, error) {
	fields, err := V2ReservesLayout.Decode(word)
	if err != nil {
		return nil, err
	}
	reserve0, _ := uint256.FromBig(fields["reserve0"])
	reserve1, _ := uint256.FromBig(fields["reserve1"])
	return &model.ReservesState{
		Raw:                word.Hex(),
		Reserve0:           reserve0,
		Reserve1:           reserve1,
		BlockTimestampLast: uint32(fields["blockTimestampLast"].Uint64()),
	}, nil
}

// DecodeSlot0 decodes a V3/V4 slot0 word.
func DecodeSlot0(word common.Hash) (*model.Slot0State, error) {
	fields, err := Slot0Layout.Decode(word)
	if err != nil {
		return nil, err
	}
	sqrtPrice, _ := uint256.FromBig(fields["sqrtPriceX96"])
	return &model.Slot0State{
		Raw:                        word.Hex(),
		SqrtPriceX96:               sqrtPrice,
		Tick:                       int32(fields["tick"].Int64()),
		ObservationIndex:           uint16(fields["observationIndex"].Uint64()),
		ObservationCardinality:     uint16(fields["observationCardinality"].Uint64()),
		ObservationCardinalityNext: uint16(fields["observationCardinalityNext"].Uint64()),
		FeeProtocol:                uint8(fields["feeProtocol"].Uint64()),
		Unlocked:                   fields["unlocked"].Sign() != 0,
	}, nil
}

// DecodeTick decodes the first word of the tick record at the given
// tick. Initialized derives from the word being nonzero; the index is
// a spine over nonzero-liquidity positions, not a stored flag.
func DecodeTick(tick int32, word common.Hash) (*model.TickEntry, error) {
	fields, err := TickLayout.Decode(word)
	if err != nil {
		return nil, err
	}
	gross, _ := uint256.FromBig(fields["liquidityGross"])
	return &model.TickEntry{
		Tick:           tick,
		Raw:            word.Hex(),
		LiquidityGross: gross,
		LiquidityNet:   fields["liquidityNet"],
		Initialized:    word != (common.Hash{}),
	}, nil
}

// DecodeLiquidity extracts the pool liquidity, stored as a uint128 in
// the low half of its word.
func DecodeLiquidity(word common.Hash) *uint256.Int {
	v := new(uint256.Int).SetBytes(word[:])
	v[2] = 0
	v[3] = 0
	return v
}
