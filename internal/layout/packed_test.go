package layout

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// packWord assembles a storage word from MSB-first (width, value)
// pairs, mirroring how Solidity lays the fields out on chain.
func packWord(t *testing.T, fields []Field, values map[string]*big.Int) common.Hash {
	t.Helper()

	word := new(big.Int)
	one := big.NewInt(1)
	shift := uint(256)
	for _, f := range fields {
		shift -= f.Bits
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		mask := new(big.Int).Lsh(one, f.Bits)
		mask.Sub(mask, one)
		part := new(big.Int).And(v, mask)
		word.Or(word, part.Lsh(part, shift))
	}
	return common.BigToHash(word)
}

func TestDecodeReserves(t *testing.T) {
	word := packWord(t, V2ReservesLayout, map[string]*big.Int{
		"reserve0":           big.NewInt(100),
		"reserve1":           big.NewInt(200),
		"blockTimestampLast": big.NewInt(12345),
	})

	reserves, err := DecodeReserves(word)
	if err != nil {
		t.Fatalf("decode reserves: %v", err)
	}
	if !reserves.Reserve0.Eq(uint256.NewInt(100)) {
		t.Fatalf("reserve0 = %s, want 100", reserves.Reserve0.Dec())
	}
	if !reserves.Reserve1.Eq(uint256.NewInt(200)) {
		t.Fatalf("reserve1 = %s, want 200", reserves.Reserve1.Dec())
	}
	if reserves.BlockTimestampLast != 12345 {
		t.Fatalf("blockTimestampLast = %d, want 12345", reserves.BlockTimestampLast)
	}
	if reserves.Raw != word.Hex() {
		t.Fatalf("raw word not carried through")
	}
}

func TestDecodeReservesMaxWidth(t *testing.T) {
	max112 := new(big.Int).Lsh(big.NewInt(1), 112)
	max112.Sub(max112, big.NewInt(1))

	word := packWord(t, V2ReservesLayout, map[string]*big.Int{
		"reserve0":           max112,
		"reserve1":           max112,
		"blockTimestampLast": new(big.Int).SetUint64(0xffffffff),
	})

	reserves, err := DecodeReserves(word)
	if err != nil {
		t.Fatalf("decode reserves: %v", err)
	}
	if reserves.Reserve0.ToBig().Cmp(max112) != 0 {
		t.Fatalf("reserve0 = %s, want 2^112-1", reserves.Reserve0.Dec())
	}
	if reserves.Reserve1.ToBig().Cmp(max112) != 0 {
		t.Fatalf("reserve1 = %s, want 2^112-1", reserves.Reserve1.Dec())
	}
	if reserves.BlockTimestampLast != 0xffffffff {
		t.Fatalf("blockTimestampLast = %d, want 2^32-1", reserves.BlockTimestampLast)
	}
}

func TestDecodeReservesZeroWord(t *testing.T) {
	reserves, err := DecodeReserves(common.Hash{})
	if err != nil {
		t.Fatalf("decode reserves: %v", err)
	}
	if !reserves.Reserve0.IsZero() || !reserves.Reserve1.IsZero() || reserves.BlockTimestampLast != 0 {
		t.Fatalf("zero word should decode to all-zero reserves: %+v", reserves)
	}
}

func TestDecodeSlot0(t *testing.T) {
	sqrtPrice, _ := new(big.Int).SetString("1461446703485210103287273052203988822378723970341", 10)

	word := packWord(t, Slot0Layout, map[string]*big.Int{
		"sqrtPriceX96":               sqrtPrice,
		"tick":                       big.NewInt(-887272),
		"observationIndex":           big.NewInt(3),
		"observationCardinality":     big.NewInt(100),
		"observationCardinalityNext": big.NewInt(150),
		"feeProtocol":                big.NewInt(4),
		"unlocked":                   big.NewInt(1),
	})

	slot0, err := DecodeSlot0(word)
	if err != nil {
		t.Fatalf("decode slot0: %v", err)
	}
	if slot0.SqrtPriceX96.ToBig().Cmp(sqrtPrice) != 0 {
		t.Fatalf("sqrtPriceX96 = %s, want %s", slot0.SqrtPriceX96.Dec(), sqrtPrice.String())
	}
	if slot0.Tick != -887272 {
		t.Fatalf("tick = %d, want -887272", slot0.Tick)
	}
	if slot0.ObservationIndex != 3 || slot0.ObservationCardinality != 100 || slot0.ObservationCardinalityNext != 150 {
		t.Fatalf("observation fields mismatch: %+v", slot0)
	}
	if slot0.FeeProtocol != 4 {
		t.Fatalf("feeProtocol = %d, want 4", slot0.FeeProtocol)
	}
	if !slot0.Unlocked {
		t.Fatalf("unlocked = false, want true")
	}
}

func TestDecodeSlot0TickSignExtension(t *testing.T) {
	cases := []struct {
		raw  int64
		want int32
	}{
		{0x800000, -8388608},
		{0x7fffff, 8388607},
		{0xffffff, -1},
		{0, 0},
	}

	for _, tc := range cases {
		word := packWord(t, Slot0Layout, map[string]*big.Int{
			"tick": big.NewInt(tc.raw),
		})
		slot0, err := DecodeSlot0(word)
		if err != nil {
			t.Fatalf("decode slot0: %v", err)
		}
		if slot0.Tick != tc.want {
			t.Fatalf("tick bits %#x decoded to %d, want %d", tc.raw, slot0.Tick, tc.want)
		}
	}
}

func TestDecodeTick(t *testing.T) {
	word := packWord(t, TickLayout, map[string]*big.Int{
		"liquidityGross": big.NewInt(5000),
		"liquidityNet":   big.NewInt(-5000),
	})

	entry, err := DecodeTick(-120, word)
	if err != nil {
		t.Fatalf("decode tick: %v", err)
	}
	if entry.Tick != -120 {
		t.Fatalf("tick = %d, want -120", entry.Tick)
	}
	if !entry.LiquidityGross.Eq(uint256.NewInt(5000)) {
		t.Fatalf("liquidityGross = %s, want 5000", entry.LiquidityGross.Dec())
	}
	if entry.LiquidityNet.Cmp(big.NewInt(-5000)) != 0 {
		t.Fatalf("liquidityNet = %s, want -5000", entry.LiquidityNet.String())
	}
	if !entry.Initialized {
		t.Fatalf("nonzero word should mark the tick initialized")
	}
}

func TestDecodeTickZeroWord(t *testing.T) {
	entry, err := DecodeTick(60, common.Hash{})
	if err != nil {
		t.Fatalf("decode tick: %v", err)
	}
	if entry.Initialized {
		t.Fatalf("zero word should not mark the tick initialized")
	}
}

func TestDecodeLiquidityMasksHighBits(t *testing.T) {
	// A real liquidity word can carry other packed members above the
	// uint128; only the low half is the liquidity value.
	word := common.HexToHash("0xffffffffffffffffffffffffffffffff000000000000000000000000000003e8")
	got := DecodeLiquidity(word)
	if !got.Eq(uint256.NewInt(1000)) {
		t.Fatalf("liquidity = %s, want 1000", got.Dec())
	}
}

func TestWordLayoutWidthValidation(t *testing.T) {
	bad := WordLayout{
		{Name: "a", Bits: 100},
		{Name: "b", Bits: 100},
	}
	if _, err := bad.Decode(common.Hash{}); err == nil {
		t.Fatalf("expected error for layout not covering 256 bits")
	}
}
