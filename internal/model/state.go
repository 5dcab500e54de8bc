package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ReservesState holds the decoded V2 reserves word.
type ReservesState struct {
	Raw                string       `json:"raw_data,omitempty"`
	Reserve0           *uint256.Int `json:"reserve0"`
	Reserve1           *uint256.Int `json:"reserve1"`
	BlockTimestampLast uint32       `json:"block_timestamp_last"`
}

// Slot0State holds the decoded slot0 word of a V3/V4 pool. Only
// SqrtPriceX96 and Tick are load-bearing; the observation and fee
// fields ride along for completeness.
type Slot0State struct {
	Raw                        string       `json:"raw_data,omitempty"`
	SqrtPriceX96               *uint256.Int `json:"sqrt_price_x96"`
	Tick                       int32        `json:"tick"`
	ObservationIndex           uint16       `json:"observation_index"`
	ObservationCardinality     uint16       `json:"observation_cardinality"`
	ObservationCardinalityNext uint16       `json:"observation_cardinality_next"`
	FeeProtocol                uint8        `json:"fee_protocol"`
	Unlocked                   bool         `json:"unlocked"`
}

// TickEntry is one initialized tick. Initialized is derived from the
// stored word being nonzero, not from a separate flag.
type TickEntry struct {
	Tick           int32        `json:"tick"`
	Raw            string       `json:"raw_data,omitempty"`
	LiquidityGross *uint256.Int `json:"liquidity_gross"`
	LiquidityNet   *big.Int     `json:"liquidity_net"`
	Initialized    bool         `json:"initialized"`
}

// BitmapWord is one nonzero word of the tick bitmap index.
type BitmapWord struct {
	WordPos int16        `json:"word_pos"`
	Bits    *uint256.Int `json:"bitmap"`
}

// PoolState is the collected snapshot for a single query. Exactly one
// of Reserves (V2) or Slot0 (V3/V4) is set.
type PoolState struct {
	Address     common.Address `json:"address"`
	Protocol    Protocol       `json:"protocol"`
	PoolID      *common.Hash   `json:"pool_id,omitempty"`
	BlockNumber uint64         `json:"block_number,omitempty"`

	Reserves  *ReservesState `json:"reserves,omitempty"`
	Slot0     *Slot0State    `json:"slot0,omitempty"`
	Liquidity *uint256.Int   `json:"liquidity,omitempty"`

	// Ticks and Bitmaps are always non-nil; in slot0-only mode (and
	// for V2) they are empty by contract, not merely omitted.
	Ticks   []TickEntry  `json:"ticks"`
	Bitmaps []BitmapWord `json:"bitmaps"`
}

// NewV2State builds a V2 snapshot.
func NewV2State(address common.Address, reserves *ReservesState) *PoolState {
	return &PoolState{
		Address:  address,
		Protocol: ProtocolV2,
		Reserves: reserves,
		Ticks:    []TickEntry{},
		Bitmaps:  []BitmapWord{},
	}
}

// NewV3State builds a V3 snapshot.
func NewV3State(address common.Address, slot0 *Slot0State, liquidity *uint256.Int, ticks []TickEntry, bitmaps []BitmapWord) *PoolState {
	if ticks == nil {
		ticks = []TickEntry{}
	}
	if bitmaps == nil {
		bitmaps = []BitmapWord{}
	}
	return &PoolState{
		Address:   address,
		Protocol:  ProtocolV3,
		Slot0:     slot0,
		Liquidity: liquidity,
		Ticks:     ticks,
		Bitmaps:   bitmaps,
	}
}

// NewV4State builds a V4 snapshot keyed by its manager pool id.
func NewV4State(address common.Address, poolID common.Hash, slot0 *Slot0State, liquidity *uint256.Int, ticks []TickEntry, bitmaps []BitmapWord) *PoolState {
	state := NewV3State(address, slot0, liquidity, ticks, bitmaps)
	state.Protocol = ProtocolV4
	state.PoolID = &poolID
	return state
}
