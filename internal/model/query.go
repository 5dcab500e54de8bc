package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Protocol identifies the AMM generation a pool belongs to.
type Protocol string

const (
	ProtocolV2 Protocol = "v2"
	ProtocolV3 Protocol = "v3"
	ProtocolV4 Protocol = "v4"
)

// UnmarshalJSON accepts the common spellings seen in pool lists
// (v3, V3, uniswapv3) and normalizes them.
func (p *Protocol) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "v2", "uniswapv2":
		*p = ProtocolV2
	case "v3", "uniswapv3":
		*p = ProtocolV3
	case "v4", "uniswapv4":
		*p = ProtocolV4
	default:
		return fmt.Errorf("unknown protocol: %q", raw)
	}
	return nil
}

// PoolQuery describes one pool whose state should be collected.
type PoolQuery struct {
	Address  common.Address `json:"address"`
	Protocol Protocol       `json:"protocol"`

	// TickSpacing is required for V3/V4 and must be absent for V2.
	TickSpacing int32 `json:"tick_spacing,omitempty"`

	// Slot0Only skips tick and bitmap collection for fast filtering.
	Slot0Only bool `json:"slot0_only,omitempty"`

	// PoolID selects the pool inside the shared V4 manager contract.
	// Required for V4, absent otherwise.
	PoolID *common.Hash `json:"pool_id,omitempty"`

	// Factory switches the V3 slot table for forks with shifted
	// layouts (PancakeSwap V3). Optional, V3 only.
	Factory *common.Address `json:"factory,omitempty"`
}

// Validate checks the protocol/field invariants before any storage
// read is issued.
func (q PoolQuery) Validate() error {
	switch q.Protocol {
	case ProtocolV2:
		if q.TickSpacing != 0 {
			return fmt.Errorf("tick_spacing is not valid for v2 pools")
		}
		if q.PoolID != nil {
			return fmt.Errorf("pool_id is not valid for v2 pools")
		}
		if q.Factory != nil {
			return fmt.Errorf("factory is not valid for v2 pools")
		}
	case ProtocolV3:
		if q.TickSpacing <= 0 {
			return fmt.Errorf("v3 pool requires positive tick_spacing, got %d", q.TickSpacing)
		}
		if q.PoolID != nil {
			return fmt.Errorf("pool_id is not valid for v3 pools")
		}
	case ProtocolV4:
		if q.TickSpacing <= 0 {
			return fmt.Errorf("v4 pool requires positive tick_spacing, got %d", q.TickSpacing)
		}
		if q.PoolID == nil {
			return fmt.Errorf("v4 pool requires pool_id")
		}
		if q.Factory != nil {
			return fmt.Errorf("factory is not valid for v4 pools")
		}
	default:
		return fmt.Errorf("unknown protocol: %q", q.Protocol)
	}
	return nil
}

// AssignPoolIDs attaches a parallel pool-id list to the V4 entries of
// queries, in order. Entries that already carry a pool_id are skipped.
func AssignPoolIDs(queries []PoolQuery, ids []common.Hash) ([]PoolQuery, error) {
	out := make([]PoolQuery, len(queries))
	copy(out, queries)

	next := 0
	for i := range out {
		if out[i].Protocol != ProtocolV4 || out[i].PoolID != nil {
			continue
		}
		if next >= len(ids) {
			return nil, fmt.Errorf("not enough pool ids for v4 pools (need at least %d)", next+1)
		}
		id := ids[next]
		out[i].PoolID = &id
		next++
	}
	if next < len(ids) {
		return nil, fmt.Errorf("%d pool ids left unassigned", len(ids)-next)
	}
	return out, nil
}
