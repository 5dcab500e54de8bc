package model

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func hashPtr(h common.Hash) *common.Hash {
	return &h
}

func addrPtr(a common.Address) *common.Address {
	return &a
}

func TestPoolQueryValidate(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	manager := common.HexToAddress("0x2222222222222222222222222222222222222222")
	factory := common.HexToAddress("0x3333333333333333333333333333333333333333")
	poolID := common.HexToHash("0xabcd")

	cases := []struct {
		name    string
		query   PoolQuery
		wantErr bool
	}{
		{"v2 ok", PoolQuery{Address: pool, Protocol: ProtocolV2}, false},
		{"v2 with spacing", PoolQuery{Address: pool, Protocol: ProtocolV2, TickSpacing: 60}, true},
		{"v2 with pool id", PoolQuery{Address: pool, Protocol: ProtocolV2, PoolID: hashPtr(poolID)}, true},
		{"v2 with factory", PoolQuery{Address: pool, Protocol: ProtocolV2, Factory: addrPtr(factory)}, true},
		{"v3 ok", PoolQuery{Address: pool, Protocol: ProtocolV3, TickSpacing: 60}, false},
		{"v3 with factory", PoolQuery{Address: pool, Protocol: ProtocolV3, TickSpacing: 60, Factory: addrPtr(factory)}, false},
		{"v3 missing spacing", PoolQuery{Address: pool, Protocol: ProtocolV3}, true},
		{"v3 negative spacing", PoolQuery{Address: pool, Protocol: ProtocolV3, TickSpacing: -60}, true},
		{"v3 with pool id", PoolQuery{Address: pool, Protocol: ProtocolV3, TickSpacing: 60, PoolID: hashPtr(poolID)}, true},
		{"v4 ok", PoolQuery{Address: manager, Protocol: ProtocolV4, TickSpacing: 10, PoolID: hashPtr(poolID)}, false},
		{"v4 missing pool id", PoolQuery{Address: manager, Protocol: ProtocolV4, TickSpacing: 10}, true},
		{"v4 missing spacing", PoolQuery{Address: manager, Protocol: ProtocolV4, PoolID: hashPtr(poolID)}, true},
		{"v4 with factory", PoolQuery{Address: manager, Protocol: ProtocolV4, TickSpacing: 10, PoolID: hashPtr(poolID), Factory: addrPtr(factory)}, true},
		{"unknown protocol", PoolQuery{Address: pool, Protocol: "v5"}, true},
	}

	for _, tc := range cases {
		err := tc.query.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestProtocolUnmarshalAliases(t *testing.T) {
	cases := []struct {
		raw  string
		want Protocol
	}{
		{`"v2"`, ProtocolV2},
		{`"V3"`, ProtocolV3},
		{`"uniswapv3"`, ProtocolV3},
		{`"UniswapV4"`, ProtocolV4},
	}

	for _, tc := range cases {
		var p Protocol
		if err := json.Unmarshal([]byte(tc.raw), &p); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.raw, err)
		}
		if p != tc.want {
			t.Fatalf("unmarshal %s = %q, want %q", tc.raw, p, tc.want)
		}
	}

	var p Protocol
	if err := json.Unmarshal([]byte(`"v5"`), &p); err == nil {
		t.Fatalf("expected error for unknown protocol")
	}
}

func TestAssignPoolIDs(t *testing.T) {
	manager := common.HexToAddress("0x2222222222222222222222222222222222222222")
	queries := []PoolQuery{
		{Protocol: ProtocolV2},
		{Address: manager, Protocol: ProtocolV4, TickSpacing: 10},
		{Protocol: ProtocolV3, TickSpacing: 60},
		{Address: manager, Protocol: ProtocolV4, TickSpacing: 60},
	}
	ids := []common.Hash{
		common.HexToHash("0x01"),
		common.HexToHash("0x02"),
	}

	out, err := AssignPoolIDs(queries, ids)
	if err != nil {
		t.Fatalf("assign pool ids: %v", err)
	}
	if out[1].PoolID == nil || *out[1].PoolID != ids[0] {
		t.Fatalf("first v4 query got %v, want %s", out[1].PoolID, ids[0].Hex())
	}
	if out[3].PoolID == nil || *out[3].PoolID != ids[1] {
		t.Fatalf("second v4 query got %v, want %s", out[3].PoolID, ids[1].Hex())
	}
	if out[0].PoolID != nil || out[2].PoolID != nil {
		t.Fatalf("non-v4 queries must not receive pool ids")
	}

	// The input is not mutated.
	if queries[1].PoolID != nil {
		t.Fatalf("input slice was mutated")
	}
}

func TestAssignPoolIDsSkipsExisting(t *testing.T) {
	manager := common.HexToAddress("0x2222222222222222222222222222222222222222")
	existing := common.HexToHash("0xaa")
	queries := []PoolQuery{
		{Address: manager, Protocol: ProtocolV4, TickSpacing: 10, PoolID: hashPtr(existing)},
		{Address: manager, Protocol: ProtocolV4, TickSpacing: 10},
	}
	ids := []common.Hash{common.HexToHash("0xbb")}

	out, err := AssignPoolIDs(queries, ids)
	if err != nil {
		t.Fatalf("assign pool ids: %v", err)
	}
	if *out[0].PoolID != existing {
		t.Fatalf("pre-set pool id was overwritten")
	}
	if *out[1].PoolID != ids[0] {
		t.Fatalf("unset query did not receive the id")
	}
}

func TestAssignPoolIDsCountMismatch(t *testing.T) {
	manager := common.HexToAddress("0x2222222222222222222222222222222222222222")
	v4 := PoolQuery{Address: manager, Protocol: ProtocolV4, TickSpacing: 10}

	if _, err := AssignPoolIDs([]PoolQuery{v4, v4}, []common.Hash{common.HexToHash("0x01")}); err == nil {
		t.Fatalf("expected error for too few pool ids")
	}
	if _, err := AssignPoolIDs([]PoolQuery{v4}, []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")}); err == nil {
		t.Fatalf("expected error for leftover pool ids")
	}
}
