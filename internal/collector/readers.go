package collector

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolScope/internal/layout"
	"poolScope/internal/model"
	"poolScope/internal/tickmap"
)

// slotDeriver abstracts how tick and bitmap slots are derived: V3
// hashes against fixed mapping slots, V4 chains every derivation
// through the pool id first.
type slotDeriver interface {
	bitmapSlot(wordPos int16) common.Hash
	tickSlot(tick int32) common.Hash
}

type v3Deriver struct {
	slots layout.V3Slots
}

func (d v3Deriver) bitmapSlot(wordPos int16) common.Hash {
	return layout.BitmapSlot(wordPos, layout.SimpleSlot(d.slots.TickBitmap))
}

func (d v3Deriver) tickSlot(tick int32) common.Hash {
	return layout.TickSlot(tick, layout.SimpleSlot(d.slots.Ticks))
}

type v4Deriver struct {
	poolID common.Hash
}

func (d v4Deriver) bitmapSlot(wordPos int16) common.Hash {
	return layout.V4BitmapSlot(d.poolID, wordPos)
}

func (d v4Deriver) tickSlot(tick int32) common.Hash {
	return layout.V4TickSlot(d.poolID, tick)
}

// collectV2 reads and decodes the single packed reserves word.
func (c *Collector) collectV2(ctx context.Context, query model.PoolQuery) (*model.PoolState, error) {
	word, err := c.readWord(ctx, query.Address, layout.SimpleSlot(layout.V2ReservesSlot))
	if err != nil {
		return nil, err
	}
	reserves, err := layout.DecodeReserves(word)
	if err != nil {
		return nil, err
	}
	return model.NewV2State(query.Address, reserves), nil
}

func (c *Collector) collectV3(ctx context.Context, query model.PoolQuery) (*model.PoolState, error) {
	slots := layout.V3SlotsFor(query.Factory)

	slot0Word, err := c.readWord(ctx, query.Address, layout.SimpleSlot(slots.Slot0))
	if err != nil {
		return nil, err
	}
	slot0, err := layout.DecodeSlot0(slot0Word)
	if err != nil {
		return nil, err
	}

	liquidityWord, err := c.readWord(ctx, query.Address, layout.SimpleSlot(slots.Liquidity))
	if err != nil {
		return nil, err
	}
	liquidity := layout.DecodeLiquidity(liquidityWord)

	if query.Slot0Only {
		return model.NewV3State(query.Address, slot0, liquidity, nil, nil), nil
	}

	ticks, bitmaps, err := c.scanTicks(ctx, query.Address, v3Deriver{slots: slots}, query.TickSpacing, slot0.Tick)
	if err != nil {
		return nil, err
	}
	return model.NewV3State(query.Address, slot0, liquidity, ticks, bitmaps), nil
}

func (c *Collector) collectV4(ctx context.Context, query model.PoolQuery) (*model.PoolState, error) {
	poolID := *query.PoolID

	slot0Word, err := c.readWord(ctx, query.Address, layout.V4Slot0Slot(poolID))
	if err != nil {
		return nil, err
	}
	slot0, err := layout.DecodeSlot0(slot0Word)
	if err != nil {
		return nil, err
	}

	liquidityWord, err := c.readWord(ctx, query.Address, layout.V4LiquiditySlot(poolID))
	if err != nil {
		return nil, err
	}
	liquidity := layout.DecodeLiquidity(liquidityWord)

	if query.Slot0Only {
		return model.NewV4State(query.Address, poolID, slot0, liquidity, nil, nil), nil
	}

	ticks, bitmaps, err := c.scanTicks(ctx, query.Address, v4Deriver{poolID: poolID}, query.TickSpacing, slot0.Tick)
	if err != nil {
		return nil, err
	}
	return model.NewV4State(query.Address, poolID, slot0, liquidity, ticks, bitmaps), nil
}

// scanTicks walks the bitmap words covering the requested range,
// enumerates set bits, and reads the tick record behind each one.
// Zero bitmap words and zero tick words are skipped as uninitialized.
func (c *Collector) scanTicks(ctx context.Context, account common.Address, deriver slotDeriver, spacing, currentTick int32) ([]model.TickEntry, []model.BitmapWord, error) {
	var loWord, hiWord int16
	if c.cfg.TickWindow > 0 {
		loWord, hiWord = tickmap.WordsAround(currentTick, spacing, c.cfg.TickWindow)
	} else {
		loWord, hiWord = tickmap.FullWordRange(spacing)
	}

	ticks := []model.TickEntry{}
	bitmaps := []model.BitmapWord{}
	for pos := int32(loWord); pos <= int32(hiWord); pos++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		wordPos := int16(pos)

		bitmapWord, err := c.readWord(ctx, account, deriver.bitmapSlot(wordPos))
		if err != nil {
			return nil, nil, err
		}
		if bitmapWord == (common.Hash{}) {
			continue
		}

		bits := new(uint256.Int).SetBytes(bitmapWord[:])
		bitmaps = append(bitmaps, model.BitmapWord{WordPos: wordPos, Bits: bits})

		for _, bit := range tickmap.SetBits(bits) {
			tick := tickmap.TickFor(wordPos, bit, spacing)
			if !tickmap.Valid(tick) {
				continue
			}
			tickWord, err := c.readWord(ctx, account, deriver.tickSlot(tick))
			if err != nil {
				return nil, nil, err
			}
			if tickWord == (common.Hash{}) {
				continue
			}
			entry, err := layout.DecodeTick(tick, tickWord)
			if err != nil {
				return nil, nil, err
			}
			ticks = append(ticks, *entry)
		}
	}
	return ticks, bitmaps, nil
}
