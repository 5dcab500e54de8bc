package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolScope/internal/model"
)

// Store provides Postgres persistence for pool snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertSnapshots inserts or updates one row per collected pool state.
// Big values are stored as text; numeric width on the database side is
// not worth the round-trip hazards.
func (s *Store) UpsertSnapshots(ctx context.Context, states []*model.PoolState) error {
	if len(states) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, state := range states {
		poolID := ""
		if state.PoolID != nil {
			poolID = state.PoolID.Hex()
		}

		var sqrtPrice, liquidity, reserve0, reserve1 string
		var tick int32
		var timestampLast uint32
		if state.Slot0 != nil {
			sqrtPrice = state.Slot0.SqrtPriceX96.Dec()
			tick = state.Slot0.Tick
		}
		if state.Liquidity != nil {
			liquidity = state.Liquidity.Dec()
		}
		if state.Reserves != nil {
			reserve0 = state.Reserves.Reserve0.Dec()
			reserve1 = state.Reserves.Reserve1.Dec()
			timestampLast = state.Reserves.BlockTimestampLast
		}

		batch.Queue(`
			INSERT INTO pool_snapshots (
				pool_address, protocol, pool_id, block_number,
				sqrt_price_x96, tick, liquidity, reserve0, reserve1,
				block_timestamp_last, tick_count, bitmap_count, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
			ON CONFLICT (pool_address, protocol, pool_id, block_number)
			DO UPDATE SET
				sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
				tick = EXCLUDED.tick,
				liquidity = EXCLUDED.liquidity,
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				block_timestamp_last = EXCLUDED.block_timestamp_last,
				tick_count = EXCLUDED.tick_count,
				bitmap_count = EXCLUDED.bitmap_count,
				updated_at = now()
		`,
			state.Address.Hex(),
			string(state.Protocol),
			poolID,
			int64(state.BlockNumber),
			sqrtPrice,
			tick,
			liquidity,
			reserve0,
			reserve1,
			int64(timestampLast),
			len(state.Ticks),
			len(state.Bitmaps),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range states {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
