package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MarketStore tracks the one-row-per-mint open/close snapshot the
// trade monitor's follow task maintains alongside the trades table
// (spec §3's Market row): the price at open, the latest close price
// the follow loop observes, and whether the market is currently open.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore builds a MarketStore backed by pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore { return &MarketStore{pool: pool} }

// Open upserts mint's market row as open at openPrice.
func (s *MarketStore) Open(ctx context.Context, mint, pool, protocol string, openPrice float64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO market (mint, pool, protocol, open_price, is_open, opened_at)
		 VALUES ($1,$2,$3,$4,true,now())
		 ON CONFLICT (mint) DO UPDATE SET
			pool = excluded.pool, protocol = excluded.protocol,
			open_price = excluded.open_price, is_open = true,
			opened_at = now(), closed_at = NULL`,
		mint, pool, protocol, openPrice)
	return err
}

// UpdateClose records the latest observed close price without ending
// the market, for the follow loop's per-tick `market close` update
// (spec §4.12's Follow state).
func (s *MarketStore) UpdateClose(ctx context.Context, mint string, closePrice float64) error {
	_, err := s.pool.Exec(ctx, `UPDATE market SET close_price = $2 WHERE mint = $1`, mint, closePrice)
	return err
}

// Close marks mint's market as closed.
func (s *MarketStore) Close(ctx context.Context, mint string, closePrice float64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE market SET close_price = $2, is_open = false, closed_at = now() WHERE mint = $1`,
		mint, closePrice)
	return err
}
