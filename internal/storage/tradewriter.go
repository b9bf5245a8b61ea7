package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TradeRow is one open or closed position, matching the trades table's
// columns one for one (spec §3's Trade row). Total is NULL while the
// trade is open; that is the invariant a TradeRow's lifecycle upholds
// (`total IS NULL <=> open`).
type TradeRow struct {
	UUID       uuid.UUID
	Mint       string
	Pool       string
	Protocol   string
	Hash       string
	EntryPrice float64
	Units      uint64
}

// TradeStore persists trade open/partial-sell/close transitions
// directly (unbatched, unlike the tick/token writers) since trade
// events are orders of magnitude rarer than price ticks and each one
// gates real money movement -- batching would trade correctness for a
// throughput gain this path doesn't need.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore builds a TradeStore backed by pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore { return &TradeStore{pool: pool} }

// Open inserts a newly-opened position with total left NULL.
func (s *TradeStore) Open(ctx context.Context, row TradeRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trades (uuid, mint, pool, protocol, hash, entry_price, units)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		row.UUID, row.Mint, row.Pool, row.Protocol, row.Hash, row.EntryPrice, row.Units)
	return err
}

// RecordPartialSell persists one step of the trailing-sell ladder:
// the realized proceeds so far, the remaining basis/units, the
// trail-count/next-level state the FSM arms after each step, and
// whether a partial sell has fired at least once.
func (s *TradeStore) RecordPartialSell(ctx context.Context, id uuid.UUID, remAmount float64, remToken uint64, realized float64, trailCount int, nextLevel float64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE trades SET remamount = $2, remtoken = $3, realized = $4, trailcount = $5, nextlevel = $6, partialsell = true WHERE uuid = $1`,
		id, remAmount, remToken, realized, trailCount, nextLevel)
	return err
}

// Close marks a trade as finished: total is the cumulative proceeds
// (0 on an exhausted-retries close per spec §4.12), reason is the
// close reason's string form.
func (s *TradeStore) Close(ctx context.Context, id uuid.UUID, total float64, reason string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE trades SET total = $2, reason = $3, closed_at = now() WHERE uuid = $1`,
		id, total, reason)
	return err
}
