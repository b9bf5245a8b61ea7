package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// TickRow is one price observation for a mint/pool pair.
type TickRow struct {
	Mint         string
	Pool         string
	Protocol     string
	PriceBase    float64
	BaseReserve  float64
	QuoteReserve float64
	Slot         uint64
	TickSecond   int64
}

// id returns the deterministic row id for (mint, tick_second): ticks
// for the same mint in the same wall-clock second coalesce to one row,
// last write wins, per spec §4.11.
func (r TickRow) id() uuid.UUID {
	key := fmt.Sprintf("%s|%d", r.Mint, r.TickSecond)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}

// TickWriter batches TickRow writes, coalescing by (mint, tick_second)
// so a hot mint receiving many sub-second updates produces one row per
// second rather than one per event.
type TickWriter struct {
	pool          *pgxpool.Pool
	logger        *zap.Logger
	in            chan TickRow
	maxBatch      int
	flushInterval time.Duration
}

// NewTickWriter builds a writer backed by pool. channelCap should match
// the configured tick channel size (DEFLBCHANNELSIZE-class constant).
func NewTickWriter(pool *pgxpool.Pool, logger *zap.Logger, maxBatch int, flushMs int, channelCap int) *TickWriter {
	return &TickWriter{
		pool:          pool,
		logger:        logger,
		in:            make(chan TickRow, channelCap),
		maxBatch:      maxBatch,
		flushInterval: time.Duration(flushMs) * time.Millisecond,
	}
}

// Enqueue submits a tick for eventual persistence. Blocks if the
// channel is full; callers on the hot decode path should size the
// channel generously rather than rely on this blocking.
func (w *TickWriter) Enqueue(row TickRow) { w.in <- row }

// Run drains the queue, coalescing into a pending map keyed by row id,
// and flushes on whichever comes first: maxBatch pending rows, or
// flushInterval elapsing since the oldest pending row arrived.
func (w *TickWriter) Run(ctx context.Context) {
	pending := make(map[uuid.UUID]TickRow)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		rows := make([]TickRow, 0, len(pending))
		for _, r := range pending {
			rows = append(rows, r)
		}
		pending = make(map[uuid.UUID]TickRow)
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
		if err := w.flushBatch(ctx, rows); err != nil {
			w.logger.Error("tick flush failed", zap.Int("rows", len(rows)), zap.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-timerC:
			flush()
		case row, ok := <-w.in:
			if !ok {
				flush()
				return
			}
			if len(pending) == 0 && w.flushInterval > 0 {
				timer = time.NewTimer(w.flushInterval)
				timerC = timer.C
			}
			pending[row.id()] = row
			if len(pending) >= w.maxBatch {
				flush()
			}
		}
	}
}

func (w *TickWriter) flushBatch(ctx context.Context, rows []TickRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(
			`INSERT INTO ticks (id, mint, pool, protocol, price_base, base_reserve, quote_reserve, slot, tick_second, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now())
			 ON CONFLICT (id) DO UPDATE SET
				price_base = excluded.price_base,
				base_reserve = excluded.base_reserve,
				quote_reserve = excluded.quote_reserve,
				slot = excluded.slot,
				updated_at = now()`,
			r.id(), r.Mint, r.Pool, r.Protocol, r.PriceBase, r.BaseReserve, r.QuoteReserve, r.Slot, r.TickSecond,
		)
	}
	results := w.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
