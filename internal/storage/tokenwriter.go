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

// TokenRow is one token-on-one-program's accumulated enrichment state,
// matching the tokens table's columns one for one (spec §3's Tokens
// row). Fields fall into three coalescing classes the writer applies
// on flush (spec §4.11): overwrite-latest (Price/LastBase/LastQuote/
// ServTimeMs/TokenAgeMs -- the most recent non-zero observation wins), set-once
// (Creator/Pool/BaseVault/QuoteVault/Signature/Slot/BlockTimeMs/
// Decimals/Supply/InitBase/InitQuote -- first non-zero value sticks),
// and summed (TxsInc -- every observation's delta accumulates into
// txs).
type TokenRow struct {
	Mint        string
	Program     string
	Creator     string
	Pool        string
	BaseVault   string
	QuoteVault  string
	Signature   string
	Slot        uint64
	BlockTimeMs int64
	Price       float64
	InitBase    int64
	InitQuote   int64
	LastBase    int64
	LastQuote   int64
	Decimals    uint8
	Supply      int64
	TxsInc      int64
	ServTimeMs  int64
	TokenAgeMs  int64
}

// id is the deterministic row id for (mint, program): the hot
// in-memory cache keys enrichment state by the same pair (spec's
// POSTGRESTOKENSCACHE), so the backing row for one pair is stable
// across every coalesced update.
func (r TokenRow) id() uuid.UUID {
	key := fmt.Sprintf("%s|%s", r.Mint, r.Program)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}

func mergeTokenRow(existing, incoming TokenRow) TokenRow {
	merged := existing
	if merged.Creator == "" {
		merged.Creator = incoming.Creator
	}
	if merged.Pool == "" {
		merged.Pool = incoming.Pool
	}
	if merged.BaseVault == "" {
		merged.BaseVault = incoming.BaseVault
	}
	if merged.QuoteVault == "" {
		merged.QuoteVault = incoming.QuoteVault
	}
	if merged.Signature == "" {
		merged.Signature = incoming.Signature
	}
	if merged.Slot == 0 {
		merged.Slot = incoming.Slot
	}
	if merged.BlockTimeMs == 0 {
		merged.BlockTimeMs = incoming.BlockTimeMs
	}
	if merged.Decimals == 0 {
		merged.Decimals = incoming.Decimals
	}
	if merged.Supply == 0 {
		merged.Supply = incoming.Supply
	}
	if merged.InitBase == 0 {
		merged.InitBase = incoming.InitBase
	}
	if merged.InitQuote == 0 {
		merged.InitQuote = incoming.InitQuote
	}
	if incoming.Price != 0 {
		merged.Price = incoming.Price
	}
	if incoming.LastBase != 0 {
		merged.LastBase = incoming.LastBase
	}
	if incoming.LastQuote != 0 {
		merged.LastQuote = incoming.LastQuote
	}
	if incoming.ServTimeMs != 0 {
		merged.ServTimeMs = incoming.ServTimeMs
	}
	if incoming.TokenAgeMs != 0 {
		merged.TokenAgeMs = incoming.TokenAgeMs
	}
	merged.TxsInc += incoming.TxsInc
	return merged
}

// TokenWriter batches TokenRow writes, coalescing multiple updates for
// the same (mint, program) within one flush window before issuing one
// upsert per pair per flush.
type TokenWriter struct {
	pool          *pgxpool.Pool
	logger        *zap.Logger
	in            chan TokenRow
	maxBatch      int
	flushInterval time.Duration
}

// NewTokenWriter builds a writer backed by pool.
func NewTokenWriter(pool *pgxpool.Pool, logger *zap.Logger, maxBatch int, flushMs int, channelCap int) *TokenWriter {
	return &TokenWriter{
		pool:          pool,
		logger:        logger,
		in:            make(chan TokenRow, channelCap),
		maxBatch:      maxBatch,
		flushInterval: time.Duration(flushMs) * time.Millisecond,
	}
}

// Enqueue submits a token-stat delta.
func (w *TokenWriter) Enqueue(row TokenRow) { w.in <- row }

// Run drains the queue, coalescing by (mint, program), and flushes on
// whichever comes first: maxBatch distinct pairs pending, or
// flushInterval elapsing.
func (w *TokenWriter) Run(ctx context.Context) {
	pending := make(map[uuid.UUID]TokenRow)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		rows := make([]TokenRow, 0, len(pending))
		for _, r := range pending {
			rows = append(rows, r)
		}
		pending = make(map[uuid.UUID]TokenRow)
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
		if err := w.flushBatch(ctx, rows); err != nil {
			w.logger.Error("token flush failed", zap.Int("rows", len(rows)), zap.Error(err))
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
			id := row.id()
			if existing, ok := pending[id]; ok {
				pending[id] = mergeTokenRow(existing, row)
			} else {
				pending[id] = row
			}
			if len(pending) >= w.maxBatch {
				flush()
			}
		}
	}
}

func (w *TokenWriter) flushBatch(ctx context.Context, rows []TokenRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(
			`INSERT INTO tokens (uuid, signature, slot, blocktime_ms, program, mint, creator, pool, basevault, quotevault, price, initbase, initquote, lastbase, lastquote, decimals, supply, txs, servtime_ms, tokenage_ms)
			 VALUES ($1,NULLIF($2,''),NULLIF($3,0),NULLIF($4,0),$5,$6,NULLIF($7,''),NULLIF($8,''),NULLIF($9,''),NULLIF($10,''),NULLIF($11::double precision,0),NULLIF($12,0),NULLIF($13,0),NULLIF($14::bigint,0),NULLIF($15::bigint,0),NULLIF($16,0),NULLIF($17,0),$18,NULLIF($19::bigint,0),NULLIF($20::bigint,0))
			 ON CONFLICT (uuid) DO UPDATE SET
				signature = COALESCE(tokens.signature, excluded.signature),
				slot = COALESCE(tokens.slot, excluded.slot),
				blocktime_ms = COALESCE(tokens.blocktime_ms, excluded.blocktime_ms),
				creator = COALESCE(tokens.creator, excluded.creator),
				pool = COALESCE(tokens.pool, excluded.pool),
				basevault = COALESCE(tokens.basevault, excluded.basevault),
				quotevault = COALESCE(tokens.quotevault, excluded.quotevault),
				price = COALESCE(excluded.price, tokens.price),
				initbase = COALESCE(tokens.initbase, excluded.initbase),
				initquote = COALESCE(tokens.initquote, excluded.initquote),
				lastbase = COALESCE(excluded.lastbase, tokens.lastbase),
				lastquote = COALESCE(excluded.lastquote, tokens.lastquote),
				decimals = COALESCE(tokens.decimals, excluded.decimals),
				supply = COALESCE(tokens.supply, excluded.supply),
				txs = tokens.txs + excluded.txs,
				servtime_ms = COALESCE(excluded.servtime_ms, tokens.servtime_ms),
				tokenage_ms = COALESCE(excluded.tokenage_ms, tokens.tokenage_ms)`,
			r.id(), r.Signature, r.Slot, r.BlockTimeMs, r.Program, r.Mint, r.Creator, r.Pool, r.BaseVault, r.QuoteVault,
			r.Price, r.InitBase, r.InitQuote, r.LastBase, r.LastQuote, r.Decimals, r.Supply, r.TxsInc, r.ServTimeMs, r.TokenAgeMs,
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
