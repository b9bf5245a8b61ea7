package scanner

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/sqoove/ghostreaver/internal/storage"
	"github.com/sqoove/ghostreaver/internal/yellowstone"
)

// Request asks the scanner to refresh one pool's state, issued by the
// decode-time path once a mint crosses the configured transaction-count
// threshold (spec §4.13).
type Request struct {
	Mint     string
	Pool     string
	Protocol string
	Reader   PoolReader
}

// Scanner throttles and executes enrichment requests, writing the
// result straight into TickWriter rather than returning it, since the
// caller (the decode-time path) doesn't block on enrichment completing.
type Scanner struct {
	rpc      yellowstone.RpcClient
	caches   *storage.Caches
	ticks    *storage.TickWriter
	logger   *zap.Logger
	attempts int
	baseMs   int
	minPeriodMs int64
}

// New builds a Scanner.
func New(rpc yellowstone.RpcClient, caches *storage.Caches, ticks *storage.TickWriter, logger *zap.Logger, attempts, baseDelayMs int, minPeriodMs int64) *Scanner {
	return &Scanner{
		rpc: rpc, caches: caches, ticks: ticks, logger: logger,
		attempts: attempts, baseMs: baseDelayMs, minPeriodMs: minPeriodMs,
	}
}

// Enrich applies the per-mint throttle, then reads the pool with
// exponential-backoff retries, then enqueues the resulting tick. It is
// meant to run on its own goroutine per request; a failed read after
// exhausting attempts is logged and dropped, since a later trade on the
// same mint will re-trigger enrichment.
func (s *Scanner) Enrich(ctx context.Context, req Request, slot uint64, tickSecond int64) {
	if !s.caches.ShouldEnrich(req.Mint, storage.NowMs(), s.minPeriodMs) {
		return
	}

	var state PoolState
	op := func() error {
		st, err := req.Reader.Read(ctx, s.rpc)
		if err != nil {
			return err
		}
		state = st
		return nil
	}

	if err := backoff.Retry(op, backoffFor(s.attempts, s.baseMs)); err != nil {
		s.logger.Warn("pool enrichment failed",
			zap.String("mint", req.Mint), zap.String("pool", req.Pool), zap.Error(err))
		return
	}

	if !s.caches.ShouldWriteTick(req.Mint, tickSecond) {
		return
	}
	s.ticks.Enqueue(storage.TickRow{
		Mint:         req.Mint,
		Pool:         req.Pool,
		Protocol:     req.Protocol,
		PriceBase:    state.Price,
		BaseReserve:  state.BaseReserve,
		QuoteReserve: state.QuoteReserve,
		Slot:         slot,
		TickSecond:   tickSecond,
	})
}
