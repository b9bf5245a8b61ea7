// Package trade implements the per-mint trade lifecycle: a buy opens a
// position which then follows price ticks through a trailing-sell
// ladder, stop-loss, take-profit, hold-time and liquidity-drain exits
// (spec §4.12), guarded by a process-wide open-trade cache plus a
// per-mint lock so concurrent ticks for the same mint never race two
// exits against each other. Grounded on the teacher's CircuitBreaker
// state machine (stellar-live-source/go/server/server.go) for the
// small-state-machine-behind-a-mutex shape, generalized from a binary
// open/closed breaker to this multi-reason trade FSM.
package trade

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqoove/ghostreaver/internal/executor"
	"github.com/sqoove/ghostreaver/internal/storage"
)

// ErrAlreadyOpen is returned by Open when mint already has a live
// position.
var ErrAlreadyOpen = errors.New("trade: position already open for mint")

// Thresholds holds the strategy parameters a Monitor evaluates against
// on every tick (sourced from config.BotConfig.Trade / bot.yaml's
// orders{} block, spec §6). partialtrigger/takeprofit and
// trailingstop/trailingdrop are deliberately separate knobs: the first
// pair governs when the first partial sell and the terminal
// take-profit close fire, the second pair governs when trailing arms
// and how far price must retreat from the post-arm high before it
// exits.
type Thresholds struct {
	BuySizeLamports     uint64
	StopLossPct         float64
	TakeProfitPct       float64
	PartialTriggerPct   float64
	PartialSellPct      float64
	TrailingTriggerPct  float64
	TrailingSellPct     float64
	TrailingStopPct     float64
	TrailingDropPct     float64
	MaxHoldSeconds      int
	LiquidityDrainPct   float64
	MaxConcurrentTrades int
}

// Position is one mint's open trade state.
type Position struct {
	OpenID         uuid.UUID
	Mint           string
	Pool           string
	Protocol       string
	EntryPrice     float64
	EntryReserveB  float64
	EntryReserveQ  float64
	Units          uint64
	OpenedAt       time.Time
	HighWaterPrice float64

	// PartialSold latches true after the first partial sell fires.
	// TrailCount/NextLevel are the trailing-sell ladder's progression
	// (spec §4.12's trailcount/nextlevel): every further trailing sell
	// bumps TrailCount and re-arms NextLevel further out, so a position
	// can take many partial sells as price keeps running, not just one.
	PartialSold bool
	TrailCount  int
	NextLevel   float64

	// TrailingOn latches true once pnl crosses TrailingStopPct; only
	// then does the trailing-drop exit condition apply.
	TrailingOn bool

	// Realized accumulates the proceeds (in quote units) from every
	// partial sell taken so far, folded into the final close's total.
	Realized float64
}

// Stores bundles the optional persistence collaborators a Monitor
// writes through on open/partial-sell/close. Any field left nil is
// skipped, so unit tests can drive the FSM purely in memory.
type Stores struct {
	Locks  *storage.LockStore
	Trades *storage.TradeStore
	Market *storage.MarketStore
	Sigs   *storage.SignatureLog
}

// Monitor owns every open position and drives the FSM.
type Monitor struct {
	cfg    Thresholds
	caches *storage.Caches
	exec   executor.Executor
	bus    *CloseBus
	stores Stores
	logger *zap.Logger

	mu        sync.Mutex
	positions map[string]*Position
	mintLocks map[string]*sync.Mutex
	openCount int
}

// NewMonitor builds a Monitor.
func NewMonitor(cfg Thresholds, caches *storage.Caches, exec executor.Executor, bus *CloseBus, stores Stores, logger *zap.Logger) *Monitor {
	return &Monitor{
		cfg:       cfg,
		caches:    caches,
		exec:      exec,
		bus:       bus,
		stores:    stores,
		logger:    logger,
		positions: make(map[string]*Position),
		mintLocks: make(map[string]*sync.Mutex),
	}
}

func (m *Monitor) lockFor(mint string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.mintLocks[mint]
	if !ok {
		l = &sync.Mutex{}
		m.mintLocks[mint] = l
	}
	return l
}

// Open attempts to buy into mint. It claims the DB-backed mint lock
// and the process-wide open-trade guard before touching the per-mint
// in-process lock, so two concurrent Open calls for the same mint
// can't both pass the guard and then race on the executor call.
func (m *Monitor) Open(ctx context.Context, mint, pool, protocol string, reserveBase, reserveQuote float64) (*Position, error) {
	if m.cfg.MaxConcurrentTrades > 0 {
		m.mu.Lock()
		atCap := m.openCount >= m.cfg.MaxConcurrentTrades
		m.mu.Unlock()
		if atCap {
			return nil, errors.New("trade: max concurrent trades reached")
		}
	}
	if m.stores.Locks != nil {
		acquired, err := m.stores.Locks.Acquire(ctx, mint)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrAlreadyOpen
		}
	}
	if !m.caches.TryOpenTrade(mint) {
		m.releaseLock(ctx, mint)
		return nil, ErrAlreadyOpen
	}

	lock := m.lockFor(mint)
	lock.Lock()
	defer lock.Unlock()

	fill, err := m.exec.SwapBuy(ctx, executor.Order{
		Mint: mint, LamportsIn: m.cfg.BuySizeLamports,
		BaseReserve: reserveBase, QuoteReserve: reserveQuote,
	})
	if err != nil {
		m.caches.CloseTrade(mint)
		m.releaseLock(ctx, mint)
		return nil, err
	}

	pos := &Position{
		OpenID: uuid.New(),
		Mint:   mint, Pool: pool, Protocol: protocol,
		EntryPrice: fill.EffectivePrice, EntryReserveB: reserveBase, EntryReserveQ: reserveQuote,
		Units: fill.AmountOut, OpenedAt: time.Now(), HighWaterPrice: fill.EffectivePrice,
	}

	if m.stores.Trades != nil {
		if err := m.stores.Trades.Open(ctx, storage.TradeRow{
			UUID: pos.OpenID, Mint: mint, Pool: pool, Protocol: protocol,
			Hash: fill.Signature, EntryPrice: fill.EffectivePrice, Units: fill.AmountOut,
		}); err != nil {
			m.logger.Warn("trade row insert failed", zap.String("mint", mint), zap.Error(err))
		}
	}
	if m.stores.Market != nil {
		if err := m.stores.Market.Open(ctx, mint, pool, protocol, fill.EffectivePrice); err != nil {
			m.logger.Warn("market open failed", zap.String("mint", mint), zap.Error(err))
		}
	}
	if m.stores.Sigs != nil {
		if err := m.stores.Sigs.Append(ctx, pos.OpenID, mint, fill.Signature, "buy"); err != nil {
			m.logger.Warn("signature log append failed", zap.String("mint", mint), zap.Error(err))
		}
	}

	m.mu.Lock()
	m.positions[mint] = pos
	m.openCount++
	m.mu.Unlock()

	m.logger.Info("trade opened", zap.String("mint", mint), zap.String("open_id", pos.OpenID.String()), zap.Float64("entry_price", pos.EntryPrice))
	return pos, nil
}

// OnTick evaluates one price observation for mint against every exit
// condition, in the priority order spec §4.12 defines: liquidity drain
// first (a structural pool failure outranks every price-based exit),
// then stop-loss, then the trailing-arm/trailing-exit check, then the
// partial-sell ladder (first sell and every subsequent trailing sell),
// then the exit bundler (take-profit, hold-time).
func (m *Monitor) OnTick(ctx context.Context, mint string, price, reserveBase, reserveQuote float64) {
	m.mu.Lock()
	pos, ok := m.positions[mint]
	m.mu.Unlock()
	if !ok {
		return
	}

	lock := m.lockFor(mint)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the lock: another tick may have closed it first.
	m.mu.Lock()
	pos, ok = m.positions[mint]
	m.mu.Unlock()
	if !ok {
		return
	}

	if m.stores.Market != nil {
		if err := m.stores.Market.UpdateClose(ctx, mint, price); err != nil {
			m.logger.Warn("market close update failed", zap.String("mint", mint), zap.Error(err))
		}
	}

	pnlPct := pctChange(pos.EntryPrice, price)

	drainPct := pctChange(pos.EntryReserveQ, reserveQuote)
	if drainPct <= -m.cfg.LiquidityDrainPct {
		m.close(ctx, pos, price, CloseLiquidityDrain)
		return
	}
	if pnlPct <= -m.cfg.StopLossPct {
		m.close(ctx, pos, price, CloseStopLoss)
		return
	}

	if !pos.TrailingOn && pnlPct >= m.cfg.TrailingStopPct {
		pos.TrailingOn = true
		pos.HighWaterPrice = price
	}
	if pos.TrailingOn && price > pos.HighWaterPrice {
		pos.HighWaterPrice = price
	}
	if pos.TrailingOn {
		drawdown := pctChange(pos.HighWaterPrice, price)
		if drawdown <= -m.cfg.TrailingDropPct {
			m.close(ctx, pos, price, CloseTrailingStop)
			return
		}
	}

	if !pos.PartialSold && pnlPct >= m.cfg.PartialTriggerPct {
		pos.PartialSold = true
		pos.NextLevel = m.cfg.PartialTriggerPct + m.cfg.TrailingTriggerPct*float64(pos.TrailCount+1)
		m.partialSell(ctx, pos, price, reserveBase, reserveQuote, m.cfg.PartialSellPct)
		return
	}
	if pos.PartialSold && pos.NextLevel > 0 && pnlPct >= pos.NextLevel {
		pos.TrailCount++
		pos.NextLevel = m.cfg.PartialTriggerPct + m.cfg.TrailingTriggerPct*float64(pos.TrailCount+1)
		m.partialSell(ctx, pos, price, reserveBase, reserveQuote, m.cfg.TrailingSellPct)
		return
	}

	if pnlPct >= m.cfg.TakeProfitPct {
		m.close(ctx, pos, price, CloseTakeProfit)
		return
	}
	if m.cfg.MaxHoldSeconds > 0 && !pos.TrailingOn && time.Since(pos.OpenedAt) >= time.Duration(m.cfg.MaxHoldSeconds)*time.Second {
		m.close(ctx, pos, price, CloseHoldTimeExpired)
		return
	}
}

// WatchCloseCmds subscribes to the close bus's external-close channel
// and force-closes whichever open position (if any) a received CloseCmd
// matches. Meant to run on its own goroutine for the Monitor's
// lifetime; returns when ctx is cancelled.
func (m *Monitor) WatchCloseCmds(ctx context.Context) {
	ch, unsub := m.bus.SubscribeClose()
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-ch:
			if !ok {
				return
			}
			m.handleCloseCmd(ctx, cmd)
		}
	}
}

// SignalClose publishes an external force-close command for whichever
// position matches uuid or mint, letting a collaborator outside the
// FSM (a rug-detector, an operator action) end a trade without going
// through OnTick.
func (m *Monitor) SignalClose(reason CloseReason, id uuid.UUID, mint string) {
	m.bus.SignalClose(CloseCmd{Reason: reason, UUID: id, Mint: mint})
}

func (m *Monitor) handleCloseCmd(ctx context.Context, cmd CloseCmd) {
	m.mu.Lock()
	var target string
	for mint, p := range m.positions {
		if cmd.Matches(p.Mint, p.OpenID) {
			target = mint
			break
		}
	}
	m.mu.Unlock()
	if target == "" {
		return
	}

	lock := m.lockFor(target)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	pos, ok := m.positions[target]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.close(ctx, pos, pos.HighWaterPrice, cmd.Reason)
}

func (m *Monitor) partialSell(ctx context.Context, pos *Position, price, reserveBase, reserveQuote, sellPct float64) {
	sellUnits := uint64(float64(pos.Units) * (sellPct / 100.0))
	if sellUnits == 0 {
		return
	}
	fill, err := m.exec.SwapSell(ctx, executor.Order{
		Mint: pos.Mint, TokensIn: sellUnits, BaseReserve: reserveBase, QuoteReserve: reserveQuote,
	})
	if err != nil {
		m.logger.Warn("partial sell failed", zap.String("mint", pos.Mint), zap.Error(err))
		return
	}
	pos.Units -= sellUnits
	pos.Realized += float64(fill.AmountOut)

	if m.stores.Trades != nil {
		if err := m.stores.Trades.RecordPartialSell(ctx, pos.OpenID, 0, pos.Units, pos.Realized, pos.TrailCount, pos.NextLevel); err != nil {
			m.logger.Warn("trade partial-sell persist failed", zap.String("mint", pos.Mint), zap.Error(err))
		}
	}
	if m.stores.Sigs != nil {
		if err := m.stores.Sigs.Append(ctx, pos.OpenID, pos.Mint, fill.Signature, "partial_sell"); err != nil {
			m.logger.Warn("signature log append failed", zap.String("mint", pos.Mint), zap.Error(err))
		}
	}

	pnlPct := pctChange(pos.EntryPrice, price)
	m.bus.Publish(CloseEvent{Mint: pos.Mint, OpenID: pos.OpenID, Reason: ClosePartialSell, ExitPrice: price, PnLPercent: pnlPct})
	m.logger.Info("partial sell executed", zap.String("mint", pos.Mint), zap.Int("trail_count", pos.TrailCount), zap.Float64("pnl_pct", pnlPct))
}

func (m *Monitor) close(ctx context.Context, pos *Position, price float64, reason CloseReason) {
	fill, err := m.exec.SwapSell(ctx, executor.Order{
		Mint: pos.Mint, TokensIn: pos.Units, BaseReserve: pos.EntryReserveB, QuoteReserve: pos.EntryReserveQ,
	})
	total := 0.0
	sig := ""
	if err != nil {
		m.logger.Warn("close sell failed", zap.String("mint", pos.Mint), zap.String("reason", reason.String()), zap.Error(err))
	} else {
		total = pos.Realized + float64(fill.AmountOut)
		sig = fill.Signature
	}

	m.mu.Lock()
	delete(m.positions, pos.Mint)
	m.openCount--
	m.mu.Unlock()
	m.caches.CloseTrade(pos.Mint)

	if m.stores.Trades != nil {
		if err := m.stores.Trades.Close(ctx, pos.OpenID, total, reason.String()); err != nil {
			m.logger.Warn("trade close persist failed", zap.String("mint", pos.Mint), zap.Error(err))
		}
	}
	if m.stores.Market != nil {
		if err := m.stores.Market.Close(ctx, pos.Mint, price); err != nil {
			m.logger.Warn("market close failed", zap.String("mint", pos.Mint), zap.Error(err))
		}
	}
	if m.stores.Sigs != nil && sig != "" {
		if err := m.stores.Sigs.Append(ctx, pos.OpenID, pos.Mint, sig, "sell"); err != nil {
			m.logger.Warn("signature log append failed", zap.String("mint", pos.Mint), zap.Error(err))
		}
	}
	m.releaseLock(ctx, pos.Mint)

	pnlPct := pctChange(pos.EntryPrice, price)
	m.bus.Publish(CloseEvent{Mint: pos.Mint, OpenID: pos.OpenID, Reason: reason, ExitPrice: price, PnLPercent: pnlPct})
	m.logger.Info("trade closed", zap.String("mint", pos.Mint), zap.String("reason", reason.String()), zap.Float64("pnl_pct", pnlPct))
}

// releaseLock drops the DB-backed mint lock. Called on every close
// path, best-effort and idempotent, so a cancelled follow task never
// leaves a mint lock stranded (spec §4.12's "Mint open guard").
func (m *Monitor) releaseLock(ctx context.Context, mint string) {
	if m.stores.Locks == nil {
		return
	}
	if err := m.stores.Locks.Release(context.WithoutCancel(ctx), mint); err != nil {
		m.logger.Warn("mint lock release failed", zap.String("mint", mint), zap.Error(err))
	}
}

// Position returns the current position for mint, if any.
func (m *Monitor) Position(mint string) (*Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[mint]
	return p, ok
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100.0
}
