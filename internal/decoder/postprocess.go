package decoder

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/sqoove/ghostreaver/internal/events"
	"github.com/sqoove/ghostreaver/internal/events/bonk"
	"github.com/sqoove/ghostreaver/internal/events/pumpfun"
)

// PostProcessOptions carries the configuration and collaborators the
// post-processing pass (spec §4.6) needs: the known bot-wallet set, the
// per-event slow-processing warning threshold, the whole-pass budget,
// and an optional logger.
type PostProcessOptions struct {
	BotWallets        map[solana.PublicKey]struct{}
	SlowThresholdMs   int64
	SlowPostProcessMs int64
	Logger            *zap.Logger
}

// postProcess applies the dev-create-then-trade flag, the bot-wallet
// flag, PumpFun swap-amount normalization, and timing/slow-processing
// stamping, in that order, over one transaction's decoded events. The
// whole pass is timed separately from any single event's handling time:
// a transaction carrying many events can blow the pass budget even when
// every individual event is fast, and that is its own warning (spec
// §4.6/§7's distinct 10ms whole-pass threshold, separate from the 20ms
// per-event one stampTiming checks).
func postProcess(evs []events.UnifiedEvent, opts PostProcessOptions) {
	start := time.Now()

	flagDevCreateTrades(evs)
	flagBotWallets(evs, opts.BotWallets)
	normalizePumpFunSwaps(evs)
	stampTiming(evs, opts)

	if opts.Logger != nil && opts.SlowPostProcessMs > 0 {
		if elapsedMs := time.Since(start).Milliseconds(); elapsedMs > opts.SlowPostProcessMs {
			opts.Logger.Warn("slow post-processing pass",
				zap.Int("events", len(evs)),
				zap.Int64("elapsed_ms", elapsedMs),
				zap.Int64("threshold_ms", opts.SlowPostProcessMs),
			)
		}
	}
}

// flagDevCreateTrades sets IsDevCreateTokenTrade on a PumpFun buy, or a
// Bonk trade of either direction, that trades the same mint its
// CreateEvent, earlier in the same transaction, shows was created by the
// same wallet -- the launch-snipe pattern spec §4.6 calls out.
func flagDevCreateTrades(evs []events.UnifiedEvent) {
	creators := make(map[solana.PublicKey]solana.PublicKey)
	for _, ev := range evs {
		switch e := ev.(type) {
		case *bonk.CreateEvent:
			creators[e.Mint] = e.Creator
		case *pumpfun.CreateEvent:
			creators[e.Mint] = e.Creator
		case *bonk.TradeEvent:
			if creator, ok := creators[e.Mint]; ok && creator == e.User {
				e.Meta.IsDevCreateTokenTrade = true
			}
		case *pumpfun.TradeEvent:
			if creator, ok := creators[e.Mint]; ok && creator == e.User && e.IsBuy {
				e.Meta.IsDevCreateTokenTrade = true
				e.IsDevCreateTokenTrade = true
			}
		}
	}
}

// flagBotWallets sets IsBot on any swap-capable event whose user account
// is in the configured bot-wallet set.
func flagBotWallets(evs []events.UnifiedEvent, bots map[solana.PublicKey]struct{}) {
	if len(bots) == 0 {
		return
	}
	for _, ev := range evs {
		// PumpFun trades have no SwapContext, so their trader is matched
		// directly.
		if pf, ok := ev.(*pumpfun.TradeEvent); ok {
			if _, isBot := bots[pf.User]; isBot {
				pf.Meta.IsBot = true
				pf.IsBot = true
			}
			continue
		}
		provider, ok := ev.(events.SwapContextProvider)
		if !ok {
			continue
		}
		ctx, ok := provider.SwapContext()
		if !ok || ctx.User.IsZero() {
			continue
		}
		if _, isBot := bots[ctx.User]; isBot {
			ev.Metadata().IsBot = true
		}
	}
}

// normalizePumpFunSwaps fills SwapData directly from the bonding-curve
// amounts PumpFun trades carry on the struct itself, since bonding-curve
// buys/sells move SOL via the system program and tokens via a program
// CPI that the generic transfer scan does not reliably attribute to a
// SwapContext (PumpFun has no stable vault/user-token-account pair to
// match against, unlike the pool-based protocols).
func normalizePumpFunSwaps(evs []events.UnifiedEvent) {
	for _, ev := range evs {
		e, ok := ev.(*pumpfun.TradeEvent)
		if !ok || e.Meta.SwapData != nil {
			continue
		}
		swap := &events.SwapData{Description: "pumpfun bonding curve"}
		if e.IsBuy {
			swap.ToMint = e.Mint
			swap.FromAmount = e.SOLAmount
			swap.ToAmount = e.TokenAmount
		} else {
			swap.FromMint = e.Mint
			swap.FromAmount = e.TokenAmount
			swap.ToAmount = e.SOLAmount
		}
		if !swap.IsZero() {
			e.Meta.SwapData = swap
		}
	}
}

// stampTiming records how long decoding took for each event and warns
// on the slow outlier path (spec §4.6's processing-latency budget).
func stampTiming(evs []events.UnifiedEvent, opts PostProcessOptions) {
	now := time.Now().UnixMilli()
	for _, ev := range evs {
		handleMs := now - ev.ProgramReceivedTimeMs()
		if handleMs < 0 {
			handleMs = 0
		}
		ev.SetProgramHandleTimeConsumingMs(handleMs)
		if opts.Logger != nil && opts.SlowThresholdMs > 0 && handleMs > opts.SlowThresholdMs {
			opts.Logger.Warn("slow event processing",
				zap.String("event_id", ev.ID()),
				zap.String("protocol", ev.ProtocolName().String()),
				zap.Int64("handle_ms", handleMs),
			)
		}
	}
}
