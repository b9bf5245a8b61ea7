package decoder

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sqoove/ghostreaver/internal/events"
	"github.com/sqoove/ghostreaver/internal/events/bonk"
	"github.com/sqoove/ghostreaver/internal/events/pumpfun"
)

func TestFlagDevCreateTradesBonk(t *testing.T) {
	mint := mustKey(t, 1)
	dev := mustKey(t, 2)
	other := mustKey(t, 3)

	create := &bonk.CreateEvent{Mint: mint, Creator: dev}
	devTrade := &bonk.TradeEvent{Mint: mint, User: dev}
	otherTrade := &bonk.TradeEvent{Mint: mint, User: other}

	evs := []events.UnifiedEvent{create, devTrade, otherTrade}
	flagDevCreateTrades(evs)

	assert.True(t, devTrade.Meta.IsDevCreateTokenTrade)
	assert.False(t, otherTrade.Meta.IsDevCreateTokenTrade)
}

func TestFlagDevCreateTradesPumpFunOnlyFlagsBuys(t *testing.T) {
	mint := mustKey(t, 1)
	dev := mustKey(t, 2)

	create := &pumpfun.CreateEvent{Mint: mint, Creator: dev}
	buy := &pumpfun.TradeEvent{Mint: mint, User: dev, IsBuy: true}
	sell := &pumpfun.TradeEvent{Mint: mint, User: dev, IsBuy: false}

	evs := []events.UnifiedEvent{create, buy, sell}
	flagDevCreateTrades(evs)

	assert.True(t, buy.IsDevCreateTokenTrade)
	assert.True(t, buy.Meta.IsDevCreateTokenTrade)
	assert.False(t, sell.IsDevCreateTokenTrade, "a dev sell is not the snipe pattern")
}

func TestFlagBotWalletsSetsIsBotOnMatchingUser(t *testing.T) {
	botUser := mustKey(t, 1)
	regularUser := mustKey(t, 2)

	botTrade := &bonk.TradeEvent{User: botUser, Pool: mustKey(t, 9)}
	regularTrade := &bonk.TradeEvent{User: regularUser, Pool: mustKey(t, 9)}

	bots := map[solana.PublicKey]struct{}{botUser: {}}
	evs := []events.UnifiedEvent{botTrade, regularTrade}
	flagBotWallets(evs, bots)

	assert.True(t, botTrade.Meta.IsBot)
	assert.False(t, regularTrade.Meta.IsBot)
}

func TestFlagBotWalletsNoOpWithEmptySet(t *testing.T) {
	trade := &bonk.TradeEvent{User: mustKey(t, 1)}
	flagBotWallets([]events.UnifiedEvent{trade}, nil)
	assert.False(t, trade.Meta.IsBot)
}

func TestNormalizePumpFunSwapsBuy(t *testing.T) {
	mint := mustKey(t, 1)
	trade := &pumpfun.TradeEvent{Mint: mint, IsBuy: true, SOLAmount: 1_000_000, TokenAmount: 500_000}

	normalizePumpFunSwaps([]events.UnifiedEvent{trade})

	if assert.NotNil(t, trade.Meta.SwapData) {
		assert.Equal(t, mint, trade.Meta.SwapData.ToMint)
		assert.Equal(t, uint64(1_000_000), trade.Meta.SwapData.FromAmount)
		assert.Equal(t, uint64(500_000), trade.Meta.SwapData.ToAmount)
	}
}

func TestNormalizePumpFunSwapsSell(t *testing.T) {
	mint := mustKey(t, 1)
	trade := &pumpfun.TradeEvent{Mint: mint, IsBuy: false, SOLAmount: 200_000, TokenAmount: 900_000}

	normalizePumpFunSwaps([]events.UnifiedEvent{trade})

	if assert.NotNil(t, trade.Meta.SwapData) {
		assert.Equal(t, mint, trade.Meta.SwapData.FromMint)
		assert.Equal(t, uint64(900_000), trade.Meta.SwapData.FromAmount)
		assert.Equal(t, uint64(200_000), trade.Meta.SwapData.ToAmount)
	}
}

func TestNormalizePumpFunSwapsSkipsAlreadyPopulated(t *testing.T) {
	existing := &events.SwapData{FromAmount: 1}
	trade := &pumpfun.TradeEvent{IsBuy: true, SOLAmount: 5, TokenAmount: 5}
	trade.Meta.SwapData = existing

	normalizePumpFunSwaps([]events.UnifiedEvent{trade})

	assert.Same(t, existing, trade.Meta.SwapData)
}

func TestStampTimingSetsHandleDuration(t *testing.T) {
	ev := &bonk.TradeEvent{}
	ev.Meta.ProgramReceivedTimeMs = 0
	stampTiming([]events.UnifiedEvent{ev}, PostProcessOptions{})
	assert.GreaterOrEqual(t, ev.Meta.ProgramHandleTimeConsumingMs, int64(0))
}

func TestPostProcessDoesNotWarnWhenPassUnderThreshold(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ev := &bonk.TradeEvent{}
	postProcess([]events.UnifiedEvent{ev}, PostProcessOptions{
		SlowPostProcessMs: 10_000, // a trivial pass over one event never gets near this
		Logger:            zap.New(core),
	})
	for _, entry := range logs.All() {
		assert.NotEqual(t, "slow post-processing pass", entry.Message)
	}
}

func TestPostProcessSkipsPassTimingWhenThresholdUnset(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ev := &bonk.TradeEvent{}
	postProcess([]events.UnifiedEvent{ev}, PostProcessOptions{Logger: zap.New(core)})
	assert.Equal(t, 0, logs.FilterMessage("slow post-processing pass").Len())
}
