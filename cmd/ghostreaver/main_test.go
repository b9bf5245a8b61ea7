package main

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqoove/ghostreaver/internal/config"
	"github.com/sqoove/ghostreaver/internal/events"
	"github.com/sqoove/ghostreaver/internal/scanner"
)

func key(seed byte) solana.PublicKey {
	var b [32]byte
	b[0] = seed
	return solana.PublicKeyFromBytes(b[:])
}

type noopMergeEvent struct {
	events.BaseEvent
	ctx   events.SwapContext
	hasCtx bool
}

func (e *noopMergeEvent) Merge(events.UnifiedEvent) {}
func (e *noopMergeEvent) SwapContext() (events.SwapContext, bool) { return e.ctx, e.hasCtx }

func TestDerivedPriceIsToOverFrom(t *testing.T) {
	meta := &events.EventMetadata{SwapData: &events.SwapData{FromAmount: 2, ToAmount: 10}}
	assert.Equal(t, 5.0, derivedPrice(meta))
}

func TestDerivedPriceZeroWhenFromAmountZero(t *testing.T) {
	meta := &events.EventMetadata{SwapData: &events.SwapData{FromAmount: 0, ToAmount: 10}}
	assert.Equal(t, 0.0, derivedPrice(meta))
}

func TestDerivedPriceZeroWhenNoSwapData(t *testing.T) {
	assert.Equal(t, 0.0, derivedPrice(&events.EventMetadata{}))
}

func TestTradeMintPrefersToMint(t *testing.T) {
	from, to := key(1), key(2)
	ev := &noopMergeEvent{}
	ev.Meta.SwapData = &events.SwapData{FromMint: from, ToMint: to}
	assert.Equal(t, to, tradeMint(ev))
}

func TestTradeMintFallsBackToFromMintWhenToMintZero(t *testing.T) {
	from := key(1)
	ev := &noopMergeEvent{}
	ev.Meta.SwapData = &events.SwapData{FromMint: from}
	assert.Equal(t, from, tradeMint(ev))
}

func TestPoolReaderForCachesAcrossCalls(t *testing.T) {
	p := &pipeline{poolReaders: make(map[string]scanner.PoolReader)}
	ev := &noopMergeEvent{hasCtx: true, ctx: events.SwapContext{FromVault: key(1), ToVault: key(2)}}

	r1 := p.poolReaderFor("mint-a", ev)
	require.NotNil(t, r1)
	r2 := p.poolReaderFor("mint-a", ev)
	assert.Equal(t, r1, r2)
}

func TestPoolReaderForReturnsNilWithoutSwapContextProvider(t *testing.T) {
	p := &pipeline{poolReaders: make(map[string]scanner.PoolReader)}
	assert.Nil(t, p.poolReaderFor("mint-b", &plainEvent{}))
}

type plainEvent struct {
	events.BaseEvent
}

func (e *plainEvent) Merge(events.UnifiedEvent) {}

func TestPoolReaderForReturnsNilWithZeroVaults(t *testing.T) {
	p := &pipeline{poolReaders: make(map[string]scanner.PoolReader)}
	ev := &noopMergeEvent{hasCtx: true, ctx: events.SwapContext{}}
	assert.Nil(t, p.poolReaderFor("mint-c", ev))
}

func TestShouldEnrichFiresAtThreshold(t *testing.T) {
	p := &pipeline{
		enrichCounts: make(map[string]int),
		botCfg:       &config.BotConfig{},
	}
	p.botCfg.Enrichment.TxsThreshold = 3

	assert.False(t, p.shouldEnrich("m"))
	assert.False(t, p.shouldEnrich("m"))
	assert.True(t, p.shouldEnrich("m"), "the third trade must cross the threshold")
	assert.False(t, p.shouldEnrich("m"), "the counter resets after firing")
}

func TestShouldEnrichTracksMintsIndependently(t *testing.T) {
	p := &pipeline{
		enrichCounts: make(map[string]int),
		botCfg:       &config.BotConfig{},
	}
	p.botCfg.Enrichment.TxsThreshold = 2

	assert.False(t, p.shouldEnrich("a"))
	assert.False(t, p.shouldEnrich("b"))
	assert.True(t, p.shouldEnrich("a"))
}
