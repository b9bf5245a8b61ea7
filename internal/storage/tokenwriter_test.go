package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeTokenRowSetOnceFields(t *testing.T) {
	existing := TokenRow{Mint: "m", Creator: "dev1", TxsInc: 1}
	incoming := TokenRow{Mint: "m", Creator: "dev2", Pool: "pool1", TxsInc: 2}

	merged := mergeTokenRow(existing, incoming)

	assert.Equal(t, "dev1", merged.Creator, "set-once fields keep the first value")
	assert.Equal(t, "pool1", merged.Pool, "set-once fields fill in from incoming when existing is empty")
	assert.Equal(t, int64(3), merged.TxsInc, "txs accumulate")
}

func TestMergeTokenRowDecimalsAndSupplyLatchFirstValue(t *testing.T) {
	existing := TokenRow{Mint: "m", Decimals: 6, Supply: 1_000_000}
	incoming := TokenRow{Mint: "m", Decimals: 9, Supply: 2_000_000}

	merged := mergeTokenRow(existing, incoming)
	assert.EqualValues(t, 6, merged.Decimals, "decimals is set-once")
	assert.EqualValues(t, 1_000_000, merged.Supply, "supply is set-once")
}

func TestMergeTokenRowPriceTracksLatestNonZero(t *testing.T) {
	existing := TokenRow{Mint: "m", Price: 1.0}
	incoming := TokenRow{Mint: "m", Price: 2.0}

	merged := mergeTokenRow(existing, incoming)
	assert.Equal(t, 2.0, merged.Price, "the newest non-zero price wins")

	mergedAgain := mergeTokenRow(merged, TokenRow{Mint: "m"})
	assert.Equal(t, 2.0, mergedAgain.Price, "a zero-valued incoming price must not clobber the last known price")
}

func TestTokenRowIDDeterministicPerMintAndProgram(t *testing.T) {
	r1 := TokenRow{Mint: "mintA", Program: "bonk"}
	r2 := TokenRow{Mint: "mintA", Program: "bonk", Price: 999} // other fields don't affect id
	r3 := TokenRow{Mint: "mintA", Program: "pumpfun"}
	r4 := TokenRow{Mint: "mintB", Program: "bonk"}

	assert.Equal(t, r1.id(), r2.id(), "id depends only on (mint, program), enabling coalescing")
	assert.NotEqual(t, r1.id(), r3.id())
	assert.NotEqual(t, r1.id(), r4.id())
}

func TestTickRowIDDeterministicPerMintAndSecond(t *testing.T) {
	r1 := TickRow{Mint: "mintA", TickSecond: 100}
	r2 := TickRow{Mint: "mintA", TickSecond: 100, PriceBase: 999} // other fields don't affect id
	r3 := TickRow{Mint: "mintA", TickSecond: 101}
	r4 := TickRow{Mint: "mintB", TickSecond: 100}

	assert.Equal(t, r1.id(), r2.id(), "id depends only on (mint, tick_second), enabling coalescing")
	assert.NotEqual(t, r1.id(), r3.id())
	assert.NotEqual(t, r1.id(), r4.id())
}
