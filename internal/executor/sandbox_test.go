package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxSwapBuyConstantProduct(t *testing.T) {
	s := NewSandbox()
	fill, err := s.SwapBuy(context.Background(), Order{
		Mint: "mint1", LamportsIn: 1000, BaseReserve: 100_000, QuoteReserve: 100_000,
	})
	require.NoError(t, err)

	// k = 100000*100000; newBase = 101000; amountOut = 100000 - k/101000
	wantOut := 100_000.0 - (100_000.0*100_000.0)/101_000.0
	assert.InDelta(t, wantOut, float64(fill.AmountOut), 1.0)
	assert.Greater(t, fill.EffectivePrice, 0.0)
	assert.NotEmpty(t, fill.Signature)
}

func TestSandboxSwapSellIsBuyMirror(t *testing.T) {
	s := NewSandbox()
	fill, err := s.SwapSell(context.Background(), Order{
		Mint: "mint1", TokensIn: 1000, BaseReserve: 100_000, QuoteReserve: 100_000,
	})
	require.NoError(t, err)
	wantOut := 100_000.0 - (100_000.0*100_000.0)/101_000.0
	assert.InDelta(t, wantOut, float64(fill.AmountOut), 1.0)
}

func TestSandboxRejectsZeroReserves(t *testing.T) {
	s := NewSandbox()
	_, err := s.SwapBuy(context.Background(), Order{Mint: "m", LamportsIn: 100, BaseReserve: 0, QuoteReserve: 100})
	assert.Error(t, err)

	_, err = s.SwapSell(context.Background(), Order{Mint: "m", TokensIn: 100, BaseReserve: 100, QuoteReserve: 0})
	assert.Error(t, err)
}

func TestSandboxSignatureDeterministicPerOrder(t *testing.T) {
	s := NewSandbox()
	ctx := context.Background()
	f1, err := s.SwapBuy(ctx, Order{Mint: "m", LamportsIn: 1000, BaseReserve: 100_000, QuoteReserve: 100_000})
	require.NoError(t, err)
	f2, err := s.SwapBuy(ctx, Order{Mint: "m", LamportsIn: 1000, BaseReserve: 100_000, QuoteReserve: 100_000})
	require.NoError(t, err)
	assert.Equal(t, f1.Signature, f2.Signature, "identical orders must yield identical synthetic signatures")

	f3, err := s.SwapBuy(ctx, Order{Mint: "m", LamportsIn: 2000, BaseReserve: 100_000, QuoteReserve: 100_000})
	require.NoError(t, err)
	assert.NotEqual(t, f1.Signature, f3.Signature)

	// buy vs sell of the same mint/amount must not collide even though
	// the raw amount matches, since op is part of the hash input.
	sellFill, err := s.SwapSell(ctx, Order{Mint: "m", TokensIn: 1000, BaseReserve: 100_000, QuoteReserve: 100_000})
	require.NoError(t, err)
	assert.NotEqual(t, f1.Signature, sellFill.Signature)
}
