// Package executor defines the swap-execution collaborator interface
// (spec §6's Executor, an out-of-scope-to-fully-implement external
// collaborator) and ships a deterministic Sandbox implementation used
// for dry-run/backtest operation: a constant-product fill model against
// a caller-supplied reserve snapshot, with a synthetic signature derived
// from hashing the order rather than a real submitted transaction.
// Grounded on original_source/src/trading/jupiter.rs for the swap
// interface shape and on the constant-product math every AMM in this
// engine's domain already implements in internal/events/*.
package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Order describes one requested swap leg.
type Order struct {
	Mint          string
	LamportsIn    uint64 // for a buy: SOL lamports spent
	TokensIn      uint64 // for a sell: token base units spent
	BaseReserve   float64
	QuoteReserve  float64
	SlippageBps   int
}

// Fill is the result of a successfully executed swap.
type Fill struct {
	Signature  string
	AmountOut  uint64
	EffectivePrice float64
}

// Executor is the consumed swap-execution collaborator. A production
// deployment wires a Jupiter-aggregator or direct-AMM client behind it;
// this package only ships Sandbox.
type Executor interface {
	SwapBuy(ctx context.Context, order Order) (Fill, error)
	SwapSell(ctx context.Context, order Order) (Fill, error)
}

// Sandbox fills orders against a constant-product curve using the
// caller-supplied reserve snapshot, for dry-run and backtest use where
// no real broadcast should occur.
type Sandbox struct{}

// NewSandbox builds a Sandbox executor.
func NewSandbox() *Sandbox { return &Sandbox{} }

// SwapBuy fills a SOL-in/token-out order: amount_out = quote_reserve -
// (base_reserve*quote_reserve)/(base_reserve+amount_in), the standard
// constant-product swap formula, since the sandbox is a local fill
// simulation and has no execution-priority ordering to model.
func (s *Sandbox) SwapBuy(ctx context.Context, order Order) (Fill, error) {
	if order.BaseReserve <= 0 || order.QuoteReserve <= 0 {
		return Fill{}, fmt.Errorf("executor: invalid reserves for %s", order.Mint)
	}
	amountIn := float64(order.LamportsIn)
	k := order.BaseReserve * order.QuoteReserve
	newBase := order.BaseReserve + amountIn
	amountOut := order.QuoteReserve - k/newBase
	if amountOut < 0 {
		amountOut = 0
	}
	price := amountIn / amountOut
	if amountOut == 0 {
		price = 0
	}
	return Fill{
		Signature:      syntheticSignature("buy", order.Mint, order.LamportsIn),
		AmountOut:      uint64(amountOut),
		EffectivePrice: price,
	}, nil
}

// SwapSell fills a token-in/SOL-out order, the mirror of SwapBuy.
func (s *Sandbox) SwapSell(ctx context.Context, order Order) (Fill, error) {
	if order.BaseReserve <= 0 || order.QuoteReserve <= 0 {
		return Fill{}, fmt.Errorf("executor: invalid reserves for %s", order.Mint)
	}
	amountIn := float64(order.TokensIn)
	k := order.BaseReserve * order.QuoteReserve
	newQuote := order.QuoteReserve + amountIn
	amountOut := order.BaseReserve - k/newQuote
	if amountOut < 0 {
		amountOut = 0
	}
	price := amountOut / amountIn
	if amountIn == 0 {
		price = 0
	}
	return Fill{
		Signature:      syntheticSignature("sell", order.Mint, order.TokensIn),
		AmountOut:      uint64(amountOut),
		EffectivePrice: price,
	}, nil
}

// syntheticSignature produces a deterministic stand-in for a real
// transaction signature: hex(sha256("op:mint:rawAmount")). Deterministic
// so repeated backtests over the same input stream reproduce identical
// sandbox fills.
func syntheticSignature(op, mint string, rawAmount uint64) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", op, mint, rawAmount)))
	return hex.EncodeToString(h[:])
}
