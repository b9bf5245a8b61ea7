// Package scanner implements the on-demand pool-state enrichment path
// (spec §4.13): when a decoded trade crosses the configured
// transaction-count threshold for a mint, the scanner re-fetches the
// pool's current reserves over RPC (rather than trusting only the
// transfer amounts already seen) and feeds a fresh tick into storage.
// Reads are retried with backoff since RPC nodes under load return
// transient errors constantly; grounded on the retry shape in
// stellar-live-source/go/server/server.go's upstream reconnect loop,
// generalized from "reconnect a stream" to "retry one RPC call" with
// cenkalti/backoff/v4 in place of a hand-rolled sleep loop.
package scanner

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"

	"github.com/sqoove/ghostreaver/internal/codec"
	"github.com/sqoove/ghostreaver/internal/events"
	"github.com/sqoove/ghostreaver/internal/events/bonk"
	"github.com/sqoove/ghostreaver/internal/events/pumpfun"
	"github.com/sqoove/ghostreaver/internal/events/raydiumclmm"
	"github.com/sqoove/ghostreaver/internal/yellowstone"
)

// PoolState is a point-in-time reserve/price snapshot, independent of
// which protocol produced it.
type PoolState struct {
	BaseReserve  float64
	QuoteReserve float64
	Price        float64
}

// PoolReader fetches the current reserves for one pool account layout.
type PoolReader interface {
	Read(ctx context.Context, rpc yellowstone.RpcClient) (PoolState, error)
}

const splTokenAmountOffset = 64 // mint(32) + owner(32) precede the u64 amount field

func readTokenAccountAmount(ctx context.Context, rpc yellowstone.RpcClient, vault solana.PublicKey) (uint64, error) {
	data, _, err := rpc.GetAccountInfo(ctx, vault)
	if err != nil {
		return 0, fmt.Errorf("scanner: read vault %s: %w", vault, err)
	}
	amount, ok := codec.ReadU64LE(data, splTokenAmountOffset)
	if !ok {
		return 0, fmt.Errorf("scanner: vault %s too short for amount field", vault)
	}
	return amount, nil
}

// VaultPairReader reads two SPL token-account balances directly and
// treats their ratio as price -- the generic path used by RaydiumAMMv4,
// RaydiumCPMM and PumpSwap, none of which expose a cheaper on-chain
// summary of current reserves the way a bonding curve does.
type VaultPairReader struct {
	BaseVault      solana.PublicKey
	QuoteVault     solana.PublicKey
	BaseDecimals   uint8
	QuoteDecimals  uint8
}

func (r VaultPairReader) Read(ctx context.Context, rpc yellowstone.RpcClient) (PoolState, error) {
	baseRaw, err := readTokenAccountAmount(ctx, rpc, r.BaseVault)
	if err != nil {
		return PoolState{}, err
	}
	quoteRaw, err := readTokenAccountAmount(ctx, rpc, r.QuoteVault)
	if err != nil {
		return PoolState{}, err
	}
	base := scaleByDecimals(baseRaw, r.BaseDecimals)
	quote := scaleByDecimals(quoteRaw, r.QuoteDecimals)
	price := 0.0
	if base != 0 {
		price = quote / base
	}
	return PoolState{BaseReserve: base, QuoteReserve: quote, Price: price}, nil
}

// BondingCurveReader reads Bonk's and PumpFun's virtual-reserve fields
// directly out of the bonding-curve account, the same offsets the
// decoder already knows from parsing trade events on this program.
type BondingCurveReader struct {
	Account  solana.PublicKey
	Protocol events.Protocol
}

func (r BondingCurveReader) Read(ctx context.Context, rpc yellowstone.RpcClient) (PoolState, error) {
	data, _, err := rpc.GetAccountInfo(ctx, r.Account)
	if err != nil {
		return PoolState{}, fmt.Errorf("scanner: read bonding curve %s: %w", r.Account, err)
	}

	var base, quote uint64
	var ok1, ok2 bool
	switch r.Protocol {
	case events.ProtocolBonk:
		base, ok1 = codec.ReadU64LE(data, bonk.VirtualBase)
		quote, ok2 = codec.ReadU64LE(data, bonk.VirtualQuote)
	case events.ProtocolPumpFun:
		quote, ok1 = codec.ReadU64LE(data, pumpfun.VirtualSOLOffset)
		base, ok2 = codec.ReadU64LE(data, pumpfun.VirtualTokenOffset)
	default:
		return PoolState{}, fmt.Errorf("scanner: unsupported bonding-curve protocol %s", r.Protocol)
	}
	if !ok1 || !ok2 {
		return PoolState{}, fmt.Errorf("scanner: bonding curve %s too short for virtual reserves", r.Account)
	}

	baseF := scaleByDecimals(base, 6)
	quoteF := scaleByDecimals(quote, 9) // both curves quote against lamports
	price := 0.0
	if baseF != 0 {
		price = quoteF / baseF
	}
	return PoolState{BaseReserve: baseF, QuoteReserve: quoteF, Price: price}, nil
}

// CLMMReader computes price from RaydiumCLMM's Q64.64 fixed-point
// sqrtPriceX64 field rather than reserves, since a concentrated-
// liquidity pool has no single "current reserve" the way a constant-
// product pool does.
type CLMMReader struct {
	PoolAccount   solana.PublicKey
	BaseDecimals  uint8
	QuoteDecimals uint8
}

var q64 = new(big.Float).SetFloat64(math.Pow(2, 64))

func (r CLMMReader) Read(ctx context.Context, rpc yellowstone.RpcClient) (PoolState, error) {
	data, _, err := rpc.GetAccountInfo(ctx, r.PoolAccount)
	if err != nil {
		return PoolState{}, fmt.Errorf("scanner: read clmm pool %s: %w", r.PoolAccount, err)
	}
	if len(data) < raydiumclmm.SqrtPriceOff+16 {
		return PoolState{}, fmt.Errorf("scanner: clmm pool %s too short for sqrt price", r.PoolAccount)
	}
	sqrtPriceX64, ok := codec.ReadU128LE(data, raydiumclmm.SqrtPriceOff)
	if !ok {
		return PoolState{}, fmt.Errorf("scanner: clmm pool %s malformed sqrt price", r.PoolAccount)
	}

	sqrtPrice := new(big.Float).Quo(new(big.Float).SetInt(sqrtPriceX64), q64)
	rawPrice := new(big.Float).Mul(sqrtPrice, sqrtPrice)
	decimalAdj := math.Pow(10, float64(r.BaseDecimals)-float64(r.QuoteDecimals))
	priceF, _ := rawPrice.Float64()
	price := priceF * decimalAdj

	return PoolState{Price: price}, nil
}

func scaleByDecimals(raw uint64, decimals uint8) float64 {
	return float64(raw) / math.Pow(10, float64(decimals))
}

// backoffFor builds the exponential backoff policy a single scan
// attempt retries under, parameterized by the bot config's scanner
// section.
func backoffFor(attempts int, baseDelayMs int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(baseDelayMs) * time.Millisecond
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(attempts))
}
