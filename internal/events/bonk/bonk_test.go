package bonk

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqoove/ghostreaver/internal/events"
)

func key(seed byte) solana.PublicKey {
	var b [32]byte
	b[0] = seed
	return solana.PublicKeyFromBytes(b[:])
}

func u64LE(v uint64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	return buf
}

func TestParseCreateExpectsFourAccounts(t *testing.T) {
	accounts := []solana.PublicKey{key(1), key(2), key(3), key(4)}
	ev, ok := parseCreate(nil, accounts, events.EventMetadata{})
	require.True(t, ok)
	create := ev.(*CreateEvent)
	assert.Equal(t, accounts[0], create.User)
	assert.Equal(t, accounts[1], create.Creator)
	assert.Equal(t, accounts[2], create.Mint)
	assert.Equal(t, accounts[3], create.Pool)
}

func TestParseCreateRejectsTooFewAccounts(t *testing.T) {
	_, ok := parseCreate(nil, []solana.PublicKey{key(1)}, events.EventMetadata{})
	assert.False(t, ok)
}

func TestParseBuyAndSellSetEventType(t *testing.T) {
	accounts := []solana.PublicKey{key(1), key(2), key(3), key(4), key(5)}
	data := append(make([]byte, 8), u64LE(1_000_000)...)

	buyEv, ok := parseBuy(data, accounts, events.EventMetadata{Signature: "sig"})
	require.True(t, ok)
	buy := buyEv.(*TradeEvent)
	assert.Equal(t, uint64(1_000_000), buy.AmountIn)
	assert.Equal(t, accounts[3], buy.BaseVault)
	assert.Equal(t, accounts[4], buy.QuoteVault)

	sellEv, ok := parseSell(data, accounts, events.EventMetadata{Signature: "sig"})
	require.True(t, ok)
	sell := sellEv.(*TradeEvent)
	assert.Equal(t, uint64(1_000_000), sell.AmountIn)
}

func TestParseTradeRejectsShortAmount(t *testing.T) {
	accounts := []solana.PublicKey{key(1), key(2), key(3), key(4), key(5)}
	_, ok := parseBuy(make([]byte, 8), accounts, events.EventMetadata{})
	assert.False(t, ok)
}

func TestTradeEventSwapContextDirection(t *testing.T) {
	base, quote := key(10), key(11)
	buy := &TradeEvent{BaseEvent: events.BaseEvent{Meta: events.EventMetadata{EventType: events.EventTypeBuy}}, User: key(1), BaseVault: base, QuoteVault: quote}
	ctx, ok := buy.SwapContext()
	require.True(t, ok)
	assert.Equal(t, quote, ctx.FromVault, "a buy pays quote for base")
	assert.Equal(t, base, ctx.ToVault)

	sell := &TradeEvent{BaseEvent: events.BaseEvent{Meta: events.EventMetadata{EventType: events.EventTypeSell}}, User: key(1), BaseVault: base, QuoteVault: quote}
	ctx, ok = sell.SwapContext()
	require.True(t, ok)
	assert.Equal(t, base, ctx.FromVault, "a sell pays base for quote")
	assert.Equal(t, quote, ctx.ToVault)
}

func TestTradeEventMergeKeepsNonZeroAmounts(t *testing.T) {
	e := &TradeEvent{AmountIn: 5}
	e.Merge(&TradeEvent{AmountOut: 9})
	assert.Equal(t, uint64(5), e.AmountIn, "merge must not clear an already-set field")
	assert.Equal(t, uint64(9), e.AmountOut)
}

func TestParsePoolStateReadsOffsets(t *testing.T) {
	data := make([]byte, MinLen)
	data[BaseDecOff] = 6
	data[QuoteDecOff] = 9
	copy(data[VirtualBase:], u64LE(500_000_000))
	copy(data[VirtualQuote:], u64LE(1_000_000_000))
	copy(data[RealBase:], u64LE(10))
	copy(data[RealQuote:], u64LE(20))

	ev, ok := parsePoolState(events.AccountInput{Pubkey: key(1), Data: data}, events.EventMetadata{})
	require.True(t, ok)
	state := ev.(*PoolStateEvent)
	assert.Equal(t, uint8(6), state.BaseDecimals)
	assert.Equal(t, uint8(9), state.QuoteDecimals)
	assert.Equal(t, uint64(500_000_000), state.VirtualBase)
	assert.Equal(t, uint64(1_000_000_000), state.VirtualQuote)
}

func TestParsePoolStateRejectsShortAccount(t *testing.T) {
	_, ok := parsePoolState(events.AccountInput{Data: make([]byte, MinLen-1)}, events.EventMetadata{})
	assert.False(t, ok)
}

func TestParserWiresProgramAndTables(t *testing.T) {
	p := New()
	assert.Equal(t, events.ProtocolBonk, p.Protocol())
	assert.Equal(t, events.BonkProgramID, p.ProgramID())
	assert.Len(t, p.InstructionTable(), 3)
	assert.Len(t, p.AccountTable(), 1)
	assert.Empty(t, p.InnerTable())
}
