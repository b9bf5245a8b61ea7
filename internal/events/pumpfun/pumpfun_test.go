package pumpfun

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

func TestParseCreateUsesThirdAccountAsCreator(t *testing.T) {
	accounts := []solana.PublicKey{key(1), key(2), key(3)}
	ev, ok := parseCreate(nil, accounts, events.EventMetadata{})
	require.True(t, ok)
	create := ev.(*CreateEvent)
	assert.Equal(t, accounts[0], create.Mint)
	assert.Equal(t, accounts[1], create.BondingCurve)
	assert.Equal(t, accounts[2], create.User)
	assert.Equal(t, accounts[2], create.Creator)
}

func TestParseBuySetsSOLAmountNotTokenAmount(t *testing.T) {
	accounts := []solana.PublicKey{key(1), key(2), key(3)}
	data := append(make([]byte, 8), u64LE(42)...)

	ev, ok := parseBuy(data, accounts, events.EventMetadata{})
	require.True(t, ok)
	trade := ev.(*TradeEvent)
	assert.True(t, trade.IsBuy)
	assert.Equal(t, uint64(42), trade.SOLAmount)
	assert.Equal(t, uint64(0), trade.TokenAmount)
}

func TestParseSellSetsTokenAmountNotSOLAmount(t *testing.T) {
	accounts := []solana.PublicKey{key(1), key(2), key(3)}
	data := append(make([]byte, 8), u64LE(42)...)

	ev, ok := parseSell(data, accounts, events.EventMetadata{})
	require.True(t, ok)
	trade := ev.(*TradeEvent)
	assert.False(t, trade.IsBuy)
	assert.Equal(t, uint64(42), trade.TokenAmount)
	assert.Equal(t, uint64(0), trade.SOLAmount)
}

func TestTradeEventHasNoSwapContextProvider(t *testing.T) {
	var ev events.UnifiedEvent = &TradeEvent{}
	_, ok := ev.(events.SwapContextProvider)
	assert.False(t, ok, "PumpFun trades carry amounts directly and never need generic transfer-inference swap context")
}

func TestParsePoolStateReadsVirtualReserves(t *testing.T) {
	data := make([]byte, BondingCurveMinLen)
	copy(data[VirtualTokenOffset:], u64LE(1_000_000))
	copy(data[VirtualSOLOffset:], u64LE(2_000_000))

	ev, ok := parsePoolState(events.AccountInput{Pubkey: key(1), Data: data}, events.EventMetadata{})
	require.True(t, ok)
	state := ev.(*PoolStateEvent)
	assert.Equal(t, uint64(1_000_000), state.VirtualToken)
	assert.Equal(t, uint64(2_000_000), state.VirtualSOL)
}

func TestParsePoolStateRejectsShortAccount(t *testing.T) {
	_, ok := parsePoolState(events.AccountInput{Data: make([]byte, BondingCurveMinLen-1)}, events.EventMetadata{})
	assert.False(t, ok)
}

func TestParserWiresProgramAndTables(t *testing.T) {
	p := New()
	assert.Equal(t, events.ProtocolPumpFun, p.Protocol())
	assert.Equal(t, events.PumpFunProgramID, p.ProgramID())
	assert.Len(t, p.InstructionTable(), 3)
	assert.Len(t, p.AccountTable(), 1)
}
