package raydiumammv4

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

func seventeenAccounts() []solana.PublicKey {
	accs := make([]solana.PublicKey, 17)
	for i := range accs {
		accs[i] = key(byte(i + 1))
	}
	return accs
}

func swapData(op byte, amountIn, minOut uint64) []byte {
	data := make([]byte, 17)
	data[0] = op
	copy(data[1:], u64LE(amountIn))
	copy(data[9:], u64LE(minOut))
	return data
}

func TestParseSwapBaseInSetsBaseInTrue(t *testing.T) {
	accounts := seventeenAccounts()
	ev, ok := parseSwap(swapData(OpSwapBaseIn, 100, 90), accounts, events.EventMetadata{})
	require.True(t, ok)
	trade := ev.(*TradeEvent)
	assert.True(t, trade.BaseIn)
	assert.Equal(t, uint64(100), trade.AmountIn)
	assert.Equal(t, uint64(90), trade.AmountOutMin)
	assert.Equal(t, accounts[0], trade.AmmID)
	assert.Equal(t, accounts[4], trade.UserSourceATA)
	assert.Equal(t, accounts[5], trade.UserDestATA)
	assert.Equal(t, accounts[6], trade.PoolCoinVault)
	assert.Equal(t, accounts[7], trade.PoolPCVault)
	assert.Equal(t, accounts[16], trade.User)
}

func TestParseSwapBaseOutSetsBaseInFalse(t *testing.T) {
	ev, ok := parseSwap(swapData(OpSwapBaseOut, 100, 90), seventeenAccounts(), events.EventMetadata{})
	require.True(t, ok)
	assert.False(t, ev.(*TradeEvent).BaseIn)
}

func TestParseSwapRejectsTooFewAccounts(t *testing.T) {
	_, ok := parseSwap(swapData(OpSwapBaseIn, 1, 1), seventeenAccounts()[:5], events.EventMetadata{})
	assert.False(t, ok)
}

func TestSwapContextUsesSourceDestAndVaults(t *testing.T) {
	accounts := seventeenAccounts()
	ev, _ := parseSwap(swapData(OpSwapBaseIn, 1, 1), accounts, events.EventMetadata{})
	ctx, ok := ev.(*TradeEvent).SwapContext()
	require.True(t, ok)
	assert.Equal(t, accounts[4], ctx.UserFromToken)
	assert.Equal(t, accounts[5], ctx.UserToToken)
	assert.Equal(t, accounts[6], ctx.FromVault)
	assert.Equal(t, accounts[7], ctx.ToVault)
}

func TestParseWithdraw(t *testing.T) {
	accounts := []solana.PublicKey{key(1), key(2)}
	data := make([]byte, 9)
	data[0] = OpWithdraw
	copy(data[1:], u64LE(500))
	ev, ok := parseWithdraw(data, accounts, events.EventMetadata{})
	require.True(t, ok)
	assert.Equal(t, uint64(500), ev.(*WithdrawEvent).Amount)
}

func TestParserUsesSingleByteOpcodeDiscriminators(t *testing.T) {
	p := New()
	table := p.InstructionTable()
	assert.Len(t, table, 3, "SwapBaseIn, SwapBaseOut and Withdraw are each keyed by a 1-byte opcode")
	assert.Empty(t, p.AccountTable())
}
