package scanner

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqoove/ghostreaver/internal/events"
	"github.com/sqoove/ghostreaver/internal/events/bonk"
	"github.com/sqoove/ghostreaver/internal/events/raydiumclmm"
)

// fakeRPC serves fixed account data keyed by pubkey, for exercising
// PoolReader implementations without a live RPC endpoint.
type fakeRPC struct {
	data map[solana.PublicKey][]byte
}

func (f *fakeRPC) GetHealth(ctx context.Context) error { return nil }

func (f *fakeRPC) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) ([]byte, uint64, error) {
	return f.data[pubkey], 1, nil
}

func (f *fakeRPC) GetLatestSlot(ctx context.Context) (uint64, error) { return 1, nil }

func tokenAccountBytes(amount uint64) []byte {
	buf := make([]byte, 72)
	for i := 0; i < 8; i++ {
		buf[64+i] = byte(amount >> (8 * i))
	}
	return buf
}

func TestScaleByDecimals(t *testing.T) {
	assert.Equal(t, 1.0, scaleByDecimals(1_000_000, 6))
	assert.Equal(t, 0.0, scaleByDecimals(0, 9))
}

func TestVaultPairReaderComputesPrice(t *testing.T) {
	baseVault := mustScannerKey(1)
	quoteVault := mustScannerKey(2)
	rpc := &fakeRPC{data: map[solana.PublicKey][]byte{
		baseVault:  tokenAccountBytes(1_000_000_000), // 1000 tokens at 6 decimals
		quoteVault: tokenAccountBytes(2_000_000_000),  // 2 SOL at 9 decimals
	}}

	reader := VaultPairReader{BaseVault: baseVault, QuoteVault: quoteVault, BaseDecimals: 6, QuoteDecimals: 9}
	state, err := reader.Read(context.Background(), rpc)
	require.NoError(t, err)

	assert.InDelta(t, 1000.0, state.BaseReserve, 0.0001)
	assert.InDelta(t, 2.0, state.QuoteReserve, 0.0001)
	assert.InDelta(t, 2.0/1000.0, state.Price, 0.0001)
}

func TestVaultPairReaderErrorsOnShortAccount(t *testing.T) {
	vault := mustScannerKey(1)
	rpc := &fakeRPC{data: map[solana.PublicKey][]byte{vault: []byte{1, 2, 3}}}
	reader := VaultPairReader{BaseVault: vault, QuoteVault: vault}
	_, err := reader.Read(context.Background(), rpc)
	assert.Error(t, err)
}

func TestBondingCurveReaderBonk(t *testing.T) {
	account := mustScannerKey(1)
	data := make([]byte, bonk.MinLen)
	putU64(data, bonk.VirtualBase, 500_000_000) // 500 tokens at 6 decimals
	putU64(data, bonk.VirtualQuote, 1_000_000_000) // 1 SOL at 9 decimals

	rpc := &fakeRPC{data: map[solana.PublicKey][]byte{account: data}}
	reader := BondingCurveReader{Account: account, Protocol: events.ProtocolBonk}
	state, err := reader.Read(context.Background(), rpc)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, state.BaseReserve, 0.0001)
	assert.InDelta(t, 1.0, state.QuoteReserve, 0.0001)
}

func TestCLMMReaderComputesPriceFromSqrtPriceX64(t *testing.T) {
	account := mustScannerKey(1)
	data := make([]byte, raydiumclmm.SqrtPriceOff+16)

	// sqrtPriceX64 representing a raw price of 4.0 (sqrt(4)=2, 2*2^64).
	sqrtPriceX64 := twoPow64Times(2)
	putBigLE(data, raydiumclmm.SqrtPriceOff, sqrtPriceX64)

	rpc := &fakeRPC{data: map[solana.PublicKey][]byte{account: data}}
	reader := CLMMReader{PoolAccount: account, BaseDecimals: 0, QuoteDecimals: 0}
	state, err := reader.Read(context.Background(), rpc)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, state.Price, 0.001)
}

func putU64(buf []byte, offset int, v uint64) {
	for i := 0; i < 8; i++ {
		buf[offset+i] = byte(v >> (8 * i))
	}
}

func mustScannerKey(seed byte) solana.PublicKey {
	var b [32]byte
	b[0] = seed
	return solana.PublicKeyFromBytes(b[:])
}

// twoPow64Times returns 2^64 * mult as a big.Int-compatible little-endian
// byte slice helper seam; kept local and minimal since the only caller
// needs a single concrete Q64.64 fixture.
func twoPow64Times(mult uint64) []byte {
	// 2^64 * mult, as 16 little-endian bytes: low 8 bytes are 0, high 8
	// bytes are mult.
	out := make([]byte, 16)
	for i := 0; i < 8; i++ {
		out[8+i] = byte(mult >> (8 * i))
	}
	return out
}

func putBigLE(buf []byte, offset int, le []byte) {
	copy(buf[offset:offset+16], le)
}
