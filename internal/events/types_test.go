package events

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestSwapDataIsZero(t *testing.T) {
	assert.True(t, (*SwapData)(nil).IsZero())
	assert.True(t, (&SwapData{}).IsZero())

	nonZero := &SwapData{FromAmount: 1}
	assert.False(t, nonZero.IsZero())

	mintOnly := &SwapData{ToMint: solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")}
	assert.False(t, mintOnly.IsZero())
}

func TestEventTypeString(t *testing.T) {
	cases := map[EventType]string{
		EventTypeCreate:    "Create",
		EventTypeTrade:     "Trade",
		EventTypeBuy:       "Buy",
		EventTypeSell:      "Sell",
		EventTypeBlockMeta: "BlockMeta",
		EventType(999):     "Unknown",
	}
	for in, want := range cases {
		assert.Equal(t, want, in.String())
	}
}

func TestProtocolForProgram(t *testing.T) {
	assert.Equal(t, ProtocolBonk, ProtocolForProgram(BonkProgramID))
	assert.Equal(t, ProtocolRaydiumCLMM, ProtocolForProgram(RaydiumCLMMProgramID))
	assert.Equal(t, ProtocolUnknown, ProtocolForProgram(solana.PublicKey{}))
}

func TestIsTokenProgram(t *testing.T) {
	assert.True(t, IsTokenProgram(TokenProgramID))
	assert.True(t, IsTokenProgram(Token2022ProgramID))
	assert.False(t, IsTokenProgram(SystemProgramID))
}

func TestHashEventIDDeterministicAndDistinct(t *testing.T) {
	id1 := HashEventID("sig1", EventTypeBuy, "0")
	id2 := HashEventID("sig1", EventTypeBuy, "0")
	assert.Equal(t, id1, id2, "same inputs must hash to the same id")

	assert.NotEqual(t, id1, HashEventID("sig1", EventTypeSell, "0"), "event type must affect the id")
	assert.NotEqual(t, id1, HashEventID("sig1", EventTypeBuy, "1"), "local id must affect the id")
	assert.NotEqual(t, id1, HashEventID("sig2", EventTypeBuy, "0"), "signature must affect the id")
}

func TestNewEventMetadataSetsID(t *testing.T) {
	meta := NewEventMetadata("sig", 100, 0, 0, 0, ProtocolBonk, EventTypeBuy, solana.PublicKey{}, "0", "0")
	assert.Equal(t, HashEventID("sig", EventTypeBuy, "0"), meta.ID)
	assert.Equal(t, uint64(100), meta.Slot)
}
