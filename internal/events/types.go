// Package events defines the protocol-independent event model: the
// metadata every decoded event carries, the transfer/swap payloads
// inferred from token-program instructions, and the UnifiedEvent
// capability set that lets the dispatcher, decoder and trade monitor
// operate on any protocol's concrete event without a type switch.
package events

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Protocol identifies which DEX program emitted an event.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolBonk
	ProtocolPumpFun
	ProtocolPumpSwap
	ProtocolRaydiumAMMv4
	ProtocolRaydiumCLMM
	ProtocolRaydiumCPMM
)

func (p Protocol) String() string {
	switch p {
	case ProtocolBonk:
		return "Bonk"
	case ProtocolPumpFun:
		return "PumpFun"
	case ProtocolPumpSwap:
		return "PumpSwap"
	case ProtocolRaydiumAMMv4:
		return "RaydiumAMMv4"
	case ProtocolRaydiumCLMM:
		return "RaydiumCLMM"
	case ProtocolRaydiumCPMM:
		return "RaydiumCPMM"
	default:
		return "Unknown"
	}
}

// EventType enumerates the concrete event shapes a protocol parser can
// produce. Not every protocol emits every type.
type EventType int

const (
	EventTypeUnknown EventType = iota
	EventTypeCreate
	EventTypeTrade
	EventTypeBuy
	EventTypeSell
	EventTypePool
	EventTypeAccountState
	EventTypeWithdraw
	EventTypeInitialize
	EventTypeBlockMeta
)

func (t EventType) String() string {
	switch t {
	case EventTypeCreate:
		return "Create"
	case EventTypeTrade:
		return "Trade"
	case EventTypeBuy:
		return "Buy"
	case EventTypeSell:
		return "Sell"
	case EventTypePool:
		return "Pool"
	case EventTypeAccountState:
		return "AccountState"
	case EventTypeWithdraw:
		return "Withdraw"
	case EventTypeInitialize:
		return "Initialize"
	case EventTypeBlockMeta:
		return "BlockMeta"
	default:
		return "Unknown"
	}
}

// TransferData is one inferred or explicit token movement.
type TransferData struct {
	TokenProgram solana.PublicKey
	Source       solana.PublicKey
	Destination  solana.PublicKey
	Authority    *solana.PublicKey
	Amount       uint64
	Decimals     *uint8
	Mint         *solana.PublicKey
}

// SwapData summarizes the net effect of a swap instruction in terms of
// the two mints and amounts involved.
type SwapData struct {
	FromMint    solana.PublicKey
	ToMint      solana.PublicKey
	FromAmount  uint64
	ToAmount    uint64
	Description string
}

// IsZero reports whether no field of the swap was ever populated, the
// condition under which §4.5 says no SwapData should be emitted.
func (s *SwapData) IsZero() bool {
	if s == nil {
		return true
	}
	return s.FromAmount == 0 && s.ToAmount == 0 && s.FromMint.IsZero() && s.ToMint.IsZero()
}

// EventMetadata is the header embedded in every concrete protocol event.
type EventMetadata struct {
	ID                            string
	Signature                     string
	Slot                          uint64
	BlockTime                     int64
	BlockTimeMs                   int64
	ProgramReceivedTimeMs         int64
	ProgramHandleTimeConsumingMs  int64
	Protocol                      Protocol
	EventType                     EventType
	ProgramID                     solana.PublicKey
	TransferDatas                 []TransferData
	SwapData                      *SwapData
	Index                         string

	IsDevCreateTokenTrade bool
	IsBot                 bool
}

// NewEventMetadata builds the header and derives the id by hashing
// signature||eventType||localID, per spec §4.2.
func NewEventMetadata(signature string, slot uint64, blockTime, blockTimeMs, recvMs int64, protocol Protocol, eventType EventType, programID solana.PublicKey, index, localID string) EventMetadata {
	return EventMetadata{
		ID:                    HashEventID(signature, eventType, localID),
		Signature:             signature,
		Slot:                  slot,
		BlockTime:             blockTime,
		BlockTimeMs:           blockTimeMs,
		ProgramReceivedTimeMs: recvMs,
		Protocol:              protocol,
		EventType:             eventType,
		ProgramID:             programID,
		Index:                 index,
	}
}

// HashEventID implements the id formula from spec §3/§4.2: hex of
// sha256(signature || event_type || local_id).
func HashEventID(signature string, eventType EventType, localID string) string {
	h := sha256.New()
	h.Write([]byte(signature))
	h.Write([]byte(eventType.String()))
	h.Write([]byte(localID))
	return hex.EncodeToString(h.Sum(nil))
}

// SwapLocalID composes the local-id used for swap-style events: the pool
// plus the two mints, per spec §4.2.
func SwapLocalID(pool, inputMint, outputMint solana.PublicKey) string {
	return fmt.Sprintf("%s:%s:%s", pool, inputMint, outputMint)
}

// UnifiedEvent is the capability set every concrete protocol event
// struct implements, letting the dispatcher/decoder/trade-monitor
// operate generically instead of through an open type hierarchy.
type UnifiedEvent interface {
	ID() string
	EventType() EventType
	ProtocolName() Protocol
	Signature() string
	Slot() uint64
	ProgramReceivedTimeMs() int64
	SetProgramHandleTimeConsumingMs(ms int64)
	SetTransferDatas(transfers []TransferData, swap *SwapData)
	Merge(other UnifiedEvent)
	Index() string
	Metadata() *EventMetadata
}

// SwapContext is the set of accounts the transfer/swap inference pass
// (spec §4.5) matches inner transfers against: the user's wallet, the
// two mints, the user's token accounts for each mint, and the pool
// vaults for each mint.
type SwapContext struct {
	User          solana.PublicKey
	FromMint      solana.PublicKey
	ToMint        solana.PublicKey
	UserFromToken solana.PublicKey
	UserToToken   solana.PublicKey
	FromVault     solana.PublicKey
	ToVault       solana.PublicKey
}

// SwapContextProvider is implemented by protocol events that carry
// enough account information to drive swap inference.
type SwapContextProvider interface {
	SwapContext() (SwapContext, bool)
}

// BaseEvent is embedded by every concrete per-protocol event and supplies
// the UnifiedEvent plumbing so each protocol package only needs to
// implement Merge with its own field set.
type BaseEvent struct {
	Meta EventMetadata
}

func (b *BaseEvent) ID() string                    { return b.Meta.ID }
func (b *BaseEvent) EventType() EventType           { return b.Meta.EventType }
func (b *BaseEvent) ProtocolName() Protocol         { return b.Meta.Protocol }
func (b *BaseEvent) Signature() string              { return b.Meta.Signature }
func (b *BaseEvent) Slot() uint64                   { return b.Meta.Slot }
func (b *BaseEvent) ProgramReceivedTimeMs() int64   { return b.Meta.ProgramReceivedTimeMs }
func (b *BaseEvent) Index() string                  { return b.Meta.Index }
func (b *BaseEvent) Metadata() *EventMetadata       { return &b.Meta }

func (b *BaseEvent) SetProgramHandleTimeConsumingMs(ms int64) {
	b.Meta.ProgramHandleTimeConsumingMs = ms
}

func (b *BaseEvent) SetTransferDatas(transfers []TransferData, swap *SwapData) {
	b.Meta.TransferDatas = transfers
	if swap != nil && !swap.IsZero() {
		b.Meta.SwapData = swap
	}
}
