// Package raydiumclmm implements the Raydium concentrated-liquidity AMM
// parser. PoolState offsets are byte-exact per spec §6 and
// original_source/src/trading/raydiumclmm/pool.rs: min_len=1536,
// sqrt_price at 245, vault_x at 129, vault_y at 161.
package raydiumclmm

import (
	"github.com/gagliardetto/solana-go"

	"github.com/sqoove/ghostreaver/internal/codec"
	"github.com/sqoove/ghostreaver/internal/events"
)

const (
	MinLen        = 1536
	SqrtPriceOff  = 245
	VaultXOff     = 129
	VaultYOff     = 161
)

// TradeEvent is a Raydium CLMM swap.
type TradeEvent struct {
	events.BaseEvent
	PoolState     solana.PublicKey
	User          solana.PublicKey
	InputVault    solana.PublicKey
	OutputVault   solana.PublicKey
	AmountIn      uint64
	AmountOutMin  uint64
	ZeroForOne    bool
}

func (e *TradeEvent) Merge(other events.UnifiedEvent) {
	o, ok := other.(*TradeEvent)
	if !ok {
		return
	}
	if o.Meta.SwapData != nil {
		e.Meta.SwapData = o.Meta.SwapData
	}
	e.Meta.TransferDatas = append(e.Meta.TransferDatas, o.Meta.TransferDatas...)
}

// SwapContext implements events.SwapContextProvider. CLMM swaps only
// carry vault accounts, not the user's token accounts, so those fields
// are left zero and inference matches on vault addresses alone.
func (e *TradeEvent) SwapContext() (events.SwapContext, bool) {
	return events.SwapContext{
		User:      e.User,
		FromVault: e.InputVault,
		ToVault:   e.OutputVault,
	}, true
}

// PoolStateEvent carries a decoded CLMM pool-state snapshot.
type PoolStateEvent struct {
	events.BaseEvent
	PoolState solana.PublicKey
	SqrtPriceX64 []byte // 16 bytes LE u128, kept raw; scanner decodes with codec.ReadU128LE
	VaultX    solana.PublicKey
	VaultY    solana.PublicKey
}

func (e *PoolStateEvent) Merge(other events.UnifiedEvent) {
	if o, ok := other.(*PoolStateEvent); ok {
		*e = *o
	}
}

var discSwap = codec.AnchorDiscriminator("global", "swap")
var discPool = codec.AnchorDiscriminator("account", "PoolState")

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Protocol() events.Protocol   { return events.ProtocolRaydiumCLMM }
func (p *Parser) ProgramID() solana.PublicKey { return events.RaydiumCLMMProgramID }

func (p *Parser) InstructionTable() events.InstructionTable {
	return events.InstructionTable{
		codec.DiscHex(discSwap, 8): {{ProgramID: events.RaydiumCLMMProgramID, Protocol: events.ProtocolRaydiumCLMM, EventType: events.EventTypeTrade, Parser: parseSwap}},
	}
}

func (p *Parser) InnerTable() events.InnerTable { return events.InnerTable{} }

func (p *Parser) AccountTable() events.AccountTable {
	return events.AccountTable{
		codec.DiscHex(discPool, 8): {ProgramID: events.RaydiumCLMMProgramID, Protocol: events.ProtocolRaydiumCLMM, EventType: events.EventTypeAccountState, Parser: parsePoolState},
	}
}

// accounts: [payer, poolState, inputVault, outputVault, ...]
func parseSwap(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	if !codec.AccountIndicesValid([]int{0, 1, 2, 3}, len(accounts)) {
		return nil, false
	}
	amountIn, ok1 := codec.ReadU64LE(data, 8)
	minOut, ok2 := codec.ReadU64LE(data, 16)
	zeroForOne, ok3 := codec.ReadU8LE(data, 24)
	if !ok1 || !ok2 {
		return nil, false
	}
	localID := events.SwapLocalID(accounts[1], accounts[2], accounts[3])
	meta.ID = events.HashEventID(meta.Signature, events.EventTypeTrade, localID)
	ev := &TradeEvent{
		BaseEvent:    events.BaseEvent{Meta: meta},
		User:         accounts[0],
		PoolState:    accounts[1],
		InputVault:   accounts[2],
		OutputVault:  accounts[3],
		AmountIn:     amountIn,
		AmountOutMin: minOut,
		ZeroForOne:   ok3 && zeroForOne != 0,
	}
	return ev, true
}

func parsePoolState(account events.AccountInput, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	data := account.Data
	if len(data) < MinLen {
		return nil, false
	}
	sqrt := make([]byte, 16)
	copy(sqrt, data[SqrtPriceOff:SqrtPriceOff+16])
	vaultX := solana.PublicKeyFromBytes(data[VaultXOff : VaultXOff+32])
	vaultY := solana.PublicKeyFromBytes(data[VaultYOff : VaultYOff+32])
	ev := &PoolStateEvent{
		BaseEvent:    events.BaseEvent{Meta: meta},
		PoolState:    account.Pubkey,
		SqrtPriceX64: sqrt,
		VaultX:       vaultX,
		VaultY:       vaultY,
	}
	return ev, true
}
