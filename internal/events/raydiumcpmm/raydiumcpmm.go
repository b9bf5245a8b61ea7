// Package raydiumcpmm implements the Raydium constant-product AMM v2
// parser (the CPMM program that replaced AMM v4 for new pools), whose
// account shape is close enough to PumpSwap's that the same
// instruction-accounts convention applies.
package raydiumcpmm

import (
	"github.com/gagliardetto/solana-go"

	"github.com/sqoove/ghostreaver/internal/codec"
	"github.com/sqoove/ghostreaver/internal/events"
)

// TradeEvent is a Raydium CPMM swap.
type TradeEvent struct {
	events.BaseEvent
	PoolState      solana.PublicKey
	User           solana.PublicKey
	InputTokenAcct solana.PublicKey
	OutputTokenAcct solana.PublicKey
	InputVault     solana.PublicKey
	OutputVault    solana.PublicKey
	AmountIn       uint64
	MinimumOut     uint64
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

// SwapContext implements events.SwapContextProvider.
func (e *TradeEvent) SwapContext() (events.SwapContext, bool) {
	return events.SwapContext{
		User:          e.User,
		UserFromToken: e.InputTokenAcct,
		UserToToken:   e.OutputTokenAcct,
		FromVault:     e.InputVault,
		ToVault:       e.OutputVault,
	}, true
}

// WithdrawEvent is a liquidity withdrawal from a CPMM pool.
type WithdrawEvent struct {
	events.BaseEvent
	PoolState solana.PublicKey
	User      solana.PublicKey
	LPAmount  uint64
}

func (e *WithdrawEvent) Merge(other events.UnifiedEvent) {
	if o, ok := other.(*WithdrawEvent); ok && o.LPAmount != 0 {
		e.LPAmount = o.LPAmount
	}
}

// PoolStateEvent carries a decoded CPMM pool-state snapshot.
type PoolStateEvent struct {
	events.BaseEvent
	PoolState solana.PublicKey
	Token0Vault solana.PublicKey
	Token1Vault solana.PublicKey
}

func (e *PoolStateEvent) Merge(other events.UnifiedEvent) {
	if o, ok := other.(*PoolStateEvent); ok {
		*e = *o
	}
}

var (
	discSwapBaseIn  = codec.AnchorDiscriminator("global", "swap_base_input")
	discSwapBaseOut = codec.AnchorDiscriminator("global", "swap_base_output")
	discWithdraw    = codec.AnchorDiscriminator("global", "withdraw")
	discPool        = codec.AnchorDiscriminator("account", "PoolState")
)

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Protocol() events.Protocol   { return events.ProtocolRaydiumCPMM }
func (p *Parser) ProgramID() solana.PublicKey { return events.RaydiumCPMMProgramID }

func (p *Parser) InstructionTable() events.InstructionTable {
	swapCfg := events.ParseConfig{ProgramID: events.RaydiumCPMMProgramID, Protocol: events.ProtocolRaydiumCPMM, EventType: events.EventTypeTrade, Parser: parseSwap}
	return events.InstructionTable{
		codec.DiscHex(discSwapBaseIn, 8):  {swapCfg},
		codec.DiscHex(discSwapBaseOut, 8): {swapCfg},
		codec.DiscHex(discWithdraw, 8): {{
			ProgramID: events.RaydiumCPMMProgramID,
			Protocol:  events.ProtocolRaydiumCPMM,
			EventType: events.EventTypeWithdraw,
			Parser:    parseWithdraw,
		}},
	}
}

func (p *Parser) InnerTable() events.InnerTable { return events.InnerTable{} }

func (p *Parser) AccountTable() events.AccountTable {
	return events.AccountTable{
		codec.DiscHex(discPool, 8): {ProgramID: events.RaydiumCPMMProgramID, Protocol: events.ProtocolRaydiumCPMM, EventType: events.EventTypeAccountState, Parser: parsePoolState},
	}
}

// accounts: [payer, _, poolState, inputTokenAcct, outputTokenAcct, inputVault, outputVault, ...]
func parseSwap(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	idx := []int{0, 3, 4, 5, 6, 2}
	if !codec.AccountIndicesValid(idx, len(accounts)) {
		return nil, false
	}
	amountIn, ok1 := codec.ReadU64LE(data, 8)
	minOut, ok2 := codec.ReadU64LE(data, 16)
	if !ok1 || !ok2 {
		return nil, false
	}
	localID := events.SwapLocalID(accounts[2], accounts[5], accounts[6])
	meta.ID = events.HashEventID(meta.Signature, events.EventTypeTrade, localID)
	ev := &TradeEvent{
		BaseEvent:       events.BaseEvent{Meta: meta},
		User:            accounts[0],
		PoolState:       accounts[2],
		InputTokenAcct:  accounts[3],
		OutputTokenAcct: accounts[4],
		InputVault:      accounts[5],
		OutputVault:     accounts[6],
		AmountIn:        amountIn,
		MinimumOut:      minOut,
	}
	return ev, true
}

func parseWithdraw(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	if !codec.AccountIndicesValid([]int{0, 1}, len(accounts)) {
		return nil, false
	}
	amount, _ := codec.ReadU64LE(data, 8)
	ev := &WithdrawEvent{
		BaseEvent: events.BaseEvent{Meta: meta},
		PoolState: accounts[1],
		User:      accounts[0],
		LPAmount:  amount,
	}
	return ev, true
}

func parsePoolState(account events.AccountInput, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	data := account.Data
	if len(data) < 104 {
		return nil, false
	}
	token0Vault := solana.PublicKeyFromBytes(data[40:72])
	token1Vault := solana.PublicKeyFromBytes(data[72:104])
	ev := &PoolStateEvent{
		BaseEvent:   events.BaseEvent{Meta: meta},
		PoolState:   account.Pubkey,
		Token0Vault: token0Vault,
		Token1Vault: token1Vault,
	}
	return ev, true
}
