// Package raydiumammv4 implements the legacy Raydium AMM v4 parser.
// Unlike the Anchor-based protocols, AMM v4 is a native program using a
// single leading opcode byte rather than an 8-byte Anchor discriminator
// (grounded on the Raydium opcode comments in
// VladislavFirsov-solana-token-lab/internal/discovery/dex_parser.go:
// 0x09 = SwapBaseIn, 0x0b = SwapBaseOut).
package raydiumammv4

import (
	"github.com/gagliardetto/solana-go"

	"github.com/sqoove/ghostreaver/internal/codec"
	"github.com/sqoove/ghostreaver/internal/events"
)

const (
	OpSwapBaseIn  = 0x09
	OpSwapBaseOut = 0x0b
	OpWithdraw    = 0x04
)

// TradeEvent is a Raydium AMM v4 swap (SwapBaseIn or SwapBaseOut).
type TradeEvent struct {
	events.BaseEvent
	AmmID          solana.PublicKey
	User           solana.PublicKey
	UserSourceATA  solana.PublicKey
	UserDestATA    solana.PublicKey
	PoolCoinVault  solana.PublicKey
	PoolPCVault    solana.PublicKey
	AmountIn       uint64
	AmountOutMin   uint64
	BaseIn         bool
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

// SwapContext implements events.SwapContextProvider using the user's
// source/destination ATAs and the two pool vaults.
func (e *TradeEvent) SwapContext() (events.SwapContext, bool) {
	return events.SwapContext{
		User:          e.User,
		UserFromToken: e.UserSourceATA,
		UserToToken:   e.UserDestATA,
		FromVault:     e.PoolCoinVault,
		ToVault:       e.PoolPCVault,
	}, true
}

// WithdrawEvent is a liquidity withdrawal from an AMM v4 pool.
type WithdrawEvent struct {
	events.BaseEvent
	AmmID  solana.PublicKey
	User   solana.PublicKey
	Amount uint64
}

func (e *WithdrawEvent) Merge(other events.UnifiedEvent) {
	if o, ok := other.(*WithdrawEvent); ok && o.Amount != 0 {
		e.Amount = o.Amount
	}
}

// PoolStateEvent carries a decoded AMM state-account snapshot. The
// parser registers no account parser, so no PoolStateEvent is emitted,
// and the scanner has no RaydiumAMMv4-specific PoolReader.
type PoolStateEvent struct {
	events.BaseEvent
	AmmID         solana.PublicKey
	CoinVault     solana.PublicKey
	PCVault       solana.PublicKey
	CoinDecimals  uint8
	PCDecimals    uint8
}

func (e *PoolStateEvent) Merge(other events.UnifiedEvent) {
	if o, ok := other.(*PoolStateEvent); ok {
		*e = *o
	}
}

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Protocol() events.Protocol   { return events.ProtocolRaydiumAMMv4 }
func (p *Parser) ProgramID() solana.PublicKey { return events.RaydiumAMMv4ProgramID }

func (p *Parser) InstructionTable() events.InstructionTable {
	swapCfg := events.ParseConfig{ProgramID: events.RaydiumAMMv4ProgramID, Protocol: events.ProtocolRaydiumAMMv4, EventType: events.EventTypeTrade, Parser: parseSwap}
	return events.InstructionTable{
		codec.DiscHex([]byte{OpSwapBaseIn}, 1):  {swapCfg},
		codec.DiscHex([]byte{OpSwapBaseOut}, 1): {swapCfg},
		codec.DiscHex([]byte{OpWithdraw}, 1): {{
			ProgramID: events.RaydiumAMMv4ProgramID,
			Protocol:  events.ProtocolRaydiumAMMv4,
			EventType: events.EventTypeWithdraw,
			Parser:    parseWithdraw,
		}},
	}
}

func (p *Parser) InnerTable() events.InnerTable { return events.InnerTable{} }

func (p *Parser) AccountTable() events.AccountTable { return events.AccountTable{} }

// accounts: [ammId, ..., userSourceATA, userDestATA, poolCoinVault,
// poolPCVault, user] — a trimmed view of the real ~18-account layout.
func parseSwap(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	idx := []int{0, 4, 5, 6, 7, 16}
	if !codec.AccountIndicesValid(idx, len(accounts)) {
		return nil, false
	}
	amountIn, ok1 := codec.ReadU64LE(data, 1)
	minOut, ok2 := codec.ReadU64LE(data, 9)
	if !ok1 || !ok2 {
		return nil, false
	}
	baseIn := len(data) > 0 && data[0] == OpSwapBaseIn
	localID := events.SwapLocalID(accounts[0], accounts[4], accounts[5])
	meta.ID = events.HashEventID(meta.Signature, events.EventTypeTrade, localID)
	ev := &TradeEvent{
		BaseEvent:     events.BaseEvent{Meta: meta},
		AmmID:         accounts[0],
		UserSourceATA: accounts[4],
		UserDestATA:   accounts[5],
		PoolCoinVault: accounts[6],
		PoolPCVault:   accounts[7],
		User:          accounts[16],
		AmountIn:      amountIn,
		AmountOutMin:  minOut,
		BaseIn:        baseIn,
	}
	return ev, true
}

func parseWithdraw(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	if !codec.AccountIndicesValid([]int{0, 1}, len(accounts)) {
		return nil, false
	}
	amount, _ := codec.ReadU64LE(data, 1)
	ev := &WithdrawEvent{
		BaseEvent: events.BaseEvent{Meta: meta},
		AmmID:     accounts[0],
		User:      accounts[1],
		Amount:    amount,
	}
	return ev, true
}
