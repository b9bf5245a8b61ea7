// Package pumpswap implements the PumpSwap constant-product AMM parser
// (PumpFun's graduated-pool successor protocol). Account layouts for
// Buy/Sell/Withdraw are grounded on the generic AMM shape shared with
// RaydiumCPMM; the base/quote-mint carrying fields on Buy/Sell events
// match spec §8 concrete scenario 2 exactly so swap inference can match
// transfers against {user<->vault} pairs.
package pumpswap

import (
	"github.com/gagliardetto/solana-go"

	"github.com/sqoove/ghostreaver/internal/codec"
	"github.com/sqoove/ghostreaver/internal/events"
)

// TradeEvent is a PumpSwap Buy or Sell. It carries everything the
// transfer/swap inference pass (spec §4.5) needs to match inner
// TransferChecked/Transfer instructions against the correct legs.
type TradeEvent struct {
	events.BaseEvent
	Pool            solana.PublicKey
	User            solana.PublicKey
	BaseMint        solana.PublicKey
	QuoteMint       solana.PublicKey
	UserBaseTokens  solana.PublicKey
	UserQuoteTokens solana.PublicKey
	PoolBaseVault   solana.PublicKey
	PoolQuoteVault  solana.PublicKey
	IsBuy           bool
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

// SwapContext implements events.SwapContextProvider so the decoder's
// transfer/swap inference pass can match inner transfers to this trade's
// user and vault accounts.
func (e *TradeEvent) SwapContext() (events.SwapContext, bool) {
	if e.IsBuy {
		return events.SwapContext{
			User: e.User, FromMint: e.QuoteMint, ToMint: e.BaseMint,
			UserFromToken: e.UserQuoteTokens, UserToToken: e.UserBaseTokens,
			FromVault: e.PoolQuoteVault, ToVault: e.PoolBaseVault,
		}, true
	}
	return events.SwapContext{
		User: e.User, FromMint: e.BaseMint, ToMint: e.QuoteMint,
		UserFromToken: e.UserBaseTokens, UserToToken: e.UserQuoteTokens,
		FromVault: e.PoolBaseVault, ToVault: e.PoolQuoteVault,
	}, true
}

// WithdrawEvent is a liquidity withdrawal from a PumpSwap pool.
type WithdrawEvent struct {
	events.BaseEvent
	Pool       solana.PublicKey
	User       solana.PublicKey
	LPAmount   uint64
}

func (e *WithdrawEvent) Merge(other events.UnifiedEvent) {
	o, ok := other.(*WithdrawEvent)
	if !ok {
		return
	}
	if o.LPAmount != 0 {
		e.LPAmount = o.LPAmount
	}
}

// PoolStateEvent carries a decoded pool-account snapshot.
type PoolStateEvent struct {
	events.BaseEvent
	Pool           solana.PublicKey
	BaseMint       solana.PublicKey
	QuoteMint      solana.PublicKey
	PoolBaseVault  solana.PublicKey
	PoolQuoteVault solana.PublicKey
}

func (e *PoolStateEvent) Merge(other events.UnifiedEvent) {
	if o, ok := other.(*PoolStateEvent); ok {
		*e = *o
	}
}

var (
	discBuy      = codec.AnchorDiscriminator("global", "buy")
	discSell     = codec.AnchorDiscriminator("global", "sell")
	discWithdraw = codec.AnchorDiscriminator("global", "withdraw")
	discPool     = codec.AnchorDiscriminator("account", "Pool")
)

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Protocol() events.Protocol   { return events.ProtocolPumpSwap }
func (p *Parser) ProgramID() solana.PublicKey { return events.PumpSwapProgramID }

func (p *Parser) InstructionTable() events.InstructionTable {
	return events.InstructionTable{
		codec.DiscHex(discBuy, 8):      {{ProgramID: events.PumpSwapProgramID, Protocol: events.ProtocolPumpSwap, EventType: events.EventTypeBuy, Parser: parseBuy}},
		codec.DiscHex(discSell, 8):     {{ProgramID: events.PumpSwapProgramID, Protocol: events.ProtocolPumpSwap, EventType: events.EventTypeSell, Parser: parseSell}},
		codec.DiscHex(discWithdraw, 8): {{ProgramID: events.PumpSwapProgramID, Protocol: events.ProtocolPumpSwap, EventType: events.EventTypeWithdraw, Parser: parseWithdraw}},
	}
}

func (p *Parser) InnerTable() events.InnerTable { return events.InnerTable{} }

func (p *Parser) AccountTable() events.AccountTable {
	return events.AccountTable{
		codec.DiscHex(discPool, 8): {ProgramID: events.PumpSwapProgramID, Protocol: events.ProtocolPumpSwap, EventType: events.EventTypeAccountState, Parser: parsePoolState},
	}
}

// account layout for Buy/Sell: [pool, user, baseMint, quoteMint,
// userBaseTokens, userQuoteTokens, poolBaseVault, poolQuoteVault, ...]
func parseTrade(isBuy bool, eventType events.EventType, data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	idx := []int{0, 1, 2, 3, 4, 5, 6, 7}
	if !codec.AccountIndicesValid(idx, len(accounts)) {
		return nil, false
	}
	inputMint, outputMint := accounts[2], accounts[3]
	if isBuy {
		inputMint, outputMint = accounts[3], accounts[2]
	}
	localID := events.SwapLocalID(accounts[0], inputMint, outputMint)
	meta.ID = events.HashEventID(meta.Signature, eventType, localID)
	ev := &TradeEvent{
		BaseEvent:       events.BaseEvent{Meta: meta},
		Pool:            accounts[0],
		User:            accounts[1],
		BaseMint:        accounts[2],
		QuoteMint:       accounts[3],
		UserBaseTokens:  accounts[4],
		UserQuoteTokens: accounts[5],
		PoolBaseVault:   accounts[6],
		PoolQuoteVault:  accounts[7],
		IsBuy:           isBuy,
	}
	return ev, true
}

func parseBuy(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	return parseTrade(true, events.EventTypeBuy, data, accounts, meta)
}

func parseSell(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	return parseTrade(false, events.EventTypeSell, data, accounts, meta)
}

func parseWithdraw(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	if !codec.AccountIndicesValid([]int{0, 1}, len(accounts)) {
		return nil, false
	}
	amount, _ := codec.ReadU64LE(data, 8)
	ev := &WithdrawEvent{
		BaseEvent: events.BaseEvent{Meta: meta},
		Pool:      accounts[0],
		User:      accounts[1],
		LPAmount:  amount,
	}
	return ev, true
}

func parsePoolState(account events.AccountInput, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	data := account.Data
	if len(data) < 104 {
		return nil, false
	}
	baseMint := solana.PublicKeyFromBytes(data[8:40])
	quoteMint := solana.PublicKeyFromBytes(data[40:72])
	baseVault := solana.PublicKeyFromBytes(data[72:104])
	ev := &PoolStateEvent{
		BaseEvent:     events.BaseEvent{Meta: meta},
		Pool:          account.Pubkey,
		BaseMint:      baseMint,
		QuoteMint:     quoteMint,
		PoolBaseVault: baseVault,
	}
	return ev, true
}
