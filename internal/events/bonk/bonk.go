// Package bonk implements the Bonk (letsbonk.fun launchpad) protocol
// parser: its instruction/inner/account tables and the concrete event
// structs they produce. Offsets are grounded on
// original_source/src/globals/constants.rs and the account layout read
// in original_source/src/trading/bonk/pool.rs.
package bonk

import (
	"github.com/gagliardetto/solana-go"

	"github.com/sqoove/ghostreaver/internal/codec"
	"github.com/sqoove/ghostreaver/internal/events"
)

// Bonk pool-state account layout offsets (see spec §6).
const (
	Disc         = 8
	BaseDecOff   = Disc + 10
	QuoteDecOff  = Disc + 11
	VirtualBase  = Disc + 29
	VirtualQuote = Disc + 37
	RealBase     = Disc + 45
	RealQuote    = Disc + 53
	MinLen       = RealQuote + 8
)

// CreateEvent models a new Bonk token launch.
type CreateEvent struct {
	events.BaseEvent
	Mint    solana.PublicKey
	Creator solana.PublicKey
	User    solana.PublicKey
	Pool    solana.PublicKey
}

func (e *CreateEvent) Merge(other events.UnifiedEvent) {
	o, ok := other.(*CreateEvent)
	if !ok {
		return
	}
	if !o.Mint.IsZero() {
		e.Mint = o.Mint
	}
	if !o.Pool.IsZero() {
		e.Pool = o.Pool
	}
	e.Meta.TransferDatas = append(e.Meta.TransferDatas, o.Meta.TransferDatas...)
}

// TradeEvent models a Bonk buy or sell against the bonding curve.
type TradeEvent struct {
	events.BaseEvent
	Pool       solana.PublicKey
	Mint       solana.PublicKey
	User       solana.PublicKey
	BaseVault  solana.PublicKey
	QuoteVault solana.PublicKey
	AmountIn   uint64
	AmountOut  uint64
}

func (e *TradeEvent) Merge(other events.UnifiedEvent) {
	o, ok := other.(*TradeEvent)
	if !ok {
		return
	}
	if o.AmountIn != 0 {
		e.AmountIn = o.AmountIn
	}
	if o.AmountOut != 0 {
		e.AmountOut = o.AmountOut
	}
	if o.Meta.SwapData != nil {
		e.Meta.SwapData = o.Meta.SwapData
	}
	e.Meta.TransferDatas = append(e.Meta.TransferDatas, o.Meta.TransferDatas...)
}

// SwapContext implements events.SwapContextProvider. Direction is taken
// from the event type the parser table stamped (Buy pays quote for
// base, Sell the reverse).
func (e *TradeEvent) SwapContext() (events.SwapContext, bool) {
	if e.Meta.EventType == events.EventTypeSell {
		return events.SwapContext{User: e.User, FromVault: e.BaseVault, ToVault: e.QuoteVault}, true
	}
	return events.SwapContext{User: e.User, FromVault: e.QuoteVault, ToVault: e.BaseVault}, true
}

// PoolStateEvent carries a decoded bonding-curve account snapshot.
type PoolStateEvent struct {
	events.BaseEvent
	Pool          solana.PublicKey
	BaseDecimals  uint8
	QuoteDecimals uint8
	VirtualBase   uint64
	VirtualQuote  uint64
	RealBase      uint64
	RealQuote     uint64
}

func (e *PoolStateEvent) Merge(other events.UnifiedEvent) {
	o, ok := other.(*PoolStateEvent)
	if !ok {
		return
	}
	*e = *o
}

var (
	discCreate = codec.AnchorDiscriminator("global", "initialize")
	discBuy    = codec.AnchorDiscriminator("global", "buy_exact_in")
	discSell   = codec.AnchorDiscriminator("global", "sell_exact_in")
	discPool   = codec.AnchorDiscriminator("account", "PoolState")
)

// Parser implements events.ProtocolParser for Bonk.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Protocol() events.Protocol        { return events.ProtocolBonk }
func (p *Parser) ProgramID() solana.PublicKey       { return events.BonkProgramID }

func (p *Parser) InstructionTable() events.InstructionTable {
	return events.InstructionTable{
		codec.DiscHex(discCreate, 8): {{
			ProgramID: events.BonkProgramID,
			Protocol:  events.ProtocolBonk,
			EventType: events.EventTypeCreate,
			Parser:    parseCreate,
		}},
		codec.DiscHex(discBuy, 8): {{
			ProgramID: events.BonkProgramID,
			Protocol:  events.ProtocolBonk,
			EventType: events.EventTypeBuy,
			Parser:    parseBuy,
		}},
		codec.DiscHex(discSell, 8): {{
			ProgramID: events.BonkProgramID,
			Protocol:  events.ProtocolBonk,
			EventType: events.EventTypeSell,
			Parser:    parseSell,
		}},
	}
}

func (p *Parser) InnerTable() events.InnerTable { return events.InnerTable{} }

func (p *Parser) AccountTable() events.AccountTable {
	return events.AccountTable{
		codec.DiscHex(discPool, 8): {
			ProgramID: events.BonkProgramID,
			Protocol:  events.ProtocolBonk,
			EventType: events.EventTypeAccountState,
			Parser:    parsePoolState,
		},
	}
}

// parseCreate expects accounts [payer, creator, mint, pool, ...].
func parseCreate(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	if !codec.AccountIndicesValid([]int{0, 1, 2, 3}, len(accounts)) {
		return nil, false
	}
	ev := &CreateEvent{
		BaseEvent: events.BaseEvent{Meta: meta},
		User:      accounts[0],
		Creator:   accounts[1],
		Mint:      accounts[2],
		Pool:      accounts[3],
	}
	return ev, true
}

// parseBuy/parseSell expect accounts
// [user, pool, mint, baseVault, quoteVault, ...] and an 8-byte amount
// after the discriminator.
func parseTrade(eventType events.EventType, data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	if !codec.AccountIndicesValid([]int{0, 1, 2, 3, 4}, len(accounts)) {
		return nil, false
	}
	amountIn, ok := codec.ReadU64LE(data, 8)
	if !ok {
		return nil, false
	}
	localID := events.SwapLocalID(accounts[1], accounts[2], accounts[2])
	meta.ID = events.HashEventID(meta.Signature, eventType, localID)
	ev := &TradeEvent{
		BaseEvent:  events.BaseEvent{Meta: meta},
		User:       accounts[0],
		Pool:       accounts[1],
		Mint:       accounts[2],
		BaseVault:  accounts[3],
		QuoteVault: accounts[4],
		AmountIn:   amountIn,
	}
	return ev, true
}

func parseBuy(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	return parseTrade(events.EventTypeBuy, data, accounts, meta)
}

func parseSell(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	return parseTrade(events.EventTypeSell, data, accounts, meta)
}

func parsePoolState(account events.AccountInput, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	data := account.Data
	if len(data) < MinLen {
		return nil, false
	}
	baseDec, ok1 := codec.ReadU8LE(data, BaseDecOff)
	quoteDec, ok2 := codec.ReadU8LE(data, QuoteDecOff)
	vb, ok3 := codec.ReadU64LE(data, VirtualBase)
	vq, ok4 := codec.ReadU64LE(data, VirtualQuote)
	rb, ok5 := codec.ReadU64LE(data, RealBase)
	rq, ok6 := codec.ReadU64LE(data, RealQuote)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, false
	}
	ev := &PoolStateEvent{
		BaseEvent:     events.BaseEvent{Meta: meta},
		Pool:          account.Pubkey,
		BaseDecimals:  baseDec,
		QuoteDecimals: quoteDec,
		VirtualBase:   vb,
		VirtualQuote:  vq,
		RealBase:      rb,
		RealQuote:     rq,
	}
	return ev, true
}
