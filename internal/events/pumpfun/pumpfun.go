// Package pumpfun implements the PumpFun bonding-curve protocol parser.
// Grounded on original_source/src/trading/pumpfun/pool.rs for the
// bonding-curve account layout (virtual sol/token reserves at bytes
// 16..24 / 8..16) and on spec §4.6 for the dev-create-then-trade flag.
package pumpfun

import (
	"github.com/gagliardetto/solana-go"

	"github.com/sqoove/ghostreaver/internal/codec"
	"github.com/sqoove/ghostreaver/internal/events"
)

// Bonding-curve account layout: disc(8) | tokenReserves(8) | solReserves(8) | ...
const (
	BondingCurveMinLen  = 24
	VirtualTokenOffset  = 8
	VirtualSOLOffset    = 16
)

// CreateEvent is a new PumpFun token creation (CreateToken).
type CreateEvent struct {
	events.BaseEvent
	Mint         solana.PublicKey
	Creator      solana.PublicKey
	User         solana.PublicKey
	BondingCurve solana.PublicKey
	Name         string
	Symbol       string
}

func (e *CreateEvent) Merge(other events.UnifiedEvent) {
	o, ok := other.(*CreateEvent)
	if !ok {
		return
	}
	if !o.Mint.IsZero() {
		e.Mint = o.Mint
	}
	e.Meta.TransferDatas = append(e.Meta.TransferDatas, o.Meta.TransferDatas...)
}

// TradeEvent is a PumpFun buy or sell against the bonding curve.
type TradeEvent struct {
	events.BaseEvent
	Mint                    solana.PublicKey
	User                    solana.PublicKey
	Creator                 solana.PublicKey
	BondingCurve            solana.PublicKey
	SOLAmount               uint64
	TokenAmount             uint64
	IsBuy                   bool
	IsDevCreateTokenTrade   bool
	IsBot                   bool
}

func (e *TradeEvent) Merge(other events.UnifiedEvent) {
	o, ok := other.(*TradeEvent)
	if !ok {
		return
	}
	if o.SOLAmount != 0 {
		e.SOLAmount = o.SOLAmount
	}
	if o.TokenAmount != 0 {
		e.TokenAmount = o.TokenAmount
	}
	if o.Meta.SwapData != nil {
		e.Meta.SwapData = o.Meta.SwapData
	}
	e.Meta.TransferDatas = append(e.Meta.TransferDatas, o.Meta.TransferDatas...)
}

// PoolStateEvent carries a decoded bonding-curve snapshot.
type PoolStateEvent struct {
	events.BaseEvent
	BondingCurve   solana.PublicKey
	VirtualToken   uint64
	VirtualSOL     uint64
}

func (e *PoolStateEvent) Merge(other events.UnifiedEvent) {
	if o, ok := other.(*PoolStateEvent); ok {
		*e = *o
	}
}

var (
	discCreate = codec.AnchorDiscriminator("global", "create")
	discBuy    = codec.AnchorDiscriminator("global", "buy")
	discSell   = codec.AnchorDiscriminator("global", "sell")
	discCurve  = codec.AnchorDiscriminator("account", "BondingCurve")
)

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Protocol() events.Protocol  { return events.ProtocolPumpFun }
func (p *Parser) ProgramID() solana.PublicKey { return events.PumpFunProgramID }

func (p *Parser) InstructionTable() events.InstructionTable {
	return events.InstructionTable{
		codec.DiscHex(discCreate, 8): {{ProgramID: events.PumpFunProgramID, Protocol: events.ProtocolPumpFun, EventType: events.EventTypeCreate, Parser: parseCreate}},
		codec.DiscHex(discBuy, 8):    {{ProgramID: events.PumpFunProgramID, Protocol: events.ProtocolPumpFun, EventType: events.EventTypeBuy, Parser: parseBuy}},
		codec.DiscHex(discSell, 8):   {{ProgramID: events.PumpFunProgramID, Protocol: events.ProtocolPumpFun, EventType: events.EventTypeSell, Parser: parseSell}},
	}
}

func (p *Parser) InnerTable() events.InnerTable { return events.InnerTable{} }

func (p *Parser) AccountTable() events.AccountTable {
	return events.AccountTable{
		codec.DiscHex(discCurve, 8): {ProgramID: events.PumpFunProgramID, Protocol: events.ProtocolPumpFun, EventType: events.EventTypeAccountState, Parser: parsePoolState},
	}
}

// parseCreate expects accounts [mint, bondingCurve, user, ...] with the
// creator stored separately by accounts[2] per PumpFun's CreateToken ix.
func parseCreate(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	if !codec.AccountIndicesValid([]int{0, 1, 2}, len(accounts)) {
		return nil, false
	}
	ev := &CreateEvent{
		BaseEvent:    events.BaseEvent{Meta: meta},
		Mint:         accounts[0],
		BondingCurve: accounts[1],
		User:         accounts[2],
		Creator:      accounts[2],
	}
	return ev, true
}

func parseTrade(isBuy bool, eventType events.EventType, data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	if !codec.AccountIndicesValid([]int{0, 1, 2}, len(accounts)) {
		return nil, false
	}
	amount, ok := codec.ReadU64LE(data, 8)
	if !ok {
		return nil, false
	}
	localID := events.SwapLocalID(accounts[1], accounts[0], accounts[0])
	meta.ID = events.HashEventID(meta.Signature, eventType, localID)
	ev := &TradeEvent{
		BaseEvent:    events.BaseEvent{Meta: meta},
		Mint:         accounts[0],
		BondingCurve: accounts[1],
		User:         accounts[2],
		IsBuy:        isBuy,
	}
	if isBuy {
		ev.SOLAmount = amount
	} else {
		ev.TokenAmount = amount
	}
	return ev, true
}

func parseBuy(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	return parseTrade(true, events.EventTypeBuy, data, accounts, meta)
}

func parseSell(data []byte, accounts []solana.PublicKey, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	return parseTrade(false, events.EventTypeSell, data, accounts, meta)
}

func parsePoolState(account events.AccountInput, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	data := account.Data
	if len(data) < BondingCurveMinLen {
		return nil, false
	}
	vtok, ok1 := codec.ReadU64LE(data, VirtualTokenOffset)
	vsol, ok2 := codec.ReadU64LE(data, VirtualSOLOffset)
	if !ok1 || !ok2 {
		return nil, false
	}
	ev := &PoolStateEvent{
		BaseEvent:    events.BaseEvent{Meta: meta},
		BondingCurve: account.Pubkey,
		VirtualToken: vtok,
		VirtualSOL:   vsol,
	}
	return ev, true
}
