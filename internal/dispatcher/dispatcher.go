// Package dispatcher assembles the per-protocol parse tables from
// internal/events/<protocol> into one merged lookup the transaction
// decoder drives, applying an optional event-type include-filter.
// Grounded on the teacher's gRPC server dispatch-by-program-id pattern
// (stellar-live-source/go/server/server.go routes by request shape the
// same way this routes by program id).
package dispatcher

import (
	"github.com/gagliardetto/solana-go"

	"github.com/sqoove/ghostreaver/internal/codec"
	"github.com/sqoove/ghostreaver/internal/events"
)

// EventTypeFilter restricts emitted events to an include-list. A nil
// filter (or one with an empty Include) passes everything.
type EventTypeFilter struct {
	Include map[events.EventType]struct{}
}

// NewEventTypeFilter builds a filter from a list of included types.
func NewEventTypeFilter(types ...events.EventType) *EventTypeFilter {
	f := &EventTypeFilter{Include: make(map[events.EventType]struct{}, len(types))}
	for _, t := range types {
		f.Include[t] = struct{}{}
	}
	return f
}

func (f *EventTypeFilter) allows(t events.EventType) bool {
	if f == nil || len(f.Include) == 0 {
		return true
	}
	_, ok := f.Include[t]
	return ok
}

// Dispatcher merges the configured protocols' parse tables and applies
// the optional filter.
type Dispatcher struct {
	programs map[solana.PublicKey]events.Protocol
	instr    events.InstructionTable
	inner    events.InnerTable
	accounts events.AccountTable
	filter   *EventTypeFilter
}

// New merges parsers for the requested protocol set. Passing no parsers
// produces a Dispatcher that handles nothing.
func New(filter *EventTypeFilter, parsers ...events.ProtocolParser) *Dispatcher {
	d := &Dispatcher{
		programs: make(map[solana.PublicKey]events.Protocol),
		instr:    make(events.InstructionTable),
		inner:    make(events.InnerTable),
		accounts: make(events.AccountTable),
		filter:   filter,
	}
	for _, p := range parsers {
		d.programs[p.ProgramID()] = p.Protocol()
		for k, cfgs := range p.InstructionTable() {
			d.instr[k] = append(d.instr[k], cfgs...)
		}
		for k, cfgs := range p.InnerTable() {
			d.inner[k] = append(d.inner[k], cfgs...)
		}
		for k, cfg := range p.AccountTable() {
			d.accounts[k] = cfg
		}
	}
	return d
}

// ShouldHandle reports whether programID is one of the dispatcher's
// configured protocols.
func (d *Dispatcher) ShouldHandle(programID solana.PublicKey) bool {
	_, ok := d.programs[programID]
	return ok
}

// ParseInstruction runs every config matching data's discriminator whose
// ProgramID equals programID (the tie-break rule in spec §4.2), filtered
// by the configured EventTypeFilter.
func (d *Dispatcher) ParseInstruction(programID solana.PublicKey, data []byte, accounts []solana.PublicKey, meta events.EventMetadata) []events.UnifiedEvent {
	var out []events.UnifiedEvent
	for n := 8; n >= 1; n-- {
		if n > len(data) {
			continue
		}
		cfgs, ok := d.instr[codec.DiscHex(data, n)]
		if !ok {
			continue
		}
		for _, cfg := range cfgs {
			if cfg.ProgramID != programID || !d.filter.allows(cfg.EventType) {
				continue
			}
			m := meta
			m.Protocol = cfg.Protocol
			m.EventType = cfg.EventType
			m.ProgramID = programID
			if ev, ok := cfg.Parser(data, accounts, m); ok {
				out = append(out, ev)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return out
}

// ParseInner mirrors ParseInstruction for the inner-instruction table,
// keyed by the hex of the decoded payload's leading bytes.
func (d *Dispatcher) ParseInner(programID solana.PublicKey, dataAfterDisc []byte, discHex string, meta events.EventMetadata) []events.UnifiedEvent {
	cfgs, ok := d.inner[discHex]
	if !ok {
		return nil
	}
	var out []events.UnifiedEvent
	for _, cfg := range cfgs {
		if cfg.ProgramID != programID || !d.filter.allows(cfg.EventType) {
			continue
		}
		m := meta
		m.Protocol = cfg.Protocol
		m.EventType = cfg.EventType
		m.ProgramID = programID
		if ev, ok := cfg.Parser(dataAfterDisc, m); ok {
			out = append(out, ev)
		}
	}
	return out
}

// ParseAccount applies the account-layout table for the account's owner
// program.
func (d *Dispatcher) ParseAccount(account events.AccountInput, meta events.EventMetadata) (events.UnifiedEvent, bool) {
	for n := 8; n >= 1; n-- {
		if n > len(account.Data) {
			continue
		}
		cfg, ok := d.accounts[codec.DiscHex(account.Data, n)]
		if !ok || cfg.ProgramID != account.Owner || !d.filter.allows(cfg.EventType) {
			continue
		}
		m := meta
		m.Protocol = cfg.Protocol
		m.EventType = cfg.EventType
		m.ProgramID = account.Owner
		return cfg.Parser(account, m)
	}
	return nil, false
}
