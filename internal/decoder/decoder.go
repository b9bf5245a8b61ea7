// Package decoder walks a compiled transaction's top-level and inner
// instructions, dispatches each to the protocol parser tables, infers
// the token/SOL transfers and swap legs each event caused, merges
// duplicate events surfaced from both a top-level call and one of its
// inner CPIs, and runs the post-processing pass (spec §4.4-§4.6).
package decoder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/sqoove/ghostreaver/internal/codec"
	"github.com/sqoove/ghostreaver/internal/dispatcher"
	"github.com/sqoove/ghostreaver/internal/events"
)

// Decode runs the full pipeline over one transaction and returns the
// deduplicated, post-processed events it contains.
func Decode(d *dispatcher.Dispatcher, tx *EncodedTransaction, opts PostProcessOptions) []events.UnifiedEvent {
	if tx == nil || tx.Meta == nil {
		// No execution metadata: the transaction's effects can't be
		// verified, so it is treated as failed and produces nothing
		// (spec §4.4 step 1).
		return nil
	}

	vector := tx.AccountVector()
	acc := &accumulator{order: nil, byID: make(map[string]events.UnifiedEvent)}

	for idx, ix := range tx.Instructions {
		programID := programIDAt(vector, ix.ProgramIDIndex)
		if !d.ShouldHandle(programID) {
			continue
		}
		accts := ResolveAccounts(vector, ix.AccountIndices)
		meta := newMeta(tx, idx)
		evs := d.ParseInstruction(programID, ix.Data, accts, meta)
		if len(evs) == 0 {
			continue
		}
		bucket := innerBucket(tx.Meta.InnerInstructions, idx)
		transfers := inferTransfers(vector, bucket, 0)
		for _, ev := range evs {
			stampAndAdd(acc, ev, transfers)
		}
	}

	// Failed transactions still compile their top-level instructions but
	// their inner-instruction records don't reflect real effects, so
	// they are skipped entirely (spec §4.4 step 2).
	if !tx.Meta.Failed() {
		for _, bucket := range tx.Meta.InnerInstructions {
			for j, ix := range bucket.Instructions {
				programID := programIDAt(vector, ix.ProgramIDIndex)
				if !d.ShouldHandle(programID) {
					continue
				}
				meta := newMeta(tx, bucket.Index)
				meta.Index = fmt.Sprintf("%d.%d", bucket.Index, j)
				evs := tryParseInner(d, programID, ix.Data, meta)
				if len(evs) == 0 {
					continue
				}
				transfers := inferTransfers(vector, bucket.Instructions, j+1)
				for _, ev := range evs {
					stampAndAdd(acc, ev, transfers)
				}
			}
		}
	}

	out := acc.ordered()
	postProcess(out, opts)
	return out
}

// tryParseInner tries discriminator lengths 8 down to 1, mirroring
// Dispatcher.ParseInstruction's own search, since inner-instruction
// payloads are dispatched by the table keyed on dataAfterDisc/discHex
// rather than raw data.
func tryParseInner(d *dispatcher.Dispatcher, programID solana.PublicKey, data []byte, meta events.EventMetadata) []events.UnifiedEvent {
	for n := 8; n >= 1; n-- {
		if n > len(data) {
			continue
		}
		discHex := codec.DiscHex(data, n)
		evs := d.ParseInner(programID, data[n:], discHex, meta)
		if len(evs) > 0 {
			return evs
		}
	}
	return nil
}

func stampAndAdd(acc *accumulator, ev events.UnifiedEvent, transfers []events.TransferData) {
	swap := inferSwap(ev, transfers)
	ev.SetTransferDatas(transfers, swap)
	acc.add(ev)
}

func newMeta(tx *EncodedTransaction, idx int) events.EventMetadata {
	index := fmt.Sprintf("%d", idx)
	return events.NewEventMetadata(
		tx.Signature, tx.Slot, tx.BlockTime, tx.BlockTimeMs, tx.ProgramReceivedMs,
		events.ProtocolUnknown, events.EventTypeUnknown, solana.PublicKey{}, index, index,
	)
}

func innerBucket(buckets []InnerInstructionBucket, topIdx int) []CompiledInstruction {
	for _, b := range buckets {
		if b.Index == topIdx {
			return b.Instructions
		}
	}
	return nil
}

// accumulator applies the merge rule (spec §4.4 step 6): events that
// resurface under the same id -- typically once from the top-level
// instruction that initiated a call and again from the inner CPI that
// actually executed it -- are merged into a single event rather than
// emitted twice, preserving first-seen order.
type accumulator struct {
	order []string
	byID  map[string]events.UnifiedEvent
}

func (a *accumulator) add(ev events.UnifiedEvent) {
	id := ev.ID()
	if existing, ok := a.byID[id]; ok {
		existing.Merge(ev)
		return
	}
	a.byID[id] = ev
	a.order = append(a.order, id)
}

func (a *accumulator) ordered() []events.UnifiedEvent {
	out := make([]events.UnifiedEvent, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.byID[id])
	}
	return out
}
