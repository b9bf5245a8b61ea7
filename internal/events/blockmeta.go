package events

import "fmt"

// BlockMetaEvent is synthesized once per block-meta stream update, per
// spec §4.9.
type BlockMetaEvent struct {
	BaseEvent
	BlockHash string
}

func (e *BlockMetaEvent) Merge(other UnifiedEvent) {
	if o, ok := other.(*BlockMetaEvent); ok {
		*e = *o
	}
}

// NewBlockMetaEvent builds the event with id "block_{slot}_{hash}".
func NewBlockMetaEvent(slot uint64, blockHash string, blockTime, recvMs int64) *BlockMetaEvent {
	id := fmt.Sprintf("block_%d_%s", slot, blockHash)
	return &BlockMetaEvent{
		BaseEvent: BaseEvent{Meta: EventMetadata{
			ID:                    id,
			Slot:                  slot,
			BlockTime:             blockTime,
			ProgramReceivedTimeMs: recvMs,
			EventType:             EventTypeBlockMeta,
			Index:                 "0",
		}},
		BlockHash: blockHash,
	}
}
