package decoder

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"

	"github.com/sqoove/ghostreaver/internal/events"
)

type mergeEvent struct {
	events.BaseEvent
	amount  uint64
	merged  int
}

func (e *mergeEvent) Merge(other events.UnifiedEvent) {
	o, ok := other.(*mergeEvent)
	if !ok {
		return
	}
	e.merged++
	if o.amount != 0 {
		e.amount = o.amount
	}
}

func TestAccumulatorMergesDuplicateIDsPreservingOrder(t *testing.T) {
	acc := &accumulator{byID: make(map[string]events.UnifiedEvent)}

	first := &mergeEvent{BaseEvent: events.BaseEvent{Meta: events.EventMetadata{ID: "a"}}, amount: 10}
	second := &mergeEvent{BaseEvent: events.BaseEvent{Meta: events.EventMetadata{ID: "b"}}, amount: 20}
	dup := &mergeEvent{BaseEvent: events.BaseEvent{Meta: events.EventMetadata{ID: "a"}}, amount: 99}

	acc.add(first)
	acc.add(second)
	acc.add(dup)

	out := acc.ordered()
	if assert.Len(t, out, 2, "duplicate id must merge rather than append") {
		assert.Equal(t, "a", out[0].ID())
		assert.Equal(t, "b", out[1].ID())
		merged := out[0].(*mergeEvent)
		assert.Equal(t, 1, merged.merged)
		assert.Equal(t, uint64(99), merged.amount, "merge must take the later non-zero amount")
	}
}

func TestResolveAccountsZeroExtendsOutOfRange(t *testing.T) {
	vector := []solana.PublicKey{mustKey(t, 1), mustKey(t, 2)}
	out := ResolveAccounts(vector, []int{0, 5, -1})
	assert.Equal(t, vector[0], out[0])
	assert.True(t, out[1].IsZero())
	assert.True(t, out[2].IsZero())
}
