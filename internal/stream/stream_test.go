package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/sqoove/ghostreaver/internal/events"
)

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, BackpressureDrop, ParseStrategy("drop"))
	assert.Equal(t, BackpressureRetry, ParseStrategy("retry"))
	assert.Equal(t, BackpressureBlock, ParseStrategy("block"))
	assert.Equal(t, BackpressureBlock, ParseStrategy("anything-else"))
}

type noopMergeEvent struct {
	events.BaseEvent
}

func (e *noopMergeEvent) Merge(events.UnifiedEvent) {}

func TestEmitDropDiscardsWhenChannelFull(t *testing.T) {
	h := New(nil, nil, zap.NewNop(), 1, Options{Strategy: BackpressureDrop})
	h.emit(&noopMergeEvent{})
	h.emit(&noopMergeEvent{})

	assert.Len(t, h.Out, 1)
	assert.Equal(t, uint64(1), h.DroppedTotal())
}

func TestEmitRetrySucceedsOnceChannelDrains(t *testing.T) {
	h := New(nil, nil, zap.NewNop(), 1, Options{Strategy: BackpressureRetry, RetryAttempts: 5, RetryWait: time.Millisecond})
	h.emit(&noopMergeEvent{})

	go func() {
		time.Sleep(2 * time.Millisecond)
		<-h.Out
	}()
	h.emit(&noopMergeEvent{})

	assert.Equal(t, uint64(0), h.DroppedTotal(), "retry must succeed once the channel has room again")
}

func TestEmitRetryDropsAfterExhaustingAttempts(t *testing.T) {
	h := New(nil, nil, zap.NewNop(), 1, Options{Strategy: BackpressureRetry, RetryAttempts: 3, RetryWait: time.Millisecond})
	h.emit(&noopMergeEvent{})
	h.emit(&noopMergeEvent{})

	assert.Equal(t, uint64(1), h.DroppedTotal())
}

func TestEmitBlockWaitsForRoom(t *testing.T) {
	h := New(nil, nil, zap.NewNop(), 1, Options{Strategy: BackpressureBlock})
	h.emit(&noopMergeEvent{})

	done := make(chan struct{})
	go func() {
		h.emit(&noopMergeEvent{})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("block strategy must not return before the channel has room")
	case <-time.After(20 * time.Millisecond):
	}

	<-h.Out
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked emit did not unblock after channel drained")
	}
	assert.Equal(t, uint64(0), h.DroppedTotal())
}
