package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/sqoove/ghostreaver/internal/events"
)

type noopMergeEvent struct {
	events.BaseEvent
}

func (e *noopMergeEvent) Merge(events.UnifiedEvent) {}

func fakeEvent(t events.EventType, p events.Protocol, handleMs int64) events.UnifiedEvent {
	ev := &noopMergeEvent{}
	ev.Meta.EventType = t
	ev.Meta.Protocol = p
	ev.Meta.ProgramHandleTimeConsumingMs = handleMs
	return ev
}

func TestAggregatorRunAppliesIncProcess(t *testing.T) {
	a := New(zap.NewNop(), nil, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx, time.Hour)

	a.IncProcess(fakeEvent(events.EventTypeBuy, events.ProtocolBonk, 5))
	a.IncProcess(fakeEvent(events.EventTypeSell, events.ProtocolBonk, 3))
	a.IncProcess(fakeEvent(events.EventTypeBuy, events.ProtocolPumpFun, 2))

	assert.Eventually(t, func() bool {
		total, byType := a.Snapshot()
		return total == 3 && byType[events.EventTypeBuy.String()] == 2 && byType[events.EventTypeSell.String()] == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAggregatorRunStopsOnContextCancel(t *testing.T) {
	a := New(zap.NewNop(), nil, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestTrimWindowDropsEntriesOlderThanWindow(t *testing.T) {
	now := time.Now()
	times := []time.Time{
		now.Add(-2 * rollingWindow),
		now.Add(-rollingWindow / 2),
		now,
	}
	trimmed := trimWindow(times, now)
	assert.Len(t, trimmed, 2)
}

func TestSnapshotReturnsIndependentCopy(t *testing.T) {
	a := New(zap.NewNop(), nil, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx, time.Hour)

	a.IncProcess(fakeEvent(events.EventTypeBuy, events.ProtocolBonk, 1))
	assert.Eventually(t, func() bool {
		total, _ := a.Snapshot()
		return total == 1
	}, time.Second, 5*time.Millisecond)

	_, byType := a.Snapshot()
	byType["tampered"] = 999
	_, byType2 := a.Snapshot()
	assert.NotContains(t, byType2, "tampered", "Snapshot must return a copy, not shared internal state")
}
