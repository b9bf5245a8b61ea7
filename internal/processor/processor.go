// Package processor consumes decoded events off a stream.Handler's
// output channel and drives user callbacks in one of two modes (spec
// §4.9): Immediate, which invokes the callback per event under a bounded
// concurrency semaphore, and Batch, which coalesces events up to a
// capacity or timeout before invoking the callback once per batch.
// Grounded on the teacher's worker-pool usage of golang.org/x/sync in
// the ingestion pipelines, and on stellar-live-source's panic-recovery
// wrapping of per-request handler code.
package processor

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sqoove/ghostreaver/internal/events"
)

// Callback is invoked per decoded event in Immediate mode.
type Callback func(ctx context.Context, ev events.UnifiedEvent) error

// BatchCallback is invoked per batch in Batch mode.
type BatchCallback func(ctx context.Context, batch []events.UnifiedEvent) error

// Immediate runs cb for every event read from in, bounding the number
// of concurrently in-flight callbacks to maxConcurrency (spec's
// PROCMAXCONCURRENCYCAP). A panicking callback is recovered and logged
// rather than taking down the consumer loop. When in is closed, Immediate
// returns only after every in-flight callback has finished.
func Immediate(ctx context.Context, in <-chan events.UnifiedEvent, maxConcurrency int64, logger *zap.Logger, cb Callback) {
	sem := semaphore.NewWeighted(maxConcurrency)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				_ = sem.Acquire(context.Background(), maxConcurrency)
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			go func(ev events.UnifiedEvent) {
				defer sem.Release(1)
				defer recoverAndLog(logger, ev)
				if err := cb(ctx, ev); err != nil {
					logger.Warn("event callback failed",
						zap.String("event_id", ev.ID()),
						zap.Error(err))
				}
			}(ev)
		}
	}
}

// BatchProcessor coalesces events into batches of up to Capacity,
// flushing early if TimeoutMs elapses since the batch's first event.
type BatchProcessor struct {
	Capacity  int
	TimeoutMs int
}

// Run drives the batch loop until ctx is cancelled or in is closed,
// flushing whatever partial batch remains on exit.
func (b *BatchProcessor) Run(ctx context.Context, in <-chan events.UnifiedEvent, logger *zap.Logger, cb BatchCallback) {
	timeout := time.Duration(b.TimeoutMs) * time.Millisecond
	batch := make([]events.UnifiedEvent, 0, b.Capacity)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) == 0 {
			return
		}
		toFlush := batch
		batch = make([]events.UnifiedEvent, 0, b.Capacity)
		func() {
			defer recoverAndLogBatch(logger, toFlush)
			if err := cb(ctx, toFlush); err != nil {
				logger.Warn("batch callback failed", zap.Int("batch_size", len(toFlush)), zap.Error(err))
			}
		}()
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-timerC:
			flush()
		case ev, ok := <-in:
			if !ok {
				flush()
				return
			}
			if len(batch) == 0 && timeout > 0 {
				timer = time.NewTimer(timeout)
				timerC = timer.C
			}
			batch = append(batch, ev)
			if len(batch) >= b.Capacity {
				flush()
			}
		}
	}
}

func recoverAndLog(logger *zap.Logger, ev events.UnifiedEvent) {
	if r := recover(); r != nil {
		logger.Error("event callback panicked",
			zap.String("event_id", ev.ID()),
			zap.Any("panic", r))
	}
}

func recoverAndLogBatch(logger *zap.Logger, batch []events.UnifiedEvent) {
	if r := recover(); r != nil {
		logger.Error("batch callback panicked",
			zap.Int("batch_size", len(batch)),
			zap.Any("panic", r))
	}
}
