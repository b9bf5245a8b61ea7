// Package stream drives the Yellowstone/Geyser subscription: connecting,
// assembling the account/transaction filters for the configured
// protocol set, answering the ping/pong keep-alive, converting wire
// updates into decoder input, and pushing decoded events onto a bounded
// channel under one of three backpressure strategies (spec §4.7-§4.8).
// Grounded on the teacher's continuous-polling relay loop in
// ttp-processor/go/server/server.go and stellar-live-source's retry/
// circuit-breaker wrapping of the upstream call.
package stream

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sqoove/ghostreaver/internal/decoder"
	"github.com/sqoove/ghostreaver/internal/dispatcher"
	"github.com/sqoove/ghostreaver/internal/events"
	"github.com/sqoove/ghostreaver/internal/yellowstone"
)

// BackpressureStrategy controls what happens when the output channel is
// full (spec §4.7).
type BackpressureStrategy int

const (
	// BackpressureBlock waits until the channel has room.
	BackpressureBlock BackpressureStrategy = iota
	// BackpressureDrop discards the event and counts it as lost.
	BackpressureDrop
	// BackpressureRetry attempts a bounded number of short waits before
	// falling back to Drop.
	BackpressureRetry
)

// ParseStrategy parses the config string form ("block"|"drop"|"retry").
func ParseStrategy(s string) BackpressureStrategy {
	switch s {
	case "drop":
		return BackpressureDrop
	case "retry":
		return BackpressureRetry
	default:
		return BackpressureBlock
	}
}

// Options configures a Handler.
type Options struct {
	Strategy      BackpressureStrategy
	RetryAttempts int
	RetryWait     time.Duration
	PingInterval  time.Duration
	PostProcess   decoder.PostProcessOptions
}

// Handler owns one live subscription and fans decoded events onto Out.
type Handler struct {
	client     yellowstone.GrpcClient
	dispatcher *dispatcher.Dispatcher
	logger     *zap.Logger
	opts       Options

	Out chan events.UnifiedEvent

	droppedTotal uint64
}

// New builds a Handler. outCapacity sizes the bounded output channel
// (the DEFCHANNELSIZE-class constants from internal/config).
func New(client yellowstone.GrpcClient, d *dispatcher.Dispatcher, logger *zap.Logger, outCapacity int, opts Options) *Handler {
	return &Handler{
		client:     client,
		dispatcher: d,
		logger:     logger,
		opts:       opts,
		Out:        make(chan events.UnifiedEvent, outCapacity),
	}
}

// DroppedTotal reports how many events the Drop/Retry strategies have
// discarded since startup.
func (h *Handler) DroppedTotal() uint64 { return h.droppedTotal }

// Run connects and streams until ctx is cancelled or the subscription
// ends with an unrecoverable error.
func (h *Handler) Run(ctx context.Context, req *yellowstone.SubscribeRequest) error {
	sub, err := h.client.Subscribe(ctx, req)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		update, err := sub.Recv()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			h.logger.Error("subscription recv failed", zap.Error(err))
			return err
		}
		h.handleUpdate(sub, update)
	}
}

func (h *Handler) handleUpdate(sub yellowstone.Subscription, update *yellowstone.SubscribeUpdate) {
	recvMs := time.Now().UnixMilli()

	switch {
	case update.Ping != nil:
		if err := sub.SendPong(update.Ping.ID); err != nil {
			h.logger.Warn("failed to send pong", zap.Error(err))
		}
	case update.BlockMeta != nil:
		bm := update.BlockMeta
		h.emit(events.NewBlockMetaEvent(bm.Slot, bm.BlockHash, bm.BlockTime, recvMs))
	case update.Account != nil:
		acc := update.Account
		if !h.dispatcher.ShouldHandle(acc.Owner) {
			return
		}
		input := events.AccountInput{Pubkey: acc.Pubkey, Owner: acc.Owner, Data: acc.Data, Slot: acc.Slot}
		meta := events.NewEventMetadata("", acc.Slot, 0, 0, recvMs, events.ProtocolUnknown, events.EventTypeUnknown, acc.Owner, acc.Pubkey.String(), acc.Pubkey.String())
		if ev, ok := h.dispatcher.ParseAccount(input, meta); ok {
			h.emit(ev)
		}
	case update.Transaction != nil:
		tx := toEncodedTransaction(update.Transaction, recvMs)
		for _, ev := range decoder.Decode(h.dispatcher, tx, h.opts.PostProcess) {
			h.emit(ev)
		}
	}
}

func toEncodedTransaction(tx *yellowstone.TransactionUpdate, recvMs int64) *decoder.EncodedTransaction {
	var meta *decoder.Meta
	if tx.Err != nil || tx.InnerInstructions != nil || tx.LoadedWritableAddrs != nil || tx.LoadedReadonlyAddrs != nil {
		buckets := make([]decoder.InnerInstructionBucket, len(tx.InnerInstructions))
		for i, b := range tx.InnerInstructions {
			instrs := make([]decoder.CompiledInstruction, len(b.Instructions))
			for j, ix := range b.Instructions {
				instrs[j] = decoder.CompiledInstruction{ProgramIDIndex: ix.ProgramIDIndex, AccountIndices: ix.AccountIndices, Data: ix.Data}
			}
			buckets[i] = decoder.InnerInstructionBucket{Index: b.Index, Instructions: instrs}
		}
		meta = &decoder.Meta{
			Err:                 tx.Err,
			LoadedWritableAddrs: tx.LoadedWritableAddrs,
			LoadedReadonlyAddrs: tx.LoadedReadonlyAddrs,
			InnerInstructions:   buckets,
		}
	} else {
		meta = &decoder.Meta{}
	}

	instrs := make([]decoder.CompiledInstruction, len(tx.Instructions))
	for i, ix := range tx.Instructions {
		instrs[i] = decoder.CompiledInstruction{ProgramIDIndex: ix.ProgramIDIndex, AccountIndices: ix.AccountIndices, Data: ix.Data}
	}

	return &decoder.EncodedTransaction{
		Signature:         tx.Signature,
		Slot:              tx.Slot,
		BlockTime:         tx.BlockTime,
		BlockTimeMs:       tx.BlockTime * 1000,
		ProgramReceivedMs: recvMs,
		StaticAccountKeys: tx.StaticAccountKeys,
		Instructions:      instrs,
		Meta:              meta,
	}
}

// emit pushes ev onto Out under the configured backpressure strategy.
func (h *Handler) emit(ev events.UnifiedEvent) {
	switch h.opts.Strategy {
	case BackpressureDrop:
		select {
		case h.Out <- ev:
		default:
			h.droppedTotal++
		}
	case BackpressureRetry:
		for i := 0; i < h.opts.RetryAttempts; i++ {
			select {
			case h.Out <- ev:
				return
			default:
				time.Sleep(h.opts.RetryWait)
			}
		}
		h.droppedTotal++
	default: // BackpressureBlock
		h.Out <- ev
	}
}
