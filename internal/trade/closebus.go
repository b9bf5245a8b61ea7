package trade

import (
	"sync"

	"github.com/google/uuid"
)

// CloseReason identifies why a position was closed.
type CloseReason int

const (
	CloseManual CloseReason = iota
	CloseTakeProfit
	CloseStopLoss
	CloseTrailingStop
	CloseHoldTimeExpired
	CloseLiquidityDrain
	ClosePartialSell
)

func (r CloseReason) String() string {
	switch r {
	case CloseTakeProfit:
		return "take_profit"
	case CloseStopLoss:
		return "stop_loss"
	case CloseTrailingStop:
		return "trailing_stop"
	case CloseHoldTimeExpired:
		return "hold_time_expired"
	case CloseLiquidityDrain:
		return "liquidity_drain"
	case ClosePartialSell:
		return "partial_sell"
	default:
		return "manual"
	}
}

// CloseEvent is broadcast to every subscriber when a position fully or
// partially closes.
type CloseEvent struct {
	Mint       string
	OpenID     uuid.UUID
	Reason     CloseReason
	ExitPrice  float64
	PnLPercent float64
}

const closeBusCapacity = 64

// CloseCmd is an external force-close request (spec §4.12's "External
// close"): a rug-detector or an operator action elsewhere in the
// system publishes one to end a specific trade from outside the FSM.
// Matching is by UUID if set, otherwise by Mint.
type CloseCmd struct {
	Reason CloseReason
	UUID   uuid.UUID
	Mint   string
}

// Matches reports whether cmd targets pos, by uuid first and falling
// back to mint so a caller that only knows the mint (e.g. a
// rug-detector watching pool state, not trade internals) can still
// force a close.
func (cmd CloseCmd) Matches(mint string, openID uuid.UUID) bool {
	if cmd.UUID != uuid.Nil {
		return cmd.UUID == openID
	}
	return cmd.Mint != "" && cmd.Mint == mint
}

// CloseBus fans CloseEvents out to every current subscriber, and
// separately fans CloseCmds in from any publisher to every Monitor
// listening for an external close. Each subscriber gets its own
// capacity-64 buffered channel (spec's broadcast-close-bus sizing); a
// slow subscriber that falls behind has its oldest-pending events
// dropped rather than stalling the publisher, since a late close
// notification is stale information anyway.
type CloseBus struct {
	mu   sync.Mutex
	subs map[int]chan CloseEvent
	next int

	cmdMu   sync.Mutex
	cmdSubs map[int]chan CloseCmd
	cmdNext int
}

// NewCloseBus builds an empty bus.
func NewCloseBus() *CloseBus {
	return &CloseBus{subs: make(map[int]chan CloseEvent), cmdSubs: make(map[int]chan CloseCmd)}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function.
func (b *CloseBus) Subscribe() (<-chan CloseEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan CloseEvent, closeBusCapacity)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish broadcasts ev to every current subscriber without blocking.
func (b *CloseBus) Publish(ev CloseEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber backlog full: drop the oldest to make room
			// rather than block the publisher or silently discard ev.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// SubscribeClose registers a new listener for external close commands
// and returns its channel plus an unsubscribe function. The follow
// task subscribes lazily, per spec §4.12.
func (b *CloseBus) SubscribeClose() (<-chan CloseCmd, func()) {
	b.cmdMu.Lock()
	defer b.cmdMu.Unlock()
	id := b.cmdNext
	b.cmdNext++
	ch := make(chan CloseCmd, closeBusCapacity)
	b.cmdSubs[id] = ch
	return ch, func() {
		b.cmdMu.Lock()
		defer b.cmdMu.Unlock()
		if c, ok := b.cmdSubs[id]; ok {
			delete(b.cmdSubs, id)
			close(c)
		}
	}
}

// SignalClose broadcasts a force-close command to every subscriber,
// matched against by uuid or mint (spec §4.12's
// `TradeMonitor::signal_close`).
func (b *CloseBus) SignalClose(cmd CloseCmd) {
	b.cmdMu.Lock()
	defer b.cmdMu.Unlock()
	for _, ch := range b.cmdSubs {
		select {
		case ch <- cmd:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- cmd:
			default:
			}
		}
	}
}
