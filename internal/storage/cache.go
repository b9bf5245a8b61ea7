package storage

import (
	"sync"
	"time"
)

// Caches bundles the hot in-memory state that lets the decode-time path
// avoid a database round-trip, mirroring the four global caches named
// in original_source's storage layer (POSTGRESTOKENSCACHE,
// POSTGRESLASTTICK, POSTGRESLASTENRICH, POSTGRESOPENTRADE): a bounded
// cache of tokens already known to exist, the last tick second written
// per mint (for the tick writer's coalescing key), the last enrichment
// attempt timestamp per mint (for the scanner's throttle), and the set
// of mints with an open trade (for the trade monitor's one-position-
// per-mint invariant).
type Caches struct {
	mu sync.Mutex

	tokensSeen    map[string]struct{}
	tokensOrder   []string
	tokensCap     int

	lastTickSecond map[string]int64
	lastEnrichMs   map[string]int64
	openTrade      map[string]struct{}
}

// NewCaches builds the cache set. tokenCap bounds the tokensSeen cache
// (the config's token_hot_cache_cap); the other three are unbounded for
// the lifetime of the process since their natural cardinality is the
// number of concurrently-active mints, not the number ever seen.
func NewCaches(tokenCap int) *Caches {
	return &Caches{
		tokensSeen:     make(map[string]struct{}),
		tokensCap:      tokenCap,
		lastTickSecond: make(map[string]int64),
		lastEnrichMs:   make(map[string]int64),
		openTrade:      make(map[string]struct{}),
	}
}

// TokenKnown reports whether mint has already been written at least
// once, avoiding a redundant INSERT-path lookup.
func (c *Caches) TokenKnown(mint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tokensSeen[mint]
	return ok
}

// MarkTokenKnown records mint as seen, evicting the oldest entry
// (insertion order) once the cache exceeds its capacity.
func (c *Caches) MarkTokenKnown(mint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tokensSeen[mint]; ok {
		return
	}
	c.tokensSeen[mint] = struct{}{}
	c.tokensOrder = append(c.tokensOrder, mint)
	if c.tokensCap > 0 && len(c.tokensOrder) > c.tokensCap {
		evict := c.tokensOrder[0]
		c.tokensOrder = c.tokensOrder[1:]
		delete(c.tokensSeen, evict)
	}
}

// ShouldWriteTick reports whether a tick for (mint, second) hasn't
// already been coalesced by a prior write in the same second, and
// records second as the latest if so.
func (c *Caches) ShouldWriteTick(mint string, second int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.lastTickSecond[mint]; ok && last == second {
		return false
	}
	c.lastTickSecond[mint] = second
	return true
}

// ShouldEnrich reports whether enough time has elapsed since the last
// enrichment attempt for mint (the scanner's POSTGRESENRICHMINPERIOD
// throttle, spec §4.13), and records nowMs as the latest attempt if so.
func (c *Caches) ShouldEnrich(mint string, nowMs int64, minPeriodMs int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.lastEnrichMs[mint]; ok && nowMs-last < minPeriodMs {
		return false
	}
	c.lastEnrichMs[mint] = nowMs
	return true
}

// TryOpenTrade atomically claims mint for a new open trade, returning
// false if one is already open -- the invariant backing the trade
// monitor's one-position-per-mint rule (spec §4.12).
func (c *Caches) TryOpenTrade(mint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, open := c.openTrade[mint]; open {
		return false
	}
	c.openTrade[mint] = struct{}{}
	return true
}

// CloseTrade releases mint's open-trade claim.
func (c *Caches) CloseTrade(mint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.openTrade, mint)
}

// IsTradeOpen reports whether mint currently has a claimed open trade.
func (c *Caches) IsTradeOpen(mint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.openTrade[mint]
	return ok
}

// NowMs is a small seam so tests can stub the clock used by
// ShouldEnrich call sites without injecting time.Now() everywhere.
func NowMs() int64 { return time.Now().UnixMilli() }
