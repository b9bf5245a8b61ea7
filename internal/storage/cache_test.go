package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenKnownEvictsOldestOnceOverCapacity(t *testing.T) {
	c := NewCaches(2)
	c.MarkTokenKnown("a")
	c.MarkTokenKnown("b")
	assert.True(t, c.TokenKnown("a"))
	assert.True(t, c.TokenKnown("b"))

	c.MarkTokenKnown("c")
	assert.False(t, c.TokenKnown("a"), "oldest entry should be evicted once over capacity")
	assert.True(t, c.TokenKnown("b"))
	assert.True(t, c.TokenKnown("c"))
}

func TestMarkTokenKnownIsIdempotent(t *testing.T) {
	c := NewCaches(2)
	c.MarkTokenKnown("a")
	c.MarkTokenKnown("a")
	c.MarkTokenKnown("b")
	assert.True(t, c.TokenKnown("a"), "re-marking a must not evict it via duplicate insertion order entries")
	assert.True(t, c.TokenKnown("b"))
}

func TestTokenCacheUnboundedWhenCapZero(t *testing.T) {
	c := NewCaches(0)
	for i := 0; i < 50; i++ {
		c.MarkTokenKnown(string(rune('a' + i%26)))
	}
	assert.True(t, c.TokenKnown("a"), "zero cap must disable eviction")
}

func TestShouldWriteTickCoalescesSameSecond(t *testing.T) {
	c := NewCaches(10)
	assert.True(t, c.ShouldWriteTick("mint1", 100))
	assert.False(t, c.ShouldWriteTick("mint1", 100), "same second must be coalesced")
	assert.True(t, c.ShouldWriteTick("mint1", 101), "a new second must write again")
}

func TestShouldWriteTickIsPerMint(t *testing.T) {
	c := NewCaches(10)
	assert.True(t, c.ShouldWriteTick("mint1", 100))
	assert.True(t, c.ShouldWriteTick("mint2", 100), "coalescing must not cross mints")
}

func TestShouldEnrichThrottlesWithinMinPeriod(t *testing.T) {
	c := NewCaches(10)
	assert.True(t, c.ShouldEnrich("mint1", 1000, 5000))
	assert.False(t, c.ShouldEnrich("mint1", 2000, 5000), "within the min period, must throttle")
	assert.True(t, c.ShouldEnrich("mint1", 6001, 5000), "past the min period, must allow again")
}

func TestTryOpenTradeEnforcesOnePerMint(t *testing.T) {
	c := NewCaches(10)
	assert.True(t, c.TryOpenTrade("mint1"))
	assert.False(t, c.TryOpenTrade("mint1"), "a second open for the same mint must be rejected")
	assert.True(t, c.IsTradeOpen("mint1"))

	c.CloseTrade("mint1")
	assert.False(t, c.IsTradeOpen("mint1"))
	assert.True(t, c.TryOpenTrade("mint1"), "after close, the mint must be claimable again")
}
