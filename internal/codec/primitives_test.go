package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadU64LE(t *testing.T) {
	buf := []byte{0xff, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	v, ok := ReadU64LE(buf, 1)
	assert.True(t, ok)
	assert.Equal(t, uint64(0x0706050403020100), v)

	_, ok = ReadU64LE(buf, 2)
	assert.False(t, ok, "short read should fail rather than panic")
}

func TestReadU128LE(t *testing.T) {
	buf := make([]byte, 16)
	buf[0] = 0x01
	buf[1] = 0x02
	v, ok := ReadU128LE(buf, 0)
	assert.True(t, ok)
	assert.Equal(t, "513", v.String()) // 0x0201 little-endian = 513
}

func TestDiscHex(t *testing.T) {
	buf := []byte{0xde, 0xad, 0xbe, 0xef}
	assert.Equal(t, "deadbeef", DiscHex(buf, 4))
	assert.Equal(t, "dead", DiscHex(buf, 2))
	assert.Equal(t, "deadbeef", DiscHex(buf, 10), "n beyond len clamps to len")
}

func TestAnchorDiscriminator(t *testing.T) {
	d1 := AnchorDiscriminator("global", "buy")
	d2 := AnchorDiscriminator("global", "buy")
	d3 := AnchorDiscriminator("global", "sell")
	assert.Equal(t, d1, d2, "discriminator must be deterministic")
	assert.NotEqual(t, d1, d3)
	assert.Len(t, d1, 8)
}

func TestDiscMatches(t *testing.T) {
	assert.True(t, DiscMatches([]byte{1, 2, 3, 4}, []byte{1, 2}))
	assert.False(t, DiscMatches([]byte{1, 2}, []byte{1, 2, 3}))
}

func TestAccountIndicesValid(t *testing.T) {
	assert.True(t, AccountIndicesValid([]int{0, 1, 2}, 3))
	assert.False(t, AccountIndicesValid([]int{0, 3}, 3))
	assert.False(t, AccountIndicesValid([]int{-1}, 3))
}

func TestDecodeBase58RoundTrip(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5}
	enc := EncodeBase58(raw)
	dec := DecodeBase58(enc)
	assert.Equal(t, raw, dec)
}

func TestDecodeBase58Invalid(t *testing.T) {
	assert.Equal(t, []byte{}, DecodeBase58("not-valid-base58-!!!"))
}
