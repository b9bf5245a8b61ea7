// Package codec holds the little-endian byte readers and discriminator
// helpers every protocol parser in internal/events/* builds on. Every
// function here fails silently (returns ok=false) instead of panicking,
// so a malformed instruction can never bring down the decoder.
package codec

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/big"

	"github.com/mr-tron/base58"
)

// AnchorDiscriminator reproduces the standard Anchor 8-byte discriminator:
// sha256(namespace + ":" + name)[:8]. Instruction discriminators use
// namespace "global"; account discriminators use "account".
func AnchorDiscriminator(namespace, name string) []byte {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	return h[:8]
}

// DiscHex returns the hex key used to index a discriminator table: the
// first n bytes of buf, or every byte available if buf is shorter.
func DiscHex(buf []byte, n int) string {
	if len(buf) < n {
		n = len(buf)
	}
	return hex.EncodeToString(buf[:n])
}

// ReadU8LE reads a single byte at off.
func ReadU8LE(buf []byte, off int) (uint8, bool) {
	if off < 0 || off+1 > len(buf) {
		return 0, false
	}
	return buf[off], true
}

// ReadU32LE reads a little-endian uint32 at off.
func ReadU32LE(buf []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf[off : off+4]), true
}

// ReadU64LE reads a little-endian uint64 at off.
func ReadU64LE(buf []byte, off int) (uint64, bool) {
	if off < 0 || off+8 > len(buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(buf[off : off+8]), true
}

// ReadU128LE reads a little-endian uint128 at off, returned as a big.Int
// since Go has no native 128-bit integer.
func ReadU128LE(buf []byte, off int) (*big.Int, bool) {
	if off < 0 || off+16 > len(buf) {
		return nil, false
	}
	le := make([]byte, 16)
	copy(le, buf[off:off+16])
	// big.Int.SetBytes wants big-endian.
	for i, j := 0, len(le)-1; i < j; i, j = i+1, j-1 {
		le[i], le[j] = le[j], le[i]
	}
	return new(big.Int).SetBytes(le), true
}

// DiscMatches reports whether prefix starts with expected.
func DiscMatches(prefix, expected []byte) bool {
	if len(prefix) < len(expected) {
		return false
	}
	for i := range expected {
		if prefix[i] != expected[i] {
			return false
		}
	}
	return true
}

// AccountIndicesValid reports whether every index in indices addresses a
// slot within an account vector of length n.
func AccountIndicesValid(indices []int, n int) bool {
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return false
		}
	}
	return true
}

// DecodeBase58 wraps base58 decoding so callers get an empty (not nil)
// buffer on failure rather than having to branch on an error, matching
// the "fails silently" contract of the rest of this package.
func DecodeBase58(s string) []byte {
	b, err := base58.Decode(s)
	if err != nil {
		return []byte{}
	}
	return b
}

// EncodeBase58 is the inverse of DecodeBase58, used when stamping
// synthetic ids and logging keys.
func EncodeBase58(b []byte) string {
	return base58.Encode(b)
}
