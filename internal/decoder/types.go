package decoder

import "github.com/gagliardetto/solana-go"

// CompiledInstruction is a single packed instruction referencing accounts
// by index into the transaction's flattened account vector.
type CompiledInstruction struct {
	ProgramIDIndex int
	AccountIndices []int
	Data           []byte
}

// InnerInstructionBucket groups the inner instructions emitted during
// execution of the top-level instruction at Index.
type InnerInstructionBucket struct {
	Index        int
	Instructions []CompiledInstruction
}

// Meta is the subset of transaction execution metadata the decoder
// needs: whether it failed, loaded address-table accounts, and the
// inner-instruction buckets.
type Meta struct {
	Err                   *string
	LoadedWritableAddrs   []solana.PublicKey
	LoadedReadonlyAddrs   []solana.PublicKey
	InnerInstructions     []InnerInstructionBucket
}

// Failed reports whether the transaction execution failed, per spec §4.4
// step 2.
func (m *Meta) Failed() bool { return m != nil && m.Err != nil }

// EncodedTransaction is the decoder's input: a compiled transaction plus
// its metadata, signature and slot/time stamps.
type EncodedTransaction struct {
	Signature          string
	Slot               uint64
	BlockTime          int64
	BlockTimeMs        int64
	ProgramReceivedMs  int64
	StaticAccountKeys  []solana.PublicKey
	Instructions       []CompiledInstruction
	Meta               *Meta
}

// AccountVector assembles static ++ loaded-writable ++ loaded-readonly
// keys, per spec §4.4 step 3. The vector itself is not padded; indices
// beyond it are zero-extended with default keys by ResolveAccounts and
// programIDAt, so the decoder never panics on sparse indices (spec's
// edge-case note).
func (tx *EncodedTransaction) AccountVector() []solana.PublicKey {
	accounts := make([]solana.PublicKey, 0, len(tx.StaticAccountKeys))
	accounts = append(accounts, tx.StaticAccountKeys...)
	if tx.Meta != nil {
		accounts = append(accounts, tx.Meta.LoadedWritableAddrs...)
		accounts = append(accounts, tx.Meta.LoadedReadonlyAddrs...)
	}
	return accounts
}

// ResolveAccounts maps instruction account indices to keys, zero-
// extending the vector for sparse/out-of-range indices rather than
// panicking.
func ResolveAccounts(vector []solana.PublicKey, indices []int) []solana.PublicKey {
	out := make([]solana.PublicKey, len(indices))
	for i, idx := range indices {
		if idx >= 0 && idx < len(vector) {
			out[i] = vector[idx]
		} // else: zero-value PublicKey, the "zero-extend" behavior.
	}
	return out
}

func programIDAt(vector []solana.PublicKey, idx int) solana.PublicKey {
	if idx < 0 || idx >= len(vector) {
		return solana.PublicKey{}
	}
	return vector[idx]
}
