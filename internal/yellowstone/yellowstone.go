// Package yellowstone defines the wire shapes and client interfaces for
// the Yellowstone/Geyser-style gRPC stream this engine consumes:
// SubscribeRequest/SubscribeUpdate with account, transaction, block-meta
// and ping/pong payloads. GrpcClient and RpcClient are the consumed
// collaborator interfaces spec'd as external: a real deployment wires a
// generated Yellowstone gRPC stub and a Solana JSON-RPC client behind
// them, neither of which is vendored here. Grounded on the client
// relay shape in ttp-processor/go/server/server.go (a gRPC server that
// is itself a client of an upstream gRPC source).
package yellowstone

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// CommitmentLevel mirrors Geyser's three confirmation tiers.
type CommitmentLevel int

const (
	CommitmentProcessed CommitmentLevel = iota
	CommitmentConfirmed
	CommitmentFinalized
)

// SubscribeRequest selects which accounts/transactions/slots to stream,
// keyed by an opaque filter name the server echoes back isn't needed
// here since every update already carries its own payload type.
type SubscribeRequest struct {
	Accounts        map[string]AccountFilter
	Transactions    map[string]TransactionFilter
	BlockMeta       map[string]struct{}
	Commitment      CommitmentLevel
}

// AccountFilter restricts account updates to a set of owner programs
// and/or specific pubkeys.
type AccountFilter struct {
	Owners []solana.PublicKey
	Accounts []solana.PublicKey
}

// TransactionFilter restricts transaction updates to those mentioning
// the given account keys (typically the DEX program ids) and optionally
// excludes vote/failed transactions.
type TransactionFilter struct {
	AccountInclude []solana.PublicKey
	Vote           *bool
	Failed         *bool
}

// SubscribeUpdate is one item from the stream. Exactly one of the
// payload fields is populated, matching the oneof Geyser sends.
type SubscribeUpdate struct {
	Account     *AccountUpdate
	Transaction *TransactionUpdate
	BlockMeta   *BlockMetaUpdate
	Ping        *PingUpdate
	Pong        *PongUpdate
}

// AccountUpdate carries one account's post-write state.
type AccountUpdate struct {
	Slot    uint64
	Pubkey  solana.PublicKey
	Owner   solana.PublicKey
	Lamports uint64
	Data    []byte
	WriteVersion uint64
}

// TransactionUpdate carries one transaction's compiled instructions and
// execution metadata.
type TransactionUpdate struct {
	Slot              uint64
	Signature         string
	IsVote            bool
	StaticAccountKeys []solana.PublicKey
	Instructions      []CompiledInstruction
	Err               *string
	LoadedWritableAddrs []solana.PublicKey
	LoadedReadonlyAddrs []solana.PublicKey
	InnerInstructions  []InnerInstructionBucket
	BlockTime          int64
}

// CompiledInstruction and InnerInstructionBucket mirror
// internal/decoder's types at the wire boundary; the stream handler
// converts between them so internal/decoder has no dependency on the
// transport package.
type CompiledInstruction struct {
	ProgramIDIndex int
	AccountIndices []int
	Data           []byte
}

type InnerInstructionBucket struct {
	Index        int
	Instructions []CompiledInstruction
}

// BlockMetaUpdate carries one finalized block's summary.
type BlockMetaUpdate struct {
	Slot      uint64
	BlockHash string
	BlockTime int64
}

// PingUpdate/PongUpdate implement the keep-alive handshake: the server
// sends Ping periodically and expects the client to echo it as Pong on
// the request stream to keep the connection from being reaped.
type PingUpdate struct{ ID int32 }
type PongUpdate struct{ ID int32 }

// Subscription is the live handle a GrpcClient.Subscribe call returns.
type Subscription interface {
	Recv() (*SubscribeUpdate, error)
	SendPong(id int32) error
	Close() error
}

// GrpcClient is the consumed Yellowstone/Geyser collaborator.
type GrpcClient interface {
	Subscribe(ctx context.Context, req *SubscribeRequest) (Subscription, error)
	Close() error
}

// RpcClient is the consumed Solana JSON-RPC collaborator used for
// one-off reads (bootstrap pool-state fetches, health pings) the stream
// doesn't otherwise surface.
type RpcClient interface {
	GetHealth(ctx context.Context) error
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) ([]byte, uint64, error)
	GetLatestSlot(ctx context.Context) (uint64, error)
}
