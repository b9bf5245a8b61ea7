package events

import "github.com/gagliardetto/solana-go"

// AccountInput is the minimal view of an account update a protocol's
// account-layout parser needs; it is independent of the streaming wire
// format so parser packages never import internal/yellowstone.
type AccountInput struct {
	Pubkey solana.PublicKey
	Owner  solana.PublicKey
	Data   []byte
	Slot   uint64
}

// InstructionParser decodes a top-level or inner compiled instruction's
// payload plus its resolved account keys into a concrete event.
type InstructionParser func(data []byte, accounts []solana.PublicKey, meta EventMetadata) (UnifiedEvent, bool)

// InnerParser decodes the payload of an inner instruction located by its
// discriminator hex string (see DiscHex), given the bytes after the
// discriminator.
type InnerParser func(dataAfterDisc []byte, meta EventMetadata) (UnifiedEvent, bool)

// AccountParser decodes an account update keyed by its leading
// discriminator bytes.
type AccountParser func(account AccountInput, meta EventMetadata) (UnifiedEvent, bool)

// ParseConfig is one entry in a protocol's instruction table: it names
// the owning program/protocol/event-type and the function that attempts
// the decode. Dispatcher only invokes Parser when ProgramID matches the
// instruction's actual program id (the tie-break rule in spec §4.2).
type ParseConfig struct {
	ProgramID solana.PublicKey
	Protocol  Protocol
	EventType EventType
	Parser    InstructionParser
}

// InnerParseConfig mirrors ParseConfig for the inner-instruction table.
type InnerParseConfig struct {
	ProgramID solana.PublicKey
	Protocol  Protocol
	EventType EventType
	Parser    InnerParser
}

// AccountParseConfig mirrors ParseConfig for the account-layout table.
type AccountParseConfig struct {
	ProgramID solana.PublicKey
	Protocol  Protocol
	EventType EventType
	Parser    AccountParser
}

// InstructionTable maps an instruction discriminator (its raw byte
// prefix, stringified as a fixed-width hex key) to the configs that may
// match it.
type InstructionTable map[string][]ParseConfig

// InnerTable maps the hex of the first 16 bytes of a base58-decoded
// inner-instruction payload to the configs that may match it.
type InnerTable map[string][]InnerParseConfig

// AccountTable maps an account-data discriminator (>=8 bytes) to the
// single config responsible for that account layout.
type AccountTable map[string]AccountParseConfig

// ProtocolParser is what each internal/events/<protocol> package exposes
// to the dispatcher.
type ProtocolParser interface {
	Protocol() Protocol
	ProgramID() solana.PublicKey
	InstructionTable() InstructionTable
	InnerTable() InnerTable
	AccountTable() AccountTable
}
