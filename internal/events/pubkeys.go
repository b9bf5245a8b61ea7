package events

import "github.com/gagliardetto/solana-go"

// Well-known program ids, grounded on original_source/src/globals/pubkeys.rs.
var (
	SystemProgramID     = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	TokenProgramID      = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID  = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	WrappedSOLMint      = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	BonkProgramID         = solana.MustPublicKeyFromBase58("LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj")
	PumpFunProgramID      = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	PumpSwapProgramID     = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
	RaydiumAMMv4ProgramID = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	RaydiumCLMMProgramID  = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	RaydiumCPMMProgramID  = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
)

// ProgramLabel returns the human label for a known DEX program id, the
// read-mostly lookup from spec §3's PROGRAMLABELS.
func ProgramLabel(id solana.PublicKey) (string, bool) {
	switch id {
	case BonkProgramID:
		return "Bonk", true
	case PumpFunProgramID:
		return "PumpFun", true
	case PumpSwapProgramID:
		return "PumpSwap", true
	case RaydiumAMMv4ProgramID:
		return "RaydiumAMM", true
	case RaydiumCLMMProgramID:
		return "RaydiumCLMM", true
	case RaydiumCPMMProgramID:
		return "RaydiumCPMM", true
	default:
		return "", false
	}
}

// ProtocolForProgram returns the Protocol enum value owning id.
func ProtocolForProgram(id solana.PublicKey) Protocol {
	switch id {
	case BonkProgramID:
		return ProtocolBonk
	case PumpFunProgramID:
		return ProtocolPumpFun
	case PumpSwapProgramID:
		return ProtocolPumpSwap
	case RaydiumAMMv4ProgramID:
		return ProtocolRaydiumAMMv4
	case RaydiumCLMMProgramID:
		return ProtocolRaydiumCLMM
	case RaydiumCPMMProgramID:
		return ProtocolRaydiumCPMM
	default:
		return ProtocolUnknown
	}
}

// IsTokenProgram reports whether id is one of the two SPL token programs.
func IsTokenProgram(id solana.PublicKey) bool {
	return id == TokenProgramID || id == Token2022ProgramID
}
