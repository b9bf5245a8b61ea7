package decoder

import (
	"github.com/gagliardetto/solana-go"

	"github.com/sqoove/ghostreaver/internal/codec"
	"github.com/sqoove/ghostreaver/internal/events"
)

// SPL token / system program instruction opcodes the inference pass
// recognizes, per spec §4.5.
const (
	tokenOpTransfer        = 3
	tokenOpTransferChecked = 12
	systemOpTransfer       = 2
)

func isTransferCarrier(id solana.PublicKey) bool {
	return events.IsTokenProgram(id) || id == events.SystemProgramID
}

// inferTransfers scans the inner-instruction bucket belonging to a
// top-level (or inner) instruction starting at fromIdx, accumulating
// TransferData for every contiguous token/system transfer, and stops at
// the first instruction belonging to a different program (spec §4.5:
// "scan forward while token-program or system-program; break on first
// other program").
func inferTransfers(vector []solana.PublicKey, instrs []CompiledInstruction, fromIdx int) []events.TransferData {
	var out []events.TransferData
	for i := fromIdx; i < len(instrs); i++ {
		ix := instrs[i]
		programID := programIDAt(vector, ix.ProgramIDIndex)
		if !isTransferCarrier(programID) {
			break
		}
		if t, ok := parseTransfer(programID, vector, ix); ok {
			out = append(out, t)
		}
	}
	return out
}

func parseTransfer(programID solana.PublicKey, vector []solana.PublicKey, ix CompiledInstruction) (events.TransferData, bool) {
	accts := ResolveAccounts(vector, ix.AccountIndices)
	if len(ix.Data) == 0 {
		return events.TransferData{}, false
	}
	switch {
	case events.IsTokenProgram(programID) && ix.Data[0] == tokenOpTransferChecked:
		// accounts: source, mint, destination, authority
		if len(accts) < 4 {
			return events.TransferData{}, false
		}
		amount, ok := codec.ReadU64LE(ix.Data, 1)
		if !ok {
			return events.TransferData{}, false
		}
		decimals, _ := codec.ReadU8LE(ix.Data, 9)
		authority := accts[3]
		mint := accts[1]
		return events.TransferData{
			TokenProgram: programID,
			Source:       accts[0],
			Destination:  accts[2],
			Authority:    &authority,
			Amount:       amount,
			Decimals:     &decimals,
			Mint:         &mint,
		}, true
	case events.IsTokenProgram(programID) && ix.Data[0] == tokenOpTransfer:
		// accounts: source, destination, authority
		if len(accts) < 3 {
			return events.TransferData{}, false
		}
		amount, ok := codec.ReadU64LE(ix.Data, 1)
		if !ok {
			return events.TransferData{}, false
		}
		authority := accts[2]
		return events.TransferData{
			TokenProgram: programID,
			Source:       accts[0],
			Destination:  accts[1],
			Authority:    &authority,
			Amount:       amount,
		}, true
	case programID == events.SystemProgramID && ix.Data[0] == systemOpTransfer:
		// accounts: source, destination
		if len(accts) < 2 {
			return events.TransferData{}, false
		}
		amount, ok := codec.ReadU64LE(ix.Data, 4)
		if !ok {
			return events.TransferData{}, false
		}
		return events.TransferData{
			TokenProgram: programID,
			Source:       accts[0],
			Destination:  accts[1],
			Amount:       amount,
		}, true
	default:
		return events.TransferData{}, false
	}
}

// inferSwap matches the accumulated transfers against a protocol event's
// SwapContext (user, vaults, user token accounts) to build the SwapData
// the spec requires swap-capable events to carry (§4.5): the leg moving
// funds out of the user (or into the "from" vault) and the leg moving
// funds back (or out of the "to" vault).
func inferSwap(ev events.UnifiedEvent, transfers []events.TransferData) *events.SwapData {
	provider, ok := ev.(events.SwapContextProvider)
	if !ok {
		return nil
	}
	ctx, ok := provider.SwapContext()
	if !ok {
		return nil
	}
	swap := &events.SwapData{FromMint: ctx.FromMint, ToMint: ctx.ToMint}
	for _, t := range transfers {
		switch {
		case legMatches(t.Source, ctx.User, ctx.UserFromToken) || t.Destination == ctx.FromVault:
			if t.Amount > swap.FromAmount {
				swap.FromAmount = t.Amount
			}
		case legMatches(t.Destination, ctx.User, ctx.UserToToken) || t.Source == ctx.ToVault:
			if t.Amount > swap.ToAmount {
				swap.ToAmount = t.Amount
			}
		}
	}
	if swap.IsZero() {
		return nil
	}
	return swap
}

func legMatches(acct, user, userToken solana.PublicKey) bool {
	if !userToken.IsZero() && acct == userToken {
		return true
	}
	if !user.IsZero() && acct == user {
		return true
	}
	return false
}
