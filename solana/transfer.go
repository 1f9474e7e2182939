package solana

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// TransferInstruction moves amount of mint between two token accounts owned
// (or delegated) by authority.
func TransferInstruction(
	authority solana.PublicKey,
	source solana.PublicKey,
	destination solana.PublicKey,
	mint solana.PublicKey,
	decimals uint8,
	amount uint64,
) solana.Instruction {
	return token.NewTransferCheckedInstruction(
		amount,
		decimals,
		source,
		mint,
		destination,
		authority,
		[]solana.PublicKey{},
	).Build()
}

// SetOwnerInstruction hands the AccountOwner authority of a token account to newOwner.
func SetOwnerInstruction(account, currentOwner, newOwner solana.PublicKey) solana.Instruction {
	return token.NewSetAuthorityInstruction(
		token.AuthorityAccountOwner,
		newOwner,
		account,
		currentOwner,
		[]solana.PublicKey{},
	).Build()
}

func CloseAccountInstruction(account, destination, owner solana.PublicKey) solana.Instruction {
	return token.NewCloseAccountInstruction(
		account,
		destination,
		owner,
		[]solana.PublicKey{},
	).Build()
}

func TransferSOLInstruction(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, to).Build()
}
