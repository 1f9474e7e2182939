package vault

import "github.com/gagliardetto/solana-go"

func DeriveVaultAddress(tokenMint, base solana.PublicKey) (solana.PublicKey, uint8) {
	pub, bump, _ := solana.FindProgramAddress([][]byte{seed.Vault, tokenMint.Bytes(), base.Bytes()}, ProgramID)
	return pub, bump
}

func DeriveTokenVaultAddress(vault solana.PublicKey) (solana.PublicKey, uint8) {
	pub, bump, _ := solana.FindProgramAddress([][]byte{seed.TokenVault, vault.Bytes()}, ProgramID)
	return pub, bump
}

func DeriveLpMintAddress(vault solana.PublicKey) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{seed.LpMint, vault.Bytes()}, ProgramID)
	return pub
}
