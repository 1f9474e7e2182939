package strategy

import "github.com/gagliardetto/solana-go"

func DeriveGlobalStateAddress() (solana.PublicKey, uint8) {
	pub, bump, _ := solana.FindProgramAddress([][]byte{seed.GlobalState}, ProgramID)
	return pub, bump
}

// DeriveSolVaultAddress is the lamport vault keepers are paid from.
func DeriveSolVaultAddress() (solana.PublicKey, uint8) {
	pub, bump, _ := solana.FindProgramAddress([][]byte{seed.SolVault}, ProgramID)
	return pub, bump
}

// DeriveUserStateAddress is keyed by the position NFT mint.
func DeriveUserStateAddress(nftMint solana.PublicKey) (solana.PublicKey, uint8) {
	pub, bump, _ := solana.FindProgramAddress([][]byte{seed.UserState, nftMint.Bytes()}, ProgramID)
	return pub, bump
}

func DeriveKeeperStateAddress(keeper solana.PublicKey) (solana.PublicKey, uint8) {
	pub, bump, _ := solana.FindProgramAddress([][]byte{seed.KeeperState, keeper.Bytes()}, ProgramID)
	return pub, bump
}

func DeriveWhitelistStateAddress(mint solana.PublicKey) (solana.PublicKey, uint8) {
	pub, bump, _ := solana.FindProgramAddress([][]byte{seed.WhitelistState, mint.Bytes()}, ProgramID)
	return pub, bump
}
