package clmm

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

func DerivePoolAddress(ammConfig, tokenMint0, tokenMint1 solana.PublicKey) (solana.PublicKey, uint8) {
	pub, bump, _ := solana.FindProgramAddress([][]byte{
		[]byte(PoolSeed),
		ammConfig.Bytes(),
		tokenMint0.Bytes(),
		tokenMint1.Bytes(),
	}, ProgramID)
	return pub, bump
}

func DerivePoolVaultAddress(pool, tokenMint solana.PublicKey) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{[]byte(PoolVaultSeed), pool.Bytes(), tokenMint.Bytes()}, ProgramID)
	return pub
}

func DeriveObservationAddress(pool solana.PublicKey) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{[]byte(ObservationSeed), pool.Bytes()}, ProgramID)
	return pub
}

// DerivePersonalPositionAddress is keyed by the position NFT mint.
func DerivePersonalPositionAddress(nftMint solana.PublicKey) (solana.PublicKey, uint8) {
	pub, bump, _ := solana.FindProgramAddress([][]byte{[]byte(PositionSeed), nftMint.Bytes()}, ProgramID)
	return pub, bump
}

func DeriveProtocolPositionAddress(pool solana.PublicKey, tickLower, tickUpper int32) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{
		[]byte(PositionSeed),
		pool.Bytes(),
		i32BE(tickLower),
		i32BE(tickUpper),
	}, ProgramID)
	return pub
}

func DeriveTickArrayAddress(pool solana.PublicKey, startIndex int32) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{[]byte(TickArraySeed), pool.Bytes(), i32BE(startIndex)}, ProgramID)
	return pub
}

func DeriveTickArrayBitmapExtension(pool solana.PublicKey) solana.PublicKey {
	pub, _, _ := solana.FindProgramAddress([][]byte{[]byte(BitmapExtensionSeed), pool.Bytes()}, ProgramID)
	return pub
}

// TickArrayStartIndex returns the start of the 60 tick array containing tick.
func TickArrayStartIndex(tick int32, tickSpacing uint16) int32 {
	span := int32(tickSpacing) * 60
	start := tick / span
	if tick < 0 && tick%span != 0 {
		start--
	}
	return start * span
}

func i32BE(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}
