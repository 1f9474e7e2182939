package clmm

import (
	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/meteora-strategy/solana"
)

var ProgramID = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")

var (
	DecreaseLiquidityV2Discriminator = [8]byte{58, 127, 188, 62, 79, 82, 196, 96}
	IncreaseLiquidityV2Discriminator = [8]byte{133, 29, 89, 223, 69, 238, 176, 10}

	PoolStateDiscriminator             = solanago.AccountDiscriminator("PoolState")
	PersonalPositionStateDiscriminator = solanago.AccountDiscriminator("PersonalPositionState")
)

const (
	PoolSeed            = "pool"
	PositionSeed        = "position"
	TickArraySeed       = "tick_array"
	BitmapExtensionSeed = "pool_tick_array_bitmap_extension"
	ObservationSeed     = "observation"
	PoolVaultSeed       = "pool_vault"
)

const (
	PoolStateSize             = 1544
	PersonalPositionStateSize = 281

	// byte offsets including the 8 byte discriminator
	PoolTokenMint0Offset   = 73
	PoolTokenMint1Offset   = 105
	PoolTickCurrentOffset  = 269
	PositionNftMintOffset  = 9
	PositionPoolIDOffset   = 41
	PositionLiquidityOffset = 81

	MinTick = -443636
	MaxTick = 443636

	// account counts without the program account
	DecreaseLiquidityV2AccountsLen = 16
	IncreaseLiquidityV2AccountsLen = 15
)
