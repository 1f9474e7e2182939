package strategy

import (
	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/meteora-strategy/solana"
)

var ProgramID = solana.MustPublicKeyFromBase58("FUydjpRuVPkaWQkDSU32aKGG1qFZ4C23KiNh7b66hB79")

// BootstrapKey must co-sign the one-time configuration initialization.
var BootstrapKey = solana.MustPublicKeyFromBase58("F2yJnhaEM1KSuJYDy2DHe2oHqZep1F8NKaHTZyvFyX6S")

var seed = struct {
	SolVault       []byte
	UserState      []byte
	GlobalState    []byte
	KeeperState    []byte
	WhitelistState []byte
}{
	SolVault:       []byte("sol-vault"),
	UserState:      []byte("user-state"),
	GlobalState:    []byte("global-state"),
	KeeperState:    []byte("keeper-state"),
	WhitelistState: []byte("whitelist-state"),
}

var (
	GlobalStateDiscriminator    = solanago.AccountDiscriminator("GlobalState")
	WhitelistStateDiscriminator = solanago.AccountDiscriminator("WhitelistState")
	UserStateDiscriminator      = solanago.AccountDiscriminator("UserState")
	KeeperStateDiscriminator    = solanago.AccountDiscriminator("KeeperState")
)

var (
	InitializeConfigDiscriminator      = solanago.InstructionDiscriminator("admin_initialize_config")
	ChangeConfigDiscriminator          = solanago.InstructionDiscriminator("admin_change_config")
	WhitelistMintDiscriminator         = solanago.InstructionDiscriminator("admin_whitelist_mint")
	UnwhitelistMintDiscriminator       = solanago.InstructionDiscriminator("admin_unwhitelist_mint")
	AdminWithdrawSolDiscriminator      = solanago.InstructionDiscriminator("admin_withdraw_sol")
	AdminWithdrawTokensDiscriminator   = solanago.InstructionDiscriminator("admin_withdraw_tokens")
	CreateKeeperAccountDiscriminator   = solanago.InstructionDiscriminator("create_keeper_account")
	KeeperWithdrawRewardsDiscriminator = solanago.InstructionDiscriminator("keeper_withdraw_rewards")
	OpenPositionDiscriminator          = solanago.InstructionDiscriminator("user_create_position_from_raydium")
	DecreasePositionDiscriminator      = solanago.InstructionDiscriminator("keeper_decrease_liquidity_position")
	ClosePositionDiscriminator         = solanago.InstructionDiscriminator("user_close_position")
)

// IncreasePositionDiscriminator is the one byte prefix of the keeper
// increase entry point.
var IncreasePositionDiscriminator = []byte{1}

// Feature bits of GlobalState.State.
const (
	CanCreate   uint8 = 1 << 0
	CanIncrease uint8 = 1 << 1
	CanDecrease uint8 = 1 << 2
)

const MaxFeeBasisPoints = 10_000

// record sizes including the discriminator
const (
	GlobalStateSize    = 8 + 1 + 32 + 32 + 8 + 8 + 8 + 8 + 2 + 1 + 1
	WhitelistStateSize = 8 + 32
	UserStateSize      = 8 + 32 + 32 + 1 + 8 + 4 + 4 + 16 + 8 + 4*4 + 1 + UserStateReserved
	KeeperStateSize    = 8 + 32 + 8

	UserStateReserved = 127
)

// Remaining account layout. Offsets count the invoked program at index 0.
const (
	VaultAccountsLen = 8

	VaultProgramOffset      = 0
	VaultOffset             = 1
	VaultTokenVaultOffset   = 2
	VaultLpMintOffset       = 3
	VaultTokenAccountOffset = 4
	VaultLpAccountOffset    = 5
	VaultDepositorOffset    = 6
	VaultTokenProgramOffset = 7

	// re-marked signer in the outbound metas, which skip the program
	vaultDepositorMeta = VaultDepositorOffset - 1
)

const (
	DecreaseAccountsLen = 17

	DecreaseNftOwnerOffset         = 1
	DecreaseNftAccountOffset       = 2
	DecreasePersonalPositionOffset = 3
	DecreasePoolOffset             = 4
	DecreaseRecipient0Offset       = 10
	DecreaseRecipient1Offset       = 11
)

const (
	IncreaseAccountsLen = 16

	IncreaseNftOwnerOffset         = 1
	IncreaseNftAccountOffset       = 2
	IncreasePoolOffset             = 3
	IncreasePersonalPositionOffset = 5
	IncreaseTokenAccount0Offset    = 8
	IncreaseTokenAccount1Offset    = 9
	IncreaseTokenProgramOffset     = 12
)

const ammNftOwnerMeta = 0
