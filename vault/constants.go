package vault

import (
	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/meteora-strategy/solana"
)

// ProgramID is the Meteora dynamic vault program.
var ProgramID = solana.MustPublicKeyFromBase58("24Uqj9JCLxUeoC3hGfh5W3s9FM9uCHDS2SG3LYwBpyTi")

// BaseAddress is the base key of the permissionless vaults.
var BaseAddress = solana.MustPublicKeyFromBase58("HWzXGcGHy4tcpYfaRDCyLNzXqBTv3E6BttpCH2vJxArv")

var (
	DepositDiscriminator  = [8]byte{242, 35, 198, 137, 82, 225, 242, 182}
	WithdrawDiscriminator = [8]byte{183, 18, 70, 156, 148, 109, 161, 34}

	VaultDiscriminator = solanago.AccountDiscriminator("Vault")
)

var seed = struct {
	Vault      []byte
	TokenVault []byte
	LpMint     []byte
}{
	Vault:      []byte("vault"),
	TokenVault: []byte("token_vault"),
	LpMint:     []byte("lp_mint"),
}

const (
	VaultSize     = 1227
	MaxStrategies = 30

	// accounts of deposit and withdraw, without the program account
	DepositWithdrawAccountsLen = 7
)
