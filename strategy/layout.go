package strategy

import (
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/meteora-strategy/clmm"
	"github.com/krazyTry/meteora-strategy/ledger"
)

// vaultAccounts is the deposit or withdraw account list of the vault
// program, led by the program account.
type vaultAccounts []*solana.AccountMeta

func (v vaultAccounts) lpMint() solana.PublicKey       { return v[VaultLpMintOffset].PublicKey }
func (v vaultAccounts) tokenAccount() solana.PublicKey { return v[VaultTokenAccountOffset].PublicKey }
func (v vaultAccounts) lpAccount() solana.PublicKey    { return v[VaultLpAccountOffset].PublicKey }
func (v vaultAccounts) depositor() solana.PublicKey    { return v[VaultDepositorOffset].PublicKey }

// decreaseAccounts is the decrease_liquidity_v2 account list led by the AMM
// program, followed by reward triples and the optional bitmap extension.
type decreaseAccounts []*solana.AccountMeta

func (d decreaseAccounts) nftOwner() solana.PublicKey { return d[DecreaseNftOwnerOffset].PublicKey }
func (d decreaseAccounts) personalPosition() solana.PublicKey {
	return d[DecreasePersonalPositionOffset].PublicKey
}
func (d decreaseAccounts) pool() solana.PublicKey       { return d[DecreasePoolOffset].PublicKey }
func (d decreaseAccounts) recipient0() solana.PublicKey { return d[DecreaseRecipient0Offset].PublicKey }
func (d decreaseAccounts) recipient1() solana.PublicKey { return d[DecreaseRecipient1Offset].PublicKey }

// rewardRecipients returns the middle account of every reward triple. The
// bitmap extension of the pool may sit anywhere in the tail and is skipped.
func (d decreaseAccounts) rewardRecipients() []solana.PublicKey {
	bitmap := clmm.DeriveTickArrayBitmapExtension(d.pool())
	var tail []solana.PublicKey
	for _, m := range d[DecreaseAccountsLen:] {
		if m.PublicKey.Equals(bitmap) {
			continue
		}
		tail = append(tail, m.PublicKey)
	}
	var out []solana.PublicKey
	for i := 1; i < len(tail); i += 3 {
		out = append(out, tail[i])
	}
	return out
}

// increaseAccounts is the increase_liquidity_v2 account list led by the AMM
// program.
type increaseAccounts []*solana.AccountMeta

func (a increaseAccounts) nftOwner() solana.PublicKey   { return a[IncreaseNftOwnerOffset].PublicKey }
func (a increaseAccounts) nftAccount() solana.PublicKey { return a[IncreaseNftAccountOffset].PublicKey }
func (a increaseAccounts) pool() solana.PublicKey       { return a[IncreasePoolOffset].PublicKey }
func (a increaseAccounts) tokenAccount0() solana.PublicKey {
	return a[IncreaseTokenAccount0Offset].PublicKey
}
func (a increaseAccounts) tokenAccount1() solana.PublicKey {
	return a[IncreaseTokenAccount1Offset].PublicKey
}
func (a increaseAccounts) tokenProgram() solana.PublicKey {
	return a[IncreaseTokenProgramOffset].PublicKey
}

func splitDecrease(remaining []*solana.AccountMeta) (vaultAccounts, decreaseAccounts, error) {
	if len(remaining) < VaultAccountsLen+DecreaseAccountsLen {
		return nil, nil, ErrMissingRaydiumOrMeteoraAccounts
	}
	return vaultAccounts(remaining[:VaultAccountsLen]), decreaseAccounts(remaining[VaultAccountsLen:]), nil
}

func splitIncrease(remaining []*solana.AccountMeta) (vaultAccounts, increaseAccounts, error) {
	if len(remaining) < VaultAccountsLen+IncreaseAccountsLen {
		return nil, nil, ErrMissingRaydiumOrMeteoraAccounts
	}
	return vaultAccounts(remaining[:VaultAccountsLen]), increaseAccounts(remaining[VaultAccountsLen : VaultAccountsLen+IncreaseAccountsLen]), nil
}

// outboundMetas drops the leading program account and rebuilds the metas
// with the privileges the accounts hold in the current frame. The account at
// signer is marked as a signer; the caller signs for it with seeds.
func outboundMetas(ic *ledger.InvokeContext, accounts []*solana.AccountMeta, signer int) solana.AccountMetaSlice {
	out := make(solana.AccountMetaSlice, 0, len(accounts)-1)
	for i, m := range accounts[1:] {
		out = append(out, &solana.AccountMeta{
			PublicKey:  m.PublicKey,
			IsWritable: ic.IsWritable(m.PublicKey),
			IsSigner:   i == signer || ic.IsSigner(m.PublicKey),
		})
	}
	return out
}
