package strategy

import (
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/meteora-strategy/clmm"
	"github.com/krazyTry/meteora-strategy/vault"
)

// DecreaseRemainingAccounts lays out the vault deposit and AMM decrease
// accounts in the order keeper_decrease_position reads them. The position
// record is the AMM NFT owner and is written by the program.
func DecreaseRemainingAccounts(deposit *vault.Accounts, decrease *clmm.DecreaseLiquidityV2Accounts) solana.AccountMetaSlice {
	metas := remainingMetas(vault.ProgramID, deposit.Metas())
	metas = append(metas, remainingMetas(clmm.ProgramID, decrease.Metas())...)
	metas[VaultAccountsLen+DecreaseNftOwnerOffset].IsWritable = true
	return metas
}

// IncreaseRemainingAccounts lays out the vault withdraw and AMM increase
// accounts for keeper_increase_position and close_position. The custody
// account is writable because its owner is handed over around the AMM call.
func IncreaseRemainingAccounts(withdraw *vault.Accounts, increase *clmm.IncreaseLiquidityV2Accounts) solana.AccountMetaSlice {
	metas := remainingMetas(vault.ProgramID, withdraw.Metas())
	metas = append(metas, remainingMetas(clmm.ProgramID, increase.Metas())...)
	metas[VaultAccountsLen+IncreaseNftAccountOffset].IsWritable = true
	return metas
}

// remainingMetas prefixes metas with the program account and clears the
// signer flags, the strategy program signs for those accounts itself.
func remainingMetas(program solana.PublicKey, metas solana.AccountMetaSlice) solana.AccountMetaSlice {
	out := make(solana.AccountMetaSlice, 0, len(metas)+1)
	out = append(out, solana.Meta(program))
	for _, m := range metas {
		out = append(out, &solana.AccountMeta{PublicKey: m.PublicKey, IsWritable: m.IsWritable})
	}
	return out
}
