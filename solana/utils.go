package solana

import (
	"context"
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// AccountDiscriminator is the anchor account prefix sha256("account:<name>")[:8].
func AccountDiscriminator(name string) [8]byte {
	return discriminator("account", name)
}

// InstructionDiscriminator is the anchor instruction prefix sha256("global:<name>")[:8].
func InstructionDiscriminator(name string) [8]byte {
	return discriminator("global", name)
}

func discriminator(namespace, name string) [8]byte {
	hash := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}

// FindAssociatedTokenAddress derives the classic SPL token ATA of wallet for mint.
func FindAssociatedTokenAddress(wallet, mint solana.PublicKey) solana.PublicKey {
	ata, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}
	}
	return ata
}

// IsATA reports whether account is the associated token account of owner for mint.
func IsATA(owner, account, mint solana.PublicKey) bool {
	ata := FindAssociatedTokenAddress(owner, mint)
	return !ata.IsZero() && ata.Equals(account)
}

// AccountFetcher is satisfied by *rpc.Client.
type AccountFetcher interface {
	GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) (*rpc.GetMultipleAccountsResult, error)
}

func GetMultipleAccountInfo(ctx context.Context, client AccountFetcher, accounts []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	return client.GetMultipleAccounts(ctx, accounts...)
}
