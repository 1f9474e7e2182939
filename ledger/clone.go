package ledger

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/meteora-strategy/solana"
)

// maxAccountsPerRequest is the getMultipleAccounts limit of public RPC nodes.
const maxAccountsPerRequest = 100

// CloneAccounts copies the current state of keys from a cluster into the
// ledger. Missing accounts are skipped; the number cloned is returned.
func (l *Ledger) CloneAccounts(ctx context.Context, fetcher solanago.AccountFetcher, keys []solana.PublicKey) (int, error) {
	cloned := 0
	for start := 0; start < len(keys); start += maxAccountsPerRequest {
		end := min(start+maxAccountsPerRequest, len(keys))
		batch := keys[start:end]
		out, err := solanago.GetMultipleAccountInfo(ctx, fetcher, batch)
		if err != nil {
			return cloned, fmt.Errorf("failed to fetch accounts: %w", err)
		}
		if len(out.Value) != len(batch) {
			return cloned, fmt.Errorf("failed to fetch accounts: expected %d results, got %d", len(batch), len(out.Value))
		}
		for i, acc := range out.Value {
			if acc == nil {
				l.log.Debug("ledger: clone skipped missing account", "account", batch[i])
				continue
			}
			var data []byte
			if acc.Data != nil {
				data = acc.Data.GetBinary()
			}
			l.SetAccount(batch[i], &Account{
				Lamports:   acc.Lamports,
				Owner:      acc.Owner,
				Data:       data,
				Executable: acc.Executable,
			})
			cloned++
		}
	}
	l.log.Info("ledger: cloned accounts", "requested", len(keys), "cloned", cloned)
	return cloned, nil
}
