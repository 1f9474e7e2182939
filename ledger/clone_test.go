package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	accounts map[solana.PublicKey]*rpc.Account
	calls    int
	err      error
}

func (f *fakeFetcher) GetMultipleAccounts(_ context.Context, keys ...solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := &rpc.GetMultipleAccountsResult{}
	for _, key := range keys {
		out.Value = append(out.Value, f.accounts[key])
	}
	return out, nil
}

func TestCloneAccounts(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	owner := solana.NewWallet().PublicKey()
	present := solana.NewWallet().PublicKey()
	missing := solana.NewWallet().PublicKey()
	fetcher := &fakeFetcher{accounts: map[solana.PublicKey]*rpc.Account{
		present: {Lamports: 5 * sol, Owner: owner, Data: rpc.DataBytesOrJSONFromBytes([]byte{1, 2, 3})},
	}}

	keys := []solana.PublicKey{present, missing}
	for range maxAccountsPerRequest {
		keys = append(keys, solana.NewWallet().PublicKey())
	}
	cloned, err := l.CloneAccounts(context.Background(), fetcher, keys)
	require.NoError(t, err)
	require.Equal(t, 1, cloned)
	require.Equal(t, 2, fetcher.calls)

	acc, ok := l.Account(present)
	require.True(t, ok)
	require.Equal(t, uint64(5*sol), acc.Lamports)
	require.Equal(t, owner, acc.Owner)
	require.Equal(t, []byte{1, 2, 3}, acc.Data)
	_, ok = l.Account(missing)
	require.False(t, ok)

	fetcher.err = errors.New("rpc down")
	_, err = l.CloneAccounts(context.Background(), fetcher, []solana.PublicKey{present})
	require.ErrorContains(t, err, "rpc down")
}
