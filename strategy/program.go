package strategy

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/krazyTry/meteora-strategy/ledger"
)

var ErrAccountOwner = errors.New("strategy: account owned by the wrong program")

// Program is the strategy program as registered with a ledger.
type Program struct{}

func (Program) ProgramID() solana.PublicKey { return ProgramID }

type route struct {
	name          string
	discriminator []byte
	accounts      int
	handle        func(c *call) error
}

var routes = []route{
	{"initialize_config", InitializeConfigDiscriminator[:], 5, initializeConfig},
	{"change_config", ChangeConfigDiscriminator[:], 3, changeConfig},
	{"whitelist_mint", WhitelistMintDiscriminator[:], 5, whitelistMint},
	{"unwhitelist_mint", UnwhitelistMintDiscriminator[:], 4, unwhitelistMint},
	{"admin_withdraw_sol", AdminWithdrawSolDiscriminator[:], 4, adminWithdrawSol},
	{"admin_withdraw_tokens", AdminWithdrawTokensDiscriminator[:], 6, adminWithdrawTokens},
	{"create_keeper_account", CreateKeeperAccountDiscriminator[:], 4, createKeeperAccount},
	{"keeper_withdraw_rewards", KeeperWithdrawRewardsDiscriminator[:], 5, keeperWithdrawRewards},
	{"open_position", OpenPositionDiscriminator[:], 14, openPosition},
	{"keeper_decrease_position", DecreasePositionDiscriminator[:], 2, keeperDecreasePosition},
	{"close_position", ClosePositionDiscriminator[:], 6, closePosition},
	// matched last, the eight byte prefixes never start with it
	{"keeper_increase_position", IncreasePositionDiscriminator, 3, keeperIncreasePosition},
}

func (Program) Process(ic *ledger.InvokeContext) error {
	data := ic.Data()
	for _, r := range routes {
		if !bytes.HasPrefix(data, r.discriminator) {
			continue
		}
		metas := ic.Accounts()
		if len(metas) < r.accounts {
			return fmt.Errorf("%s: %w: %d of %d accounts", r.name, ledger.ErrMissingAccount, len(metas), r.accounts)
		}
		ic.Log("Instruction: " + r.name)
		c := &call{
			ic:        ic,
			accounts:  metas[:r.accounts],
			remaining: metas[r.accounts:],
			args:      data[len(r.discriminator):],
		}
		return r.handle(c)
	}
	return fmt.Errorf("%w: unknown instruction", ledger.ErrInvalidInstructionData)
}

// call is one instruction being executed: its fixed accounts, the remaining
// accounts after them and the argument bytes.
type call struct {
	ic        *ledger.InvokeContext
	accounts  []*solana.AccountMeta
	remaining []*solana.AccountMeta
	args      []byte
}

func (c *call) key(i int) solana.PublicKey { return c.accounts[i].PublicKey }

func (c *call) decode(v any) error {
	if err := bin.NewBorshDecoder(c.args).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidInstructionData, err)
	}
	return nil
}

func (c *call) requireSigner(key solana.PublicKey) error {
	if !c.ic.IsSigner(key) {
		return fmt.Errorf("%w: %s", ledger.ErrMissingRequiredSignature, key)
	}
	return nil
}

// owned returns the account data of key after checking the program owns it.
func (c *call) owned(key solana.PublicKey) ([]byte, error) {
	a, err := c.ic.Account(key)
	if err != nil {
		return nil, err
	}
	if !a.Owner.Equals(c.ic.ProgramID()) {
		return nil, fmt.Errorf("%w: %s", ErrAccountOwner, key)
	}
	return a.Data, nil
}

// globalState loads the configuration from key, which must be the canonical
// global state address.
func (c *call) globalState(key solana.PublicKey) (*GlobalState, authority, error) {
	expected, _ := DeriveGlobalStateAddress()
	if !key.Equals(expected) {
		return nil, authority{}, fmt.Errorf("%w: %s", ErrInvalidGlobalStateAccount, key)
	}
	data, err := c.owned(key)
	if err != nil {
		return nil, authority{}, errors.Join(ErrInvalidGlobalStateAccount, err)
	}
	g, err := DecodeGlobalState(data)
	if err != nil {
		return nil, authority{}, errors.Join(ErrInvalidGlobalStateAccount, err)
	}
	signer, err := g.signer(c.ic.ProgramID())
	if err != nil {
		return nil, authority{}, err
	}
	return g, signer, nil
}

// requireAdmin checks that admin signed and is the configured admin.
func (c *call) requireAdmin(g *GlobalState, admin solana.PublicKey) error {
	if err := c.requireSigner(admin); err != nil {
		return err
	}
	if !admin.Equals(g.Admin) {
		return ErrUnauthorizedAction
	}
	return nil
}

// userState loads a position record and checks its address against the
// seeds it stores.
func (c *call) userState(key solana.PublicKey) (*UserState, authority, error) {
	data, err := c.owned(key)
	if err != nil {
		return nil, authority{}, errors.Join(ErrInvalidUserStateAccount, err)
	}
	u, err := DecodeUserState(data)
	if err != nil {
		return nil, authority{}, errors.Join(ErrInvalidUserStateAccount, err)
	}
	signer, err := u.signer(c.ic.ProgramID())
	if err != nil || !signer.Key().Equals(key) {
		return nil, authority{}, fmt.Errorf("%w: %s", ErrInvalidUserStateAccount, key)
	}
	return u, signer, nil
}

// keeperState loads the keeper record and checks keeper signed for it.
func (c *call) keeperState(key, keeper solana.PublicKey) (*KeeperState, error) {
	data, err := c.owned(key)
	if err != nil {
		return nil, err
	}
	k, err := DecodeKeeperState(data)
	if err != nil {
		return nil, err
	}
	if err := c.requireSigner(keeper); err != nil {
		return nil, err
	}
	if !k.Keeper.Equals(keeper) {
		return nil, ErrUnauthorizedAction
	}
	return k, nil
}

func (c *call) store(key solana.PublicKey, data []byte) error {
	a, err := c.ic.Account(key)
	if err != nil {
		return err
	}
	a.Data = data
	return nil
}

// createAccount allocates a rent-exempt account of size bytes owned by the
// program at the address of pda.
func (c *call) createAccount(payer solana.PublicKey, pda authority, size int) error {
	ix := system.NewCreateAccountInstruction(
		ledger.MinimumBalance(size),
		uint64(size),
		c.ic.ProgramID(),
		payer,
		pda.Key(),
	).Build()
	return pda.invoke(c.ic, ix)
}

// closeAccount moves every lamport of key to destination and releases the
// account.
func (c *call) closeAccount(key, destination solana.PublicKey) error {
	a, err := c.ic.Account(key)
	if err != nil {
		return err
	}
	dst, err := c.ic.Account(destination)
	if err != nil {
		return err
	}
	credited := dst.Lamports + a.Lamports
	if credited < dst.Lamports {
		return ledger.ErrArithmeticOverflow
	}
	dst.Lamports = credited
	a.Lamports = 0
	a.Data = nil
	a.Owner = solana.SystemProgramID
	return nil
}

// payOut moves lamports out of a program owned account, keeping it rent
// exempt.
func (c *call) payOut(from, to solana.PublicKey, lamports uint64) error {
	src, err := c.ic.Account(from)
	if err != nil {
		return err
	}
	dst, err := c.ic.Account(to)
	if err != nil {
		return err
	}
	reserve := ledger.MinimumBalance(len(src.Data))
	if src.Lamports < reserve || src.Lamports-reserve < lamports {
		return fmt.Errorf("%w: %s holds %d lamports", ledger.ErrInsufficientFunds, from, src.Lamports)
	}
	credited := dst.Lamports + lamports
	if credited < dst.Lamports {
		return ledger.ErrArithmeticOverflow
	}
	src.Lamports -= lamports
	dst.Lamports = credited
	return nil
}
