package strategy

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/meteora-strategy/solana"
)

// Instruction is a strategy program instruction ready to be placed in a
// transaction.
type Instruction struct {
	discriminator []byte
	args          any
	solana.AccountMetaSlice
}

func (inst *Instruction) ProgramID() solana.PublicKey { return ProgramID }

func (inst *Instruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice
}

func (inst *Instruction) Data() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(inst.discriminator)+64))
	buf.Write(inst.discriminator)
	switch args := inst.args.(type) {
	case nil:
	case *ChangeConfigArgs:
		if err := args.Change.encode(bin.NewBorshEncoder(buf)); err != nil {
			return nil, fmt.Errorf("failed to encode config change: %w", err)
		}
	default:
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, fmt.Errorf("failed to encode args: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func newInstruction(disc []byte, args any, metas solana.AccountMetaSlice) *Instruction {
	return &Instruction{discriminator: disc, args: args, AccountMetaSlice: metas}
}

type InitializeConfigArgs struct {
	State              uint8
	CreditsForDecrease uint64
	CreditsForIncrease uint64
	SolPerCredit       uint64
	BaseDeposit        uint64
	FeeBasisPoints     uint16
}

// NewInitializeConfigInstruction creates the global state and the SOL vault.
// The bootstrap key must co-sign.
func NewInitializeConfigInstruction(admin solana.PublicKey, args InitializeConfigArgs) *Instruction {
	globalState, _ := DeriveGlobalStateAddress()
	solVault, _ := DeriveSolVaultAddress()
	return newInstruction(InitializeConfigDiscriminator[:], &args, solana.AccountMetaSlice{
		solana.Meta(globalState).WRITE(),
		solana.Meta(solVault).WRITE(),
		solana.Meta(BootstrapKey).SIGNER(),
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	})
}

type ConfigChangeKind uint8

const (
	ChangeCreditsForDecrease ConfigChangeKind = iota
	ChangeCreditsForIncrease
	ChangeSolPerCredit
	ChangeBaseDeposit
	ChangeFeeBasisPoints
	ChangeStateBit
	ChangeAdmin
)

// ConfigChange is one edit of the global state. Value carries the amount of
// the numeric kinds.
type ConfigChange struct {
	Kind  ConfigChangeKind
	Value uint64
	Bit   uint8
	Set   bool
	Admin solana.PublicKey
}

func SetCreditsForDecrease(v uint64) ConfigChange {
	return ConfigChange{Kind: ChangeCreditsForDecrease, Value: v}
}

func SetCreditsForIncrease(v uint64) ConfigChange {
	return ConfigChange{Kind: ChangeCreditsForIncrease, Value: v}
}

func SetSolPerCredit(v uint64) ConfigChange { return ConfigChange{Kind: ChangeSolPerCredit, Value: v} }

func SetBaseDeposit(v uint64) ConfigChange { return ConfigChange{Kind: ChangeBaseDeposit, Value: v} }

func SetFeeBasisPoints(v uint16) ConfigChange {
	return ConfigChange{Kind: ChangeFeeBasisPoints, Value: uint64(v)}
}

func SetStateBit(bit uint8, set bool) ConfigChange {
	return ConfigChange{Kind: ChangeStateBit, Bit: bit, Set: set}
}

func SetAdmin(admin solana.PublicKey) ConfigChange {
	return ConfigChange{Kind: ChangeAdmin, Admin: admin}
}

func (c ConfigChange) encode(enc *bin.Encoder) error {
	if err := enc.WriteUint8(uint8(c.Kind)); err != nil {
		return err
	}
	switch c.Kind {
	case ChangeCreditsForDecrease, ChangeCreditsForIncrease, ChangeSolPerCredit, ChangeBaseDeposit:
		return enc.WriteUint64(c.Value, binary.LittleEndian)
	case ChangeFeeBasisPoints:
		if c.Value > 0xffff {
			return fmt.Errorf("fee basis points %d overflow u16", c.Value)
		}
		return enc.WriteUint16(uint16(c.Value), binary.LittleEndian)
	case ChangeStateBit:
		if err := enc.WriteUint8(c.Bit); err != nil {
			return err
		}
		return enc.WriteBool(c.Set)
	case ChangeAdmin:
		return enc.WriteBytes(c.Admin[:], false)
	default:
		return fmt.Errorf("unknown config change %d", c.Kind)
	}
}

func decodeConfigChange(dec *bin.Decoder) (ConfigChange, error) {
	var c ConfigChange
	kind, err := dec.ReadUint8()
	if err != nil {
		return c, err
	}
	c.Kind = ConfigChangeKind(kind)
	switch c.Kind {
	case ChangeCreditsForDecrease, ChangeCreditsForIncrease, ChangeSolPerCredit, ChangeBaseDeposit:
		c.Value, err = dec.ReadUint64(binary.LittleEndian)
	case ChangeFeeBasisPoints:
		var v uint16
		v, err = dec.ReadUint16(binary.LittleEndian)
		c.Value = uint64(v)
	case ChangeStateBit:
		if c.Bit, err = dec.ReadUint8(); err == nil {
			c.Set, err = dec.ReadBool()
		}
	case ChangeAdmin:
		var b []byte
		if b, err = dec.ReadNBytes(solana.PublicKeyLength); err == nil {
			c.Admin = solana.PublicKeyFromBytes(b)
		}
	default:
		err = fmt.Errorf("unknown config change %d", kind)
	}
	return c, err
}

type ChangeConfigArgs struct {
	Change ConfigChange
}

func NewChangeConfigInstruction(admin solana.PublicKey, change ConfigChange) *Instruction {
	globalState, _ := DeriveGlobalStateAddress()
	return newInstruction(ChangeConfigDiscriminator[:], &ChangeConfigArgs{Change: change}, solana.AccountMetaSlice{
		solana.Meta(globalState).WRITE(),
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	})
}

func NewWhitelistMintInstruction(admin, mint solana.PublicKey) *Instruction {
	globalState, _ := DeriveGlobalStateAddress()
	whitelist, _ := DeriveWhitelistStateAddress(mint)
	return newInstruction(WhitelistMintDiscriminator[:], nil, solana.AccountMetaSlice{
		solana.Meta(globalState),
		solana.Meta(whitelist).WRITE(),
		solana.Meta(mint),
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	})
}

// NewUnwhitelistMintInstruction closes the whitelist entry of mint and
// returns its rent to the admin.
func NewUnwhitelistMintInstruction(admin, mint solana.PublicKey) *Instruction {
	globalState, _ := DeriveGlobalStateAddress()
	whitelist, _ := DeriveWhitelistStateAddress(mint)
	return newInstruction(UnwhitelistMintDiscriminator[:], nil, solana.AccountMetaSlice{
		solana.Meta(globalState),
		solana.Meta(whitelist).WRITE(),
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	})
}

type AmountArgs struct {
	Amount uint64
}

func NewAdminWithdrawSolInstruction(admin, recipient solana.PublicKey, amount uint64) *Instruction {
	globalState, _ := DeriveGlobalStateAddress()
	solVault, _ := DeriveSolVaultAddress()
	return newInstruction(AdminWithdrawSolDiscriminator[:], &AmountArgs{Amount: amount}, solana.AccountMetaSlice{
		solana.Meta(globalState).WRITE(),
		solana.Meta(admin).SIGNER(),
		solana.Meta(solVault).WRITE(),
		solana.Meta(recipient).WRITE(),
	})
}

// NewAdminWithdrawTokensInstruction sweeps amount of mint out of the global
// state's associated token account.
func NewAdminWithdrawTokensInstruction(admin, mint, destination solana.PublicKey, amount uint64) *Instruction {
	globalState, _ := DeriveGlobalStateAddress()
	return newInstruction(AdminWithdrawTokensDiscriminator[:], &AmountArgs{Amount: amount}, solana.AccountMetaSlice{
		solana.Meta(globalState),
		solana.Meta(admin).SIGNER(),
		solana.Meta(solanago.FindAssociatedTokenAddress(globalState, mint)).WRITE(),
		solana.Meta(mint),
		solana.Meta(destination).WRITE(),
		solana.Meta(solana.TokenProgramID),
	})
}

func NewCreateKeeperAccountInstruction(payer, keeper solana.PublicKey) *Instruction {
	keeperState, _ := DeriveKeeperStateAddress(keeper)
	return newInstruction(CreateKeeperAccountDiscriminator[:], nil, solana.AccountMetaSlice{
		solana.Meta(keeperState).WRITE(),
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(keeper),
		solana.Meta(solana.SystemProgramID),
	})
}

// NewKeeperWithdrawRewardsInstruction pays the keeper's credits out of the
// SOL vault to recipient.
func NewKeeperWithdrawRewardsInstruction(keeper, recipient solana.PublicKey) *Instruction {
	keeperState, _ := DeriveKeeperStateAddress(keeper)
	globalState, _ := DeriveGlobalStateAddress()
	solVault, _ := DeriveSolVaultAddress()
	return newInstruction(KeeperWithdrawRewardsDiscriminator[:], nil, solana.AccountMetaSlice{
		solana.Meta(keeperState).WRITE(),
		solana.Meta(keeper).SIGNER(),
		solana.Meta(recipient).WRITE(),
		solana.Meta(globalState),
		solana.Meta(solVault).WRITE(),
	})
}

type OpenPositionArgs struct {
	InLower  int32
	InUpper  int32
	OutLower int32
	OutUpper int32
}

type OpenPositionAccounts struct {
	Payer            solana.PublicKey
	User             solana.PublicKey
	NftMint          solana.PublicKey
	UserNftAccount   solana.PublicKey
	PersonalPosition solana.PublicKey
	PoolState        solana.PublicKey
	Mint0            solana.PublicKey
	Mint1            solana.PublicKey
}

// NewOpenPositionInstruction hands the position NFT to the program and
// records the keeper thresholds around the position range.
func NewOpenPositionInstruction(accounts *OpenPositionAccounts, args OpenPositionArgs) *Instruction {
	userState, _ := DeriveUserStateAddress(accounts.NftMint)
	globalState, _ := DeriveGlobalStateAddress()
	whitelist0, _ := DeriveWhitelistStateAddress(accounts.Mint0)
	whitelist1, _ := DeriveWhitelistStateAddress(accounts.Mint1)
	return newInstruction(OpenPositionDiscriminator[:], &args, solana.AccountMetaSlice{
		solana.Meta(accounts.Payer).WRITE().SIGNER(),
		solana.Meta(accounts.User).SIGNER(),
		solana.Meta(accounts.NftMint),
		solana.Meta(accounts.UserNftAccount).WRITE(),
		solana.Meta(accounts.PersonalPosition),
		solana.Meta(accounts.PoolState),
		solana.Meta(userState).WRITE(),
		solana.Meta(solanago.FindAssociatedTokenAddress(userState, accounts.NftMint)).WRITE(),
		solana.Meta(whitelist0),
		solana.Meta(whitelist1),
		solana.Meta(globalState),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
	})
}

type DecreasePositionArgs struct {
	LpAmountMin uint64
}

// NewKeeperDecreasePositionInstruction moves a position out of the AMM into
// the vault. remaining is the vault slice followed by the AMM decrease slice.
func NewKeeperDecreasePositionInstruction(keeper solana.PublicKey, lpAmountMin uint64, remaining []*solana.AccountMeta) *Instruction {
	keeperState, _ := DeriveKeeperStateAddress(keeper)
	metas := solana.AccountMetaSlice{
		solana.Meta(keeperState).WRITE(),
		solana.Meta(keeper).SIGNER(),
	}
	return newInstruction(DecreasePositionDiscriminator[:], &DecreasePositionArgs{LpAmountMin: lpAmountMin}, append(metas, remaining...))
}

type IncreasePositionArgs struct {
	TokenAmountMin uint64
}

// NewKeeperIncreasePositionInstruction moves a deployed position back into
// the AMM. remaining is the vault slice followed by the AMM increase slice.
func NewKeeperIncreasePositionInstruction(keeper, userState solana.PublicKey, tokenAmountMin uint64, remaining []*solana.AccountMeta) *Instruction {
	keeperState, _ := DeriveKeeperStateAddress(keeper)
	metas := solana.AccountMetaSlice{
		solana.Meta(keeperState).WRITE(),
		solana.Meta(keeper).SIGNER(),
		solana.Meta(userState).WRITE(),
	}
	return newInstruction(IncreasePositionDiscriminator, &IncreasePositionArgs{TokenAmountMin: tokenAmountMin}, append(metas, remaining...))
}

type ClosePositionArgs struct {
	TokenAmountMin uint64
}

// NewClosePositionInstruction returns the NFT to user. A deployed position
// needs remaining accounts laid out as for the keeper increase.
func NewClosePositionInstruction(user, nftMint solana.PublicKey, tokenAmountMin uint64, remaining []*solana.AccountMeta) *Instruction {
	userState, _ := DeriveUserStateAddress(nftMint)
	metas := solana.AccountMetaSlice{
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(userState).WRITE(),
		solana.Meta(solanago.FindAssociatedTokenAddress(user, nftMint)).WRITE(),
		solana.Meta(solanago.FindAssociatedTokenAddress(userState, nftMint)).WRITE(),
		solana.Meta(nftMint),
		solana.Meta(solana.TokenProgramID),
	}
	return newInstruction(ClosePositionDiscriminator[:], &ClosePositionArgs{TokenAmountMin: tokenAmountMin}, append(metas, remaining...))
}
