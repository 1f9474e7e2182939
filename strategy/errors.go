package strategy

import "fmt"

type ErrorKind uint8

const (
	KindAuthorization ErrorKind = iota + 1
	KindStateGate
	KindTickRange
	KindAccountShape
	KindArithmetic
	KindWhitelist
	KindInvariant
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindStateGate:
		return "state gate"
	case KindTickRange:
		return "tick range"
	case KindAccountShape:
		return "account shape"
	case KindArithmetic:
		return "arithmetic"
	case KindWhitelist:
		return "whitelist"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// ErrorCode is a program error. Codes are stable and start at 6000.
type ErrorCode uint32

const (
	ErrInvalidPool ErrorCode = 6000 + iota
	ErrInvalidNFTMint
	ErrDestinationMintNotWhitelisted
	ErrDestinationMintDoesNotMatchSwapMint
	ErrProgramNotOpenToCreatingPositions
	ErrInvalidUserStateAccount
	ErrInvalidTokenAccount
	ErrInvalidGlobalStateAccount
	ErrTickNotOutOfRange
	ErrTickNotWithinRange
	ErrPositionDeployed
	ErrPositionNotDeployed
	ErrUnauthorizedUser
	ErrInsufficientLiquidity
	ErrMissingDustAccounts
	ErrUnauthorizedAction
	ErrUnexpectedAccount
	ErrInsufficientCredits
	ErrNumericalOverflow
	ErrMissingRaydiumOrMeteoraAccounts
	ErrInvalidTickThresholdProvided
	ErrDeployedSideMissing
)

type errorInfo struct {
	name string
	msg  string
	kind ErrorKind
}

var errorTable = map[ErrorCode]errorInfo{
	ErrInvalidPool:                         {"InvalidPool", "position does not belong to the supplied pool", KindAccountShape},
	ErrInvalidNFTMint:                      {"InvalidNFTMint", "position NFT mint does not match the supplied mint", KindAccountShape},
	ErrDestinationMintNotWhitelisted:       {"DestinationMintNotWhitelisted", "pool mint is not whitelisted", KindWhitelist},
	ErrDestinationMintDoesNotMatchSwapMint: {"DestinationMintDoesNotMatchSwapMint", "destination mint does not match the swap mint", KindWhitelist},
	ErrProgramNotOpenToCreatingPositions:   {"ProgramNotOpenToCreatingPositions", "position creation is disabled", KindStateGate},
	ErrInvalidUserStateAccount:             {"InvalidUserStateAccount", "account is not a valid position record", KindAccountShape},
	ErrInvalidTokenAccount:                 {"InvalidTokenAccount", "unexpected token account", KindAccountShape},
	ErrInvalidGlobalStateAccount:           {"InvalidGlobalStateAccount", "account is not the global state", KindAccountShape},
	ErrTickNotOutOfRange:                   {"TickNotOutOfRange", "pool tick is inside the outer band", KindTickRange},
	ErrTickNotWithinRange:                  {"TickNotWithinRange", "pool tick is outside the position range", KindTickRange},
	ErrPositionDeployed:                    {"PositionDeployed", "position is deployed to the vault", KindStateGate},
	ErrPositionNotDeployed:                 {"PositionNotDeployed", "position is not deployed to the vault", KindStateGate},
	ErrUnauthorizedUser:                    {"UnauthorizedUser", "signer does not own the position", KindAuthorization},
	ErrInsufficientLiquidity:               {"InsufficientLiquidity", "position liquidity is too low", KindArithmetic},
	ErrMissingDustAccounts:                 {"MissingDustAccounts", "dust token accounts are missing", KindAccountShape},
	ErrUnauthorizedAction:                  {"UnauthorizedAction", "action is not authorized", KindAuthorization},
	ErrUnexpectedAccount:                   {"UnexpectedAccount", "unexpected account", KindAccountShape},
	ErrInsufficientCredits:                 {"InsufficientCredits", "keeper has insufficient credits", KindArithmetic},
	ErrNumericalOverflow:                   {"NumericalOverflow", "numerical overflow", KindArithmetic},
	ErrMissingRaydiumOrMeteoraAccounts:     {"MissingRaydiumOrMeteoraAccounts", "remaining accounts are missing the AMM or vault slice", KindAccountShape},
	ErrInvalidTickThresholdProvided:        {"InvalidTickThresholdProvided", "threshold bands do not enclose the position range", KindTickRange},
	ErrDeployedSideMissing:                 {"DeployedSideMissing", "deployed position has no deployed side", KindInvariant},
}

func (e ErrorCode) Name() string {
	if info, ok := errorTable[e]; ok {
		return info.name
	}
	return "Unknown"
}

func (e ErrorCode) Kind() ErrorKind {
	return errorTable[e].kind
}

func (e ErrorCode) Error() string {
	info, ok := errorTable[e]
	if !ok {
		return fmt.Sprintf("strategy: error %d", uint32(e))
	}
	return fmt.Sprintf("strategy: %s (%d): %s", info.name, uint32(e), info.msg)
}
