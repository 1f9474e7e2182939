package sim

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/krazyTry/meteora-strategy/strategy"
)

type PositionReport struct {
	Name      string
	NftMint   string
	Status    string
	Liquidity string
	Deposit   string
	LpShares  uint64
}

type KeeperReport struct {
	Name    string
	Key     string
	Credits uint64
}

// Report is the state of an environment after a scenario run. Token amounts
// are rendered with their mint decimals.
type Report struct {
	Positions   []PositionReport
	Keepers     []KeeperReport
	Custody0    string
	Custody1    string
	RewardVault string
}

func (r *Runner) Report() (*Report, error) {
	env := r.Env
	rep := &Report{
		Custody0: UIAmount(env.Ledger.TokenBalance(env.GlobalTokenAccount(env.Mint0)), r.sc.Decimals0),
		Custody1: UIAmount(env.Ledger.TokenBalance(env.GlobalTokenAccount(env.Mint1)), r.sc.Decimals1),
	}
	g, err := env.GlobalState()
	if err != nil {
		return nil, err
	}
	rep.RewardVault = UIAmount(env.Ledger.Balance(g.SolVault), 9)

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, p := range r.positions {
		pr := PositionReport{Name: name, NftMint: p.NftMint.String(), Status: "closed"}
		if u, err := env.UserState(p); err == nil {
			pr.Status = "amm"
			if u.IsDeployed() {
				pr.Status = "vault:" + u.TokenDeployed.String()
				decimals := r.sc.Decimals0
				if u.TokenDeployed == strategy.DeployedToken1 {
					decimals = r.sc.Decimals1
				}
				pr.Deposit = UIAmount(u.VaultDeposit, decimals)
				pr.LpShares = u.LpShares
			}
		}
		if liquidity, err := env.Liquidity(p); err == nil {
			pr.Liquidity = decimal.NewFromBigInt(liquidity.Big(), 0).String()
		}
		rep.Positions = append(rep.Positions, pr)
	}
	for name, k := range r.keepers {
		kr := KeeperReport{Name: name, Key: k.String()}
		if state, err := env.KeeperState(k); err == nil {
			kr.Credits = state.Credits
		}
		rep.Keepers = append(rep.Keepers, kr)
	}
	sort.Slice(rep.Positions, func(i, j int) bool { return rep.Positions[i].Name < rep.Positions[j].Name })
	sort.Slice(rep.Keepers, func(i, j int) bool { return rep.Keepers[i].Name < rep.Keepers[j].Name })
	return rep, nil
}
