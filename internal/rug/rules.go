package rug

import "walletscope/internal/models"

// Input is everything a rule may look at for one trade.
type Input struct {
	Profile     models.TokenRiskProfile
	RealizedROI float64
	// HasOutcome is false for open positions, which have no realized ROI.
	HasOutcome bool
}

type Rule struct {
	Name     string
	Weight   int
	Reason   string
	MinClass models.RugClass
	Match    func(in Input, p Params) bool
}

const (
	RuleDevRugHistory    = "dev_rug_history"
	RuleLiquidityPulled  = "liquidity_pulled"
	RuleThinLiquidity    = "thin_liquidity"
	RuleDevSoldAll       = "dev_sold_all"
	RuleDevPartialSell   = "dev_partial_sell"
	RuleBundledHolders   = "bundled_holders"
	RuleSmartMoneyExited = "smart_money_exited"
	RuleSnipersExited    = "snipers_exited"
	RuleNearTotalLoss    = "near_total_loss"
	RuleHeavyLoss        = "heavy_loss"
)

// DefaultRules is evaluated in order; order only affects the order of reasons.
var DefaultRules = []Rule{
	rule(RuleDevRugHistory, 50, models.RugHard, "developer has rugged before",
		func(in Input, _ Params) bool { return in.Profile.DevRugCount >= 1 }),
	rule(RuleLiquidityPulled, 40, models.RugHard, "liquidity below floor while market cap is material",
		func(in Input, p Params) bool {
			return in.Profile.LiquidityKnown &&
				in.Profile.LiquidityUSD < p.LiquidityFloorUSD &&
				in.Profile.MarketCapUSD > p.MarketCapMaterialityUSD
		}),
	rule(RuleThinLiquidity, 20, models.RugSoft, "liquidity under 5% of market cap",
		func(in Input, _ Params) bool {
			return in.Profile.LiquidityKnown && in.Profile.MarketCapUSD > 0 && in.Profile.LiquidityToMcap < 0.05
		}),
	rule(RuleDevSoldAll, 30, models.RugNone, "developer sold entire holding",
		func(in Input, _ Params) bool { return in.Profile.DevStatus == models.DevSoldAll }),
	rule(RuleDevPartialSell, 15, models.RugNone, "developer is selling",
		func(in Input, _ Params) bool { return in.Profile.DevStatus == models.DevPartialSell }),
	rule(RuleBundledHolders, 20, models.RugNone, "bundled wallets hold over 30% of supply",
		func(in Input, _ Params) bool { return in.Profile.HolderConcentrationPct > 30 }),
	rule(RuleSmartMoneyExited, 15, models.RugNone, "all smart money exited",
		func(in Input, _ Params) bool { return in.Profile.SmartMoneyExited }),
	rule(RuleSnipersExited, 10, models.RugNone, "over 90% of snipers exited",
		func(in Input, _ Params) bool { return in.Profile.SniperCount > 0 && in.Profile.SniperExitRatio > 0.9 }),
	rule(RuleNearTotalLoss, 35, models.RugHard, "trade lost over 95%",
		func(in Input, _ Params) bool { return in.HasOutcome && in.RealizedROI < -95 }),
	rule(RuleHeavyLoss, 15, models.RugSoft, "trade lost over 50%",
		func(in Input, _ Params) bool { return in.HasOutcome && in.RealizedROI < -50 && in.RealizedROI >= -95 }),
}

func rule(name string, weight int, floor models.RugClass, reason string, match func(Input, Params) bool) Rule {
	return Rule{Name: name, Weight: weight, MinClass: floor, Reason: reason, Match: match}
}
