package models

type RugClass string

const (
	RugHard RugClass = "hard_rug"
	RugSoft RugClass = "soft_rug"
	RugNone RugClass = "none"
)

// Rank orders classes so a minimum class can be compared against a computed one.
func (c RugClass) Rank() int {
	switch c {
	case RugHard:
		return 2
	case RugSoft:
		return 1
	default:
		return 0
	}
}

// TokenRiskProfile is computed once per token per analysis run and shared by
// every trade on that token.
type TokenRiskProfile struct {
	Status                 string           `json:"status"`
	DevRugCount            int              `json:"dev_rug_count"`
	DevStatus              DevStatus        `json:"dev_status"`
	LiquidityUSD           float64          `json:"liquidity_usd"`
	MarketCapUSD           float64          `json:"market_cap_usd"`
	LiquidityKnown         bool             `json:"liquidity_known"`
	LiquidityToMcap        float64          `json:"liquidity_to_mcap"`
	HolderConcentrationPct float64          `json:"holder_concentration_pct"`
	SmartMoneyStatus       SmartMoneyStatus `json:"smart_money_status"`
	SmartMoneyExited       bool             `json:"smart_money_exited"`
	SniperCount            int              `json:"sniper_count"`
	SniperExitRatio        float64          `json:"sniper_exit_ratio"`
}

type RugAssessment struct {
	IsRug      bool     `json:"is_rug"`
	Class      RugClass `json:"class"`
	Score      int      `json:"score"`
	Confidence int      `json:"confidence"`
	Rules      []string `json:"rules,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
}
