package models

type TokenShare struct {
	TokenAddress string  `json:"token_address"`
	TokenSymbol  string  `json:"token_symbol"`
	AbsPnL       float64 `json:"abs_pnl"`
	SharePct     float64 `json:"share_pct"`
}

// AggregatedMetrics is derived from one set of enriched trades. The zero
// value is the documented shape for an empty trade set.
type AggregatedMetrics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`

	TotalPnL float64 `json:"total_pnl"`
	WinPnL   float64 `json:"win_pnl"`
	LossPnL  float64 `json:"loss_pnl"`

	AvgROI    float64 `json:"avg_roi"`
	MedianROI float64 `json:"median_roi"`

	AvgHoldingMs        int64 `json:"avg_holding_ms"`
	MedianHoldingMs     int64 `json:"median_holding_ms"`
	AvgWinHoldingMs     int64 `json:"avg_win_holding_ms"`
	MedianWinHoldingMs  int64 `json:"median_win_holding_ms"`
	AvgLossHoldingMs    int64 `json:"avg_loss_holding_ms"`
	MedianLossHoldingMs int64 `json:"median_loss_holding_ms"`

	AvgMaxPotentialROI    float64 `json:"avg_max_potential_roi"`
	MedianMaxPotentialROI float64 `json:"median_max_potential_roi"`
	EntrySkillScore       float64 `json:"entry_skill_score"`
	ExitSkillScore        float64 `json:"exit_skill_score"`
	EarlyExitCount        int     `json:"early_exit_count"`

	HHI           float64      `json:"hhi"`
	Concentration string       `json:"concentration"`
	TokenShares   []TokenShare `json:"token_shares"`

	UniqueTokens            int     `json:"unique_tokens"`
	ActiveDays              int     `json:"active_days"`
	AvgTokensPerDay         float64 `json:"avg_tokens_per_day"`
	ProjectedTokensPerWeek  float64 `json:"projected_tokens_per_week"`
	ProjectedTokensPerMonth float64 `json:"projected_tokens_per_month"`

	OpenPositions int     `json:"open_positions"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	RugTrades     int     `json:"rug_trades"`
	ScamPositions int     `json:"scam_positions"`

	CopyTradeRating string `json:"copy_trade_rating"`
}

// MetricsReport keeps the raw and the scam-excluded aggregates side by side.
type MetricsReport struct {
	Raw               AggregatedMetrics `json:"raw"`
	Clean             AggregatedMetrics `json:"clean"`
	ExcludedTrades    int               `json:"excluded_trades"`
	ExcludedPositions int               `json:"excluded_positions"`
}
