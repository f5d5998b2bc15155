package models

import "time"

const (
	StatusOK      = "ok"
	StatusNoData  = "no_data"
	StatusUnknown = "unknown"
)

// Enrichment holds the fields filled after FIFO matching. Each enrichment
// stage owns a disjoint subset of these fields.
type Enrichment struct {
	// market cap stage
	MarketDataStatus string  `json:"market_data_status,omitempty"`
	MarketCapUSD     float64 `json:"market_cap_usd"`
	LiquidityUSD     float64 `json:"liquidity_usd"`
	LiquidityKnown   bool    `json:"liquidity_known"`
	McapBracket      string  `json:"mcap_bracket,omitempty"`
	LiquidityStatus  string  `json:"liquidity_status,omitempty"`

	// price movement stage
	PriceDataStatus   string      `json:"price_data_status,omitempty"`
	Granularity       Granularity `json:"granularity,omitempty"`
	MaxPrice          float64     `json:"max_price"`
	MaxPriceAt        int64       `json:"max_price_at"`
	MinPrice          float64     `json:"min_price"`
	MinPriceAt        int64       `json:"min_price_at"`
	MaxPotentialROI   float64     `json:"max_potential_roi"`
	MaxDrawdownROI    float64     `json:"max_drawdown_roi"`
	TimeToPeakMs      int64       `json:"time_to_peak_ms"`
	OneHourMovePct    float64     `json:"one_hour_move_pct"`
	EntryQuality      string      `json:"entry_quality,omitempty"`
	CaptureEfficiency float64     `json:"capture_efficiency"`
	PostExitMaxROI    float64     `json:"post_exit_max_roi"`
	EarlyExit         bool        `json:"early_exit"`

	// counterparty stage
	CounterpartyRisk  string `json:"counterparty_risk,omitempty"`
	CounterpartyLevel int    `json:"counterparty_level"`

	// overview stage
	RiskProfile TokenRiskProfile `json:"risk_profile"`

	Rug RugAssessment `json:"rug"`
}

// HasPriceData reports whether the price movement stage produced candles.
func (e Enrichment) HasPriceData() bool {
	return e.PriceDataStatus == StatusOK
}

// ClosedTrade is one FIFO pairing of a buy leg with a sell leg. A large buy
// or sell produces several ClosedTrades.
type ClosedTrade struct {
	TradeID           string  `json:"trade_id"`
	TokenAddress      string  `json:"token_address"`
	TokenSymbol       string  `json:"token_symbol"`
	BuyTxHash         string  `json:"buy_tx_hash"`
	SellTxHash        string  `json:"sell_tx_hash"`
	EntryTimestamp    int64   `json:"entry_timestamp"`
	ExitTimestamp     int64   `json:"exit_timestamp"`
	EntryPrice        float64 `json:"entry_price"`
	ExitPrice         float64 `json:"exit_price"`
	Quantity          float64 `json:"quantity"`
	EntryValueUSD     float64 `json:"entry_value_usd"`
	ExitValueUSD      float64 `json:"exit_value_usd"`
	RealizedPnL       float64 `json:"realized_pnl"`
	RealizedROI       float64 `json:"realized_roi"`
	HoldingDurationMs int64   `json:"holding_duration_ms"`
	IsWin             bool    `json:"is_win"`
	EntryMarketCapUSD float64 `json:"entry_market_cap_usd"`
	RiskLevel         int     `json:"risk_level"`
	SyntheticEntry    bool    `json:"synthetic_entry,omitempty"`

	Enrichment Enrichment `json:"enrichment"`
}

func (t ClosedTrade) HoldingDuration() time.Duration {
	return time.Duration(t.HoldingDurationMs) * time.Millisecond
}

// OpenPosition is the unmatched remainder of a buy leg.
type OpenPosition struct {
	PositionID        string  `json:"position_id"`
	TokenAddress      string  `json:"token_address"`
	TokenSymbol       string  `json:"token_symbol"`
	BuyTxHash         string  `json:"buy_tx_hash"`
	EntryTimestamp    int64   `json:"entry_timestamp"`
	EntryPrice        float64 `json:"entry_price"`
	Quantity          float64 `json:"quantity"`
	EntryValueUSD     float64 `json:"entry_value_usd"`
	EntryMarketCapUSD float64 `json:"entry_market_cap_usd"`
	RiskLevel         int     `json:"risk_level"`

	CurrentPrice  float64 `json:"current_price"`
	PriceKnown    bool    `json:"price_known"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	UnrealizedROI float64 `json:"unrealized_roi"`
	IsScamToken   bool    `json:"is_scam_token"`

	Enrichment Enrichment `json:"enrichment"`
}

// ROI returns (exit/entry - 1) * 100, or 0 when the entry price is not positive.
func ROI(entry, exit float64) float64 {
	if entry <= 0 {
		return 0
	}
	return (exit/entry - 1) * 100
}
