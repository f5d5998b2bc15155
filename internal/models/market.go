package models

// Granularity is a candle size understood by the candle feed.
type Granularity string

const (
	Granularity1m  Granularity = "1m"
	Granularity15m Granularity = "15m"
	Granularity4h  Granularity = "4h"
)

// Candle timestamps are unix milliseconds of the candle open.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// MarketSnapshot fields are only meaningful when their Known flag is set;
// an upstream that omits a field leaves it unknown, not zero.
type MarketSnapshot struct {
	MarketCapUSD   float64 `json:"market_cap_usd"`
	MarketCapKnown bool    `json:"market_cap_known"`
	LiquidityUSD   float64 `json:"liquidity_usd"`
	LiquidityKnown bool    `json:"liquidity_known"`
	PriceUSD       float64 `json:"price_usd"`
}

// CounterpartyRisk is the upstream risk ordinal for a token, 1 (low) to 5 (critical).
type CounterpartyRisk struct {
	Level int `json:"level"`
}

type DevStatus string

const (
	DevHolding     DevStatus = "holding"
	DevPartialSell DevStatus = "partial_sell"
	DevSoldAll     DevStatus = "sold_all"
	DevUnknown     DevStatus = "unknown"
)

type SmartMoneyStatus string

const (
	SmartMoneyHolding     SmartMoneyStatus = "holding"
	SmartMoneyPartialExit SmartMoneyStatus = "partial_exit"
	SmartMoneyAllExited   SmartMoneyStatus = "all_exited"
	SmartMoneyNone        SmartMoneyStatus = "none"
	SmartMoneyUnknown     SmartMoneyStatus = "unknown"
)

// TokenOverview is the developer/holder analytics snapshot for a token.
type TokenOverview struct {
	DevRugCount       int              `json:"dev_rug_count"`
	DevStatus         DevStatus        `json:"dev_status"`
	LiquidityUSD      float64          `json:"liquidity_usd"`
	LiquidityKnown    bool             `json:"liquidity_known"`
	MarketCapUSD      float64          `json:"market_cap_usd"`
	MarketCapKnown    bool             `json:"market_cap_known"`
	PriceUSD          float64          `json:"price_usd"`
	HolderBundlePct   float64          `json:"holder_bundle_pct"`
	SmartMoneyStatus  SmartMoneyStatus `json:"smart_money_status"`
	SniperCount       int              `json:"sniper_count"`
	SniperExitedCount int              `json:"sniper_exited_count"`
}
