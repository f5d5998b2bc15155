package models

import "strings"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide normalizes upstream direction strings; ok is false for anything
// that is not a buy or a sell.
func ParseSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "b":
		return SideBuy, true
	case "sell", "s":
		return SideSell, true
	default:
		return "", false
	}
}

// RawEvent is one on-chain swap leg for a wallet as delivered by the
// transaction feed. Timestamp is the block time in unix milliseconds.
type RawEvent struct {
	TokenAddress string  `json:"token_address"`
	TokenSymbol  string  `json:"token_symbol"`
	Side         Side    `json:"side"`
	Timestamp    int64   `json:"timestamp"`
	Quantity     float64 `json:"quantity"`
	PriceUSD     float64 `json:"price_usd"`
	TurnoverUSD  float64 `json:"turnover_usd"`
	MarketCapUSD float64 `json:"market_cap_usd"`
	RiskLevel    int     `json:"risk_level"`
	TxHash       string  `json:"tx_hash"`
	BlockHeight  int64   `json:"block_height"`
}

// TransactionPage is one page of the cursor-paginated transaction feed.
// An empty NextCursor means there are no further pages.
type TransactionPage struct {
	Events     []RawEvent `json:"events"`
	NextCursor string     `json:"next_cursor"`
}
