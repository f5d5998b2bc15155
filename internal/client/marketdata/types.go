package marketdata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"walletscope/internal/models"
)

// Number accepts JSON numbers, numeric strings, empty strings and null.
type Number struct {
	decimal.Decimal
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == `""` {
		*n = Number{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		val, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		*n = Number{Decimal: val, Valid: true}
		return nil
	}
	val, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid number: %s", raw)
	}
	*n = Number{Decimal: val, Valid: true}
	return nil
}

func (n Number) Float() float64 {
	if !n.Valid {
		return 0
	}
	return n.InexactFloat64()
}

func (n Number) Int() int64 {
	if !n.Valid {
		return 0
	}
	return n.IntPart()
}

type wireTransaction struct {
	TokenAddress string `json:"token_address"`
	TokenSymbol  string `json:"token_symbol"`
	Side         string `json:"side"`
	Timestamp    Number `json:"timestamp"`
	Amount       Number `json:"amount"`
	Price        Number `json:"price"`
	Turnover     Number `json:"turnover"`
	MarketCap    Number `json:"market_cap"`
	RiskLevel    Number `json:"risk_level"`
	TxHash       string `json:"tx_hash"`
	BlockHeight  Number `json:"block_height"`
}

// event keeps the side string as received; the FIFO engine rejects what
// it cannot parse.
func (w wireTransaction) event() models.RawEvent {
	side := models.Side(strings.TrimSpace(w.Side))
	if parsed, ok := models.ParseSide(w.Side); ok {
		side = parsed
	}
	return models.RawEvent{
		TokenAddress: strings.TrimSpace(w.TokenAddress),
		TokenSymbol:  strings.TrimSpace(w.TokenSymbol),
		Side:         side,
		Timestamp:    w.Timestamp.Int(),
		Quantity:     w.Amount.Float(),
		PriceUSD:     w.Price.Float(),
		TurnoverUSD:  w.Turnover.Float(),
		MarketCapUSD: w.MarketCap.Float(),
		RiskLevel:    int(w.RiskLevel.Int()),
		TxHash:       strings.TrimSpace(w.TxHash),
		BlockHeight:  w.BlockHeight.Int(),
	}
}

type wireTransactionPage struct {
	Transactions []wireTransaction `json:"transactions"`
	Cursor       string            `json:"cursor"`
}

func parseTransactionPage(data []byte) (models.TransactionPage, error) {
	var page wireTransactionPage
	if err := json.Unmarshal(data, &page); err != nil {
		return models.TransactionPage{}, fmt.Errorf("decode transactions: %w", err)
	}
	out := models.TransactionPage{
		Events:     make([]models.RawEvent, 0, len(page.Transactions)),
		NextCursor: strings.TrimSpace(page.Cursor),
	}
	for _, tx := range page.Transactions {
		out.Events = append(out.Events, tx.event())
	}
	return out, nil
}

// parseCandles reads [ts, open, high, low, close, volume] tuples. Short
// rows are skipped.
func parseCandles(data []byte) ([]models.Candle, error) {
	var rows [][]Number
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}
	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		c := models.Candle{
			Timestamp: row[0].Int(),
			Open:      row[1].Float(),
			High:      row[2].Float(),
			Low:       row[3].Float(),
			Close:     row[4].Float(),
		}
		if len(row) > 5 {
			c.Volume = row[5].Float()
		}
		out = append(out, c)
	}
	return out, nil
}

type wireMarket struct {
	MarketCap Number `json:"market_cap"`
	Liquidity Number `json:"liquidity"`
	Price     Number `json:"price"`
}

func (w wireMarket) model() models.MarketSnapshot {
	return models.MarketSnapshot{
		MarketCapUSD:   w.MarketCap.Float(),
		MarketCapKnown: w.MarketCap.Valid,
		LiquidityUSD:   w.Liquidity.Float(),
		LiquidityKnown: w.Liquidity.Valid,
		PriceUSD:       w.Price.Float(),
	}
}

type wireRisk struct {
	RiskLevel Number `json:"risk_level"`
}

type wireOverview struct {
	DevRugCount       Number `json:"dev_rug_count"`
	DevStatus         string `json:"dev_status"`
	Liquidity         Number `json:"liquidity"`
	MarketCap         Number `json:"market_cap"`
	Price             Number `json:"price"`
	BundlePct         Number `json:"bundle_holding_pct"`
	SmartMoneyStatus  string `json:"smart_money_status"`
	SniperCount       Number `json:"sniper_count"`
	SniperExitedCount Number `json:"sniper_exited_count"`
}

func (w wireOverview) model() models.TokenOverview {
	return models.TokenOverview{
		DevRugCount:       int(w.DevRugCount.Int()),
		DevStatus:         devStatus(w.DevStatus),
		LiquidityUSD:      w.Liquidity.Float(),
		LiquidityKnown:    w.Liquidity.Valid,
		MarketCapUSD:      w.MarketCap.Float(),
		MarketCapKnown:    w.MarketCap.Valid,
		PriceUSD:          w.Price.Float(),
		HolderBundlePct:   w.BundlePct.Float(),
		SmartMoneyStatus:  smartMoneyStatus(w.SmartMoneyStatus),
		SniperCount:       int(w.SniperCount.Int()),
		SniperExitedCount: int(w.SniperExitedCount.Int()),
	}
}

func devStatus(raw string) models.DevStatus {
	switch models.DevStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case models.DevHolding:
		return models.DevHolding
	case models.DevPartialSell:
		return models.DevPartialSell
	case models.DevSoldAll:
		return models.DevSoldAll
	default:
		return models.DevUnknown
	}
}

func smartMoneyStatus(raw string) models.SmartMoneyStatus {
	switch models.SmartMoneyStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case models.SmartMoneyHolding:
		return models.SmartMoneyHolding
	case models.SmartMoneyPartialExit:
		return models.SmartMoneyPartialExit
	case models.SmartMoneyAllExited:
		return models.SmartMoneyAllExited
	case models.SmartMoneyNone:
		return models.SmartMoneyNone
	default:
		return models.SmartMoneyUnknown
	}
}
