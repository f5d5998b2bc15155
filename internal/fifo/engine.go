package fifo

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"walletscope/internal/models"
)

type UnmatchedSellPolicy string

const (
	// PolicyDrop discards sell quantity that has no prior buy to match.
	PolicyDrop UnmatchedSellPolicy = "drop"
	// PolicyZeroCostBasis books unmatched sell quantity against a synthetic
	// entry at price 0 and the sell's timestamp.
	PolicyZeroCostBasis UnmatchedSellPolicy = "zero_cost_basis"
)

const DefaultDust = 1e-6

const (
	WarnExcludedEvent    = "excluded_event"
	WarnDuplicateEvent   = "duplicate_event"
	WarnUnmatchedSell    = "unmatched_sell"
	WarnQuantityMismatch = "quantity_mismatch"
	WarnValueMismatch    = "value_mismatch"
	WarnChronology       = "chronology"
)

var (
	tradeNamespace    = uuid.NewSHA1(uuid.NameSpaceURL, []byte("walletscope/closed-trade"))
	positionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("walletscope/open-position"))
)

type Params struct {
	UnmatchedSellPolicy UnmatchedSellPolicy
	Dust                float64
}

// ParsePolicy maps a config string to a policy, defaulting to PolicyDrop.
func ParsePolicy(raw string) UnmatchedSellPolicy {
	switch UnmatchedSellPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case PolicyZeroCostBasis:
		return PolicyZeroCostBasis
	default:
		return PolicyDrop
	}
}

// Engine matches a wallet's buy and sell legs first-in first-out, per token.
// It keeps no state between calls.
type Engine struct {
	Params Params
	Logger *zap.Logger
}

type Warning struct {
	Kind         string  `json:"kind"`
	TokenAddress string  `json:"token_address,omitempty"`
	TxHash       string  `json:"tx_hash,omitempty"`
	Quantity     float64 `json:"quantity,omitempty"`
	Message      string  `json:"message"`
}

type TokenStats struct {
	TokenAddress     string  `json:"token_address"`
	Buys             int     `json:"buys"`
	Sells            int     `json:"sells"`
	BoughtQty        float64 `json:"bought_qty"`
	SoldQty          float64 `json:"sold_qty"`
	MatchedQty       float64 `json:"matched_qty"`
	OpenQty          float64 `json:"open_qty"`
	UnmatchedSellQty float64 `json:"unmatched_sell_qty"`
	SyntheticQty     float64 `json:"synthetic_qty"`
	ClosedTrades     int     `json:"closed_trades"`
	OpenPositions    int     `json:"open_positions"`
}

type Result struct {
	ClosedTrades  []models.ClosedTrade  `json:"closed_trades"`
	OpenPositions []models.OpenPosition `json:"open_positions"`
	Tokens        []TokenStats          `json:"tokens"`
	Excluded      int                   `json:"excluded"`
	Warnings      []Warning             `json:"warnings"`
}

type lot struct {
	ev        models.RawEvent
	key       string
	remaining decimal.Decimal
}

// Reconstruct turns an unordered event list into closed trades and open
// positions. Malformed legs are skipped and reported, never fatal.
func (e *Engine) Reconstruct(events []models.RawEvent) Result {
	res := Result{
		ClosedTrades:  []models.ClosedTrade{},
		OpenPositions: []models.OpenPosition{},
		Tokens:        []TokenStats{},
		Warnings:      []Warning{},
	}
	buys, sells := map[string][]models.RawEvent{}, map[string][]models.RawEvent{}
	seen := map[string]struct{}{}
	for _, ev := range events {
		ev, reason := normalizeEvent(ev)
		if reason != "" {
			res.Excluded++
			e.warn(&res, Warning{Kind: WarnExcludedEvent, TokenAddress: ev.TokenAddress, TxHash: ev.TxHash, Message: reason})
			continue
		}
		dedupKey := ev.TokenAddress + "|" + string(ev.Side) + "|" + legKey(ev)
		if _, ok := seen[dedupKey]; ok {
			res.Excluded++
			e.warn(&res, Warning{Kind: WarnDuplicateEvent, TokenAddress: ev.TokenAddress, TxHash: ev.TxHash, Message: "duplicate leg ignored"})
			continue
		}
		seen[dedupKey] = struct{}{}
		if ev.Side == models.SideBuy {
			buys[ev.TokenAddress] = append(buys[ev.TokenAddress], ev)
		} else {
			sells[ev.TokenAddress] = append(sells[ev.TokenAddress], ev)
		}
	}

	tokens := make([]string, 0, len(buys)+len(sells))
	for token := range buys {
		tokens = append(tokens, token)
	}
	for token := range sells {
		if _, ok := buys[token]; !ok {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)

	for _, token := range tokens {
		stats := e.matchToken(&res, token, buys[token], sells[token])
		res.Tokens = append(res.Tokens, stats)
	}
	return res
}

func (e *Engine) matchToken(res *Result, token string, buys, sells []models.RawEvent) TokenStats {
	sortLegs(buys)
	sortLegs(sells)
	dust := decimal.NewFromFloat(e.dust())
	stats := TokenStats{TokenAddress: token, Buys: len(buys), Sells: len(sells)}

	queue := make([]lot, 0, len(buys))
	for _, b := range buys {
		queue = append(queue, lot{ev: b, key: legKey(b), remaining: decimal.NewFromFloat(b.Quantity)})
		stats.BoughtQty += b.Quantity
	}

	matched := decimal.Zero
	head := 0
	for _, s := range sells {
		stats.SoldQty += s.Quantity
		sellKey := legKey(s)
		remaining := decimal.NewFromFloat(s.Quantity)
		step := 0
		for remaining.GreaterThanOrEqual(dust) && head < len(queue) && queue[head].ev.Timestamp <= s.Timestamp {
			b := &queue[head]
			take := decimal.Min(b.remaining, remaining)
			res.ClosedTrades = append(res.ClosedTrades, closeTrade(b.ev, b.key, s, sellKey, step, take.InexactFloat64()))
			stats.ClosedTrades++
			step++
			matched = matched.Add(take)
			b.remaining = b.remaining.Sub(take)
			remaining = remaining.Sub(take)
			if b.remaining.LessThan(dust) {
				head++
			}
		}
		if remaining.LessThan(dust) {
			continue
		}
		qty := remaining.InexactFloat64()
		stats.UnmatchedSellQty += qty
		if e.Params.UnmatchedSellPolicy == PolicyZeroCostBasis {
			res.ClosedTrades = append(res.ClosedTrades, syntheticTrade(s, sellKey, step, qty))
			stats.ClosedTrades++
			stats.SyntheticQty += qty
			e.warn(res, Warning{Kind: WarnUnmatchedSell, TokenAddress: token, TxHash: s.TxHash, Quantity: qty, Message: "unmatched sell booked at zero cost basis"})
			continue
		}
		e.warn(res, Warning{Kind: WarnUnmatchedSell, TokenAddress: token, TxHash: s.TxHash, Quantity: qty, Message: "unmatched sell quantity dropped"})
	}
	stats.MatchedQty = matched.InexactFloat64()

	open := decimal.Zero
	for i := head; i < len(queue); i++ {
		b := queue[i]
		if b.remaining.LessThan(dust) {
			continue
		}
		open = open.Add(b.remaining)
		res.OpenPositions = append(res.OpenPositions, openPosition(b.ev, b.key, b.remaining.InexactFloat64()))
		stats.OpenPositions++
	}
	stats.OpenQty = open.InexactFloat64()
	return stats
}

func (e *Engine) dust() float64 {
	if e == nil || e.Params.Dust <= 0 {
		return DefaultDust
	}
	return e.Params.Dust
}

func (e *Engine) warn(res *Result, w Warning) {
	res.Warnings = append(res.Warnings, w)
	if e == nil || e.Logger == nil {
		return
	}
	e.Logger.Warn("fifo: "+w.Message,
		zap.String("kind", w.Kind),
		zap.String("token", w.TokenAddress),
		zap.String("tx_hash", w.TxHash),
		zap.Float64("quantity", w.Quantity),
	)
}

func closeTrade(buy models.RawEvent, buyKey string, sell models.RawEvent, sellKey string, step int, qty float64) models.ClosedTrade {
	symbol := buy.TokenSymbol
	if strings.TrimSpace(symbol) == "" {
		symbol = sell.TokenSymbol
	}
	pnl := (sell.PriceUSD - buy.PriceUSD) * qty
	return models.ClosedTrade{
		TradeID:           tradeID(buyKey, sellKey, step),
		TokenAddress:      buy.TokenAddress,
		TokenSymbol:       symbol,
		BuyTxHash:         buy.TxHash,
		SellTxHash:        sell.TxHash,
		EntryTimestamp:    buy.Timestamp,
		ExitTimestamp:     sell.Timestamp,
		EntryPrice:        buy.PriceUSD,
		ExitPrice:         sell.PriceUSD,
		Quantity:          qty,
		EntryValueUSD:     qty * buy.PriceUSD,
		ExitValueUSD:      qty * sell.PriceUSD,
		RealizedPnL:       pnl,
		RealizedROI:       models.ROI(buy.PriceUSD, sell.PriceUSD),
		HoldingDurationMs: sell.Timestamp - buy.Timestamp,
		IsWin:             pnl > 0,
		EntryMarketCapUSD: buy.MarketCapUSD,
		RiskLevel:         maxInt(buy.RiskLevel, sell.RiskLevel),
	}
}

func syntheticTrade(sell models.RawEvent, sellKey string, step int, qty float64) models.ClosedTrade {
	entry := models.RawEvent{
		TokenAddress: sell.TokenAddress,
		TokenSymbol:  sell.TokenSymbol,
		Side:         models.SideBuy,
		Timestamp:    sell.Timestamp,
		RiskLevel:    sell.RiskLevel,
	}
	t := closeTrade(entry, "synthetic:"+sellKey, sell, sellKey, step, qty)
	t.SyntheticEntry = true
	return t
}

func openPosition(buy models.RawEvent, buyKey string, qty float64) models.OpenPosition {
	return models.OpenPosition{
		PositionID:        uuid.NewSHA1(positionNamespace, []byte(buyKey)).String(),
		TokenAddress:      buy.TokenAddress,
		TokenSymbol:       buy.TokenSymbol,
		BuyTxHash:         buy.TxHash,
		EntryTimestamp:    buy.Timestamp,
		EntryPrice:        buy.PriceUSD,
		Quantity:          qty,
		EntryValueUSD:     qty * buy.PriceUSD,
		EntryMarketCapUSD: buy.MarketCapUSD,
		RiskLevel:         clampRisk(buy.RiskLevel),
	}
}

func tradeID(buyKey, sellKey string, step int) string {
	return uuid.NewSHA1(tradeNamespace, []byte(buyKey+"|"+sellKey+"|"+strconv.Itoa(step))).String()
}

// legKey identifies a leg for dedup, ordering and id derivation. One
// transaction may carry several same-side legs of a token, so the hash is
// qualified by the leg's quantity and price. Feeds without a tx hash fall
// back to the leg's own fields.
func legKey(ev models.RawEvent) string {
	if h := strings.TrimSpace(ev.TxHash); h != "" {
		return fmt.Sprintf("%s#%g@%g", h, ev.Quantity, ev.PriceUSD)
	}
	return fmt.Sprintf("%s/%s/%d/%g/%g", ev.TokenAddress, ev.Side, ev.Timestamp, ev.Quantity, ev.PriceUSD)
}

func sortLegs(legs []models.RawEvent) {
	sort.SliceStable(legs, func(i, j int) bool {
		if legs[i].Timestamp != legs[j].Timestamp {
			return legs[i].Timestamp < legs[j].Timestamp
		}
		ki, kj := legKey(legs[i]), legKey(legs[j])
		if ki != kj {
			return ki < kj
		}
		return legs[i].BlockHeight < legs[j].BlockHeight
	})
}

// normalizeEvent trims identifiers and returns a non-empty reason when the
// leg cannot take part in matching.
func normalizeEvent(ev models.RawEvent) (models.RawEvent, string) {
	ev.TokenAddress = strings.TrimSpace(ev.TokenAddress)
	ev.TokenSymbol = strings.TrimSpace(ev.TokenSymbol)
	ev.TxHash = strings.TrimSpace(ev.TxHash)
	side, ok := models.ParseSide(string(ev.Side))
	switch {
	case ev.TokenAddress == "":
		return ev, "missing token address"
	case !ok:
		return ev, fmt.Sprintf("unknown side %q", ev.Side)
	case ev.Timestamp <= 0:
		return ev, "missing timestamp"
	case !finite(ev.Quantity) || ev.Quantity <= 0:
		return ev, "non-positive quantity"
	case !finite(ev.PriceUSD) || ev.PriceUSD < 0:
		return ev, "invalid price"
	}
	ev.Side = side
	ev.RiskLevel = clampRisk(ev.RiskLevel)
	return ev, ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clampRisk(level int) int {
	if level < 0 {
		return 0
	}
	if level > 5 {
		return 5
	}
	return level
}

func maxInt(a, b int) int {
	a, b = clampRisk(a), clampRisk(b)
	if a > b {
		return a
	}
	return b
}
