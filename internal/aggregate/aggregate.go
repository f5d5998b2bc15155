package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"walletscope/internal/models"
)

type TokenSummary struct {
	TokenAddress   string  `json:"token_address"`
	TokenSymbol    string  `json:"token_symbol"`
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
	WinRate        float64 `json:"win_rate"`
	BuyVolumeUSD   float64 `json:"buy_volume_usd"`
	SellVolumeUSD  float64 `json:"sell_volume_usd"`
	RealizedPnL    float64 `json:"realized_pnl"`
	ROI            float64 `json:"roi"`
	FirstTimestamp int64   `json:"first_timestamp"`
	LastTimestamp  int64   `json:"last_timestamp"`
	WorstRiskLevel int     `json:"worst_risk_level"`
	RugTrades      int     `json:"rug_trades"`
}

type tokenAcc struct {
	summary TokenSummary
	buy     decimal.Decimal
	sell    decimal.Decimal
	pnl     decimal.Decimal
}

// ByToken groups closed trades per token, sorted by realized PnL descending.
// ROI is blended: total PnL over total cost.
func ByToken(trades []models.ClosedTrade) []TokenSummary {
	accs := map[string]*tokenAcc{}
	for _, t := range trades {
		token := strings.TrimSpace(t.TokenAddress)
		acc, ok := accs[token]
		if !ok {
			acc = &tokenAcc{summary: TokenSummary{
				TokenAddress:   token,
				TokenSymbol:    t.TokenSymbol,
				FirstTimestamp: t.EntryTimestamp,
				LastTimestamp:  t.ExitTimestamp,
			}}
			accs[token] = acc
		}
		s := &acc.summary
		s.Trades++
		if t.IsWin {
			s.Wins++
		}
		if t.Enrichment.Rug.IsRug {
			s.RugTrades++
		}
		if s.TokenSymbol == "" {
			s.TokenSymbol = t.TokenSymbol
		}
		if t.EntryTimestamp < s.FirstTimestamp {
			s.FirstTimestamp = t.EntryTimestamp
		}
		if t.ExitTimestamp > s.LastTimestamp {
			s.LastTimestamp = t.ExitTimestamp
		}
		if t.RiskLevel > s.WorstRiskLevel {
			s.WorstRiskLevel = t.RiskLevel
		}
		acc.buy = acc.buy.Add(decimal.NewFromFloat(t.EntryValueUSD))
		acc.sell = acc.sell.Add(decimal.NewFromFloat(t.ExitValueUSD))
		acc.pnl = acc.pnl.Add(decimal.NewFromFloat(t.RealizedPnL))
	}

	out := make([]TokenSummary, 0, len(accs))
	for _, acc := range accs {
		s := acc.summary
		s.BuyVolumeUSD = acc.buy.InexactFloat64()
		s.SellVolumeUSD = acc.sell.InexactFloat64()
		s.RealizedPnL = acc.pnl.InexactFloat64()
		if acc.buy.IsPositive() {
			s.ROI = acc.pnl.Div(acc.buy).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RealizedPnL != out[j].RealizedPnL {
			return out[i].RealizedPnL > out[j].RealizedPnL
		}
		return out[i].TokenAddress < out[j].TokenAddress
	})
	return out
}

type DayBucket struct {
	Date    string  `json:"date"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	PnL     float64 `json:"pnl"`
	WinRate float64 `json:"win_rate"`
}

type Overview struct {
	Days    int         `json:"days"`
	From    time.Time   `json:"from"`
	To      time.Time   `json:"to"`
	Trades  int         `json:"trades"`
	Wins    int         `json:"wins"`
	PnL     float64     `json:"pnl"`
	WinRate float64     `json:"win_rate"`
	Daily   []DayBucket `json:"daily"`
}

const DefaultOverviewDays = 7

// BuildOverview covers the last days calendar days in loc, today included,
// counting trades by exit time. Days without trades are present with zeros.
func BuildOverview(trades []models.ClosedTrade, days int, now time.Time, loc *time.Location) Overview {
	if days <= 0 {
		days = DefaultOverviewDays
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day()-(days-1), 0, 0, 0, 0, loc)
	ov := Overview{Days: days, From: from, To: local, Daily: make([]DayBucket, days)}
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := time.Date(from.Year(), from.Month(), from.Day()+i, 0, 0, 0, 0, loc).Format(time.DateOnly)
		ov.Daily[i] = DayBucket{Date: date}
		index[date] = i
	}

	pnl := decimal.Zero
	daily := make([]decimal.Decimal, days)
	for _, t := range trades {
		exit := time.UnixMilli(t.ExitTimestamp).In(loc)
		if exit.Before(from) || exit.After(local) {
			continue
		}
		i, ok := index[exit.Format(time.DateOnly)]
		if !ok {
			continue
		}
		ov.Trades++
		ov.Daily[i].Trades++
		if t.IsWin {
			ov.Wins++
			ov.Daily[i].Wins++
		}
		v := decimal.NewFromFloat(t.RealizedPnL)
		pnl = pnl.Add(v)
		daily[i] = daily[i].Add(v)
	}
	ov.PnL = pnl.InexactFloat64()
	if ov.Trades > 0 {
		ov.WinRate = float64(ov.Wins) / float64(ov.Trades) * 100
	}
	for i := range ov.Daily {
		ov.Daily[i].PnL = daily[i].InexactFloat64()
		if ov.Daily[i].Trades > 0 {
			ov.Daily[i].WinRate = float64(ov.Daily[i].Wins) / float64(ov.Daily[i].Trades) * 100
		}
	}
	return ov
}
