package fifo

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"walletscope/internal/models"
)

// Epsilon is the relative tolerance used by Validate.
const Epsilon = 1e-6

// Validate re-derives quantity and value totals from the source events and
// reports any drift as warnings. It never fails the reconstruction.
func (e *Engine) Validate(res Result, events []models.RawEvent) []Warning {
	dust := e.dust()
	bought := map[string]float64{}
	buys := map[string]int{}
	seen := map[string]struct{}{}
	for _, ev := range events {
		ev, reason := normalizeEvent(ev)
		if reason != "" || ev.Side != models.SideBuy {
			continue
		}
		key := ev.TokenAddress + "|" + legKey(ev)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		bought[ev.TokenAddress] += ev.Quantity
		buys[ev.TokenAddress]++
	}

	matched := map[string]float64{}
	out := []Warning{}
	for _, t := range res.ClosedTrades {
		if !t.SyntheticEntry {
			matched[t.TokenAddress] += t.Quantity
		}
		if !closeEnough(t.Quantity*t.EntryPrice, t.EntryValueUSD, 0) || !closeEnough(t.Quantity*t.ExitPrice, t.ExitValueUSD, 0) {
			out = append(out, Warning{Kind: WarnValueMismatch, TokenAddress: t.TokenAddress, TxHash: t.SellTxHash,
				Message: "trade value does not equal quantity times price"})
		}
		if t.ExitTimestamp < t.EntryTimestamp {
			out = append(out, Warning{Kind: WarnChronology, TokenAddress: t.TokenAddress, TxHash: t.SellTxHash,
				Message: "exit precedes entry"})
		}
	}
	open := map[string]float64{}
	for _, p := range res.OpenPositions {
		open[p.TokenAddress] += p.Quantity
		if !closeEnough(p.Quantity*p.EntryPrice, p.EntryValueUSD, 0) {
			out = append(out, Warning{Kind: WarnValueMismatch, TokenAddress: p.TokenAddress, TxHash: p.BuyTxHash,
				Message: "position value does not equal quantity times price"})
		}
	}

	for _, stats := range res.Tokens {
		token := stats.TokenAddress
		want := bought[token]
		got := matched[token] + open[token]
		// each popped lot may leave up to one dust unit behind
		slack := dust * float64(buys[token])
		if !closeEnough(got, want, slack) {
			out = append(out, Warning{
				Kind:         WarnQuantityMismatch,
				TokenAddress: token,
				Quantity:     want - got,
				Message:      fmt.Sprintf("matched+open=%g bought=%g", got, want),
			})
		}
	}

	if e != nil && e.Logger != nil {
		for _, w := range out {
			e.Logger.Warn("fifo: validation", zap.String("kind", w.Kind), zap.String("token", w.TokenAddress), zap.String("detail", w.Message))
		}
	}
	return out
}

func closeEnough(got, want, absSlack float64) bool {
	diff := math.Abs(got - want)
	if diff <= absSlack {
		return true
	}
	scale := math.Max(math.Abs(got), math.Abs(want))
	if scale == 0 {
		return true
	}
	return diff <= Epsilon*scale
}
