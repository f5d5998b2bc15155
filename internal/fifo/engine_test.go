package fifo

import (
	"math"
	"testing"

	"walletscope/internal/models"
)

const hour = int64(3_600_000)

func ev(token string, side models.Side, ts int64, qty, price float64, hash string) models.RawEvent {
	return models.RawEvent{
		TokenAddress: token,
		TokenSymbol:  "TKN",
		Side:         side,
		Timestamp:    ts,
		Quantity:     qty,
		PriceUSD:     price,
		TurnoverUSD:  qty * price,
		TxHash:       hash,
		RiskLevel:    1,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestReconstruct_PartialFill(t *testing.T) {
	e := &Engine{}
	events := []models.RawEvent{
		ev("T", models.SideSell, 2*hour, 60, 2.0, "s1"),
		ev("T", models.SideBuy, 1*hour, 100, 1.0, "b1"),
	}
	res := e.Reconstruct(events)
	if len(res.ClosedTrades) != 1 {
		t.Fatalf("closed=%d want=1", len(res.ClosedTrades))
	}
	ct := res.ClosedTrades[0]
	if !approx(ct.Quantity, 60) || !approx(ct.RealizedPnL, 60) || !approx(ct.RealizedROI, 100) {
		t.Fatalf("trade=%+v", ct)
	}
	if ct.HoldingDurationMs != hour {
		t.Fatalf("holding=%d want=%d", ct.HoldingDurationMs, hour)
	}
	if !ct.IsWin {
		t.Fatalf("expected win")
	}
	if len(res.OpenPositions) != 1 || !approx(res.OpenPositions[0].Quantity, 40) {
		t.Fatalf("open=%+v want one position of 40", res.OpenPositions)
	}
	if !approx(res.OpenPositions[0].EntryValueUSD, 40) {
		t.Fatalf("open value=%v want=40", res.OpenPositions[0].EntryValueUSD)
	}
	if w := e.Validate(res, events); len(w) != 0 {
		t.Fatalf("warnings=%+v want none", w)
	}
	// bought totals come from the events, so validating against none drifts
	if w := e.Validate(res, nil); len(w) != 1 || w[0].Kind != WarnQuantityMismatch {
		t.Fatalf("warnings=%+v want one quantity mismatch", w)
	}
}

func TestReconstruct_MultiLotSell(t *testing.T) {
	e := &Engine{}
	events := []models.RawEvent{
		ev("T", models.SideBuy, 1*hour, 10, 1.0, "b1"),
		ev("T", models.SideBuy, 2*hour, 10, 2.0, "b2"),
		ev("T", models.SideSell, 3*hour, 15, 3.0, "s1"),
	}
	res := e.Reconstruct(events)
	if len(res.ClosedTrades) != 2 {
		t.Fatalf("closed=%d want=2", len(res.ClosedTrades))
	}
	a, b := res.ClosedTrades[0], res.ClosedTrades[1]
	if !approx(a.Quantity, 10) || !approx(a.EntryPrice, 1) || !approx(a.RealizedPnL, 20) {
		t.Fatalf("first=%+v", a)
	}
	if !approx(b.Quantity, 5) || !approx(b.EntryPrice, 2) || !approx(b.RealizedPnL, 5) {
		t.Fatalf("second=%+v", b)
	}
	if a.TradeID == b.TradeID {
		t.Fatalf("trade ids collide: %s", a.TradeID)
	}
	if len(res.OpenPositions) != 1 || !approx(res.OpenPositions[0].Quantity, 5) || res.OpenPositions[0].BuyTxHash != "b2" {
		t.Fatalf("open=%+v want 5 of b2", res.OpenPositions)
	}
	if w := e.Validate(res, events); len(w) != 0 {
		t.Fatalf("warnings=%+v want none", w)
	}
}

func TestReconstruct_FullyClosedLeavesNoOpen(t *testing.T) {
	e := &Engine{}
	res := e.Reconstruct([]models.RawEvent{
		ev("T", models.SideBuy, 1*hour, 1.0/3.0, 3.0, "b1"),
		ev("T", models.SideBuy, 2*hour, 2.0/3.0, 3.0, "b2"),
		ev("T", models.SideSell, 3*hour, 1.0, 4.0, "s1"),
	})
	if len(res.OpenPositions) != 0 {
		t.Fatalf("open=%+v want none", res.OpenPositions)
	}
	var qty float64
	for _, ct := range res.ClosedTrades {
		qty += ct.Quantity
	}
	if !approx(qty, 1.0) {
		t.Fatalf("matched=%v want=1", qty)
	}
}

func TestReconstruct_UnmatchedSellPolicies(t *testing.T) {
	events := []models.RawEvent{
		ev("T", models.SideBuy, 2*hour, 10, 1.0, "b1"),
		ev("T", models.SideSell, 1*hour, 5, 2.0, "s0"), // precedes every buy
		ev("T", models.SideSell, 3*hour, 15, 2.0, "s1"),
	}

	drop := (&Engine{Params: Params{UnmatchedSellPolicy: PolicyDrop}}).Reconstruct(events)
	if len(drop.ClosedTrades) != 1 || !approx(drop.ClosedTrades[0].Quantity, 10) {
		t.Fatalf("drop closed=%+v", drop.ClosedTrades)
	}
	if drop.Tokens[0].UnmatchedSellQty != 10 {
		t.Fatalf("unmatched=%v want=10", drop.Tokens[0].UnmatchedSellQty)
	}
	unmatched := 0
	for _, w := range drop.Warnings {
		if w.Kind == WarnUnmatchedSell {
			unmatched++
		}
	}
	if unmatched != 2 {
		t.Fatalf("unmatched warnings=%d want=2", unmatched)
	}

	zero := (&Engine{Params: Params{UnmatchedSellPolicy: PolicyZeroCostBasis}}).Reconstruct(events)
	if len(zero.ClosedTrades) != 3 {
		t.Fatalf("zero closed=%d want=3", len(zero.ClosedTrades))
	}
	synthetic := 0
	for _, ct := range zero.ClosedTrades {
		if ct.ExitTimestamp < ct.EntryTimestamp {
			t.Fatalf("chronology broken: %+v", ct)
		}
		if ct.SyntheticEntry {
			synthetic++
			if ct.EntryPrice != 0 || ct.RealizedROI != 0 || ct.HoldingDurationMs != 0 {
				t.Fatalf("synthetic=%+v", ct)
			}
		}
	}
	if synthetic != 2 {
		t.Fatalf("synthetic=%d want=2", synthetic)
	}
	if w := (&Engine{}).Validate(zero, events); len(w) != 0 {
		t.Fatalf("warnings=%+v want none", w)
	}
}

func TestReconstruct_ExcludesMalformedLegs(t *testing.T) {
	events := []models.RawEvent{
		ev("T", models.SideBuy, 1*hour, 10, 1.0, "b1"),
		ev("", models.SideBuy, 1*hour, 10, 1.0, "b2"),
		ev("T", "hold", 1*hour, 10, 1.0, "b3"),
		ev("T", models.SideBuy, 1*hour, -1, 1.0, "b4"),
		ev("T", models.SideBuy, 1*hour, math.NaN(), 1.0, "b5"),
		ev("T", models.SideBuy, 1*hour, 10, math.Inf(1), "b6"),
		ev("T", models.SideBuy, 0, 10, 1.0, "b7"),
		ev("T", models.SideBuy, 1*hour, 10, 1.0, "b1"), // duplicate
		ev("T", "SELL", 2*hour, 10, 1.5, "s1"),
	}
	res := (&Engine{}).Reconstruct(events)
	if res.Excluded != 7 {
		t.Fatalf("excluded=%d want=7", res.Excluded)
	}
	if len(res.ClosedTrades) != 1 || len(res.OpenPositions) != 0 {
		t.Fatalf("closed=%d open=%d", len(res.ClosedTrades), len(res.OpenPositions))
	}
}

func TestReconstruct_KeepsSameHashLegsWithDifferentSize(t *testing.T) {
	events := []models.RawEvent{
		ev("T", models.SideBuy, 1*hour, 10, 1.0, "tx1"),
		ev("T", models.SideBuy, 1*hour, 5, 1.0, "tx1"), // second leg of the same transaction
		ev("T", models.SideBuy, 1*hour, 10, 1.0, "tx1"), // exact replay
		ev("T", models.SideSell, 2*hour, 15, 2.0, "tx2"),
	}
	res := (&Engine{}).Reconstruct(events)
	if res.Excluded != 1 {
		t.Fatalf("excluded=%d want=1", res.Excluded)
	}
	if len(res.ClosedTrades) != 2 || len(res.OpenPositions) != 0 {
		t.Fatalf("closed=%d open=%d want 2/0", len(res.ClosedTrades), len(res.OpenPositions))
	}
	if res.ClosedTrades[0].TradeID == res.ClosedTrades[1].TradeID {
		t.Fatalf("legs of one transaction share trade id %s", res.ClosedTrades[0].TradeID)
	}
	if len(res.Tokens) != 1 || res.Tokens[0].BoughtQty != 15 || res.Tokens[0].UnmatchedSellQty != 0 {
		t.Fatalf("tokens=%+v", res.Tokens)
	}
	if w := (&Engine{}).Validate(res, events); len(w) != 0 {
		t.Fatalf("validate warnings=%+v", w)
	}
}

func TestReconstruct_DeterministicAcrossInputOrder(t *testing.T) {
	events := []models.RawEvent{
		ev("A", models.SideBuy, 1*hour, 4, 1, "a1"),
		ev("B", models.SideBuy, 1*hour, 2, 5, "x1"),
		ev("A", models.SideBuy, 1*hour, 6, 2, "a0"), // same timestamp, ordered by hash
		ev("A", models.SideSell, 2*hour, 8, 3, "a2"),
		ev("B", models.SideSell, 3*hour, 2, 4, "x2"),
	}
	reversed := make([]models.RawEvent, len(events))
	for i := range events {
		reversed[len(events)-1-i] = events[i]
	}
	e := &Engine{}
	r1, r2 := e.Reconstruct(events), e.Reconstruct(reversed)
	if len(r1.ClosedTrades) != len(r2.ClosedTrades) {
		t.Fatalf("len %d vs %d", len(r1.ClosedTrades), len(r2.ClosedTrades))
	}
	for i := range r1.ClosedTrades {
		if r1.ClosedTrades[i].TradeID != r2.ClosedTrades[i].TradeID {
			t.Fatalf("trade %d id differs", i)
		}
	}
	if r1.ClosedTrades[0].BuyTxHash != "a0" {
		t.Fatalf("tie-break picked %s want a0", r1.ClosedTrades[0].BuyTxHash)
	}
	if r1.OpenPositions[0].PositionID != r2.OpenPositions[0].PositionID {
		t.Fatalf("position id differs")
	}
}

func TestReconstruct_LossAndRiskLevel(t *testing.T) {
	buy := ev("T", models.SideBuy, 1*hour, 100, 2.0, "b1")
	buy.RiskLevel = 2
	sell := ev("T", models.SideSell, 2*hour, 100, 0.5, "s1")
	sell.RiskLevel = 4
	res := (&Engine{}).Reconstruct([]models.RawEvent{buy, sell})
	ct := res.ClosedTrades[0]
	if ct.IsWin || !approx(ct.RealizedPnL, -150) || !approx(ct.RealizedROI, -75) {
		t.Fatalf("trade=%+v", ct)
	}
	if ct.RiskLevel != 4 {
		t.Fatalf("risk=%d want=4", ct.RiskLevel)
	}
}

func TestParsePolicy(t *testing.T) {
	cases := map[string]UnmatchedSellPolicy{
		"":                  PolicyDrop,
		"drop":              PolicyDrop,
		" ZERO_COST_BASIS ": PolicyZeroCostBasis,
		"nonsense":          PolicyDrop,
	}
	for in, want := range cases {
		if got := ParsePolicy(in); got != want {
			t.Fatalf("ParsePolicy(%q)=%q want=%q", in, got, want)
		}
	}
}

func TestReconstruct_SingleRoundTrip(t *testing.T) {
	res := (&Engine{}).Reconstruct([]models.RawEvent{
		ev("T", models.SideBuy, 1, 100, 1, "b1"),
		ev("T", models.SideSell, 11, 100, 2, "s1"),
	})
	if len(res.ClosedTrades) != 1 || len(res.OpenPositions) != 0 {
		t.Fatalf("closed=%d open=%d", len(res.ClosedTrades), len(res.OpenPositions))
	}
	ct := res.ClosedTrades[0]
	if !approx(ct.RealizedPnL, 100) || !approx(ct.RealizedROI, 100) || !ct.IsWin {
		t.Fatalf("trade=%+v", ct)
	}
}

func TestReconstruct_SellSpansTwoBuys(t *testing.T) {
	events := []models.RawEvent{
		ev("T", models.SideBuy, 1, 100, 1, "b1"),
		ev("T", models.SideBuy, 6, 50, 1.5, "b2"),
		ev("T", models.SideSell, 11, 120, 2, "s1"),
	}
	e := &Engine{}
	res := e.Reconstruct(events)
	if len(res.ClosedTrades) != 2 {
		t.Fatalf("closed=%d want=2", len(res.ClosedTrades))
	}
	if !approx(res.ClosedTrades[0].Quantity, 100) || !approx(res.ClosedTrades[0].EntryPrice, 1) {
		t.Fatalf("first=%+v", res.ClosedTrades[0])
	}
	if !approx(res.ClosedTrades[1].Quantity, 20) || !approx(res.ClosedTrades[1].EntryPrice, 1.5) {
		t.Fatalf("second=%+v", res.ClosedTrades[1])
	}
	if len(res.OpenPositions) != 1 || !approx(res.OpenPositions[0].Quantity, 30) || !approx(res.OpenPositions[0].EntryPrice, 1.5) {
		t.Fatalf("open=%+v", res.OpenPositions)
	}
	if w := e.Validate(res, events); len(w) != 0 {
		t.Fatalf("warnings=%+v", w)
	}
}
