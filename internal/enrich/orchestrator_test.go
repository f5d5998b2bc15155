package enrich

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"walletscope/internal/models"
)

type stubMarket struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight int32
	peak     int32
	fail     map[string]bool
}

func (s *stubMarket) MarketSnapshot(ctx context.Context, token string) (models.MarketSnapshot, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[token]++
	s.mu.Unlock()
	if s.fail[token] {
		return models.MarketSnapshot{}, errors.New("upstream 502")
	}
	return models.MarketSnapshot{MarketCapUSD: 500_000, MarketCapKnown: true, LiquidityUSD: 50_000, LiquidityKnown: true, PriceUSD: 2}, nil
}

type stubCandles struct {
	mu    sync.Mutex
	grans []models.Granularity
	empty map[models.Granularity]bool
}

func (s *stubCandles) Candles(ctx context.Context, token string, g models.Granularity, from, to time.Time) ([]models.Candle, error) {
	s.mu.Lock()
	s.grans = append(s.grans, g)
	s.mu.Unlock()
	if s.empty[g] {
		return nil, nil
	}
	start := from.UnixMilli()
	// newest first, as the feed delivers them
	return []models.Candle{
		candle(start+40*minute, 3, 1.5, 2.5),
		candle(start+10*minute, 2, 0.5, 1.5),
	}, nil
}

type stubCounterparty struct{}

func (stubCounterparty) CounterpartyRisk(ctx context.Context, token string) (models.CounterpartyRisk, error) {
	if token == "BAD" {
		return models.CounterpartyRisk{}, errors.New("timeout")
	}
	return models.CounterpartyRisk{Level: 4}, nil
}

type stubOverview struct{}

func (stubOverview) TokenOverview(ctx context.Context, token string) (models.TokenOverview, error) {
	return models.TokenOverview{DevStatus: models.DevHolding, LiquidityUSD: 40_000, LiquidityKnown: true, MarketCapUSD: 400_000, MarketCapKnown: true}, nil
}

func trades(tokens ...string) []models.ClosedTrade {
	out := make([]models.ClosedTrade, 0, len(tokens))
	base := time.Now().Add(-2 * time.Hour).UnixMilli()
	for _, token := range tokens {
		out = append(out, models.ClosedTrade{
			TokenAddress:   token,
			EntryTimestamp: base,
			ExitTimestamp:  base + 50*minute,
			EntryPrice:     1,
			ExitPrice:      2,
			Quantity:       1,
			RealizedROI:    100,
		})
	}
	return out
}

func TestOrchestrator_DedupAndBroadcast(t *testing.T) {
	market := &stubMarket{}
	o := &Orchestrator{
		Sources: Sources{Market: market, Candles: &stubCandles{}, Counterparty: stubCounterparty{}, Overview: stubOverview{}},
		Params:  Params{BatchSize: 3, ScamLiquidityFloorUSD: 1000, EarlyExitThresholdPct: 50, PostExitWindow: time.Hour},
	}
	in := Input{Closed: trades("A", "A", "A", "B", "C", "D", "E", "F", "G")}
	out := o.Run(context.Background(), in)

	if len(out.Closed) != 9 {
		t.Fatalf("closed=%d want=9", len(out.Closed))
	}
	for token, n := range market.calls {
		if n != 1 {
			t.Fatalf("token %s fetched %d times", token, n)
		}
	}
	if len(market.calls) != 7 {
		t.Fatalf("unique fetches=%d want=7", len(market.calls))
	}
	if market.peak > 3 {
		t.Fatalf("peak concurrency=%d want<=3", market.peak)
	}
	for _, ct := range out.Closed {
		e := ct.Enrichment
		if e.McapBracket != BracketSmall || e.LiquidityStatus != LiquidityHealthy {
			t.Fatalf("market fields=%+v", e)
		}
		if e.PriceDataStatus != models.StatusOK || e.CounterpartyRisk != "high" || e.RiskProfile.Status != models.StatusOK {
			t.Fatalf("enrichment=%+v", e)
		}
	}
	if in.Closed[0].Enrichment.McapBracket != "" {
		t.Fatalf("input mutated")
	}
	if len(out.Report.Stages) != 4 {
		t.Fatalf("stages=%d want=4", len(out.Report.Stages))
	}
	if out.Report.Stages[0].Batches != 3 {
		t.Fatalf("batches=%d want=3", out.Report.Stages[0].Batches)
	}
}

func TestOrchestrator_NeutralDefaultsOnFailure(t *testing.T) {
	o := &Orchestrator{
		Sources: Sources{Market: &stubMarket{fail: map[string]bool{"BAD": true}}, Counterparty: stubCounterparty{}},
		Params:  Params{ScamLiquidityFloorUSD: 1000},
	}
	out := o.Run(context.Background(), Input{
		Closed: trades("BAD", "OK"),
		Open:   []models.OpenPosition{{TokenAddress: "BAD", EntryTimestamp: time.Now().UnixMilli(), EntryPrice: 1, Quantity: 1}},
	})
	bad := out.Closed[0]
	if bad.TokenAddress != "BAD" {
		t.Fatalf("order changed: %s", bad.TokenAddress)
	}
	if bad.Enrichment.LiquidityUSD != 0 || bad.Enrichment.LiquidityKnown || bad.Enrichment.LiquidityStatus != LiquidityUnknown {
		t.Fatalf("market defaults=%+v", bad.Enrichment)
	}
	if bad.Enrichment.CounterpartyRisk != models.StatusUnknown {
		t.Fatalf("risk=%q want=unknown", bad.Enrichment.CounterpartyRisk)
	}
	if bad.Enrichment.PriceDataStatus != models.StatusUnknown {
		t.Fatalf("price status=%q want=unknown without a candle source", bad.Enrichment.PriceDataStatus)
	}
	if out.Open[0].PriceKnown {
		t.Fatalf("position priced without data")
	}
	st := out.Report.Stages[0]
	if st.Failed != 1 || st.Fetched != 1 {
		t.Fatalf("market report=%+v", st)
	}
	if out.Report.Stages[1].Skipped != 2 {
		t.Fatalf("price report=%+v", out.Report.Stages[1])
	}
}

func TestOrchestrator_GranularityFallback(t *testing.T) {
	cs := &stubCandles{empty: map[models.Granularity]bool{models.Granularity1m: true}}
	o := &Orchestrator{Sources: Sources{Candles: cs}}
	out := o.Run(context.Background(), Input{Closed: trades("A")})
	if len(cs.grans) != 2 || cs.grans[0] != models.Granularity1m || cs.grans[1] != models.Granularity15m {
		t.Fatalf("granularities=%v", cs.grans)
	}
	if out.Closed[0].Enrichment.Granularity != models.Granularity15m || !out.Closed[0].Enrichment.HasPriceData() {
		t.Fatalf("enrichment=%+v", out.Closed[0].Enrichment)
	}

	none := &stubCandles{empty: map[models.Granularity]bool{models.Granularity1m: true, models.Granularity15m: true}}
	o.Sources.Candles = none
	out = o.Run(context.Background(), Input{Closed: trades("A")})
	if len(none.grans) != 2 {
		t.Fatalf("attempts=%d want=2", len(none.grans))
	}
	if out.Closed[0].Enrichment.PriceDataStatus != models.StatusNoData {
		t.Fatalf("status=%q want=no_data", out.Closed[0].Enrichment.PriceDataStatus)
	}
	if out.Report.Stages[1].Empty != 1 {
		t.Fatalf("report=%+v", out.Report.Stages[1])
	}
}

func TestOrchestrator_CancelledStopsNewBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	market := &stubMarket{}
	o := &Orchestrator{Sources: Sources{Market: market}, Params: Params{BatchSize: 3}}
	out := o.Run(ctx, Input{Closed: trades("A", "B", "C", "D")})
	if len(market.calls) != 0 {
		t.Fatalf("fetched after cancel: %v", market.calls)
	}
	if !out.Report.Cancelled || out.Report.Stages[0].Skipped != 4 {
		t.Fatalf("report=%+v", out.Report)
	}
	if len(out.Closed) != 4 || out.Closed[0].Enrichment.MarketDataStatus != models.StatusUnknown {
		t.Fatalf("closed=%+v", out.Closed)
	}
}

func TestOrchestrator_EmptyInput(t *testing.T) {
	out := (&Orchestrator{}).Run(context.Background(), Input{})
	if out.Closed == nil || out.Open == nil || len(out.Report.Stages) != 4 {
		t.Fatalf("out=%+v", out)
	}
}

func TestBatchSizeClamp(t *testing.T) {
	cases := map[int]int{0: 4, 1: 3, 3: 3, 5: 5, 9: 5}
	for in, want := range cases {
		o := &Orchestrator{Params: Params{BatchSize: in}}
		if got := o.batchSize(); got != want {
			t.Fatalf("batchSize(%d)=%d want=%d", in, got, want)
		}
	}
}
