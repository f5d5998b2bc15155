package enrich

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"walletscope/internal/models"
)

const (
	StageMarket       = "market_cap"
	StagePrice        = "price_movement"
	StageCounterparty = "counterparty_risk"
	StageOverview     = "token_overview"
)

const (
	minBatchSize     = 3
	maxBatchSize     = 5
	defaultBatchSize = 4
)

type Params struct {
	BatchSize             int
	BatchDelay            time.Duration
	FetchTimeout          time.Duration
	ScamLiquidityFloorUSD float64
	EarlyExitThresholdPct float64
	PostExitWindow        time.Duration
}

type Input struct {
	Closed []models.ClosedTrade
	Open   []models.OpenPosition
	Now    time.Time
}

type Output struct {
	Closed []models.ClosedTrade  `json:"closed_trades"`
	Open   []models.OpenPosition `json:"open_positions"`
	Report Report                `json:"report"`
}

// StageReport counts per-token outcomes of one stage. Failed and Skipped
// tokens carry neutral defaults.
type StageReport struct {
	Stage     string `json:"stage"`
	Tokens    int    `json:"tokens"`
	Fetched   int    `json:"fetched"`
	Empty     int    `json:"empty"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Batches   int    `json:"batches"`
	Cancelled bool   `json:"cancelled"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type Report struct {
	Stages    []StageReport `json:"stages"`
	Cancelled bool          `json:"cancelled"`
}

// Unknown is the number of tokens that ended a stage without data.
func (r StageReport) Unknown() int {
	return r.Failed + r.Skipped
}

// Orchestrator runs the enrichment stages in order over one wallet's trades.
// Everything it caches lives for a single Run.
type Orchestrator struct {
	Sources Sources
	Params  Params
	Logger  *zap.Logger
}

type fetchResult[T any] struct {
	val T
	err error
}

// runCache holds per-token results of one Run.
type runCache struct {
	market       map[string]models.MarketSnapshot
	candles      map[string]candleResult
	counterparty map[string]models.CounterpartyRisk
	overview     map[string]models.TokenOverview
}

func (o *Orchestrator) Run(ctx context.Context, in Input) Output {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	closed := append([]models.ClosedTrade(nil), in.Closed...)
	open := append([]models.OpenPosition(nil), in.Open...)
	if closed == nil {
		closed = []models.ClosedTrade{}
	}
	if open == nil {
		open = []models.OpenPosition{}
	}
	tokens, earliest := tokenIndex(closed, open)
	cache := runCache{}
	out := Output{Report: Report{Stages: []StageReport{}}}

	var rep StageReport
	cache.market, rep = fetchStage(ctx, o, StageMarket, tokens, o.Sources.Market != nil,
		func(ctx context.Context, token string) (models.MarketSnapshot, bool, error) {
			snap, err := o.Sources.Market.MarketSnapshot(ctx, token)
			return snap, true, err
		})
	out.Report.add(rep)
	floor := o.Params.ScamLiquidityFloorUSD
	for i := range closed {
		snap, ok := cache.market[closed[i].TokenAddress]
		closed[i] = ApplyMarket(closed[i], snap, ok, floor)
	}
	for i := range open {
		snap, ok := cache.market[open[i].TokenAddress]
		open[i] = ApplyMarketToPosition(open[i], snap, ok, floor)
	}

	cache.candles, rep = fetchStage(ctx, o, StagePrice, tokens, o.Sources.Candles != nil,
		func(ctx context.Context, token string) (candleResult, bool, error) {
			return o.fetchCandles(ctx, token, earliest[token], now)
		})
	out.Report.add(rep)
	pp := priceParams{EarlyExitThresholdPct: o.Params.EarlyExitThresholdPct, PostExitWindow: o.Params.PostExitWindow}
	for i := range closed {
		res, ok := cache.candles[closed[i].TokenAddress]
		closed[i] = ApplyPrice(closed[i], res, ok, pp)
	}
	for i := range open {
		res, ok := cache.candles[open[i].TokenAddress]
		open[i] = ApplyPriceToPosition(open[i], res, ok, now, pp)
	}

	cache.counterparty, rep = fetchStage(ctx, o, StageCounterparty, tokens, o.Sources.Counterparty != nil,
		func(ctx context.Context, token string) (models.CounterpartyRisk, bool, error) {
			risk, err := o.Sources.Counterparty.CounterpartyRisk(ctx, token)
			return risk, true, err
		})
	out.Report.add(rep)
	for i := range closed {
		risk, ok := cache.counterparty[closed[i].TokenAddress]
		closed[i] = ApplyCounterparty(closed[i], risk, ok)
	}
	for i := range open {
		risk, ok := cache.counterparty[open[i].TokenAddress]
		open[i] = ApplyCounterpartyToPosition(open[i], risk, ok)
	}

	cache.overview, rep = fetchStage(ctx, o, StageOverview, tokens, o.Sources.Overview != nil,
		func(ctx context.Context, token string) (models.TokenOverview, bool, error) {
			ov, err := o.Sources.Overview.TokenOverview(ctx, token)
			return ov, true, err
		})
	out.Report.add(rep)
	profiles := make(map[string]models.TokenRiskProfile, len(tokens))
	for _, token := range tokens {
		ov, ok := cache.overview[token]
		snap, snapOK := cache.market[token]
		profiles[token] = RiskProfile(ov, ok, snap, snapOK)
	}
	for i := range closed {
		closed[i] = ApplyOverview(closed[i], profiles[closed[i].TokenAddress])
	}
	for i := range open {
		open[i] = ApplyOverviewToPosition(open[i], profiles[open[i].TokenAddress])
	}

	out.Closed = closed
	out.Open = open
	return out
}

func (r *Report) add(s StageReport) {
	r.Stages = append(r.Stages, s)
	if s.Cancelled {
		r.Cancelled = true
	}
}

// fetchCandles tries the age-appropriate granularity, then one alternate.
// found is false when both attempts come back empty.
func (o *Orchestrator) fetchCandles(ctx context.Context, token string, from, now time.Time) (candleResult, bool, error) {
	primary := SelectGranularity(now.Sub(from))
	candles, err := o.Sources.Candles.Candles(ctx, token, primary, from, now)
	if err == nil {
		if sorted := SortCandles(candles); len(sorted) > 0 {
			return candleResult{Granularity: primary, Candles: sorted}, true, nil
		}
	}
	if ctx.Err() != nil {
		return candleResult{}, false, ctx.Err()
	}
	fallback := FallbackGranularity(primary)
	candles, ferr := o.Sources.Candles.Candles(ctx, token, fallback, from, now)
	if ferr != nil {
		if err != nil {
			return candleResult{}, false, err
		}
		return candleResult{}, false, ferr
	}
	sorted := SortCandles(candles)
	return candleResult{Granularity: fallback, Candles: sorted}, len(sorted) > 0, nil
}

// fetchStage queries every token once, in batches of parallel fetches with a
// pause between batches. Tokens that fail or are never reached are absent
// from the returned map.
func fetchStage[T any](
	ctx context.Context,
	o *Orchestrator,
	stage string,
	tokens []string,
	enabled bool,
	fetch func(ctx context.Context, token string) (T, bool, error),
) (map[string]T, StageReport) {
	started := time.Now()
	rep := StageReport{Stage: stage, Tokens: len(tokens)}
	out := make(map[string]T, len(tokens))
	if !enabled {
		rep.Skipped = len(tokens)
		return out, rep
	}
	size := o.batchSize()
	for i := 0; i < len(tokens); i += size {
		if ctx.Err() != nil {
			rep.Cancelled = true
			rep.Skipped += len(tokens) - i
			break
		}
		end := i + size
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[i:end]
		results := make([]fetchResult[T], len(batch))
		found := make([]bool, len(batch))
		var g errgroup.Group
		for j, token := range batch {
			j, token := j, token
			g.Go(func() error {
				fctx, cancel := o.fetchContext(ctx)
				defer cancel()
				val, ok, err := fetch(fctx, token)
				results[j] = fetchResult[T]{val: val, err: err}
				found[j] = ok
				return nil
			})
		}
		_ = g.Wait()
		rep.Batches++

		for j, token := range batch {
			res := results[j]
			if res.err != nil {
				rep.Failed++
				if o.Logger != nil {
					o.Logger.Warn("enrich fetch failed", zap.String("stage", stage), zap.String("token", token), zap.Error(res.err))
				}
				continue
			}
			if !found[j] {
				rep.Empty++
			} else {
				rep.Fetched++
			}
			out[token] = res.val
		}

		if o.Params.BatchDelay > 0 && end < len(tokens) {
			select {
			case <-ctx.Done():
			case <-time.After(o.Params.BatchDelay):
			}
		}
	}
	rep.ElapsedMs = time.Since(started).Milliseconds()
	if o.Logger != nil {
		o.Logger.Debug("enrich stage done",
			zap.String("stage", stage),
			zap.Int("tokens", rep.Tokens),
			zap.Int("fetched", rep.Fetched),
			zap.Int("empty", rep.Empty),
			zap.Int("failed", rep.Failed),
			zap.Int("skipped", rep.Skipped),
			zap.Bool("cancelled", rep.Cancelled),
		)
	}
	return out, rep
}

func (o *Orchestrator) batchSize() int {
	size := o.Params.BatchSize
	if size <= 0 {
		return defaultBatchSize
	}
	if size < minBatchSize {
		return minBatchSize
	}
	if size > maxBatchSize {
		return maxBatchSize
	}
	return size
}

func (o *Orchestrator) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Params.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Params.FetchTimeout)
}

// tokenIndex returns the sorted unique tokens and, per token, the earliest
// entry time across closed trades and open positions.
func tokenIndex(closed []models.ClosedTrade, open []models.OpenPosition) ([]string, map[string]time.Time) {
	earliest := map[string]int64{}
	note := func(token string, ts int64) {
		token = strings.TrimSpace(token)
		if token == "" {
			return
		}
		if cur, ok := earliest[token]; !ok || ts < cur {
			earliest[token] = ts
		}
	}
	for _, t := range closed {
		note(t.TokenAddress, t.EntryTimestamp)
	}
	for _, p := range open {
		note(p.TokenAddress, p.EntryTimestamp)
	}
	tokens := make([]string, 0, len(earliest))
	from := make(map[string]time.Time, len(earliest))
	for token, ts := range earliest {
		tokens = append(tokens, token)
		from[token] = time.UnixMilli(ts)
	}
	sort.Strings(tokens)
	return tokens, from
}
