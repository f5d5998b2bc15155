package enrich

import (
	"time"

	"walletscope/internal/models"
)

// Stage functions take and return values. Each writes only its own
// Enrichment fields and never touches FIFO fields.

type candleResult struct {
	Granularity models.Granularity
	Candles     []models.Candle
}

type priceParams struct {
	EarlyExitThresholdPct float64
	PostExitWindow        time.Duration
}

func marketFields(e models.Enrichment, entryMcap float64, snap models.MarketSnapshot, ok bool, scamFloor float64) models.Enrichment {
	if !ok {
		e.MarketDataStatus = models.StatusUnknown
		e.MarketCapUSD = 0
		e.LiquidityUSD = 0
		e.LiquidityKnown = false
		e.McapBracket = McapBracket(entryMcap, 0)
		e.LiquidityStatus = LiquidityUnknown
		return e
	}
	e.MarketDataStatus = models.StatusOK
	e.MarketCapUSD = 0
	if snap.MarketCapKnown {
		e.MarketCapUSD = snap.MarketCapUSD
	}
	e.LiquidityUSD = 0
	if snap.LiquidityKnown {
		e.LiquidityUSD = snap.LiquidityUSD
	}
	e.LiquidityKnown = snap.LiquidityKnown
	e.McapBracket = McapBracket(entryMcap, e.MarketCapUSD)
	e.LiquidityStatus = LiquidityStatus(e.LiquidityUSD, e.MarketCapUSD, e.LiquidityKnown, scamFloor)
	return e
}

func ApplyMarket(t models.ClosedTrade, snap models.MarketSnapshot, ok bool, scamFloor float64) models.ClosedTrade {
	t.Enrichment = marketFields(t.Enrichment, t.EntryMarketCapUSD, snap, ok, scamFloor)
	return t
}

// ApplyMarketToPosition also marks the position to the snapshot price.
func ApplyMarketToPosition(p models.OpenPosition, snap models.MarketSnapshot, ok bool, scamFloor float64) models.OpenPosition {
	p.Enrichment = marketFields(p.Enrichment, p.EntryMarketCapUSD, snap, ok, scamFloor)
	if ok && usable(snap.PriceUSD) {
		p = markPosition(p, snap.PriceUSD)
	}
	return p
}

func priceFields(e models.Enrichment, w Window, res candleResult, ok bool, roi float64, params priceParams) models.Enrichment {
	if !ok {
		e.PriceDataStatus = models.StatusUnknown
		e.EntryQuality = QualityUnknown
		return e
	}
	e.Granularity = res.Granularity
	pm, found := AnalyzeCandles(res.Candles, w, params.PostExitWindow)
	if !found {
		e.PriceDataStatus = models.StatusNoData
		e.EntryQuality = QualityUnknown
		return e
	}
	e.PriceDataStatus = models.StatusOK
	e.MaxPrice, e.MaxPriceAt = pm.MaxPrice, pm.MaxPriceAt
	e.MinPrice, e.MinPriceAt = pm.MinPrice, pm.MinPriceAt
	e.MaxPotentialROI = pm.MaxPotentialROI
	e.MaxDrawdownROI = pm.MaxDrawdownROI
	e.TimeToPeakMs = pm.TimeToPeakMs
	e.EntryQuality = QualityUnknown
	if pm.HasOneHour {
		e.OneHourMovePct = pm.OneHourMovePct
		e.EntryQuality = EntryQuality(pm.OneHourMovePct)
	}
	e.CaptureEfficiency = 0
	if pm.MaxPotentialROI > 0 {
		e.CaptureEfficiency = roi / pm.MaxPotentialROI * 100
	}
	e.PostExitMaxROI = pm.PostExitMaxROI
	e.EarlyExit = pm.HasPostExit && pm.PostExitMaxROI >= params.EarlyExitThresholdPct
	return e
}

func ApplyPrice(t models.ClosedTrade, res candleResult, ok bool, params priceParams) models.ClosedTrade {
	w := Window{
		Entry:      t.EntryTimestamp,
		Exit:       t.ExitTimestamp,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Closed:     true,
	}
	t.Enrichment = priceFields(t.Enrichment, w, res, ok, t.RealizedROI, params)
	return t
}

// ApplyPriceToPosition scores an open position up to now. When no snapshot
// price was available the latest candle close marks the position.
func ApplyPriceToPosition(p models.OpenPosition, res candleResult, ok bool, now time.Time, params priceParams) models.OpenPosition {
	if ok && !p.PriceKnown {
		for i := len(res.Candles) - 1; i >= 0; i-- {
			c := res.Candles[i]
			if c.Timestamp >= p.EntryTimestamp && c.Timestamp <= now.UnixMilli() {
				p = markPosition(p, c.Close)
				break
			}
		}
	}
	w := Window{
		Entry:      p.EntryTimestamp,
		Exit:       now.UnixMilli(),
		EntryPrice: p.EntryPrice,
		ExitPrice:  p.CurrentPrice,
	}
	p.Enrichment = priceFields(p.Enrichment, w, res, ok, p.UnrealizedROI, params)
	return p
}

func counterpartyFields(e models.Enrichment, risk models.CounterpartyRisk, ok bool) models.Enrichment {
	if !ok || risk.Level < 1 || risk.Level > 5 {
		e.CounterpartyLevel = 0
		e.CounterpartyRisk = models.StatusUnknown
		return e
	}
	e.CounterpartyLevel = risk.Level
	e.CounterpartyRisk = CounterpartyLabel(risk.Level)
	return e
}

func ApplyCounterparty(t models.ClosedTrade, risk models.CounterpartyRisk, ok bool) models.ClosedTrade {
	t.Enrichment = counterpartyFields(t.Enrichment, risk, ok)
	return t
}

func ApplyCounterpartyToPosition(p models.OpenPosition, risk models.CounterpartyRisk, ok bool) models.OpenPosition {
	p.Enrichment = counterpartyFields(p.Enrichment, risk, ok)
	return p
}

// RiskProfile folds a token overview into the profile shared by every trade
// of the token. Overview liquidity replaces snapshot liquidity only when the
// overview reported it; a field neither source reported stays unknown.
func RiskProfile(ov models.TokenOverview, ok bool, snap models.MarketSnapshot, snapOK bool) models.TokenRiskProfile {
	prof := models.TokenRiskProfile{
		Status:           models.StatusUnknown,
		DevStatus:        models.DevUnknown,
		SmartMoneyStatus: models.SmartMoneyUnknown,
	}
	if snapOK {
		if snap.LiquidityKnown {
			prof.LiquidityUSD = snap.LiquidityUSD
			prof.LiquidityKnown = true
		}
		if snap.MarketCapKnown {
			prof.MarketCapUSD = snap.MarketCapUSD
		}
	}
	if ok {
		prof.Status = models.StatusOK
		prof.DevRugCount = ov.DevRugCount
		if ov.DevStatus != "" {
			prof.DevStatus = ov.DevStatus
		}
		if ov.SmartMoneyStatus != "" {
			prof.SmartMoneyStatus = ov.SmartMoneyStatus
		}
		if ov.LiquidityKnown {
			prof.LiquidityUSD = ov.LiquidityUSD
			prof.LiquidityKnown = true
		}
		if ov.MarketCapKnown && ov.MarketCapUSD > 0 {
			prof.MarketCapUSD = ov.MarketCapUSD
		}
		prof.HolderConcentrationPct = ov.HolderBundlePct
		prof.SmartMoneyExited = prof.SmartMoneyStatus == models.SmartMoneyAllExited
		prof.SniperCount = ov.SniperCount
		if ov.SniperCount > 0 {
			prof.SniperExitRatio = float64(ov.SniperExitedCount) / float64(ov.SniperCount)
		}
	}
	if prof.LiquidityKnown && prof.MarketCapUSD > 0 {
		prof.LiquidityToMcap = prof.LiquidityUSD / prof.MarketCapUSD
	}
	return prof
}

func ApplyOverview(t models.ClosedTrade, prof models.TokenRiskProfile) models.ClosedTrade {
	t.Enrichment.RiskProfile = prof
	return t
}

func ApplyOverviewToPosition(p models.OpenPosition, prof models.TokenRiskProfile) models.OpenPosition {
	p.Enrichment.RiskProfile = prof
	return p
}

func markPosition(p models.OpenPosition, price float64) models.OpenPosition {
	p.CurrentPrice = price
	p.PriceKnown = true
	p.UnrealizedPnL = (price - p.EntryPrice) * p.Quantity
	p.UnrealizedROI = models.ROI(p.EntryPrice, price)
	return p
}
