package metrics

import (
	"math"
	"sort"
	"time"

	"walletscope/internal/models"
)

const (
	ConcentrationHigh         = "Highly Concentrated"
	ConcentrationModerate     = "Moderately Concentrated"
	ConcentrationSlight       = "Slightly Concentrated"
	ConcentrationDiversified  = "Diversified"
	ConcentrationInsufficient = "Insufficient Data"
)

const (
	RatingExcellent = "Excellent"
	RatingGood      = "Good"
	RatingFair      = "Fair"
	RatingPoor      = "Poor"
)

type Params struct {
	EntryReferenceHours float64
	EarlyExitPenalty    float64
	Location            *time.Location
}

func DefaultParams() Params {
	return Params{EntryReferenceHours: 24, EarlyExitPenalty: 20, Location: time.UTC}
}

// Compute aggregates one trade set. It reads its inputs only; an empty set
// yields the zero AggregatedMetrics with Poor rating and Insufficient Data
// concentration.
func Compute(closed []models.ClosedTrade, open []models.OpenPosition, p Params) models.AggregatedMetrics {
	m := models.AggregatedMetrics{TokenShares: []models.TokenShare{}}

	rois := make([]float64, 0, len(closed))
	holds := make([]float64, 0, len(closed))
	winHolds := make([]float64, 0, len(closed))
	lossHolds := make([]float64, 0, len(closed))
	for _, t := range closed {
		m.TotalTrades++
		m.TotalPnL += t.RealizedPnL
		rois = append(rois, t.RealizedROI)
		holds = append(holds, float64(t.HoldingDurationMs))
		if t.IsWin {
			m.WinningTrades++
			m.WinPnL += t.RealizedPnL
			winHolds = append(winHolds, float64(t.HoldingDurationMs))
		} else {
			m.LosingTrades++
			m.LossPnL += t.RealizedPnL
			lossHolds = append(lossHolds, float64(t.HoldingDurationMs))
		}
		if t.Enrichment.EarlyExit {
			m.EarlyExitCount++
		}
		if t.Enrichment.Rug.IsRug {
			m.RugTrades++
		}
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	m.AvgROI, m.MedianROI = mean(rois), median(rois)
	m.AvgHoldingMs, m.MedianHoldingMs = int64(mean(holds)), int64(median(holds))
	m.AvgWinHoldingMs, m.MedianWinHoldingMs = int64(mean(winHolds)), int64(median(winHolds))
	m.AvgLossHoldingMs, m.MedianLossHoldingMs = int64(mean(lossHolds)), int64(median(lossHolds))

	potentials := make([]float64, 0, len(closed))
	for _, t := range closed {
		if t.Enrichment.HasPriceData() {
			potentials = append(potentials, t.Enrichment.MaxPotentialROI)
		}
	}
	m.AvgMaxPotentialROI, m.MedianMaxPotentialROI = mean(potentials), median(potentials)
	m.EntrySkillScore = EntrySkill(closed, p.EntryReferenceHours)
	m.ExitSkillScore = ExitSkill(closed, p.EarlyExitPenalty)

	m.HHI, m.TokenShares = HHI(closed)
	m.Concentration = ConcentrationLabel(m.HHI, len(m.TokenShares) > 0)

	td := Temporal(closed, open, p.Location)
	m.UniqueTokens = td.UniqueTokens
	m.ActiveDays = td.ActiveDays
	m.AvgTokensPerDay = td.AvgTokensPerDay
	m.ProjectedTokensPerWeek = td.AvgTokensPerDay * 7
	m.ProjectedTokensPerMonth = td.AvgTokensPerDay * 30

	for _, pos := range open {
		m.OpenPositions++
		if pos.PriceKnown {
			m.UnrealizedPnL += pos.UnrealizedPnL
		}
		if pos.IsScamToken {
			m.ScamPositions++
		}
	}

	m.CopyTradeRating = Rating(m)
	return m
}

// EntrySkill blends capture of the available move with how long the move
// took to peak, each scaled to 0-100.
func EntrySkill(closed []models.ClosedTrade, referenceHours float64) float64 {
	if referenceHours <= 0 {
		referenceHours = 24
	}
	var ratios, runways []float64
	for _, t := range closed {
		if !t.Enrichment.HasPriceData() {
			continue
		}
		if t.Enrichment.MaxPotentialROI > 0 {
			ratios = append(ratios, clamp(t.RealizedROI/t.Enrichment.MaxPotentialROI*100, 0, 100))
		}
		hours := float64(t.Enrichment.TimeToPeakMs) / float64(time.Hour.Milliseconds())
		runways = append(runways, clamp(hours/referenceHours*100, 0, 100))
	}
	if len(runways) == 0 {
		return 0
	}
	return 0.5*mean(ratios) + 0.5*mean(runways)
}

// ExitSkill is the mean share of the in-hold rise that the exit captured,
// less a penalty proportional to the early-exit rate.
func ExitSkill(closed []models.ClosedTrade, penalty float64) float64 {
	var effs []float64
	early := 0
	for _, t := range closed {
		if !t.Enrichment.HasPriceData() {
			continue
		}
		eff := 0.0
		if t.Enrichment.MaxPrice > t.EntryPrice {
			eff = clamp((t.ExitPrice-t.EntryPrice)/(t.Enrichment.MaxPrice-t.EntryPrice), 0, 1)
		}
		effs = append(effs, eff)
		if t.Enrichment.EarlyExit {
			early++
		}
	}
	if len(effs) == 0 {
		return 0
	}
	score := mean(effs)*100 - penalty*float64(early)/float64(len(effs))
	return clamp(score, 0, 100)
}

// HHI is the Herfindahl-Hirschman index over each token's share of total
// absolute realized PnL, 0 to 10000.
func HHI(closed []models.ClosedTrade) (float64, []models.TokenShare) {
	byToken := map[string]*models.TokenShare{}
	total := 0.0
	for _, t := range closed {
		abs := math.Abs(t.RealizedPnL)
		share, ok := byToken[t.TokenAddress]
		if !ok {
			share = &models.TokenShare{TokenAddress: t.TokenAddress, TokenSymbol: t.TokenSymbol}
			byToken[t.TokenAddress] = share
		}
		share.AbsPnL += abs
		total += abs
	}
	shares := []models.TokenShare{}
	if total == 0 {
		return 0, shares
	}
	hhi := 0.0
	for _, s := range byToken {
		s.SharePct = s.AbsPnL / total * 100
		hhi += s.SharePct * s.SharePct
		shares = append(shares, *s)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].SharePct != shares[j].SharePct {
			return shares[i].SharePct > shares[j].SharePct
		}
		return shares[i].TokenAddress < shares[j].TokenAddress
	})
	return hhi, shares
}

func ConcentrationLabel(hhi float64, hasData bool) string {
	switch {
	case !hasData:
		return ConcentrationInsufficient
	case hhi > 2500:
		return ConcentrationHigh
	case hhi > 1500:
		return ConcentrationModerate
	case hhi > 1000:
		return ConcentrationSlight
	default:
		return ConcentrationDiversified
	}
}

// Rating is a first-match cascade over the aggregate.
func Rating(m models.AggregatedMetrics) string {
	switch {
	case m.WinRate >= 70 && m.AvgROI >= 30 && m.MedianMaxPotentialROI >= 50 && m.EntrySkillScore >= 70:
		return RatingExcellent
	case m.WinRate >= 60 && m.AvgROI >= 20 && m.EntrySkillScore >= 60:
		return RatingGood
	case m.WinRate >= 50 || m.AvgROI >= 10:
		return RatingFair
	default:
		return RatingPoor
	}
}

// RatingRank orders ratings for sorting, higher is better.
func RatingRank(rating string) int {
	switch rating {
	case RatingExcellent:
		return 3
	case RatingGood:
		return 2
	case RatingFair:
		return 1
	default:
		return 0
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
