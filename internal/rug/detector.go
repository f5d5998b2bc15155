package rug

import (
	"go.uber.org/zap"

	"walletscope/internal/models"
)

const (
	RugScoreThreshold  = 50
	HardScoreThreshold = 70
)

type Params struct {
	LiquidityFloorUSD       float64
	MarketCapMaterialityUSD float64
	ScamLiquidityFloorUSD   float64
}

func DefaultParams() Params {
	return Params{
		LiquidityFloorUSD:       1000,
		MarketCapMaterialityUSD: 10000,
		ScamLiquidityFloorUSD:   1000,
	}
}

// Detector scores trades against a rule list. A nil Rules uses DefaultRules.
type Detector struct {
	Params Params
	Rules  []Rule
	Logger *zap.Logger
}

// Assess is deterministic and side-effect free.
func (d *Detector) Assess(in Input) models.RugAssessment {
	rules := d.Rules
	if rules == nil {
		rules = DefaultRules
	}
	out := models.RugAssessment{Class: models.RugNone, Rules: []string{}, Reasons: []string{}}
	floor := models.RugNone
	for _, r := range rules {
		if r.Match == nil || !r.Match(in, d.Params) {
			continue
		}
		out.Score += r.Weight
		out.Rules = append(out.Rules, r.Name)
		out.Reasons = append(out.Reasons, r.Reason)
		if r.MinClass.Rank() > floor.Rank() {
			floor = r.MinClass
		}
	}
	out.IsRug = out.Score >= RugScoreThreshold
	switch {
	case out.Score >= HardScoreThreshold:
		out.Class = models.RugHard
	case out.IsRug:
		out.Class = models.RugSoft
	}
	if out.IsRug && floor.Rank() > out.Class.Rank() {
		out.Class = floor
	}
	out.Confidence = out.Score
	if out.Confidence > 100 {
		out.Confidence = 100
	}
	return out
}

// AssessTrades returns copies of trades with the rug block filled.
func (d *Detector) AssessTrades(trades []models.ClosedTrade) []models.ClosedTrade {
	out := make([]models.ClosedTrade, len(trades))
	rugs := 0
	for i, t := range trades {
		t.Enrichment.Rug = d.Assess(Input{Profile: t.Enrichment.RiskProfile, RealizedROI: t.RealizedROI, HasOutcome: true})
		if t.Enrichment.Rug.IsRug {
			rugs++
		}
		out[i] = t
	}
	if d.Logger != nil && rugs > 0 {
		d.Logger.Debug("rug trades flagged", zap.Int("rugs", rugs), zap.Int("trades", len(trades)))
	}
	return out
}

// PositionLiquidity picks the best known liquidity for a position, preferring
// the token overview over the market snapshot.
func PositionLiquidity(p models.OpenPosition) (float64, bool) {
	if p.Enrichment.RiskProfile.LiquidityKnown {
		return p.Enrichment.RiskProfile.LiquidityUSD, true
	}
	if p.Enrichment.LiquidityKnown {
		return p.Enrichment.LiquidityUSD, true
	}
	return 0, false
}

// IsScam flags positions whose paper PnL cannot be realized: known liquidity
// under the scam floor, whatever the unrealized PnL says.
func (d *Detector) IsScam(p models.OpenPosition) bool {
	liq, known := PositionLiquidity(p)
	return known && liq < d.Params.ScamLiquidityFloorUSD
}

// AssessPositions sets the scam flag and the rug block on copies of positions.
func (d *Detector) AssessPositions(positions []models.OpenPosition) []models.OpenPosition {
	out := make([]models.OpenPosition, len(positions))
	for i, p := range positions {
		p.IsScamToken = d.IsScam(p)
		p.Enrichment.Rug = d.Assess(Input{Profile: p.Enrichment.RiskProfile})
		out[i] = p
		if p.IsScamToken && d.Logger != nil {
			d.Logger.Debug("scam position flagged", zap.String("token", p.TokenAddress), zap.String("position_id", p.PositionID))
		}
	}
	return out
}
