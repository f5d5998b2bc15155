package enrich

import (
	"time"

	"walletscope/internal/models"
)

const (
	BracketMicro   = "micro"
	BracketSmall   = "small"
	BracketMid     = "mid"
	BracketLarge   = "large"
	BracketMega    = "mega"
	BracketUnknown = "unknown"
)

const (
	LiquidityUnknown  = "unknown"
	LiquidityIlliquid = "illiquid"
	LiquidityThin     = "thin"
	LiquidityHealthy  = "healthy"
)

// ThinLiquidityRatio is the liquidity/market-cap ratio below which a pool is thin.
const ThinLiquidityRatio = 0.05

const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
	QualityBad       = "bad"
	QualityUnknown   = "unknown"
)

// McapBracket prefers the market cap recorded on the entry leg and falls back
// to the current snapshot.
func McapBracket(entryMcap, snapshotMcap float64) string {
	mcap := entryMcap
	if mcap <= 0 {
		mcap = snapshotMcap
	}
	switch {
	case mcap <= 0:
		return BracketUnknown
	case mcap < 100_000:
		return BracketMicro
	case mcap < 1_000_000:
		return BracketSmall
	case mcap < 10_000_000:
		return BracketMid
	case mcap < 100_000_000:
		return BracketLarge
	default:
		return BracketMega
	}
}

func LiquidityStatus(liquidity, mcap float64, known bool, floor float64) string {
	switch {
	case !known:
		return LiquidityUnknown
	case liquidity < floor:
		return LiquidityIlliquid
	case mcap > 0 && liquidity/mcap < ThinLiquidityRatio:
		return LiquidityThin
	default:
		return LiquidityHealthy
	}
}

// EntryQuality buckets the price move over the first hour after entry.
func EntryQuality(movePct float64) string {
	switch {
	case movePct >= 50:
		return QualityExcellent
	case movePct >= 25:
		return QualityGood
	case movePct >= 10:
		return QualityFair
	case movePct >= 0:
		return QualityPoor
	default:
		return QualityBad
	}
}

// SelectGranularity picks the finest candle size the feed keeps for a
// position of the given age.
func SelectGranularity(age time.Duration) models.Granularity {
	switch {
	case age < 24*time.Hour:
		return models.Granularity1m
	case age < 30*24*time.Hour:
		return models.Granularity15m
	default:
		return models.Granularity4h
	}
}

func FallbackGranularity(g models.Granularity) models.Granularity {
	switch g {
	case models.Granularity1m:
		return models.Granularity15m
	case models.Granularity15m:
		return models.Granularity4h
	default:
		return models.Granularity15m
	}
}

func CounterpartyLabel(level int) string {
	switch level {
	case 1:
		return "low"
	case 2:
		return "moderate"
	case 3:
		return "elevated"
	case 4:
		return "high"
	case 5:
		return "critical"
	default:
		return models.StatusUnknown
	}
}
