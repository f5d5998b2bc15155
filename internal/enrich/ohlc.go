package enrich

import (
	"math"
	"sort"
	"time"

	"walletscope/internal/models"
)

// Window is the part of a position's life a candle series is scored against.
// Exit is the sell time for closed trades and the analysis time for open ones.
type Window struct {
	Entry      int64
	Exit       int64
	EntryPrice float64
	ExitPrice  float64
	Closed     bool
}

type PriceMovement struct {
	Candles         int
	MaxPrice        float64
	MaxPriceAt      int64
	MinPrice        float64
	MinPriceAt      int64
	MaxPotentialROI float64
	MaxDrawdownROI  float64
	TimeToPeakMs    int64

	HasOneHour     bool
	OneHourMovePct float64

	HasPostExit    bool
	PostExitMaxROI float64
}

// SortCandles returns an ascending copy without candles that carry no usable prices.
func SortCandles(candles []models.Candle) []models.Candle {
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if c.Timestamp <= 0 || !usable(c.High) || !usable(c.Low) || !usable(c.Close) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// AnalyzeCandles scans ascending candles once. ok is false when no candle
// falls inside the hold window.
func AnalyzeCandles(candles []models.Candle, w Window, postExit time.Duration) (PriceMovement, bool) {
	pm := PriceMovement{}
	hourEnd := w.Entry + time.Hour.Milliseconds()
	postEnd := w.Exit + postExit.Milliseconds()
	postMax := 0.0
	for _, c := range candles {
		if c.Timestamp < w.Entry {
			continue
		}
		if c.Timestamp <= w.Exit {
			if pm.Candles == 0 || c.High > pm.MaxPrice {
				pm.MaxPrice, pm.MaxPriceAt = c.High, c.Timestamp
			}
			if pm.Candles == 0 || c.Low < pm.MinPrice {
				pm.MinPrice, pm.MinPriceAt = c.Low, c.Timestamp
			}
			pm.Candles++
			if c.Timestamp <= hourEnd {
				pm.HasOneHour = true
				pm.OneHourMovePct = models.ROI(w.EntryPrice, c.Close)
			}
			continue
		}
		if !w.Closed || c.Timestamp > postEnd {
			continue
		}
		if !pm.HasPostExit || c.High > postMax {
			postMax = c.High
		}
		pm.HasPostExit = true
	}
	if pm.Candles == 0 {
		return PriceMovement{}, false
	}
	pm.MaxPotentialROI = models.ROI(w.EntryPrice, pm.MaxPrice)
	pm.MaxDrawdownROI = models.ROI(w.EntryPrice, pm.MinPrice)
	pm.TimeToPeakMs = pm.MaxPriceAt - w.Entry
	if pm.HasPostExit {
		pm.PostExitMaxROI = models.ROI(w.ExitPrice, postMax)
	}
	return pm, true
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
