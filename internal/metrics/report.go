package metrics

import "walletscope/internal/models"

// Report computes the raw aggregate alongside a clean one that leaves out
// scam-flagged positions and every closed trade on a token with a hard rug.
func Report(closed []models.ClosedTrade, open []models.OpenPosition, p Params) models.MetricsReport {
	hardRug := map[string]bool{}
	for _, t := range closed {
		if t.Enrichment.Rug.Class == models.RugHard {
			hardRug[t.TokenAddress] = true
		}
	}
	cleanClosed := make([]models.ClosedTrade, 0, len(closed))
	for _, t := range closed {
		if !hardRug[t.TokenAddress] {
			cleanClosed = append(cleanClosed, t)
		}
	}
	cleanOpen := make([]models.OpenPosition, 0, len(open))
	for _, pos := range open {
		if !pos.IsScamToken {
			cleanOpen = append(cleanOpen, pos)
		}
	}
	return models.MetricsReport{
		Raw:               Compute(closed, open, p),
		Clean:             Compute(cleanClosed, cleanOpen, p),
		ExcludedTrades:    len(closed) - len(cleanClosed),
		ExcludedPositions: len(open) - len(cleanOpen),
	}
}
