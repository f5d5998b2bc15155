package metrics

import (
	"time"

	"walletscope/internal/models"
)

type TemporalDiversity struct {
	UniqueTokens    int
	ActiveDays      int
	AvgTokensPerDay float64
}

// Temporal counts distinct tokens entered per calendar day in loc. Open
// positions count as activity on their entry day.
func Temporal(closed []models.ClosedTrade, open []models.OpenPosition, loc *time.Location) TemporalDiversity {
	if loc == nil {
		loc = time.UTC
	}
	days := map[string]map[string]struct{}{}
	tokens := map[string]struct{}{}
	note := func(token string, ts int64) {
		day := time.UnixMilli(ts).In(loc).Format(time.DateOnly)
		if days[day] == nil {
			days[day] = map[string]struct{}{}
		}
		days[day][token] = struct{}{}
		tokens[token] = struct{}{}
	}
	for _, t := range closed {
		note(t.TokenAddress, t.EntryTimestamp)
	}
	for _, p := range open {
		note(p.TokenAddress, p.EntryTimestamp)
	}
	out := TemporalDiversity{UniqueTokens: len(tokens), ActiveDays: len(days)}
	if len(days) == 0 {
		return out
	}
	sum := 0
	for _, set := range days {
		sum += len(set)
	}
	out.AvgTokensPerDay = float64(sum) / float64(len(days))
	return out
}
