package enrich

import (
	"context"
	"time"

	"walletscope/internal/models"
)

type MarketSource interface {
	MarketSnapshot(ctx context.Context, token string) (models.MarketSnapshot, error)
}

// CandleSource returns candles for [from, to]. Order is not guaranteed;
// callers sort and filter.
type CandleSource interface {
	Candles(ctx context.Context, token string, granularity models.Granularity, from, to time.Time) ([]models.Candle, error)
}

type CounterpartySource interface {
	CounterpartyRisk(ctx context.Context, token string) (models.CounterpartyRisk, error)
}

type OverviewSource interface {
	TokenOverview(ctx context.Context, token string) (models.TokenOverview, error)
}

// Sources groups the upstreams used by the orchestrator. A nil source skips
// its stage and leaves neutral defaults in place.
type Sources struct {
	Market       MarketSource
	Candles      CandleSource
	Counterparty CounterpartySource
	Overview     OverviewSource
}
