package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"walletscope/internal/aggregate"
	"walletscope/internal/cache"
	"walletscope/internal/enrich"
	"walletscope/internal/fifo"
	"walletscope/internal/metrics"
	"walletscope/internal/models"
	"walletscope/internal/repository"
	"walletscope/internal/rug"
)

var ErrInvalidWallet = errors.New("wallet address is required")

type TransactionSource interface {
	Transactions(ctx context.Context, wallet, cursor string, limit int) (models.TransactionPage, error)
}

type AnalysisOptions struct {
	// Force bypasses the analysis cache.
	Force bool
	Now   time.Time
}

type FIFOSummary struct {
	Excluded int               `json:"excluded"`
	Tokens   []fifo.TokenStats `json:"tokens"`
	Warnings []fifo.Warning    `json:"warnings"`
}

type WalletAnalysis struct {
	Wallet        string                   `json:"wallet"`
	ComputedAt    time.Time                `json:"computed_at"`
	Cached        bool                     `json:"cached"`
	Events        int                      `json:"events"`
	Pages         int                      `json:"pages"`
	Truncated     bool                     `json:"truncated"`
	ClosedTrades  []models.ClosedTrade     `json:"closed_trades"`
	OpenPositions []models.OpenPosition    `json:"open_positions"`
	Metrics       models.MetricsReport     `json:"metrics"`
	Tokens        []aggregate.TokenSummary `json:"tokens"`
	Overview      aggregate.Overview       `json:"overview"`
	FIFO          FIFOSummary              `json:"fifo"`
	Enrichment    enrich.Report            `json:"enrichment"`
}

// AnalysisService runs the whole pipeline for one wallet: transaction
// paging, FIFO matching, enrichment, rug scoring, metrics and aggregation.
type AnalysisService struct {
	Transactions TransactionSource
	FIFO         *fifo.Engine
	Enricher     *enrich.Orchestrator
	Rug          *rug.Detector
	Metrics      metrics.Params

	Cache          cache.Store
	CacheTTL       time.Duration
	CacheKeyPrefix string
	Scores         repository.WalletScoreRepository

	PageLimit    int
	MaxPages     int
	OverviewDays int
	Logger       *zap.Logger
}

func (s *AnalysisService) Analyze(ctx context.Context, wallet string, opts AnalysisOptions) (*WalletAnalysis, error) {
	if s == nil || s.Transactions == nil {
		return nil, fmt.Errorf("analysis unavailable")
	}
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, ErrInvalidWallet
	}
	if !opts.Force {
		if cached := s.fromCache(ctx, wallet); cached != nil {
			return cached, nil
		}
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	events, pages, truncated, err := s.fetchEvents(ctx, wallet)
	if err != nil {
		return nil, err
	}

	engine := s.FIFO
	if engine == nil {
		engine = &fifo.Engine{Logger: s.Logger}
	}
	matched := engine.Reconstruct(events)
	warnings := make([]fifo.Warning, 0, len(matched.Warnings))
	warnings = append(warnings, matched.Warnings...)
	warnings = append(warnings, engine.Validate(matched, events)...)

	enricher := s.Enricher
	if enricher == nil {
		enricher = &enrich.Orchestrator{Logger: s.Logger}
	}
	enriched := enricher.Run(ctx, enrich.Input{Closed: matched.ClosedTrades, Open: matched.OpenPositions, Now: now})

	detector := s.Rug
	if detector == nil {
		detector = &rug.Detector{Params: rug.DefaultParams()}
	}
	closed := detector.AssessTrades(enriched.Closed)
	open := detector.AssessPositions(enriched.Open)

	loc := s.Metrics.Location
	if loc == nil {
		loc = time.UTC
	}
	out := &WalletAnalysis{
		Wallet:        wallet,
		ComputedAt:    now.UTC(),
		Events:        len(events),
		Pages:         pages,
		Truncated:     truncated,
		ClosedTrades:  closed,
		OpenPositions: open,
		Metrics:       metrics.Report(closed, open, s.Metrics),
		Tokens:        aggregate.ByToken(closed),
		Overview:      aggregate.BuildOverview(closed, s.OverviewDays, now, loc),
		FIFO: FIFOSummary{
			Excluded: matched.Excluded,
			Tokens:   matched.Tokens,
			Warnings: warnings,
		},
		Enrichment: enriched.Report,
	}

	if s.Logger != nil {
		s.Logger.Info("wallet analyzed",
			zap.String("wallet", wallet),
			zap.Int("events", len(events)),
			zap.Int("closed_trades", len(closed)),
			zap.Int("open_positions", len(open)),
			zap.Int("warnings", len(warnings)),
			zap.String("rating", out.Metrics.Clean.CopyTradeRating),
			zap.Bool("enrichment_cancelled", enriched.Report.Cancelled),
		)
	}

	// A cancelled enrichment is still a usable answer, but not one to keep.
	if !enriched.Report.Cancelled {
		s.store(ctx, out)
	}
	return out, nil
}

// Overview recomputes the rolling window for a custom day count.
func (s *AnalysisService) Overview(ctx context.Context, wallet string, days int, opts AnalysisOptions) (aggregate.Overview, error) {
	a, err := s.Analyze(ctx, wallet, opts)
	if err != nil {
		return aggregate.Overview{}, err
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	return aggregate.BuildOverview(a.ClosedTrades, days, now, s.Metrics.Location), nil
}

// fetchEvents pages the transaction feed. A failure after the first page
// keeps what was read and marks the result truncated.
func (s *AnalysisService) fetchEvents(ctx context.Context, wallet string) ([]models.RawEvent, int, bool, error) {
	maxPages := s.MaxPages
	if maxPages <= 0 {
		maxPages = 20
	}
	events := []models.RawEvent{}
	seen := map[string]struct{}{}
	cursor := ""
	pages := 0
	for pages < maxPages {
		page, err := s.Transactions.Transactions(ctx, wallet, cursor, s.PageLimit)
		if err != nil {
			if pages == 0 {
				return nil, 0, false, fmt.Errorf("fetch transactions: %w", err)
			}
			if s.Logger != nil {
				s.Logger.Warn("transaction paging stopped early", zap.String("wallet", wallet), zap.Int("pages", pages), zap.Error(err))
			}
			return events, pages, true, nil
		}
		pages++
		events = append(events, page.Events...)
		next := strings.TrimSpace(page.NextCursor)
		if next == "" || len(page.Events) == 0 {
			return events, pages, false, nil
		}
		if _, ok := seen[next]; ok {
			return events, pages, false, nil
		}
		seen[next] = struct{}{}
		cursor = next
	}
	return events, pages, true, nil
}

func (s *AnalysisService) cacheKey(wallet string) string {
	return s.CacheKeyPrefix + wallet
}

func (s *AnalysisService) fromCache(ctx context.Context, wallet string) *WalletAnalysis {
	if s.Cache == nil {
		return nil
	}
	var out WalletAnalysis
	found, err := cache.GetJSON(ctx, s.Cache, s.cacheKey(wallet), &out)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("analysis cache read failed", zap.String("wallet", wallet), zap.Error(err))
		}
		return nil
	}
	if !found {
		return nil
	}
	out.Cached = true
	return &out
}

func (s *AnalysisService) store(ctx context.Context, a *WalletAnalysis) {
	if s.Cache != nil {
		if err := cache.SetJSON(ctx, s.Cache, s.cacheKey(a.Wallet), a, s.CacheTTL); err != nil && s.Logger != nil {
			s.Logger.Warn("analysis cache write failed", zap.String("wallet", a.Wallet), zap.Error(err))
		}
	}
	if s.Scores == nil {
		return
	}
	score, err := WalletScoreFromAnalysis(a)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("wallet score encode failed", zap.String("wallet", a.Wallet), zap.Error(err))
		}
		return
	}
	if err := s.Scores.UpsertWalletScore(ctx, score); err != nil && s.Logger != nil {
		s.Logger.Warn("wallet score upsert failed", zap.String("wallet", a.Wallet), zap.Error(err))
	}
}

// WalletScoreFromAnalysis snapshots the clean aggregate; raw PnL is kept
// alongside for comparison.
func WalletScoreFromAnalysis(a *WalletAnalysis) (*models.WalletScore, error) {
	clean := a.Metrics.Clean
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, err
	}
	return &models.WalletScore{
		Wallet:        a.Wallet,
		Rating:        clean.CopyTradeRating,
		RatingRank:    metrics.RatingRank(clean.CopyTradeRating),
		TotalTrades:   clean.TotalTrades,
		WinRate:       clean.WinRate,
		AvgROI:        clean.AvgROI,
		TotalPnL:      decimal.NewFromFloat(clean.TotalPnL),
		RawTotalPnL:   decimal.NewFromFloat(a.Metrics.Raw.TotalPnL),
		UnrealizedPnL: decimal.NewFromFloat(clean.UnrealizedPnL),
		EntrySkill:    clean.EntrySkillScore,
		ExitSkill:     clean.ExitSkillScore,
		HHI:           clean.HHI,
		RugTrades:     a.Metrics.Raw.RugTrades,
		ScamPositions: a.Metrics.Raw.ScamPositions,
		Metrics:       datatypes.JSON(raw),
		ComputedAt:    a.ComputedAt,
	}, nil
}
