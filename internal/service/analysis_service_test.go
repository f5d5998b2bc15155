package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"walletscope/internal/cache"
	"walletscope/internal/enrich"
	"walletscope/internal/models"
	"walletscope/internal/repository"
	"walletscope/internal/rug"
)

type stubFeed struct {
	mu      sync.Mutex
	pages   map[string]models.TransactionPage
	failOn  string
	calls   int
	cursors []string
}

func (s *stubFeed) Transactions(ctx context.Context, wallet, cursor string, limit int) (models.TransactionPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.cursors = append(s.cursors, cursor)
	if s.failOn != "" && cursor == s.failOn {
		return models.TransactionPage{}, errors.New("upstream 503")
	}
	return s.pages[cursor], nil
}

type stubScores struct {
	mu       sync.Mutex
	items    map[string]*models.WalletScore
	deleted  int64
	cutoff   time.Time
	upserted int
}

func (s *stubScores) UpsertWalletScore(ctx context.Context, item *models.WalletScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = map[string]*models.WalletScore{}
	}
	s.items[item.Wallet] = item
	s.upserted++
	return nil
}

func (s *stubScores) GetWalletScore(ctx context.Context, wallet string) (*models.WalletScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[wallet], nil
}

func (s *stubScores) ListLeaderboard(ctx context.Context, q repository.LeaderboardQuery) ([]models.WalletScore, error) {
	return nil, nil
}

func (s *stubScores) DeleteWalletScoresBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.deleted, nil
}

type stubMarket struct {
	liquidity map[string]float64
}

func (s stubMarket) MarketSnapshot(ctx context.Context, token string) (models.MarketSnapshot, error) {
	liq, ok := s.liquidity[token]
	if !ok {
		return models.MarketSnapshot{}, errors.New("no market")
	}
	return models.MarketSnapshot{LiquidityUSD: liq, LiquidityKnown: true, MarketCapUSD: 200_000, MarketCapKnown: true, PriceUSD: 3}, nil
}

var analysisNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) int64 {
	return analysisNow.Add(-d).UnixMilli()
}

func walletFeed() *stubFeed {
	return &stubFeed{pages: map[string]models.TransactionPage{
		"": {NextCursor: "p2", Events: []models.RawEvent{
			{TokenAddress: "GOOD", TokenSymbol: "GD", Side: models.SideBuy, Timestamp: at(72 * time.Hour), Quantity: 100, PriceUSD: 1, TxHash: "b1"},
			{TokenAddress: "GOOD", TokenSymbol: "GD", Side: models.SideSell, Timestamp: at(48 * time.Hour), Quantity: 100, PriceUSD: 2, TxHash: "s1"},
		}},
		"p2": {Events: []models.RawEvent{
			{TokenAddress: "SCAM", TokenSymbol: "SC", Side: models.SideBuy, Timestamp: at(5 * time.Hour), Quantity: 10, PriceUSD: 1, TxHash: "b2"},
			{TokenAddress: "", Side: models.SideBuy, Timestamp: at(time.Hour), Quantity: 1, PriceUSD: 1, TxHash: "bad"},
		}},
	}}
}

func newAnalysisService(feed TransactionSource, scores repository.WalletScoreRepository, store cache.Store) *AnalysisService {
	return &AnalysisService{
		Transactions: feed,
		Enricher: &enrich.Orchestrator{
			Sources: enrich.Sources{Market: stubMarket{liquidity: map[string]float64{"GOOD": 50_000, "SCAM": 300}}},
			Params:  enrich.Params{ScamLiquidityFloorUSD: 1000},
		},
		Rug:            &rug.Detector{Params: rug.DefaultParams()},
		Cache:          store,
		CacheTTL:       time.Minute,
		CacheKeyPrefix: "test:",
		Scores:         scores,
		PageLimit:      2,
		MaxPages:       5,
		OverviewDays:   7,
	}
}

func TestAnalyze_FullPipeline(t *testing.T) {
	feed := walletFeed()
	scores := &stubScores{}
	svc := newAnalysisService(feed, scores, cache.NewMemoryStore())

	a, err := svc.Analyze(context.Background(), " wallet-1 ", AnalysisOptions{Now: analysisNow})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if a.Wallet != "wallet-1" || a.Pages != 2 || a.Events != 4 || a.Truncated {
		t.Fatalf("analysis=%+v", a)
	}
	if len(feed.cursors) != 2 || feed.cursors[1] != "p2" {
		t.Fatalf("cursors=%v", feed.cursors)
	}
	if len(a.ClosedTrades) != 1 || len(a.OpenPositions) != 1 || a.FIFO.Excluded != 1 {
		t.Fatalf("closed=%d open=%d excluded=%d", len(a.ClosedTrades), len(a.OpenPositions), a.FIFO.Excluded)
	}
	scam := a.OpenPositions[0]
	if !scam.IsScamToken || !scam.PriceKnown || scam.UnrealizedPnL != 20 {
		t.Fatalf("scam position=%+v", scam)
	}
	if a.Metrics.Raw.ScamPositions != 1 || a.Metrics.Clean.OpenPositions != 0 || a.Metrics.ExcludedPositions != 1 {
		t.Fatalf("metrics=%+v", a.Metrics)
	}
	if a.Metrics.Raw.UnrealizedPnL != 20 || a.Metrics.Clean.UnrealizedPnL != 0 {
		t.Fatalf("unrealized raw=%v clean=%v", a.Metrics.Raw.UnrealizedPnL, a.Metrics.Clean.UnrealizedPnL)
	}
	if len(a.Tokens) != 1 || a.Tokens[0].TokenAddress != "GOOD" || a.Tokens[0].RealizedPnL != 100 {
		t.Fatalf("tokens=%+v", a.Tokens)
	}
	if a.Overview.Trades != 1 || len(a.Overview.Daily) != 7 {
		t.Fatalf("overview=%+v", a.Overview)
	}
	if len(a.Enrichment.Stages) != 4 {
		t.Fatalf("enrichment report=%+v", a.Enrichment)
	}
	score := scores.items["wallet-1"]
	if score == nil || score.TotalTrades != 1 || score.ScamPositions != 1 || !score.TotalPnL.Equal(score.RawTotalPnL) {
		t.Fatalf("score=%+v", score)
	}
	if score.Rating == "" || len(score.Metrics) == 0 {
		t.Fatalf("score rating=%q metrics=%s", score.Rating, score.Metrics)
	}
}

func TestAnalyze_CacheAndForce(t *testing.T) {
	feed := walletFeed()
	svc := newAnalysisService(feed, &stubScores{}, cache.NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Analyze(ctx, "w", AnalysisOptions{Now: analysisNow}); err != nil {
		t.Fatalf("err=%v", err)
	}
	cached, err := svc.Analyze(ctx, "w", AnalysisOptions{Now: analysisNow})
	if err != nil || !cached.Cached {
		t.Fatalf("cached=%v err=%v", cached != nil && cached.Cached, err)
	}
	if feed.calls != 2 {
		t.Fatalf("calls=%d want=2 (cache hit must not page)", feed.calls)
	}
	if len(cached.ClosedTrades) != 1 || cached.Metrics.Raw.TotalTrades != 1 {
		t.Fatalf("cached payload=%+v", cached)
	}
	fresh, err := svc.Analyze(ctx, "w", AnalysisOptions{Force: true, Now: analysisNow})
	if err != nil || fresh.Cached || feed.calls != 4 {
		t.Fatalf("force: cached=%v calls=%d err=%v", fresh.Cached, feed.calls, err)
	}
}

func TestAnalyze_PagingFailures(t *testing.T) {
	feed := walletFeed()
	feed.failOn = "p2"
	svc := newAnalysisService(feed, nil, nil)
	a, err := svc.Analyze(context.Background(), "w", AnalysisOptions{Now: analysisNow})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !a.Truncated || a.Pages != 1 || len(a.ClosedTrades) != 1 {
		t.Fatalf("analysis=%+v", a)
	}

	svc = newAnalysisService(&stubFeed{pages: map[string]models.TransactionPage{}}, nil, nil)
	a, err = svc.Analyze(context.Background(), "w", AnalysisOptions{Now: analysisNow})
	if err != nil || len(a.ClosedTrades) != 0 || a.Metrics.Raw.CopyTradeRating == "" {
		t.Fatalf("empty wallet: a=%+v err=%v", a, err)
	}

	svc = newAnalysisService(failingFeed{}, nil, nil)
	if _, err := svc.Analyze(context.Background(), "w", AnalysisOptions{}); err == nil {
		t.Fatalf("expected error when the first page fails")
	}
	if _, err := svc.Analyze(context.Background(), "  ", AnalysisOptions{}); !errors.Is(err, ErrInvalidWallet) {
		t.Fatalf("err=%v want ErrInvalidWallet", err)
	}
}

type failingFeed struct{}

func (failingFeed) Transactions(ctx context.Context, wallet, cursor string, limit int) (models.TransactionPage, error) {
	return models.TransactionPage{}, errors.New("down")
}

func TestAnalyze_CursorLoopStops(t *testing.T) {
	feed := &stubFeed{pages: map[string]models.TransactionPage{
		"":  {NextCursor: "a", Events: []models.RawEvent{{TokenAddress: "T", Side: models.SideBuy, Timestamp: 1, Quantity: 1, PriceUSD: 1, TxHash: "1"}}},
		"a": {NextCursor: "a", Events: []models.RawEvent{{TokenAddress: "T", Side: models.SideBuy, Timestamp: 2, Quantity: 1, PriceUSD: 1, TxHash: "2"}}},
	}}
	svc := newAnalysisService(feed, nil, nil)
	a, err := svc.Analyze(context.Background(), "w", AnalysisOptions{Now: analysisNow})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if feed.calls != 2 || a.Pages != 2 {
		t.Fatalf("calls=%d pages=%d", feed.calls, a.Pages)
	}
}
