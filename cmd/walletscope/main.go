package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"walletscope/internal/cache"
	"walletscope/internal/client/marketdata"
	"walletscope/internal/config"
	cronrunner "walletscope/internal/cron"
	"walletscope/internal/db"
	"walletscope/internal/enrich"
	"walletscope/internal/fifo"
	"walletscope/internal/handler"
	"walletscope/internal/logger"
	"walletscope/internal/metrics"
	"walletscope/internal/middleware"
	"walletscope/internal/repository"
	gormrepository "walletscope/internal/repository/gorm"
	"walletscope/internal/rug"
	"walletscope/internal/service"

	_ "walletscope/docs"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfgPath := os.Getenv("WS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if envOnlyRaw := os.Getenv("WS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log, cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	loc, err := time.LoadLocation(cfg.Metrics.Timezone)
	if err != nil {
		logger.Warn("invalid metrics timezone, using UTC", zap.String("timezone", cfg.Metrics.Timezone), zap.Error(err))
		loc = time.UTC
	}

	var (
		dbConn *db.DB
		scores repository.WalletScoreRepository
	)
	if strings.TrimSpace(cfg.DB.DSN) != "" {
		dbConn, err = db.Open(cfg.DB, logger)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)
		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		scores = gormrepository.New(dbConn.Gorm)
	} else {
		logger.Info("db dsn empty, score persistence disabled")
	}

	store, memStore := newCache(cfg, logger)
	if rs, ok := store.(*cache.RedisStore); ok {
		defer rs.Close()
	}

	mdClient := marketdata.NewClient(&http.Client{Timeout: cfg.MarketData.Timeout}, cfg.MarketData.BaseURL, cfg.MarketData.APIKey)

	rugParams := rug.Params{
		LiquidityFloorUSD:       cfg.Rug.LiquidityFloorUSD,
		MarketCapMaterialityUSD: cfg.Rug.MarketCapMaterialityUSD,
		ScamLiquidityFloorUSD:   cfg.Rug.ScamLiquidityFloorUSD,
	}
	analysis := &service.AnalysisService{
		Transactions: mdClient,
		FIFO: &fifo.Engine{
			Params: fifo.Params{
				UnmatchedSellPolicy: fifo.ParsePolicy(cfg.FIFO.UnmatchedSellPolicy),
				Dust:                cfg.FIFO.DustQuantity,
			},
			Logger: logger,
		},
		Enricher: &enrich.Orchestrator{
			Sources: enrich.Sources{
				Market:       mdClient,
				Candles:      mdClient,
				Counterparty: mdClient,
				Overview:     mdClient,
			},
			Params: enrich.Params{
				BatchSize:             cfg.Enrichment.BatchSize,
				BatchDelay:            cfg.Enrichment.BatchDelay,
				FetchTimeout:          cfg.Enrichment.FetchTimeout,
				ScamLiquidityFloorUSD: cfg.Rug.ScamLiquidityFloorUSD,
				EarlyExitThresholdPct: cfg.Metrics.EarlyExitThresholdPct,
				PostExitWindow:        cfg.Enrichment.PostExitWindow,
			},
			Logger: logger,
		},
		Rug: &rug.Detector{Params: rugParams, Logger: logger},
		Metrics: metrics.Params{
			EntryReferenceHours: cfg.Metrics.EntryReferenceHours,
			EarlyExitPenalty:    cfg.Metrics.EarlyExitPenalty,
			Location:            loc,
		},
		Cache:          store,
		CacheTTL:       cfg.Cache.TTL,
		CacheKeyPrefix: cfg.Cache.KeyPrefix,
		Scores:         scores,
		PageLimit:      cfg.Fetch.PageLimit,
		MaxPages:       cfg.Fetch.MaxPages,
		OverviewDays:   cfg.Overview.WindowDays,
		Logger:         logger,
	}
	tracker := &service.WalletTracker{
		Analyzer:  analysis,
		Scores:    scores,
		Wallets:   cfg.Tracker.Wallets,
		Retention: cfg.Tracker.Retention,
		Logger:    logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.AccessLog(logger))
	engine.Use(middleware.RequireBearer(cfg.Server.AuthToken))

	healthHandler := &handler.HealthHandler{Cache: store}
	if dbConn != nil {
		healthHandler.DB = dbConn.Gorm
	}
	healthHandler.Register(engine)
	walletHandler := &handler.WalletHandler{Analyzer: analysis, OverviewDays: cfg.Overview.WindowDays}
	walletHandler.Register(engine)
	leaderboardHandler := &handler.LeaderboardHandler{Repo: scores}
	leaderboardHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if len(cfg.Tracker.Wallets) > 0 {
			_, err = cronRunner.Add("tracker_refresh", cfg.Cron.TrackerRefresh, func(ctx context.Context) {
				result, err := tracker.RunOnce(ctx)
				if err != nil {
					logger.Warn("cron tracker refresh failed", zap.Error(err))
					return
				}
				logger.Info("cron tracker refresh ok",
					zap.Int("wallets", result.Wallets),
					zap.Int("updated", result.Updated),
					zap.Int("failed", result.Failed),
				)
			})
			if err != nil {
				logger.Warn("cron register tracker refresh failed", zap.Error(err))
			}
		}
		if scores != nil && cfg.Tracker.Retention > 0 {
			_, err = cronRunner.Add("retention_purge", cfg.Cron.RetentionPurge, func(ctx context.Context) {
				n, err := tracker.PurgeStale(ctx)
				if err != nil {
					logger.Warn("purge stale wallet scores failed", zap.Error(err))
					return
				}
				if n > 0 {
					logger.Info("purged stale wallet scores", zap.Int64("count", n))
				}
			})
			if err != nil {
				logger.Warn("cron register retention purge failed", zap.Error(err))
			}
		}
		if memStore != nil {
			_, err = cronRunner.Add("cache_sweep", "@every 5m", func(context.Context) {
				if n := memStore.Sweep(); n > 0 {
					logger.Debug("swept expired cache entries", zap.Int("count", n))
				}
			})
			if err != nil {
				logger.Warn("cron register cache sweep failed", zap.Error(err))
			}
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	if !cfg.Cron.Enabled && len(cfg.Tracker.Wallets) > 0 {
		go func() {
			if err := tracker.Run(ctx, cfg.Tracker.Interval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("wallet tracker stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// newCache picks Redis when configured and reachable, otherwise the
// in-process store. The memory store is also returned for sweeping.
func newCache(cfg config.Config, logger *zap.Logger) (cache.Store, *cache.MemoryStore) {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if strings.EqualFold(cfg.Cache.Backend, "redis") && addr != "" {
		rs := cache.NewRedisStore(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := rs.Ping(ctx)
		if err == nil {
			logger.Info("analysis cache backend", zap.String("backend", "redis"), zap.String("addr", addr))
			return rs, nil
		}
		logger.Warn("redis unreachable, falling back to memory cache", zap.Error(err))
		_ = rs.Close()
	}
	mem := cache.NewMemoryStore()
	logger.Info("analysis cache backend", zap.String("backend", "memory"))
	return mem, mem
}
