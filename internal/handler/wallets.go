package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"walletscope/internal/aggregate"
	"walletscope/internal/client/marketdata"
	"walletscope/internal/service"
)

type walletAnalyzer interface {
	Analyze(ctx context.Context, wallet string, opts service.AnalysisOptions) (*service.WalletAnalysis, error)
	Overview(ctx context.Context, wallet string, days int, opts service.AnalysisOptions) (aggregate.Overview, error)
}

type WalletHandler struct {
	Analyzer walletAnalyzer
	// OverviewDays is used when the request does not pass ?days.
	OverviewDays int
}

func (h *WalletHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/wallets/:address")
	g.GET("/analysis", h.analysis)
	g.GET("/metrics", h.metrics)
	g.GET("/tokens", h.tokens)
	g.GET("/overview", h.overview)
	g.GET("/positions", h.positions)
}

// @Summary Full wallet analysis
// @Tags wallets
// @Param address path string true "wallet address"
// @Param force query bool false "bypass cache"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/wallets/{address}/analysis [get]
func (h *WalletHandler) analysis(c *gin.Context) {
	a, ok := h.analyze(c)
	if !ok {
		return
	}
	Ok(c, a, analysisMeta(a))
}

// @Summary Raw and clean wallet metrics
// @Tags wallets
// @Param address path string true "wallet address"
// @Param force query bool false "bypass cache"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/wallets/{address}/metrics [get]
func (h *WalletHandler) metrics(c *gin.Context) {
	a, ok := h.analyze(c)
	if !ok {
		return
	}
	Ok(c, a.Metrics, analysisMeta(a))
}

// @Summary Per-token breakdown sorted by realized PnL
// @Tags wallets
// @Param address path string true "wallet address"
// @Param force query bool false "bypass cache"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/wallets/{address}/tokens [get]
func (h *WalletHandler) tokens(c *gin.Context) {
	a, ok := h.analyze(c)
	if !ok {
		return
	}
	meta := analysisMeta(a)
	meta["total"] = len(a.Tokens)
	Ok(c, a.Tokens, meta)
}

// @Summary Rolling N-day overview
// @Tags wallets
// @Param address path string true "wallet address"
// @Param days query int false "window in days (default 7)"
// @Param force query bool false "bypass cache"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/wallets/{address}/overview [get]
func (h *WalletHandler) overview(c *gin.Context) {
	if h.Analyzer == nil {
		Error(c, http.StatusInternalServerError, "analyzer unavailable", nil)
		return
	}
	fallback := h.OverviewDays
	if fallback <= 0 {
		fallback = aggregate.DefaultOverviewDays
	}
	days := intQuery(c, "days", fallback)
	if days <= 0 || days > 365 {
		Error(c, http.StatusBadRequest, "days must be between 1 and 365", nil)
		return
	}
	ov, err := h.Analyzer.Overview(c.Request.Context(), c.Param("address"), days, service.AnalysisOptions{
		Force: boolQueryDefault(c, "force", false),
	})
	if err != nil {
		writeAnalysisError(c, err)
		return
	}
	Ok(c, ov, map[string]any{"wallet": strings.TrimSpace(c.Param("address"))})
}

// @Summary Open positions with scam flags
// @Tags wallets
// @Param address path string true "wallet address"
// @Param force query bool false "bypass cache"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/wallets/{address}/positions [get]
func (h *WalletHandler) positions(c *gin.Context) {
	a, ok := h.analyze(c)
	if !ok {
		return
	}
	scams := 0
	for _, p := range a.OpenPositions {
		if p.IsScamToken {
			scams++
		}
	}
	meta := analysisMeta(a)
	meta["total"] = len(a.OpenPositions)
	meta["scam_positions"] = scams
	Ok(c, a.OpenPositions, meta)
}

func (h *WalletHandler) analyze(c *gin.Context) (*service.WalletAnalysis, bool) {
	if h.Analyzer == nil {
		Error(c, http.StatusInternalServerError, "analyzer unavailable", nil)
		return nil, false
	}
	a, err := h.Analyzer.Analyze(c.Request.Context(), c.Param("address"), service.AnalysisOptions{
		Force: boolQueryDefault(c, "force", false),
	})
	if err != nil {
		writeAnalysisError(c, err)
		return nil, false
	}
	return a, true
}

func analysisMeta(a *service.WalletAnalysis) map[string]any {
	return map[string]any{
		"wallet":      a.Wallet,
		"computed_at": a.ComputedAt,
		"cached":      a.Cached,
		"truncated":   a.Truncated,
	}
}

func writeAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidWallet):
		Fail(c, http.StatusBadRequest, "invalid_wallet", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		Fail(c, http.StatusGatewayTimeout, "timeout", err.Error(), nil)
	case marketdata.IsNotFound(err):
		Fail(c, http.StatusNotFound, "not_found", "wallet not found upstream", nil)
	default:
		Fail(c, http.StatusBadGateway, "upstream_error", err.Error(), nil)
	}
}
