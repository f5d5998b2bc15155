package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"walletscope/internal/repository"
)

type LeaderboardHandler struct {
	Repo repository.WalletScoreRepository
}

func (h *LeaderboardHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/leaderboard", h.list)
	r.GET("/api/v1/leaderboard/:address", h.get)
}

type leaderboardItem struct {
	Rank          int     `json:"rank"`
	Wallet        string  `json:"wallet"`
	Rating        string  `json:"rating"`
	TotalTrades   int     `json:"total_trades"`
	WinRate       float64 `json:"win_rate"`
	AvgROI        float64 `json:"avg_roi"`
	TotalPnL      string  `json:"total_pnl"`
	RawTotalPnL   string  `json:"raw_total_pnl"`
	UnrealizedPnL string  `json:"unrealized_pnl"`
	EntrySkill    float64 `json:"entry_skill"`
	ExitSkill     float64 `json:"exit_skill"`
	HHI           float64 `json:"hhi"`
	RugTrades     int     `json:"rug_trades"`
	ScamPositions int     `json:"scam_positions"`
	ComputedAt    string  `json:"computed_at"`
}

// @Summary Copy-trade leaderboard
// @Tags leaderboard
// @Param limit query int false "max rows (default 50)"
// @Param min_trades query int false "minimum closed trades"
// @Param rating query string false "Excellent|Good|Fair|Poor"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/leaderboard [get]
func (h *LeaderboardHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusServiceUnavailable, "persistence disabled", nil)
		return
	}
	q := repository.LeaderboardQuery{
		Limit:     intQuery(c, "limit", 50),
		MinTrades: intQuery(c, "min_trades", 0),
		Rating:    strings.TrimSpace(c.Query("rating")),
	}
	items, err := h.Repo.ListLeaderboard(c.Request.Context(), q)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]leaderboardItem, 0, len(items))
	for i, item := range items {
		out = append(out, leaderboardItem{
			Rank:          i + 1,
			Wallet:        item.Wallet,
			Rating:        item.Rating,
			TotalTrades:   item.TotalTrades,
			WinRate:       item.WinRate,
			AvgROI:        item.AvgROI,
			TotalPnL:      item.TotalPnL.StringFixed(2),
			RawTotalPnL:   item.RawTotalPnL.StringFixed(2),
			UnrealizedPnL: item.UnrealizedPnL.StringFixed(2),
			EntrySkill:    item.EntrySkill,
			ExitSkill:     item.ExitSkill,
			HHI:           item.HHI,
			RugTrades:     item.RugTrades,
			ScamPositions: item.ScamPositions,
			ComputedAt:    item.ComputedAt.UTC().Format(time.RFC3339),
		})
	}
	Ok(c, out, map[string]any{"total": len(out), "limit": q.Limit, "min_trades": q.MinTrades})
}

// @Summary Latest stored score for a wallet
// @Tags leaderboard
// @Param address path string true "wallet address"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/leaderboard/{address} [get]
func (h *LeaderboardHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusServiceUnavailable, "persistence disabled", nil)
		return
	}
	item, err := h.Repo.GetWalletScore(c.Request.Context(), c.Param("address"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "wallet score not found", nil)
		return
	}
	Ok(c, item, nil)
}
