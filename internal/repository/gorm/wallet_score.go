package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"walletscope/internal/models"
	"walletscope/internal/repository"
)

const maxLeaderboardLimit = 500

func (s *Store) UpsertWalletScore(ctx context.Context, item *models.WalletScore) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Wallet = strings.TrimSpace(item.Wallet)
	if item.Wallet == "" {
		return errors.New("wallet is required")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rating",
			"rating_rank",
			"total_trades",
			"win_rate",
			"avg_roi",
			"total_pnl",
			"raw_total_pnl",
			"unrealized_pnl",
			"entry_skill",
			"exit_skill",
			"hhi",
			"rug_trades",
			"scam_positions",
			"metrics",
			"computed_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetWalletScore(ctx context.Context, wallet string) (*models.WalletScore, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, nil
	}
	var item models.WalletScore
	err := s.db.WithContext(ctx).Model(&models.WalletScore{}).Where("wallet = ?", wallet).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListLeaderboard orders by rating, then clean PnL, win rate and trade count.
func (s *Store) ListLeaderboard(ctx context.Context, q repository.LeaderboardQuery) ([]models.WalletScore, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	query := s.db.WithContext(ctx).Model(&models.WalletScore{})
	if q.MinTrades > 0 {
		query = query.Where("total_trades >= ?", q.MinTrades)
	}
	if rating := strings.TrimSpace(q.Rating); rating != "" {
		query = query.Where("rating = ?", rating)
	}
	var items []models.WalletScore
	err := query.
		Order("rating_rank DESC").
		Order("total_pnl DESC").
		Order("win_rate DESC").
		Order("total_trades DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (s *Store) DeleteWalletScoresBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("computed_at < ?", cutoff).Delete(&models.WalletScore{})
	return res.RowsAffected, res.Error
}

var _ repository.WalletScoreRepository = (*Store)(nil)
