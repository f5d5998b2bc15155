package repository

import (
	"context"
	"time"

	"walletscope/internal/models"
)

type LeaderboardQuery struct {
	Limit     int
	MinTrades int
	Rating    string
}

// WalletScoreRepository persists the latest analysis summary per wallet.
// Get returns nil, nil when the wallet has no snapshot.
type WalletScoreRepository interface {
	UpsertWalletScore(ctx context.Context, item *models.WalletScore) error
	GetWalletScore(ctx context.Context, wallet string) (*models.WalletScore, error)
	ListLeaderboard(ctx context.Context, q LeaderboardQuery) ([]models.WalletScore, error)
	DeleteWalletScoresBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
