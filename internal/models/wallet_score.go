package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// WalletScore is the latest persisted analysis summary for a wallet; it
// backs the copy-trade leaderboard.
type WalletScore struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Wallet string `gorm:"type:varchar(100);not null;uniqueIndex"`

	Rating     string `gorm:"type:varchar(20);not null;index"`
	RatingRank int    `gorm:"not null;default:0;index"`

	TotalTrades   int             `gorm:"not null;default:0"`
	WinRate       float64         `gorm:"not null;default:0"`
	AvgROI        float64         `gorm:"column:avg_roi;not null;default:0"`
	TotalPnL      decimal.Decimal `gorm:"column:total_pnl;type:numeric(30,10);not null;default:0"`
	RawTotalPnL   decimal.Decimal `gorm:"column:raw_total_pnl;type:numeric(30,10);not null;default:0"`
	UnrealizedPnL decimal.Decimal `gorm:"column:unrealized_pnl;type:numeric(30,10);not null;default:0"`
	EntrySkill    float64         `gorm:"not null;default:0"`
	ExitSkill     float64         `gorm:"not null;default:0"`
	HHI           float64         `gorm:"column:hhi;not null;default:0"`
	RugTrades     int             `gorm:"not null;default:0"`
	ScamPositions int             `gorm:"not null;default:0"`

	Metrics datatypes.JSON `gorm:"type:jsonb"`

	ComputedAt time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (WalletScore) TableName() string {
	return "wallet_scores"
}
