package entity

import (
	"time"
)

// Holding is a position row used when holdings are kept in Postgres.
type Holding struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Ticker         string    `gorm:"type:varchar(16);not null" json:"ticker"`
	Exchange       string    `gorm:"type:varchar(8);not null" json:"exchange"`
	Shares         int64     `gorm:"not null" json:"shares"`
	AvgPrice       float64   `gorm:"not null" json:"avg_price"`
	TargetPrice    *float64  `json:"target_price"`
	MaxDrawdownPct *float64  `json:"max_drawdown_pct"`
	Notes          string    `gorm:"type:text" json:"notes"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Holding) TableName() string {
	return "holdings"
}
