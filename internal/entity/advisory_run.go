package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// AdvisoryRun is the persisted snapshot of one published portfolio advisory.
type AdvisoryRun struct {
	ID                   uint                     `gorm:"primaryKey" json:"id"`
	RunID                string                   `gorm:"type:varchar(36);uniqueIndex;not null" json:"run_id"`
	RunAt                time.Time                `gorm:"not null;index" json:"run_at"`
	TotalInvested        float64                  `json:"total_invested"`
	TotalCurrent         float64                  `json:"total_current"`
	UnrealizedPL         float64                  `json:"unrealized_pl"`
	UnrealizedPLPct      float64                  `json:"unrealized_pl_pct"`
	MaxConcentration     float64                  `json:"max_concentration"`
	ConcentrationFlagged bool                     `json:"concentration_flagged"`
	NarrativeAvailable   bool                     `json:"narrative_available"`
	Narrative            string                   `gorm:"type:text" json:"narrative"`
	RiskScore            int                      `json:"risk_score"`
	DegradedCount        int                      `json:"degraded_count"`
	Data                 datatypes.JSON           `gorm:"type:jsonb" json:"-"`
	Recommendations      []AdvisoryRecommendation `gorm:"foreignKey:AdvisoryRunID" json:"recommendations,omitempty"`
	CreatedAt            time.Time                `gorm:"autoCreateTime" json:"created_at"`
}

func (AdvisoryRun) TableName() string {
	return "advisory_runs"
}

// AdvisoryRecommendation is one position's recommendation within a run.
type AdvisoryRecommendation struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	AdvisoryRunID    uint           `gorm:"not null;index" json:"advisory_run_id"`
	Ticker           string         `gorm:"type:varchar(16);not null" json:"ticker"`
	Exchange         string         `gorm:"type:varchar(8);not null" json:"exchange"`
	Action           string         `gorm:"type:varchar(16);not null" json:"action"`
	Confidence       float64        `json:"confidence"`
	Price            float64        `json:"price"`
	PriceSource      string         `gorm:"type:varchar(32)" json:"price_source"`
	PriceConfidence  string         `gorm:"type:varchar(16)" json:"price_confidence"`
	AIStatus         string         `gorm:"type:varchar(16)" json:"ai_status"`
	Degraded         bool           `json:"degraded"`
	InsufficientData bool           `json:"insufficient_data"`
	Rationale        string         `gorm:"type:text" json:"rationale"`
	KeySignals       pq.StringArray `gorm:"type:text[]" json:"key_signals"`
	RiskNotes        pq.StringArray `gorm:"type:text[]" json:"risk_notes"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (AdvisoryRecommendation) TableName() string {
	return "advisory_recommendations"
}
