package dto

import "time"

// PositionMetric is the valuation of one position.
type PositionMetric struct {
	Ticker          string  `json:"ticker"`
	Exchange        string  `json:"exchange"`
	Sector          string  `json:"sector"`
	Shares          int64   `json:"shares"`
	AvgPrice        float64 `json:"avg_price"`
	Price           float64 `json:"price"`
	CostBasis       float64 `json:"cost_basis"`
	MarketValue     float64 `json:"market_value"`
	UnrealizedPL    float64 `json:"unrealized_pl"`
	UnrealizedPLPct float64 `json:"unrealized_pl_pct"`
	Weight          float64 `json:"weight"`
	Priced          bool    `json:"priced"`
}

// SectorWeight is the share of portfolio value held in one sector.
type SectorWeight struct {
	Sector  string  `json:"sector"`
	Weight  float64 `json:"weight"`
	Flagged bool    `json:"flagged"`
}

// PortfolioMetrics are the deterministic aggregate figures of a run.
type PortfolioMetrics struct {
	TotalInvested          float64          `json:"total_invested"`
	TotalCurrent           float64          `json:"total_current"`
	UnrealizedPL           float64          `json:"unrealized_pl"`
	UnrealizedPLPct        float64          `json:"unrealized_pl_pct"`
	Positions              []PositionMetric `json:"positions"`
	Sectors                []SectorWeight   `json:"sectors"`
	MaxConcentration       float64          `json:"max_concentration"`
	MaxConcentrationTicker string           `json:"max_concentration_ticker"`
	ConcentrationFlagged   bool             `json:"concentration_flagged"`
	TopGainers             []string         `json:"top_gainers,omitempty"`
	TopLosers              []string         `json:"top_losers,omitempty"`
	Unpriced               []string         `json:"unpriced,omitempty"`
	RiskAlerts             []string         `json:"risk_alerts,omitempty"`
}

// PriorityAction is a recommendation selected for the headline list.
type PriorityAction struct {
	Rank          int     `json:"rank"`
	Ticker        string  `json:"ticker"`
	Exchange      string  `json:"exchange"`
	Action        Action  `json:"action"`
	Confidence    float64 `json:"confidence"`
	SeverityScore float64 `json:"severity_score"`
	UnrealizedPL  float64 `json:"unrealized_pl"`
	Rationale     string  `json:"rationale"`
}

// PortfolioAdvisory is the unit handed to rendering and delivery.
type PortfolioAdvisory struct {
	RunID              string           `json:"run_id"`
	RunAt              time.Time        `json:"run_at"`
	Owner              string           `json:"owner,omitempty"`
	Currency           string           `json:"currency"`
	Recommendations    []Recommendation `json:"recommendations"`
	Metrics            PortfolioMetrics `json:"metrics"`
	Narrative          string           `json:"narrative,omitempty"`
	NarrativeAvailable bool             `json:"narrative_available"`
	RiskScore          int              `json:"risk_score,omitempty"`
	AITodos            []string         `json:"ai_todos,omitempty"`
	Priorities         []PriorityAction `json:"priorities"`
	DegradedCount      int              `json:"degraded_count"`
}
