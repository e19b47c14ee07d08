package dto

// AdvisorMode selects the prompt and response schema of an LLM call.
type AdvisorMode string

const (
	ModePerStock      AdvisorMode = "per_stock"
	ModePortfolio     AdvisorMode = "portfolio"
	ModePriceEstimate AdvisorMode = "price_estimate"
)

// StockContext is the bounded per-position payload sent to the advisor.
type StockContext struct {
	Ticker          string        `json:"ticker"`
	Exchange        string        `json:"exchange"`
	Sector          string        `json:"sector"`
	Date            string        `json:"date"`
	Price           float64       `json:"price"`
	PriceConfidence ConfidenceTag `json:"price_confidence"`
	AvgPrice        float64       `json:"avg_price"`
	TargetPrice     *float64      `json:"target_price,omitempty"`
	PctToTarget     *float64      `json:"pct_to_target,omitempty"`
	PLPctVsAvg      float64       `json:"pl_pct_vs_avg"`
	StopLossPrice   float64       `json:"stop_loss_price"`
	MaxDrawdownPct  float64       `json:"max_drawdown_pct"`
	Indicators      IndicatorSet  `json:"tech"`
	News            []string      `json:"news,omitempty"`
	Notes           string        `json:"notes,omitempty"`
}

// DigestEntry is one line of the portfolio digest.
type DigestEntry struct {
	Ticker     string  `json:"ticker"`
	Sector     string  `json:"sector"`
	WeightPct  float64 `json:"weight_pct"`
	PLPct      float64 `json:"pl_pct"`
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Degraded   bool    `json:"degraded,omitempty"`
}

// PortfolioDigest summarises a run for the portfolio-mode call.
type PortfolioDigest struct {
	Date                   string        `json:"date"`
	TotalInvested          float64       `json:"total_invested"`
	TotalCurrent           float64       `json:"total_current"`
	PLPct                  float64       `json:"pl_pct"`
	MaxConcentrationTicker string        `json:"max_concentration_ticker"`
	MaxConcentrationPct    float64       `json:"max_concentration_pct"`
	Positions              []DigestEntry `json:"positions"`
	RiskAlerts             []string      `json:"risk_alerts,omitempty"`
}

// StockAdvice is the validated per-stock response.
type StockAdvice struct {
	Action     string   `json:"action" validate:"required,oneof=hold add_small add trim take_profit reduce exit"`
	Confidence *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
	Rationale  string   `json:"rationale" validate:"required"`
	KeySignals []string `json:"key_signals"`
	RiskNotes  string   `json:"risk_notes"`
	Levels     *Levels  `json:"levels,omitempty"`
	NextChecks []string `json:"next_checks"`
}

// PortfolioNarrative is the validated portfolio-mode response.
type PortfolioNarrative struct {
	Narrative     string   `json:"narrative" validate:"required"`
	RiskScore     int      `json:"risk_score" validate:"required,min=1,max=10"`
	RiskAlerts    []string `json:"risk_alerts"`
	PriorityTodos []string `json:"priority_todos"`
}

// PriceEstimate is the validated price-estimate response.
type PriceEstimate struct {
	Price     float64 `json:"price" validate:"required,gt=0"`
	Rationale string  `json:"rationale" validate:"required"`
}
