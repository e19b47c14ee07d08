package dto

import "time"

// Action is the recommended action for a position.
type Action string

const (
	ActionHold       Action = "hold"
	ActionAddSmall   Action = "add_small"
	ActionAdd        Action = "add"
	ActionTrim       Action = "trim"
	ActionTakeProfit Action = "take_profit"
	ActionReduce     Action = "reduce"
	ActionExit       Action = "exit"
)

// Actions lists every valid action, mildest first.
var Actions = []Action{ActionHold, ActionAddSmall, ActionAdd, ActionTrim, ActionTakeProfit, ActionReduce, ActionExit}

var actionSeverity = map[Action]int{
	ActionHold:       0,
	ActionAddSmall:   1,
	ActionAdd:        1,
	ActionTrim:       2,
	ActionTakeProfit: 3,
	ActionReduce:     4,
	ActionExit:       5,
}

// Severity orders actions by urgency: exit > reduce > take_profit > trim > add/add_small > hold.
func (a Action) Severity() int {
	if s, ok := actionSeverity[a]; ok {
		return s
	}
	return -1
}

// Valid reports whether a is one of the enumerated actions.
func (a Action) Valid() bool {
	_, ok := actionSeverity[a]
	return ok
}

// AIStatus records how the LLM output was used for a recommendation.
type AIStatus string

const (
	AIStatusUsed        AIStatus = "used"
	AIStatusUnavailable AIStatus = "unavailable"
	AIStatusOverridden  AIStatus = "overridden"
)

// Levels are price zones suggested by the advisor.
type Levels struct {
	AddZone        []float64 `json:"add_zone,omitempty"`
	TakeProfitZone []float64 `json:"take_profit_zone,omitempty"`
	HardStop       *float64  `json:"hard_stop,omitempty"`
}

// Recommendation is the synthesized advice for one position in one run.
type Recommendation struct {
	Ticker           string       `json:"ticker"`
	Exchange         string       `json:"exchange"`
	Sector           string       `json:"sector"`
	Action           Action       `json:"action"`
	Confidence       float64      `json:"confidence"`
	Rationale        string       `json:"rationale"`
	KeySignals       []string     `json:"key_signals,omitempty"`
	RiskNotes        []string     `json:"risk_notes,omitempty"`
	NextReview       []string     `json:"next_review,omitempty"`
	Levels           *Levels      `json:"levels,omitempty"`
	Quote            *PriceQuote  `json:"quote,omitempty"`
	Indicators       IndicatorSet `json:"indicators"`
	AIStatus         AIStatus     `json:"ai_status"`
	Degraded         bool         `json:"degraded"`
	InsufficientData bool         `json:"insufficient_data"`
	StopLossBreached bool         `json:"stop_loss_breached"`
	GeneratedAt      time.Time    `json:"generated_at"`
}

// Key matches Position.Key.
func (r Recommendation) Key() string {
	return r.Ticker + ":" + r.Exchange
}
