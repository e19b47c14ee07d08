package service

import (
	"fmt"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
)

// Confidence attached to each decision table branch.
const (
	ConfidenceStopLoss   = 1.0
	ConfidenceTakeProfit = 0.6
	ConfidenceTrim       = 0.55
	ConfidenceAddSmall   = 0.5
	ConfidenceHold       = 0.4
)

// Decision is the indicator-only outcome for one position.
type Decision struct {
	Action           dto.Action
	Confidence       float64
	Reason           string
	StopLossBreached bool
	StopLossPrice    float64
}

// DecisionTable derives an action from price and indicators alone.
type DecisionTable struct {
	defaultDrawdownPct float64
	rsiOverbought      float64
	rsiTrim            float64
}

// NewDecisionTable creates the table from the configured thresholds.
func NewDecisionTable(cfg *config.Config) DecisionTable {
	return DecisionTable{
		defaultDrawdownPct: cfg.Advisor.DefaultMaxDrawdownPct,
		rsiOverbought:      cfg.Indicator.RSIOverbought,
		rsiTrim:            cfg.Indicator.RSITrim,
	}
}

// Decide applies the rules in order; the first match wins. Only a stop-loss
// breach yields reduce.
func (t DecisionTable) Decide(position dto.Position, price float64, ind dto.IndicatorSet) Decision {
	stop := position.StopLossPrice(t.defaultDrawdownPct)
	d := Decision{StopLossPrice: stop}

	switch {
	case price <= stop:
		d.Action = dto.ActionReduce
		d.Confidence = ConfidenceStopLoss
		d.StopLossBreached = true
		d.Reason = fmt.Sprintf("price %.0f is at or below the stop-loss %.0f (%.1f%% from average cost)",
			price, stop, position.DrawdownPct(t.defaultDrawdownPct))
	case position.TargetPrice != nil && price >= *position.TargetPrice:
		d.Action = dto.ActionTakeProfit
		d.Confidence = ConfidenceTakeProfit
		d.Reason = fmt.Sprintf("price %.0f reached the target %.0f", price, *position.TargetPrice)
	case ind.RSI14 != nil && *ind.RSI14 >= t.rsiTrim:
		d.Action = dto.ActionTrim
		d.Confidence = ConfidenceTrim
		d.Reason = fmt.Sprintf("RSI %.1f is overbought", *ind.RSI14)
	case ind.Crossover == dto.CrossoverGolden && ind.RSI14 != nil && *ind.RSI14 < t.rsiOverbought:
		d.Action = dto.ActionAddSmall
		d.Confidence = ConfidenceAddSmall
		d.Reason = fmt.Sprintf("golden cross with RSI %.1f below %.0f", *ind.RSI14, t.rsiOverbought)
	default:
		d.Action = dto.ActionHold
		d.Confidence = ConfidenceHold
		d.Reason = "no decisive technical signal"
	}
	return d
}

// Escalate returns override when it is more severe than suggested, otherwise
// suggested. It never lowers severity.
func Escalate(suggested, override dto.Action) (dto.Action, bool) {
	if override.Severity() > suggested.Severity() {
		return override, true
	}
	return suggested, false
}
