package dto

import "strings"

// DefaultMaxDrawdownPct applies when a position does not set its own drawdown.
const DefaultMaxDrawdownPct = -15.0

// Position is one holding read from the holdings source.
type Position struct {
	Ticker         string   `json:"ticker" validate:"required,alphanum"`
	Exchange       string   `json:"exchange" validate:"required,oneof=HOSE HNX UPCOM"`
	Shares         int64    `json:"shares" validate:"gt=0"`
	AvgPrice       float64  `json:"avg_price" validate:"gt=0"`
	TargetPrice    *float64 `json:"target_price,omitempty" validate:"omitempty,gt=0"`
	MaxDrawdownPct *float64 `json:"max_drawdown_pct,omitempty" validate:"omitempty,lte=0,gte=-100"`
	Notes          string   `json:"notes,omitempty"`
}

// Key uniquely identifies the position.
func (p Position) Key() string {
	return p.Ticker + ":" + p.Exchange
}

// Normalize upper-cases ticker and exchange.
func (p Position) Normalize() Position {
	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
	p.Exchange = strings.ToUpper(strings.TrimSpace(p.Exchange))
	return p
}

// DrawdownPct returns the configured drawdown, or fallback when unset.
func (p Position) DrawdownPct(fallback float64) float64 {
	if p.MaxDrawdownPct != nil {
		return *p.MaxDrawdownPct
	}
	return fallback
}

// StopLossPrice is avg_price * (1 + drawdown/100).
func (p Position) StopLossPrice(fallbackDrawdown float64) float64 {
	return p.AvgPrice * (1 + p.DrawdownPct(fallbackDrawdown)/100)
}

// CostBasis is shares * avg_price.
func (p Position) CostBasis() float64 {
	return float64(p.Shares) * p.AvgPrice
}

// Holdings is the file format of the holdings source.
type Holdings struct {
	Owner     string     `json:"owner"`
	Currency  string     `json:"currency"`
	Timezone  string     `json:"timezone"`
	Positions []Position `json:"positions" validate:"required,min=1,dive"`
}
