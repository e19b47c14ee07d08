package dto

import (
	"sort"
	"time"
)

// ConfidenceTag records which kind of source produced a price.
type ConfidenceTag string

const (
	ConfidenceMeasured       ConfidenceTag = "measured"
	ConfidenceScraped        ConfidenceTag = "scraped"
	ConfidenceAIEstimated    ConfidenceTag = "ai_estimated"
	ConfidenceStaticFallback ConfidenceTag = "static_fallback"
)

// Trusted reports whether the tag comes from real market data.
func (c ConfidenceTag) Trusted() bool {
	return c == ConfidenceMeasured || c == ConfidenceScraped
}

// TierKind is the closed set of price tiers, in resolution order.
type TierKind int

const (
	TierPrimary TierKind = iota + 1
	TierScraped
	TierAIEstimate
	TierStatic
)

func (t TierKind) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierScraped:
		return "scraped"
	case TierAIEstimate:
		return "ai_estimate"
	case TierStatic:
		return "static"
	default:
		return "unknown"
	}
}

// Confidence returns the tag attached to quotes from this tier.
func (t TierKind) Confidence() ConfidenceTag {
	switch t {
	case TierPrimary:
		return ConfidenceMeasured
	case TierScraped:
		return ConfidenceScraped
	case TierAIEstimate:
		return ConfidenceAIEstimated
	default:
		return ConfidenceStaticFallback
	}
}

// PriceQuote is a single resolved price.
type PriceQuote struct {
	Ticker     string        `json:"ticker"`
	Exchange   string        `json:"exchange"`
	Price      float64       `json:"price"`
	Currency   string        `json:"currency"`
	Timestamp  time.Time     `json:"timestamp"`
	Source     string        `json:"source"`
	Tier       TierKind      `json:"tier"`
	Confidence ConfidenceTag `json:"confidence"`
}

// Bar is one daily close.
type Bar struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceHistory is ascending by date with no duplicate dates.
type PriceHistory struct {
	Ticker string `json:"ticker"`
	Bars   []Bar  `json:"bars"`
}

// NewPriceHistory sorts bars by date and drops duplicate days, keeping the later entry.
func NewPriceHistory(ticker string, bars []Bar) PriceHistory {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]Bar, 0, len(sorted))
	for _, b := range sorted {
		if n := len(out); n > 0 && sameDay(out[n-1].Date, b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return PriceHistory{Ticker: ticker, Bars: out}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Len returns the number of bars.
func (h PriceHistory) Len() int { return len(h.Bars) }

// Closes returns the close series.
func (h PriceHistory) Closes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the volume series.
func (h PriceHistory) Volumes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Volume
	}
	return out
}

// Latest returns the most recent bar.
func (h PriceHistory) Latest() (Bar, bool) {
	if len(h.Bars) == 0 {
		return Bar{}, false
	}
	return h.Bars[len(h.Bars)-1], true
}

// PriceResolution is the output of the price resolver.
type PriceResolution struct {
	Quote   PriceQuote
	History *PriceHistory
}
