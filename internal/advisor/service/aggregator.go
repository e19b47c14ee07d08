package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"github.com/shopspring/decimal"
)

// Aggregator rolls per-position recommendations into a portfolio advisory.
type Aggregator interface {
	Aggregate(ctx context.Context, holdings *dto.Holdings, recs []dto.Recommendation) dto.PortfolioAdvisory
}

type aggregator struct {
	cfg     *config.Config
	log     *logger.Logger
	gateway AdvisorGateway
}

// NewAggregator creates the portfolio aggregator.
func NewAggregator(cfg *config.Config, log *logger.Logger, gateway AdvisorGateway) Aggregator {
	return &aggregator{cfg: cfg, log: log, gateway: gateway}
}

// Aggregate computes deterministic metrics and priorities, then asks the
// advisor for a narrative. A failed narrative call leaves it unavailable.
func (a *aggregator) Aggregate(ctx context.Context, holdings *dto.Holdings, recs []dto.Recommendation) dto.PortfolioAdvisory {
	advisory := dto.PortfolioAdvisory{
		Owner:           holdings.Owner,
		Currency:        holdings.Currency,
		Recommendations: recs,
	}
	advisory.Metrics = a.metrics(holdings.Positions, recs)
	advisory.Priorities = a.priorities(recs, advisory.Metrics)
	for _, rec := range recs {
		if rec.Degraded || rec.InsufficientData {
			advisory.DegradedCount++
		}
	}

	narrative, err := a.gateway.AdvisePortfolio(ctx, a.digest(advisory))
	if err != nil {
		a.log.WarnContext(ctx, "Portfolio narrative unavailable", logger.ErrorField(err))
		return advisory
	}
	advisory.Narrative = narrative.Narrative
	advisory.NarrativeAvailable = true
	advisory.RiskScore = narrative.RiskScore
	advisory.AITodos = narrative.PriorityTodos
	for _, alert := range narrative.RiskAlerts {
		advisory.Metrics.RiskAlerts = append(advisory.Metrics.RiskAlerts, "AI: "+alert)
	}
	return advisory
}

func (a *aggregator) metrics(positions []dto.Position, recs []dto.Recommendation) dto.PortfolioMetrics {
	byKey := make(map[string]dto.Recommendation, len(recs))
	for _, rec := range recs {
		byKey[rec.Key()] = rec
	}

	var (
		m         dto.PortfolioMetrics
		invested  = decimal.Zero
		current   = decimal.Zero
		values    = make([]decimal.Decimal, len(positions))
		sectorSum = map[string]decimal.Decimal{}
	)

	for i, p := range positions {
		shares := decimal.NewFromInt(p.Shares)
		cost := shares.Mul(decimal.NewFromFloat(p.AvgPrice))

		pm := dto.PositionMetric{
			Ticker:   p.Ticker,
			Exchange: p.Exchange,
			Sector:   SectorOf(p.Ticker),
			Shares:   p.Shares,
			AvgPrice: p.AvgPrice,
			Price:    p.AvgPrice,
		}
		if rec, ok := byKey[p.Key()]; ok && rec.Quote != nil && rec.Quote.Price > 0 {
			pm.Price = rec.Quote.Price
			pm.Priced = true
		} else {
			m.Unpriced = append(m.Unpriced, p.Ticker)
		}

		value := shares.Mul(decimal.NewFromFloat(pm.Price))
		pl := value.Sub(cost)
		pm.CostBasis = cost.InexactFloat64()
		pm.MarketValue = value.InexactFloat64()
		pm.UnrealizedPL = pl.InexactFloat64()
		pm.UnrealizedPLPct = percent(pl, cost)

		invested = invested.Add(cost)
		current = current.Add(value)
		values[i] = value
		sectorSum[pm.Sector] = sectorSum[pm.Sector].Add(value)
		m.Positions = append(m.Positions, pm)
	}

	m.TotalInvested = invested.InexactFloat64()
	m.TotalCurrent = current.InexactFloat64()
	m.UnrealizedPL = current.Sub(invested).InexactFloat64()
	m.UnrealizedPLPct = percent(current.Sub(invested), invested)

	if current.IsPositive() {
		for i := range m.Positions {
			w := values[i].Div(current).Round(4).InexactFloat64()
			m.Positions[i].Weight = w
			if w > m.MaxConcentration {
				m.MaxConcentration = w
				m.MaxConcentrationTicker = m.Positions[i].Ticker
			}
		}
		for sector, v := range sectorSum {
			w := v.Div(current).Round(4).InexactFloat64()
			m.Sectors = append(m.Sectors, dto.SectorWeight{
				Sector:  sector,
				Weight:  w,
				Flagged: w > a.cfg.Advisor.SectorConcentrationThreshold,
			})
		}
		sort.Slice(m.Sectors, func(i, j int) bool {
			if m.Sectors[i].Weight != m.Sectors[j].Weight {
				return m.Sectors[i].Weight > m.Sectors[j].Weight
			}
			return m.Sectors[i].Sector < m.Sectors[j].Sector
		})
	}
	m.ConcentrationFlagged = m.MaxConcentration > a.cfg.Advisor.ConcentrationThreshold

	m.TopGainers, m.TopLosers = topMovers(m.Positions, a.cfg.Advisor.TopMovers)
	m.RiskAlerts = a.riskAlerts(m, recs)
	return m
}

func (a *aggregator) riskAlerts(m dto.PortfolioMetrics, recs []dto.Recommendation) []string {
	var alerts []string
	for _, rec := range recs {
		if rec.StopLossBreached {
			alerts = append(alerts, fmt.Sprintf("%s breached its stop-loss", rec.Ticker))
		}
		if rec.InsufficientData {
			alerts = append(alerts, fmt.Sprintf("%s has no price from any source", rec.Ticker))
		}
	}
	if m.ConcentrationFlagged {
		alerts = append(alerts, fmt.Sprintf("%s is %.1f%% of the portfolio (limit %.0f%%)",
			m.MaxConcentrationTicker, m.MaxConcentration*100, a.cfg.Advisor.ConcentrationThreshold*100))
	}
	for _, s := range m.Sectors {
		if s.Flagged {
			alerts = append(alerts, fmt.Sprintf("Sector %s is %.1f%% of the portfolio (limit %.0f%%)",
				s.Sector, s.Weight*100, a.cfg.Advisor.SectorConcentrationThreshold*100))
		}
	}
	return alerts
}

// priorities keeps non-hold recommendations at or above the confidence
// threshold, most urgent first.
func (a *aggregator) priorities(recs []dto.Recommendation, m dto.PortfolioMetrics) []dto.PriorityAction {
	plByKey := make(map[string]float64, len(m.Positions))
	for _, pm := range m.Positions {
		plByKey[pm.Ticker+":"+pm.Exchange] = pm.UnrealizedPL
	}

	var out []dto.PriorityAction
	for _, rec := range recs {
		if rec.Action == dto.ActionHold || rec.Confidence < a.cfg.Advisor.PriorityConfidenceThreshold {
			continue
		}
		out = append(out, dto.PriorityAction{
			Ticker:        rec.Ticker,
			Exchange:      rec.Exchange,
			Action:        rec.Action,
			Confidence:    rec.Confidence,
			SeverityScore: SeverityScore(rec.Action, rec.Confidence),
			UnrealizedPL:  plByKey[rec.Key()],
			Rationale:     rec.Rationale,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Action.Severity(), out[j].Action.Severity()
		if si != sj {
			return si > sj
		}
		pi, pj := math.Abs(out[i].UnrealizedPL), math.Abs(out[j].UnrealizedPL)
		if pi != pj {
			return pi > pj
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Ticker < out[j].Ticker
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// SeverityScore is the action category rank plus confidence, so category
// always dominates.
func SeverityScore(action dto.Action, confidence float64) float64 {
	return float64(action.Severity()) + clamp01(confidence)
}

func (a *aggregator) digest(advisory dto.PortfolioAdvisory) dto.PortfolioDigest {
	m := advisory.Metrics
	recByKey := make(map[string]dto.Recommendation, len(advisory.Recommendations))
	for _, rec := range advisory.Recommendations {
		recByKey[rec.Key()] = rec
	}

	d := dto.PortfolioDigest{
		Date:                   utils.TimeNowICT().Format("2006-01-02"),
		TotalInvested:          math.Round(m.TotalInvested),
		TotalCurrent:           math.Round(m.TotalCurrent),
		PLPct:                  round2(m.UnrealizedPLPct),
		MaxConcentrationTicker: m.MaxConcentrationTicker,
		MaxConcentrationPct:    round2(m.MaxConcentration * 100),
		RiskAlerts:             m.RiskAlerts,
	}
	for _, pm := range m.Positions {
		rec := recByKey[pm.Ticker+":"+pm.Exchange]
		d.Positions = append(d.Positions, dto.DigestEntry{
			Ticker:     pm.Ticker,
			Sector:     pm.Sector,
			WeightPct:  round2(pm.Weight * 100),
			PLPct:      round2(pm.UnrealizedPLPct),
			Action:     rec.Action,
			Confidence: round2(rec.Confidence),
			Degraded:   rec.Degraded,
		})
	}
	return d
}

func topMovers(positions []dto.PositionMetric, n int) (gainers, losers []string) {
	priced := make([]dto.PositionMetric, 0, len(positions))
	for _, p := range positions {
		if p.Priced {
			priced = append(priced, p)
		}
	}
	sort.SliceStable(priced, func(i, j int) bool { return priced[i].UnrealizedPLPct > priced[j].UnrealizedPLPct })

	for _, p := range priced {
		if len(gainers) >= n || p.UnrealizedPLPct <= 0 {
			break
		}
		gainers = append(gainers, fmt.Sprintf("%s (%+.2f%%)", p.Ticker, p.UnrealizedPLPct))
	}
	for i := len(priced) - 1; i >= 0; i-- {
		p := priced[i]
		if len(losers) >= n || p.UnrealizedPLPct >= 0 {
			break
		}
		losers = append(losers, fmt.Sprintf("%s (%+.2f%%)", p.Ticker, p.UnrealizedPLPct))
	}
	return gainers, losers
}

func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
