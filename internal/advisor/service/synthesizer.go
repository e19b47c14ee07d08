package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/advisor/indicator"
	"golang-stock-advisor/internal/advisor/repository"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"go.uber.org/zap"
)

// Synthesizer produces exactly one recommendation per position.
type Synthesizer interface {
	Synthesize(ctx context.Context, position dto.Position) dto.Recommendation
}

type synthesizer struct {
	cfg      *config.Config
	log      *logger.Logger
	resolver PriceResolver
	gateway  AdvisorGateway
	newsRepo repository.NewsRepository
	table    DecisionTable
	params   indicator.Params
}

// NewSynthesizer creates the synthesizer. newsRepo may be nil.
func NewSynthesizer(cfg *config.Config, log *logger.Logger, resolver PriceResolver, gateway AdvisorGateway, newsRepo repository.NewsRepository) Synthesizer {
	return &synthesizer{
		cfg:      cfg,
		log:      log,
		resolver: resolver,
		gateway:  gateway,
		newsRepo: newsRepo,
		table:    NewDecisionTable(cfg),
		params:   IndicatorParams(cfg),
	}
}

// IndicatorParams maps the indicator config section.
func IndicatorParams(cfg *config.Config) indicator.Params {
	return indicator.Params{
		SMAShort:              cfg.Indicator.SMAShort,
		SMALong:               cfg.Indicator.SMALong,
		RSIPeriod:             cfg.Indicator.RSIPeriod,
		MACDFast:              cfg.Indicator.MACDFast,
		MACDSlow:              cfg.Indicator.MACDSlow,
		MACDSignal:            cfg.Indicator.MACDSignal,
		VolumeWindow:          cfg.Indicator.VolumeWindow,
		VolumeZScoreThreshold: cfg.Indicator.VolumeZScoreThreshold,
	}
}

func (s *synthesizer) Synthesize(ctx context.Context, position dto.Position) dto.Recommendation {
	rec := dto.Recommendation{
		Ticker:      position.Ticker,
		Exchange:    position.Exchange,
		Sector:      SectorOf(position.Ticker),
		GeneratedAt: utils.TimeNowICT(),
	}

	res, err := s.resolver.Resolve(ctx, position)
	if err != nil {
		return s.insufficientData(ctx, rec, err)
	}
	quote := res.Quote
	rec.Quote = &quote

	if res.History != nil {
		rec.Indicators = indicator.Compute(*res.History, s.params)
	}

	decision := s.table.Decide(position, quote.Price, rec.Indicators)
	rec.StopLossBreached = decision.StopLossBreached
	rec.RiskNotes = s.riskNotes(decision, quote, rec.Indicators)

	advice, err := s.gateway.AdviseStock(ctx, s.stockContext(ctx, position, quote, decision, rec.Indicators))
	if err != nil {
		if !errors.Is(err, dto.ErrAdvisoryUnavailable) {
			err = &dto.AdvisoryUnavailableError{Mode: dto.ModePerStock, Reason: "unexpected error", Err: err}
		}
		s.applyDecisionOnly(&rec, decision)
		s.log.WarnContext(ctx, "Advisor unavailable, using decision table",
			append(s.logFields(rec), logger.ErrorField(err))...)
	} else {
		s.applyAdvice(&rec, advice, decision)
	}

	if rec.Levels == nil {
		rec.Levels = &dto.Levels{}
	}
	if rec.Levels.HardStop == nil {
		rec.Levels.HardStop = utils.ToPointer(math.Round(decision.StopLossPrice))
	}
	if len(rec.NextReview) == 0 {
		rec.NextReview = defaultNextReview(position, decision)
	}

	recommendationTotal.WithLabelValues(string(rec.Action), string(rec.AIStatus)).Inc()
	s.log.InfoContext(ctx, "Recommendation synthesized", s.logFields(rec)...)
	return rec
}

// applyAdvice starts from the AI action and escalates on a stop-loss breach.
func (s *synthesizer) applyAdvice(rec *dto.Recommendation, advice *dto.StockAdvice, decision Decision) {
	rec.Action = dto.Action(advice.Action)
	rec.Confidence = clamp01(*advice.Confidence)
	rec.Rationale = advice.Rationale
	rec.KeySignals = advice.KeySignals
	rec.NextReview = advice.NextChecks
	rec.Levels = advice.Levels
	rec.AIStatus = dto.AIStatusUsed
	if strings.TrimSpace(advice.RiskNotes) != "" {
		rec.RiskNotes = append([]string{advice.RiskNotes}, rec.RiskNotes...)
	}

	if !decision.StopLossBreached {
		return
	}
	if action, escalated := Escalate(rec.Action, decision.Action); escalated {
		rec.Action = action
		rec.Confidence = decision.Confidence
		rec.AIStatus = dto.AIStatusOverridden
		rec.Rationale = fmt.Sprintf("Stop-loss override: %s. Advisor suggested: %s", decision.Reason, advice.Rationale)
	}
}

// applyDecisionOnly builds a degraded recommendation. Confidence is always
// capped below the priority threshold; a breach stays visible through
// StopLossBreached and the risk alerts.
func (s *synthesizer) applyDecisionOnly(rec *dto.Recommendation, decision Decision) {
	rec.Action = decision.Action
	rec.Confidence = math.Min(decision.Confidence, s.cfg.Advisor.DegradedConfidenceCap)
	rec.Rationale = "Indicator-only: " + decision.Reason
	rec.KeySignals = describeSignals(rec.Indicators)
	rec.AIStatus = dto.AIStatusUnavailable
	rec.Degraded = true
}

func (s *synthesizer) insufficientData(ctx context.Context, rec dto.Recommendation, err error) dto.Recommendation {
	rec.Action = dto.ActionHold
	rec.Confidence = 0
	rec.InsufficientData = true
	rec.Degraded = true
	rec.AIStatus = dto.AIStatusUnavailable
	rec.Rationale = "Insufficient data: price unavailable from every source"

	var priceErr *dto.PriceUnavailableError
	if errors.As(err, &priceErr) {
		for _, f := range priceErr.Failures {
			rec.RiskNotes = append(rec.RiskNotes, fmt.Sprintf("%s (%s): %s", f.Tier, f.Source, f.Reason))
		}
	} else {
		rec.RiskNotes = append(rec.RiskNotes, err.Error())
	}

	recommendationTotal.WithLabelValues(string(rec.Action), string(rec.AIStatus)).Inc()
	s.log.ErrorContext(ctx, "No price for position", append(s.logFields(rec), logger.ErrorField(err))...)
	return rec
}

func (s *synthesizer) stockContext(ctx context.Context, position dto.Position, quote dto.PriceQuote, decision Decision, ind dto.IndicatorSet) dto.StockContext {
	sc := dto.StockContext{
		Ticker:          position.Ticker,
		Exchange:        position.Exchange,
		Sector:          SectorOf(position.Ticker),
		Date:            quote.Timestamp.In(utils.MarketLocation()).Format("2006-01-02"),
		Price:           quote.Price,
		PriceConfidence: quote.Confidence,
		AvgPrice:        position.AvgPrice,
		TargetPrice:     position.TargetPrice,
		PLPctVsAvg:      round2((quote.Price/position.AvgPrice - 1) * 100),
		StopLossPrice:   math.Round(decision.StopLossPrice),
		MaxDrawdownPct:  position.DrawdownPct(s.cfg.Advisor.DefaultMaxDrawdownPct),
		Indicators:      roundIndicators(ind),
		Notes:           position.Notes,
	}
	if position.TargetPrice != nil {
		sc.PctToTarget = utils.ToPointer(round2((*position.TargetPrice/quote.Price - 1) * 100))
	}

	if s.newsRepo != nil && s.cfg.News.Enabled {
		headlines, err := s.newsRepo.GetHeadlines(ctx, position.Ticker)
		if err != nil {
			s.log.DebugContext(ctx, "No headlines for prompt", logger.StringField("ticker", position.Ticker), logger.ErrorField(err))
		}
		sc.News = headlines
	}
	return sc
}

func (s *synthesizer) riskNotes(decision Decision, quote dto.PriceQuote, ind dto.IndicatorSet) []string {
	var notes []string
	if decision.StopLossBreached {
		notes = append(notes, fmt.Sprintf("Stop-loss breached at %.0f", decision.StopLossPrice))
	}
	if !quote.Confidence.Trusted() {
		notes = append(notes, fmt.Sprintf("Price is %s (%s), not market data", quote.Confidence, quote.Source))
	}
	if ind.VolumeAnomaly && ind.VolumeZScore != nil {
		notes = append(notes, fmt.Sprintf("Unusual volume (z=%.1f)", *ind.VolumeZScore))
	}
	return notes
}

func (s *synthesizer) logFields(rec dto.Recommendation) []zap.Field {
	fields := []zap.Field{
		logger.StringField("ticker", rec.Ticker),
		logger.StringField("action", string(rec.Action)),
		logger.FloatField("confidence", rec.Confidence),
		logger.StringField("ai_status", string(rec.AIStatus)),
		logger.BoolField("degraded", rec.Degraded),
	}
	if rec.Quote != nil {
		fields = append(fields,
			logger.StringField("price_source", rec.Quote.Source),
			logger.StringField("price_tier", rec.Quote.Tier.String()),
			logger.StringField("price_confidence", string(rec.Quote.Confidence)))
	}
	return fields
}

func describeSignals(ind dto.IndicatorSet) []string {
	var signals []string
	if ind.RSI14 != nil {
		signals = append(signals, fmt.Sprintf("RSI14 %.1f", *ind.RSI14))
	}
	if ind.Crossover == dto.CrossoverGolden || ind.Crossover == dto.CrossoverDeath {
		signals = append(signals, string(ind.Crossover)+" cross")
	}
	if ind.MACDHistogram != nil {
		signals = append(signals, fmt.Sprintf("MACD histogram %.2f", *ind.MACDHistogram))
	}
	if ind.SMAShort != nil && ind.SMALong != nil {
		signals = append(signals, fmt.Sprintf("SMA short %.0f / long %.0f", *ind.SMAShort, *ind.SMALong))
	}
	if ind.VolumeAnomaly {
		signals = append(signals, "volume anomaly")
	}
	return signals
}

func defaultNextReview(position dto.Position, decision Decision) []string {
	review := []string{fmt.Sprintf("Close below %.0f (stop-loss)", decision.StopLossPrice)}
	if position.TargetPrice != nil {
		review = append(review, fmt.Sprintf("Close above %.0f (target)", *position.TargetPrice))
	}
	return review
}

func roundIndicators(ind dto.IndicatorSet) dto.IndicatorSet {
	r := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		return utils.ToPointer(round2(*v))
	}
	ind.RSI14 = r(ind.RSI14)
	ind.MACD = r(ind.MACD)
	ind.MACDSignal = r(ind.MACDSignal)
	ind.MACDHistogram = r(ind.MACDHistogram)
	ind.SMAShort = r(ind.SMAShort)
	ind.SMALong = r(ind.SMALong)
	ind.VolumeZScore = r(ind.VolumeZScore)
	return ind
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
