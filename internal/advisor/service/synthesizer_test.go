package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang-stock-advisor/internal/advisor/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quoteAt(price float64, tag dto.ConfidenceTag) *fakeResolver {
	return &fakeResolver{res: &dto.PriceResolution{Quote: dto.PriceQuote{
		Price:      price,
		Timestamp:  time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC),
		Source:     "test",
		Confidence: tag,
	}}}
}

func adviceOf(action string, conf float64) func(dto.StockContext) (*dto.StockAdvice, error) {
	return func(dto.StockContext) (*dto.StockAdvice, error) {
		return &dto.StockAdvice{Action: action, Confidence: confidence(conf), Rationale: "advisor view"}, nil
	}
}

func TestSynthesizeWithAdvice(t *testing.T) {
	tests := []struct {
		name           string
		price          float64
		advice         string
		wantAction     dto.Action
		wantConfidence float64
		wantStatus     dto.AIStatus
		wantBreached   bool
	}{
		{name: "stop breach overrides hold", price: 105000, advice: "hold", wantAction: dto.ActionReduce, wantConfidence: 1.0, wantStatus: dto.AIStatusOverridden, wantBreached: true},
		{name: "stop breach overrides add", price: 105000, advice: "add", wantAction: dto.ActionReduce, wantConfidence: 1.0, wantStatus: dto.AIStatusOverridden, wantBreached: true},
		{name: "stop breach keeps exit", price: 105000, advice: "exit", wantAction: dto.ActionExit, wantConfidence: 0.7, wantStatus: dto.AIStatusUsed, wantBreached: true},
		{name: "no breach keeps advice", price: 130000, advice: "trim", wantAction: dto.ActionTrim, wantConfidence: 0.7, wantStatus: dto.AIStatusUsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{stock: adviceOf(tt.advice, 0.7)}
			s := NewSynthesizer(testConfig(), nopLog, quoteAt(tt.price, dto.ConfidenceMeasured), gw, nil)

			rec := s.Synthesize(context.Background(), fptPosition())
			assert.Equal(t, tt.wantAction, rec.Action)
			assert.Equal(t, tt.wantConfidence, rec.Confidence)
			assert.Equal(t, tt.wantStatus, rec.AIStatus)
			assert.Equal(t, tt.wantBreached, rec.StopLossBreached)
			assert.False(t, rec.Degraded)
			assert.Equal(t, "Technology", rec.Sector)
			require.NotNil(t, rec.Levels)
			require.NotNil(t, rec.Levels.HardStop)
			assert.Equal(t, 106480.0, *rec.Levels.HardStop)
			assert.NotEmpty(t, rec.NextReview)
			if tt.wantStatus == dto.AIStatusOverridden {
				assert.True(t, strings.HasPrefix(rec.Rationale, "Stop-loss override"))
			}
		})
	}
}

func TestSynthesizeContextSentToAdvisor(t *testing.T) {
	var got dto.StockContext
	gw := &fakeGateway{stock: func(sc dto.StockContext) (*dto.StockAdvice, error) {
		got = sc
		return &dto.StockAdvice{Action: "hold", Confidence: confidence(0.5), Rationale: "ok"}, nil
	}}
	s := NewSynthesizer(testConfig(), nopLog, quoteAt(105000, dto.ConfidenceScraped), gw, nil)
	s.Synthesize(context.Background(), fptPosition())

	assert.Equal(t, "FPT", got.Ticker)
	assert.Equal(t, 105000.0, got.Price)
	assert.Equal(t, dto.ConfidenceScraped, got.PriceConfidence)
	assert.Equal(t, 106480.0, got.StopLossPrice)
	assert.Equal(t, -13.22, got.PLPctVsAvg)
	require.NotNil(t, got.PctToTarget)
	assert.Equal(t, 38.1, *got.PctToTarget)
	assert.Equal(t, "2026-10-16", got.Date)
}

func TestSynthesizeDegraded(t *testing.T) {
	tests := []struct {
		name           string
		price          float64
		tag            dto.ConfidenceTag
		wantAction     dto.Action
		wantConfidence float64
	}{
		{name: "hold stays under cap", price: 130000, tag: dto.ConfidenceMeasured, wantAction: dto.ActionHold, wantConfidence: 0.4},
		{name: "take profit is capped", price: 146000, tag: dto.ConfidenceMeasured, wantAction: dto.ActionTakeProfit, wantConfidence: 0.5},
		{name: "stop breach on measured price is capped", price: 105000, tag: dto.ConfidenceMeasured, wantAction: dto.ActionReduce, wantConfidence: 0.5},
		{name: "stop breach on scraped price is capped", price: 105000, tag: dto.ConfidenceScraped, wantAction: dto.ActionReduce, wantConfidence: 0.5},
		{name: "stop breach on static price is capped", price: 101000, tag: dto.ConfidenceStaticFallback, wantAction: dto.ActionReduce, wantConfidence: 0.5},
		{name: "stop breach on estimated price is capped", price: 101000, tag: dto.ConfidenceAIEstimated, wantAction: dto.ActionReduce, wantConfidence: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthesizer(testConfig(), nopLog, quoteAt(tt.price, tt.tag), &fakeGateway{}, nil)

			rec := s.Synthesize(context.Background(), fptPosition())
			assert.Equal(t, tt.wantAction, rec.Action)
			assert.Equal(t, tt.wantConfidence, rec.Confidence)
			assert.Equal(t, dto.AIStatusUnavailable, rec.AIStatus)
			assert.True(t, rec.Degraded)
			assert.False(t, rec.InsufficientData)
			assert.True(t, strings.HasPrefix(rec.Rationale, "Indicator-only"))
			assert.Equal(t, tt.wantAction == dto.ActionReduce, rec.StopLossBreached)
		})
	}
}

func TestSynthesizeInvalidAdvisorResponseOnStopBreach(t *testing.T) {
	llm := &fakeLLM{respond: func(int32, string) (string, error) {
		return `{"confidence":0.9,"rationale":"forgot the action"}`, nil
	}}
	cfg := testConfig()
	gw := NewAdvisorGateway(cfg, nopLog, llm, NewResponseCache(cfg.Cache))
	s := NewSynthesizer(cfg, nopLog, quoteAt(105000, dto.ConfidenceMeasured), gw, nil)

	rec := s.Synthesize(context.Background(), fptPosition())
	assert.Equal(t, dto.ActionReduce, rec.Action)
	assert.True(t, rec.StopLossBreached)
	assert.True(t, rec.Degraded)
	assert.LessOrEqual(t, rec.Confidence, cfg.Advisor.DegradedConfidenceCap)
	assert.Less(t, rec.Confidence, cfg.Advisor.PriorityConfidenceThreshold)
}

func TestSynthesizeInvalidAdvisorResponse(t *testing.T) {
	llm := &fakeLLM{respond: func(int32, string) (string, error) {
		return `{"confidence":0.9,"rationale":"forgot the action"}`, nil
	}}
	cfg := testConfig()
	gw := NewAdvisorGateway(cfg, nopLog, llm, NewResponseCache(cfg.Cache))
	s := NewSynthesizer(cfg, nopLog, quoteAt(146000, dto.ConfidenceMeasured), gw, nil)

	rec := s.Synthesize(context.Background(), fptPosition())
	assert.True(t, rec.Degraded)
	assert.Equal(t, dto.AIStatusUnavailable, rec.AIStatus)
	assert.LessOrEqual(t, rec.Confidence, cfg.Advisor.DegradedConfidenceCap)
	assert.Equal(t, int32(1), llm.calls.Load())
}

func TestSynthesizeInsufficientData(t *testing.T) {
	resolver := &fakeResolver{err: &dto.PriceUnavailableError{Ticker: "VNM", Failures: []dto.TierFailure{
		{Tier: dto.TierPrimary, Source: "ssi", Reason: "timeout"},
		{Tier: dto.TierScraped, Source: "cafef", Reason: "no table"},
		{Tier: dto.TierAIEstimate, Source: "gemini", Reason: "unavailable"},
		{Tier: dto.TierStatic, Source: "static_table", Reason: "no static price"},
	}}}
	gw := &fakeGateway{stock: adviceOf("exit", 0.9)}
	s := NewSynthesizer(testConfig(), nopLog, resolver, gw, nil)

	rec := s.Synthesize(context.Background(), dto.Position{Ticker: "VNM", Exchange: "HOSE", Shares: 100, AvgPrice: 60000})
	assert.Equal(t, "VNM", rec.Ticker)
	assert.Equal(t, dto.ActionHold, rec.Action)
	assert.Zero(t, rec.Confidence)
	assert.True(t, rec.InsufficientData)
	assert.True(t, rec.Degraded)
	assert.Nil(t, rec.Quote)
	assert.Len(t, rec.RiskNotes, 4)
}

func TestSynthesizeIncludesHeadlines(t *testing.T) {
	var got dto.StockContext
	gw := &fakeGateway{stock: func(sc dto.StockContext) (*dto.StockAdvice, error) {
		got = sc
		return &dto.StockAdvice{Action: "hold", Confidence: confidence(0.5), Rationale: "ok"}, nil
	}}
	cfg := testConfig()
	cfg.News.Enabled = true
	news := &fakeNews{headlines: []string{"FPT wins contract"}}

	NewSynthesizer(cfg, nopLog, quoteAt(130000, dto.ConfidenceMeasured), gw, news).Synthesize(context.Background(), fptPosition())
	assert.Equal(t, []string{"FPT wins contract"}, got.News)
}

type fakeNews struct {
	headlines []string
}

func (f *fakeNews) GetHeadlines(ctx context.Context, ticker string) ([]string, error) {
	return f.headlines, nil
}
