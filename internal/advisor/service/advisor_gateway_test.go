package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/advisor/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAdvice = `{"action":"hold","confidence":0.7,"rationale":"trend intact","key_signals":["rsi 55"],"risk_notes":"none","next_checks":["earnings"]}`

func newTestGateway(cfg *config.Config, llm *fakeLLM) AdvisorGateway {
	return NewAdvisorGateway(cfg, nopLog, llm, NewResponseCache(cfg.Cache))
}

func TestAdviseStockParsing(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantErr   bool
		wantCalls int32
	}{
		{name: "plain json", response: validAdvice, wantCalls: 1},
		{name: "json wrapped in prose and fences", response: "Here you go:\n```json\n" + validAdvice + "\n```", wantCalls: 1},
		{name: "missing action", response: `{"confidence":0.7,"rationale":"x"}`, wantErr: true, wantCalls: 1},
		{name: "action outside enum", response: `{"action":"buy","confidence":0.7,"rationale":"x"}`, wantErr: true, wantCalls: 1},
		{name: "confidence above one", response: `{"action":"hold","confidence":1.5,"rationale":"x"}`, wantErr: true, wantCalls: 1},
		{name: "missing confidence", response: `{"action":"hold","rationale":"x"}`, wantErr: true, wantCalls: 1},
		{name: "trailing prose with braces", response: validAdvice + "\nNote: levels use {price} placeholders }", wantCalls: 1},
		{name: "braces inside strings", response: `{"action":"hold","confidence":0.7,"rationale":"range {low} to {high}"}`, wantCalls: 1},
		{name: "truncated json", response: `{"action":"hold","confidence":0.7`, wantErr: true, wantCalls: 1},
		{name: "no json", response: "I cannot help with that", wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{respond: func(int32, string) (string, error) { return tt.response, nil }}
			gw := newTestGateway(testConfig(), llm)

			advice, err := gw.AdviseStock(context.Background(), dto.StockContext{Ticker: "FPT"})
			assert.Equal(t, tt.wantCalls, llm.calls.Load())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, dto.ErrAdvisoryUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "hold", advice.Action)
			assert.Equal(t, 0.7, *advice.Confidence)
		})
	}
}

func TestGatewayRetriesTransientErrors(t *testing.T) {
	llm := &fakeLLM{respond: func(n int32, _ string) (string, error) {
		if n < 3 {
			return "", errors.New("503 unavailable")
		}
		return validAdvice, nil
	}}
	gw := newTestGateway(testConfig(), llm)

	advice, err := gw.AdviseStock(context.Background(), dto.StockContext{Ticker: "FPT"})
	require.NoError(t, err)
	assert.Equal(t, "hold", advice.Action)
	assert.Equal(t, int32(3), llm.calls.Load())
}

func TestGatewayGivesUpAfterMaxAttempts(t *testing.T) {
	llm := &fakeLLM{respond: func(int32, string) (string, error) { return "", errors.New("timeout") }}
	cfg := testConfig()
	gw := newTestGateway(cfg, llm)

	_, err := gw.AdviseStock(context.Background(), dto.StockContext{Ticker: "FPT"})
	require.Error(t, err)

	var unavailable *dto.AdvisoryUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, dto.ModePerStock, unavailable.Mode)
	assert.Equal(t, int32(cfg.Gemini.MaxAttempts), llm.calls.Load())
}

func TestGatewayDoesNotRetryDisabledBackend(t *testing.T) {
	disabled := repository.NewDisabledLLMRepository("no api key")
	llm := &fakeLLM{respond: func(_ int32, prompt string) (string, error) {
		return disabled.Generate(context.Background(), prompt)
	}}
	gw := newTestGateway(testConfig(), llm)

	_, err := gw.AdviseStock(context.Background(), dto.StockContext{Ticker: "FPT"})
	require.Error(t, err)
	assert.ErrorIs(t, err, dto.ErrAdvisoryUnavailable)
	assert.ErrorIs(t, err, repository.ErrLLMDisabled)
	assert.Equal(t, int32(1), llm.calls.Load())
}

func TestGatewayCachesOnlyValidResponses(t *testing.T) {
	t.Run("identical calls hit the network once", func(t *testing.T) {
		llm := &fakeLLM{respond: func(int32, string) (string, error) { return validAdvice, nil }}
		gw := newTestGateway(testConfig(), llm)
		stock := dto.StockContext{Ticker: "FPT", Price: 105000}

		for i := 0; i < 3; i++ {
			_, err := gw.AdviseStock(context.Background(), stock)
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), llm.calls.Load())

		_, err := gw.AdviseStock(context.Background(), dto.StockContext{Ticker: "FPT", Price: 104000})
		require.NoError(t, err)
		assert.Equal(t, int32(2), llm.calls.Load())
	})

	t.Run("failures are not cached", func(t *testing.T) {
		llm := &fakeLLM{respond: func(n int32, _ string) (string, error) {
			if n == 1 {
				return `{"rationale":"missing action"}`, nil
			}
			return validAdvice, nil
		}}
		gw := newTestGateway(testConfig(), llm)
		stock := dto.StockContext{Ticker: "VCB"}

		_, err := gw.AdviseStock(context.Background(), stock)
		require.Error(t, err)
		_, err = gw.AdviseStock(context.Background(), stock)
		require.NoError(t, err)
		assert.Equal(t, int32(2), llm.calls.Load())
	})

	t.Run("bypass always calls", func(t *testing.T) {
		llm := &fakeLLM{respond: func(int32, string) (string, error) { return validAdvice, nil }}
		cfg := testConfig()
		cfg.Cache.Bypass = true
		gw := newTestGateway(cfg, llm)

		for i := 0; i < 2; i++ {
			_, err := gw.AdviseStock(context.Background(), dto.StockContext{Ticker: "FPT"})
			require.NoError(t, err)
		}
		assert.Equal(t, int32(2), llm.calls.Load())
	})
}

func TestGatewayCollapsesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	llm := &fakeLLM{respond: func(int32, string) (string, error) {
		<-release
		return validAdvice, nil
	}}
	gw := newTestGateway(testConfig(), llm)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = gw.AdviseStock(context.Background(), dto.StockContext{Ticker: "HPG"})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), llm.calls.Load())
}

func TestAdvisePortfolioAndEstimate(t *testing.T) {
	t.Run("portfolio risk score out of range", func(t *testing.T) {
		llm := &fakeLLM{respond: func(int32, string) (string, error) {
			return `{"narrative":"ok","risk_score":11}`, nil
		}}
		_, err := newTestGateway(testConfig(), llm).AdvisePortfolio(context.Background(), dto.PortfolioDigest{})
		assert.ErrorIs(t, err, dto.ErrAdvisoryUnavailable)
	})

	t.Run("portfolio narrative", func(t *testing.T) {
		llm := &fakeLLM{respond: func(int32, string) (string, error) {
			return `{"narrative":"balanced","risk_score":4,"priority_todos":["review FPT"]}`, nil
		}}
		n, err := newTestGateway(testConfig(), llm).AdvisePortfolio(context.Background(), dto.PortfolioDigest{})
		require.NoError(t, err)
		assert.Equal(t, 4, n.RiskScore)
		assert.Equal(t, []string{"review FPT"}, n.PriorityTodos)
	})

	t.Run("price estimate", func(t *testing.T) {
		llm := &fakeLLM{respond: func(int32, string) (string, error) {
			return `{"price":54000,"rationale":"recent range"}`, nil
		}}
		e, err := newTestGateway(testConfig(), llm).EstimatePrice(context.Background(), dto.Position{Ticker: "VNM", Exchange: "HOSE"})
		require.NoError(t, err)
		assert.Equal(t, 54000.0, e.Price)
	})

	t.Run("non-positive estimate rejected", func(t *testing.T) {
		llm := &fakeLLM{respond: func(int32, string) (string, error) {
			return `{"price":0,"rationale":"unknown"}`, nil
		}}
		_, err := newTestGateway(testConfig(), llm).EstimatePrice(context.Background(), dto.Position{Ticker: "VNM", Exchange: "HOSE"})
		assert.ErrorIs(t, err, dto.ErrAdvisoryUnavailable)
	})
}

func TestGatewayStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	llm := &fakeLLM{respond: func(int32, string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	_, err := newTestGateway(testConfig(), llm).AdviseStock(ctx, dto.StockContext{Ticker: "FPT"})
	assert.ErrorIs(t, err, dto.ErrAdvisoryUnavailable)
	assert.Equal(t, int32(1), llm.calls.Load())
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(dto.ModePerStock, dto.StockContext{Ticker: "FPT", Price: 1})
	require.NoError(t, err)
	b, err := Fingerprint(dto.ModePerStock, dto.StockContext{Ticker: "FPT", Price: 1})
	require.NoError(t, err)
	c, err := Fingerprint(dto.ModePortfolio, dto.StockContext{Ticker: "FPT", Price: 1})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
