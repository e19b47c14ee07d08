package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/advisor/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tiers(primary, scraped, ai, static *fakeTier) []PriceTier {
	primary.kind, primary.source = dto.TierPrimary, "ssi"
	scraped.kind, scraped.source = dto.TierScraped, "cafef"
	ai.kind, ai.source = dto.TierAIEstimate, "gemini"
	static.kind, static.source = dto.TierStatic, "static_table"
	return []PriceTier{primary, scraped, ai, static}
}

func TestPriceResolverTierOrder(t *testing.T) {
	down := errors.New("connection refused")

	tests := []struct {
		name           string
		lastGood       float64
		primary        fakeTier
		scraped        fakeTier
		ai             fakeTier
		static         fakeTier
		wantPrice      float64
		wantConfidence dto.ConfidenceTag
		wantSource     string
		wantCalls      [4]int32
	}{
		{
			name:           "primary short-circuits",
			primary:        fakeTier{price: 106000},
			scraped:        fakeTier{price: 1},
			ai:             fakeTier{price: 1},
			static:         fakeTier{price: 1},
			wantPrice:      106000,
			wantConfidence: dto.ConfidenceMeasured,
			wantSource:     "ssi",
			wantCalls:      [4]int32{1, 0, 0, 0},
		},
		{
			name:           "negative primary falls through to scraped",
			primary:        fakeTier{price: -5},
			scraped:        fakeTier{price: 106000},
			ai:             fakeTier{price: 1},
			static:         fakeTier{price: 1},
			wantPrice:      106000,
			wantConfidence: dto.ConfidenceScraped,
			wantSource:     "cafef",
			wantCalls:      [4]int32{1, 1, 0, 0},
		},
		{
			name:           "scraped outlier rejected against last good",
			lastGood:       100000,
			primary:        fakeTier{err: down},
			scraped:        fakeTier{price: 150000},
			ai:             fakeTier{price: 101000},
			static:         fakeTier{price: 1},
			wantPrice:      101000,
			wantConfidence: dto.ConfidenceAIEstimated,
			wantSource:     "gemini",
			wantCalls:      [4]int32{1, 1, 1, 0},
		},
		{
			name:           "large primary move accepted",
			lastGood:       100000,
			primary:        fakeTier{price: 160000},
			scraped:        fakeTier{price: 1},
			ai:             fakeTier{price: 1},
			static:         fakeTier{price: 1},
			wantPrice:      160000,
			wantConfidence: dto.ConfidenceMeasured,
			wantSource:     "ssi",
			wantCalls:      [4]int32{1, 0, 0, 0},
		},
		{
			name:           "static is the last resort",
			primary:        fakeTier{err: down},
			scraped:        fakeTier{err: down},
			ai:             fakeTier{err: down},
			static:         fakeTier{price: 101000},
			wantPrice:      101000,
			wantConfidence: dto.ConfidenceStaticFallback,
			wantSource:     "static_table",
			wantCalls:      [4]int32{1, 1, 1, 1},
		},
	}

	for i := range tests {
		tt := &tests[i]
		t.Run(tt.name, func(t *testing.T) {
			lastPrice := repository.NewMemoryLastPriceRepository(time.Hour)
			if tt.lastGood > 0 {
				require.NoError(t, lastPrice.Set(context.Background(), "FPT", "HOSE", tt.lastGood, time.Now()))
			}
			chain := tiers(&tt.primary, &tt.scraped, &tt.ai, &tt.static)
			resolver := NewPriceResolver(testConfig(), nopLog, lastPrice, chain...)

			res, err := resolver.Resolve(context.Background(), fptPosition())
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrice, res.Quote.Price)
			assert.Equal(t, tt.wantConfidence, res.Quote.Confidence)
			assert.Equal(t, tt.wantSource, res.Quote.Source)
			assert.Equal(t, "FPT", res.Quote.Ticker)
			assert.Equal(t, "VND", res.Quote.Currency)

			got := [4]int32{tt.primary.calls.Load(), tt.scraped.calls.Load(), tt.ai.calls.Load(), tt.static.calls.Load()}
			assert.Equal(t, tt.wantCalls, got)
		})
	}
}

func TestPriceResolverAllTiersFail(t *testing.T) {
	down := errors.New("down")
	chain := tiers(&fakeTier{err: down}, &fakeTier{price: 0}, &fakeTier{err: down}, &fakeTier{err: errors.New("no static price")})
	resolver := NewPriceResolver(testConfig(), nopLog, nil, chain...)

	res, err := resolver.Resolve(context.Background(), dto.Position{Ticker: "VNM", Exchange: "HOSE", Shares: 1, AvgPrice: 1})
	assert.Nil(t, res)
	require.ErrorIs(t, err, dto.ErrPriceUnavailable)

	var unavailable *dto.PriceUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "VNM", unavailable.Ticker)
	require.Len(t, unavailable.Failures, 4)
	assert.Equal(t, dto.TierPrimary, unavailable.Failures[0].Tier)
	assert.Contains(t, unavailable.Failures[1].Reason, "implausible")
	assert.Equal(t, dto.TierStatic, unavailable.Failures[3].Tier)
}

func TestPriceResolverLastGoodTracking(t *testing.T) {
	ctx := context.Background()
	down := errors.New("down")

	t.Run("estimated prices are not remembered", func(t *testing.T) {
		lastPrice := repository.NewMemoryLastPriceRepository(time.Hour)
		chain := tiers(&fakeTier{err: down}, &fakeTier{err: down}, &fakeTier{price: 90000}, &fakeTier{price: 1})
		_, err := NewPriceResolver(testConfig(), nopLog, lastPrice, chain...).Resolve(ctx, fptPosition())
		require.NoError(t, err)

		_, found, err := lastPrice.Get(ctx, "FPT", "HOSE")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("scraped prices are remembered", func(t *testing.T) {
		lastPrice := repository.NewMemoryLastPriceRepository(time.Hour)
		chain := tiers(&fakeTier{err: down}, &fakeTier{price: 104500}, &fakeTier{price: 1}, &fakeTier{price: 1})
		_, err := NewPriceResolver(testConfig(), nopLog, lastPrice, chain...).Resolve(ctx, fptPosition())
		require.NoError(t, err)

		price, found, err := lastPrice.Get(ctx, "FPT", "HOSE")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 104500.0, price)
	})
}

func TestPriceResolverCancelledContextUsesStaticTable(t *testing.T) {
	primary, scraped, ai := &fakeTier{price: 106000}, &fakeTier{price: 106000}, &fakeTier{price: 106000}
	primary.kind, primary.source = dto.TierPrimary, "ssi"
	scraped.kind, scraped.source = dto.TierScraped, "cafef"
	ai.kind, ai.source = dto.TierAIEstimate, "gemini"
	static := NewStaticTier(map[string]float64{"FPT": 101000})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewPriceResolver(testConfig(), nopLog, nil, primary, scraped, ai, static).Resolve(ctx, fptPosition())
	require.NoError(t, err)
	assert.Equal(t, 101000.0, res.Quote.Price)
	assert.Equal(t, dto.ConfidenceStaticFallback, res.Quote.Confidence)
	assert.Zero(t, primary.calls.Load())
	assert.Zero(t, ai.calls.Load())
}

func TestPriceTiers(t *testing.T) {
	t.Run("static tier misses unknown tickers", func(t *testing.T) {
		_, err := NewStaticTier(map[string]float64{"FPT": 1}).Fetch(context.Background(), dto.Position{Ticker: "XYZ"})
		assert.Error(t, err)
	})

	t.Run("ai tier uses the estimate", func(t *testing.T) {
		gw := &fakeGateway{estimate: func(dto.Position) (*dto.PriceEstimate, error) {
			return &dto.PriceEstimate{Price: 54000, Rationale: "range"}, nil
		}}
		res, err := NewAIEstimateTier(gw).Fetch(context.Background(), dto.Position{Ticker: "VNM"})
		require.NoError(t, err)
		assert.Equal(t, 54000.0, res.Quote.Price)
		assert.Nil(t, res.History)
	})

	t.Run("history tiers use the latest bar", func(t *testing.T) {
		now := time.Now()
		history := dto.NewPriceHistory("FPT", []dto.Bar{
			{Date: now, Close: 106000},
			{Date: now.AddDate(0, 0, -1), Close: 104000},
		})
		res, err := resolutionFromHistory(&history)
		require.NoError(t, err)
		assert.Equal(t, 106000.0, res.Quote.Price)
		assert.Equal(t, 2, res.History.Len())

		_, err = resolutionFromHistory(&dto.PriceHistory{})
		assert.Error(t, err)
	})
}
