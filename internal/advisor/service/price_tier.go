package service

import (
	"context"
	"errors"
	"fmt"

	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/advisor/repository"
	"golang-stock-advisor/pkg/utils"
)

// PriceTier is one source in the resolver's fallback order.
type PriceTier interface {
	Kind() dto.TierKind
	Source() string
	Fetch(ctx context.Context, position dto.Position) (*dto.PriceResolution, error)
}

type primaryTier struct {
	marketRepo  repository.MarketDataRepository
	historyDays int
}

// NewPrimaryTier reads the latest close and history from the structured market data API.
func NewPrimaryTier(marketRepo repository.MarketDataRepository, historyDays int) PriceTier {
	return &primaryTier{marketRepo: marketRepo, historyDays: historyDays}
}

func (t *primaryTier) Kind() dto.TierKind { return dto.TierPrimary }
func (t *primaryTier) Source() string     { return "ssi" }

func (t *primaryTier) Fetch(ctx context.Context, position dto.Position) (*dto.PriceResolution, error) {
	history, err := t.marketRepo.GetDailyHistory(ctx, position.Ticker, position.Exchange, t.historyDays)
	if err != nil {
		return nil, err
	}
	return resolutionFromHistory(history)
}

type scrapedTier struct {
	scrapedRepo repository.ScrapedPriceRepository
}

// NewScrapedTier reads the latest close and history from the scraped web source.
func NewScrapedTier(scrapedRepo repository.ScrapedPriceRepository) PriceTier {
	return &scrapedTier{scrapedRepo: scrapedRepo}
}

func (t *scrapedTier) Kind() dto.TierKind { return dto.TierScraped }
func (t *scrapedTier) Source() string     { return "cafef" }

func (t *scrapedTier) Fetch(ctx context.Context, position dto.Position) (*dto.PriceResolution, error) {
	history, err := t.scrapedRepo.GetPriceHistory(ctx, position.Ticker, position.Exchange)
	if err != nil {
		return nil, err
	}
	return resolutionFromHistory(history)
}

func resolutionFromHistory(history *dto.PriceHistory) (*dto.PriceResolution, error) {
	if history == nil {
		return nil, errors.New("empty history")
	}
	latest, ok := history.Latest()
	if !ok {
		return nil, errors.New("empty history")
	}
	return &dto.PriceResolution{
		Quote:   dto.PriceQuote{Price: latest.Close, Timestamp: latest.Date},
		History: history,
	}, nil
}

type aiEstimateTier struct {
	gateway AdvisorGateway
}

// NewAIEstimateTier asks the advisor for a price estimate.
func NewAIEstimateTier(gateway AdvisorGateway) PriceTier {
	return &aiEstimateTier{gateway: gateway}
}

func (t *aiEstimateTier) Kind() dto.TierKind { return dto.TierAIEstimate }
func (t *aiEstimateTier) Source() string     { return "gemini" }

func (t *aiEstimateTier) Fetch(ctx context.Context, position dto.Position) (*dto.PriceResolution, error) {
	estimate, err := t.gateway.EstimatePrice(ctx, position)
	if err != nil {
		return nil, err
	}
	return &dto.PriceResolution{
		Quote: dto.PriceQuote{Price: estimate.Price, Timestamp: utils.TimeNowICT()},
	}, nil
}

type staticTier struct {
	prices map[string]float64
}

// NewStaticTier serves prices from a fixed table. It ignores ctx so it still
// answers after a position's deadline expired.
func NewStaticTier(prices map[string]float64) PriceTier {
	return &staticTier{prices: prices}
}

func (t *staticTier) Kind() dto.TierKind { return dto.TierStatic }
func (t *staticTier) Source() string     { return "static_table" }

func (t *staticTier) Fetch(_ context.Context, position dto.Position) (*dto.PriceResolution, error) {
	price, ok := t.prices[position.Ticker]
	if !ok {
		return nil, fmt.Errorf("no static price for %s", position.Ticker)
	}
	return &dto.PriceResolution{
		Quote: dto.PriceQuote{Price: price, Timestamp: utils.TimeNowICT()},
	}, nil
}
