package repository

import (
	"context"
	"time"

	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/entity"
)

// MarketDataRepository is the primary structured market data source.
type MarketDataRepository interface {
	GetDailyHistory(ctx context.Context, ticker, exchange string, days int) (*dto.PriceHistory, error)
}

// ScrapedPriceRepository is the web-scraped secondary price source.
type ScrapedPriceRepository interface {
	GetPriceHistory(ctx context.Context, ticker, exchange string) (*dto.PriceHistory, error)
}

// LLMRepository sends a prompt to a language model and returns its raw text.
type LLMRepository interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HoldingsRepository supplies the configured positions.
type HoldingsRepository interface {
	GetHoldings(ctx context.Context) (*dto.Holdings, error)
}

// AdvisoryRepository stores published advisories.
type AdvisoryRepository interface {
	Save(ctx context.Context, advisory *dto.PortfolioAdvisory) error
	Latest(ctx context.Context) (*dto.PortfolioAdvisory, error)
	List(ctx context.Context, limit int) ([]entity.AdvisoryRun, error)
}

// LastPriceRepository remembers the last trusted price per ticker.
type LastPriceRepository interface {
	Get(ctx context.Context, ticker, exchange string) (price float64, found bool, err error)
	Set(ctx context.Context, ticker, exchange string, price float64, at time.Time) error
}

// NewsRepository returns recent headlines for a ticker.
type NewsRepository interface {
	GetHeadlines(ctx context.Context, ticker string) ([]string, error)
}

// RunLockRepository guards against concurrent pipeline runs across processes.
type RunLockRepository interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}
