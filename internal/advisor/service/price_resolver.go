package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/advisor/repository"
	"golang-stock-advisor/pkg/common"
	"golang-stock-advisor/pkg/logger"
)

// PriceResolver obtains one quote per position through an ordered tier chain.
type PriceResolver interface {
	Resolve(ctx context.Context, position dto.Position) (*dto.PriceResolution, error)
}

type priceResolver struct {
	cfg           *config.Config
	log           *logger.Logger
	lastPriceRepo repository.LastPriceRepository
	tiers         []PriceTier
}

// NewPriceResolver creates a resolver trying tiers in the given order.
func NewPriceResolver(cfg *config.Config, log *logger.Logger, lastPriceRepo repository.LastPriceRepository, tiers ...PriceTier) PriceResolver {
	return &priceResolver{
		cfg:           cfg,
		log:           log,
		lastPriceRepo: lastPriceRepo,
		tiers:         tiers,
	}
}

// Resolve returns the first plausible quote. It fails only when every tier
// failed, with a *dto.PriceUnavailableError listing each reason.
func (r *priceResolver) Resolve(ctx context.Context, position dto.Position) (*dto.PriceResolution, error) {
	lastGood, hasLast := r.lastGood(ctx, position)

	var failures []dto.TierFailure
	for _, tier := range r.tiers {
		res, err := r.fetch(ctx, tier, position)
		if err == nil {
			err = r.checkPlausible(tier.Kind(), res.Quote.Price, lastGood, hasLast)
		}
		if err != nil {
			priceTierTotal.WithLabelValues(tier.Kind().String(), "failed").Inc()
			r.log.WarnContext(ctx, "Price tier failed",
				logger.StringField("ticker", position.Ticker),
				logger.StringField("tier", tier.Kind().String()),
				logger.StringField("source", tier.Source()),
				logger.ErrorField(err))
			failures = append(failures, dto.TierFailure{Tier: tier.Kind(), Source: tier.Source(), Reason: err.Error()})
			continue
		}

		res.Quote.Ticker = position.Ticker
		res.Quote.Exchange = position.Exchange
		res.Quote.Currency = common.CurrencyVND
		res.Quote.Source = tier.Source()
		res.Quote.Tier = tier.Kind()
		res.Quote.Confidence = tier.Kind().Confidence()
		priceTierTotal.WithLabelValues(tier.Kind().String(), "ok").Inc()

		if res.Quote.Confidence.Trusted() && r.lastPriceRepo != nil {
			if err := r.lastPriceRepo.Set(ctx, position.Ticker, position.Exchange, res.Quote.Price, res.Quote.Timestamp); err != nil {
				r.log.WarnContext(ctx, "Failed to record last good price", logger.StringField("ticker", position.Ticker), logger.ErrorField(err))
			}
		}

		r.log.InfoContext(ctx, "Price resolved",
			logger.StringField("ticker", position.Ticker),
			logger.StringField("tier", tier.Kind().String()),
			logger.StringField("source", tier.Source()),
			logger.FloatField("price", res.Quote.Price))
		return res, nil
	}

	return nil, &dto.PriceUnavailableError{Ticker: position.Ticker, Failures: failures}
}

func (r *priceResolver) fetch(ctx context.Context, tier PriceTier, position dto.Position) (*dto.PriceResolution, error) {
	timeout := r.tierTimeout(tier.Kind())
	if timeout > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := tier.Fetch(ctx, position)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%s returned no quote", tier.Source())
	}
	return res, nil
}

func (r *priceResolver) tierTimeout(kind dto.TierKind) time.Duration {
	switch kind {
	case dto.TierPrimary:
		return r.cfg.Price.PrimaryTimeout
	case dto.TierScraped:
		return r.cfg.Price.SecondaryTimeout
	case dto.TierAIEstimate:
		return r.cfg.Price.AITimeout
	default:
		return 0
	}
}

// checkPlausible rejects non-positive prices from any tier, and prices too
// far from the last good price from tiers below primary.
func (r *priceResolver) checkPlausible(kind dto.TierKind, price, lastGood float64, hasLast bool) error {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("implausible price %v", price)
	}
	if kind == dto.TierPrimary || !hasLast || lastGood <= 0 {
		return nil
	}
	deviation := math.Abs(price-lastGood) / lastGood
	if deviation > r.cfg.Price.MaxDeviation {
		return fmt.Errorf("price %.0f deviates %.1f%% from last good %.0f", price, deviation*100, lastGood)
	}
	return nil
}

func (r *priceResolver) lastGood(ctx context.Context, position dto.Position) (float64, bool) {
	if r.lastPriceRepo == nil {
		return 0, false
	}
	price, found, err := r.lastPriceRepo.Get(ctx, position.Ticker, position.Exchange)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to read last good price", logger.StringField("ticker", position.Ticker), logger.ErrorField(err))
		return 0, false
	}
	return price, found
}
