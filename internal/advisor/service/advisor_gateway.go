package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/advisor/repository"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
)

// AdvisorGateway turns structured contexts into validated LLM responses.
type AdvisorGateway interface {
	AdviseStock(ctx context.Context, stock dto.StockContext) (*dto.StockAdvice, error)
	AdvisePortfolio(ctx context.Context, digest dto.PortfolioDigest) (*dto.PortfolioNarrative, error)
	EstimatePrice(ctx context.Context, position dto.Position) (*dto.PriceEstimate, error)
}

type advisorGateway struct {
	cfg      *config.Config
	log      *logger.Logger
	llmRepo  repository.LLMRepository
	cache    ResponseCache
	validate *validator.Validate
	group    singleflight.Group
}

// NewAdvisorGateway creates the gateway. cache may be shared between gateways.
func NewAdvisorGateway(cfg *config.Config, log *logger.Logger, llmRepo repository.LLMRepository, cache ResponseCache) AdvisorGateway {
	return &advisorGateway{
		cfg:      cfg,
		log:      log,
		llmRepo:  llmRepo,
		cache:    cache,
		validate: validator.New(),
	}
}

func (g *advisorGateway) AdviseStock(ctx context.Context, stock dto.StockContext) (*dto.StockAdvice, error) {
	var advice dto.StockAdvice
	if err := g.call(ctx, dto.ModePerStock, stock, repository.BuildStockAdvicePrompt(stock), &advice); err != nil {
		return nil, err
	}
	return &advice, nil
}

func (g *advisorGateway) AdvisePortfolio(ctx context.Context, digest dto.PortfolioDigest) (*dto.PortfolioNarrative, error) {
	var narrative dto.PortfolioNarrative
	if err := g.call(ctx, dto.ModePortfolio, digest, repository.BuildPortfolioPrompt(digest), &narrative); err != nil {
		return nil, err
	}
	return &narrative, nil
}

func (g *advisorGateway) EstimatePrice(ctx context.Context, position dto.Position) (*dto.PriceEstimate, error) {
	date := utils.TimeNowICT().Format("2006-01-02")
	key := struct {
		Ticker   string `json:"ticker"`
		Exchange string `json:"exchange"`
		Date     string `json:"date"`
	}{position.Ticker, position.Exchange, date}

	var estimate dto.PriceEstimate
	if err := g.call(ctx, dto.ModePriceEstimate, key, repository.BuildPriceEstimatePrompt(position, date), &estimate); err != nil {
		return nil, err
	}
	return &estimate, nil
}

// call resolves one request through the cache, the retrying LLM call and
// validation. out receives the decoded response.
func (g *advisorGateway) call(ctx context.Context, mode dto.AdvisorMode, payload any, prompt string, out any) error {
	fingerprint, err := Fingerprint(mode, payload)
	if err != nil {
		return &dto.AdvisoryUnavailableError{Mode: mode, Reason: "invalid context", Err: err}
	}

	if raw, ok := g.cache.Get(fingerprint); ok {
		if err := json.Unmarshal(raw, out); err == nil {
			aiCallTotal.WithLabelValues(string(mode), "cache_hit").Inc()
			g.log.DebugContext(ctx, "Advisor cache hit", logger.StringField("mode", string(mode)))
			return nil
		}
	}

	// shared callers get the leader's outcome, including a failure caused by the
	// leader's ctx; fingerprints are per position and runs never overlap
	v, err, shared := g.group.Do(fingerprint, func() (any, error) {
		return g.fetch(ctx, mode, prompt, out)
	})
	if err != nil {
		return err
	}
	if shared {
		if err := json.Unmarshal(v.([]byte), out); err != nil {
			return &dto.AdvisoryUnavailableError{Mode: mode, Reason: "invalid response", Err: err}
		}
	}

	g.cache.Set(fingerprint, v.([]byte))
	return nil
}

func (g *advisorGateway) fetch(ctx context.Context, mode dto.AdvisorMode, prompt string, out any) ([]byte, error) {
	var text string
	attempt := 0
	operation := func() error {
		attempt++
		callCtx := ctx
		if g.cfg.Gemini.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.cfg.Gemini.CallTimeout)
			defer cancel()
		}

		resp, err := g.llmRepo.Generate(callCtx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if errors.Is(err, repository.ErrLLMDisabled) {
				return backoff.Permanent(err)
			}
			return err
		}
		text = resp
		return nil
	}

	notify := func(err error, wait time.Duration) {
		aiCallTotal.WithLabelValues(string(mode), "retry").Inc()
		g.log.WarnContext(ctx, "Advisor call failed, retrying",
			logger.StringField("mode", string(mode)),
			logger.IntField("attempt", attempt),
			logger.DurationField("wait", wait),
			logger.ErrorField(err))
	}

	if err := backoff.RetryNotify(operation, g.retryPolicy(ctx), notify); err != nil {
		aiCallTotal.WithLabelValues(string(mode), "unavailable").Inc()
		return nil, &dto.AdvisoryUnavailableError{Mode: mode, Reason: fmt.Sprintf("call failed after %d attempt(s)", attempt), Err: err}
	}

	raw, err := g.decode(text, out)
	if err != nil {
		aiCallTotal.WithLabelValues(string(mode), "invalid").Inc()
		g.log.WarnContext(ctx, "Advisor response rejected",
			logger.StringField("mode", string(mode)),
			logger.StringField("response", utils.Truncate(text, 300)),
			logger.ErrorField(err))
		return nil, &dto.AdvisoryUnavailableError{Mode: mode, Reason: "invalid response", Err: err}
	}

	aiCallTotal.WithLabelValues(string(mode), "ok").Inc()
	return raw, nil
}

func (g *advisorGateway) retryPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if g.cfg.Gemini.InitialBackoff > 0 {
		b.InitialInterval = g.cfg.Gemini.InitialBackoff
	}
	if g.cfg.Gemini.MaxBackoff > 0 {
		b.MaxInterval = g.cfg.Gemini.MaxBackoff
	}
	b.MaxElapsedTime = 0

	retries := g.cfg.Gemini.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// decode extracts the JSON object from text, decodes it into out and
// validates it. The returned bytes are the cacheable JSON block.
func (g *advisorGateway) decode(text string, out any) ([]byte, error) {
	block, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(block, out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if err := g.validate.Struct(out); err != nil {
		return nil, fmt.Errorf("response failed validation: %w", err)
	}
	return block, nil
}

// extractJSONObject returns the first complete JSON value starting at the
// first '{', ignoring fences and any trailing prose.
func extractJSONObject(text string) ([]byte, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, errors.New("no JSON object in response")
	}
	var raw json.RawMessage
	if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return raw, nil
}
