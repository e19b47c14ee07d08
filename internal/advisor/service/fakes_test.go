package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/entity"
	"golang-stock-advisor/pkg/email"
	"golang-stock-advisor/pkg/logger"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Gemini.InitialBackoff = time.Millisecond
	cfg.Gemini.MaxBackoff = 2 * time.Millisecond
	cfg.Gemini.CallTimeout = time.Second
	cfg.Advisor.PositionTimeout = 2 * time.Second
	cfg.Advisor.RunTimeout = 10 * time.Second
	return cfg
}

var nopLog = logger.NewNop()

type fakeLLM struct {
	calls   atomic.Int32
	respond func(n int32, prompt string) (string, error)
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	n := f.calls.Add(1)
	return f.respond(n, prompt)
}

type fakeTier struct {
	kind   dto.TierKind
	source string
	price  float64
	err    error
	calls  atomic.Int32
}

func (f *fakeTier) Kind() dto.TierKind { return f.kind }
func (f *fakeTier) Source() string     { return f.source }

func (f *fakeTier) Fetch(ctx context.Context, position dto.Position) (*dto.PriceResolution, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.PriceResolution{Quote: dto.PriceQuote{Price: f.price, Timestamp: time.Now()}}, nil
}

type fakeResolver struct {
	res *dto.PriceResolution
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, position dto.Position) (*dto.PriceResolution, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := *f.res
	res.Quote.Ticker = position.Ticker
	res.Quote.Exchange = position.Exchange
	return &res, nil
}

type fakeGateway struct {
	stock     func(dto.StockContext) (*dto.StockAdvice, error)
	portfolio func(dto.PortfolioDigest) (*dto.PortfolioNarrative, error)
	estimate  func(dto.Position) (*dto.PriceEstimate, error)
}

func (f *fakeGateway) AdviseStock(ctx context.Context, stock dto.StockContext) (*dto.StockAdvice, error) {
	if f.stock == nil {
		return nil, &dto.AdvisoryUnavailableError{Mode: dto.ModePerStock, Reason: "disabled"}
	}
	return f.stock(stock)
}

func (f *fakeGateway) AdvisePortfolio(ctx context.Context, digest dto.PortfolioDigest) (*dto.PortfolioNarrative, error) {
	if f.portfolio == nil {
		return nil, &dto.AdvisoryUnavailableError{Mode: dto.ModePortfolio, Reason: "disabled"}
	}
	return f.portfolio(digest)
}

func (f *fakeGateway) EstimatePrice(ctx context.Context, position dto.Position) (*dto.PriceEstimate, error) {
	if f.estimate == nil {
		return nil, &dto.AdvisoryUnavailableError{Mode: dto.ModePriceEstimate, Reason: "disabled"}
	}
	return f.estimate(position)
}

type fakeHoldingsRepo struct {
	holdings *dto.Holdings
	err      error
}

func (f *fakeHoldingsRepo) GetHoldings(ctx context.Context) (*dto.Holdings, error) {
	return f.holdings, f.err
}

type fakeAdvisoryRepo struct {
	mu    sync.Mutex
	saved []dto.PortfolioAdvisory
}

func (f *fakeAdvisoryRepo) Save(ctx context.Context, advisory *dto.PortfolioAdvisory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *advisory)
	return nil
}

func (f *fakeAdvisoryRepo) Latest(ctx context.Context) (*dto.PortfolioAdvisory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return nil, dto.ErrNoAdvisory
	}
	latest := f.saved[len(f.saved)-1]
	return &latest, nil
}

func (f *fakeAdvisoryRepo) List(ctx context.Context, limit int) ([]entity.AdvisoryRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var runs []entity.AdvisoryRun
	for i := len(f.saved) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, entity.AdvisoryRun{RunID: f.saved[i].RunID})
	}
	return runs, nil
}

func (f *fakeAdvisoryRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type fakeRunLock struct {
	acquired bool
	released atomic.Bool
}

func (f *fakeRunLock) Acquire(ctx context.Context, ttl time.Duration) (func(context.Context) error, bool, error) {
	if !f.acquired {
		return nil, false, nil
	}
	return func(context.Context) error {
		f.released.Store(true)
		return nil
	}, true, nil
}

type fakeSynthesizer struct {
	fn func(ctx context.Context, position dto.Position) dto.Recommendation
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, position dto.Position) dto.Recommendation {
	return f.fn(ctx, position)
}

type fakeDelivery struct {
	calls atomic.Int32
}

func (f *fakeDelivery) Deliver(ctx context.Context, advisory *dto.PortfolioAdvisory) []DeliveryResult {
	f.calls.Add(1)
	return nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) SendMessage(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, text)
	return nil
}

type fakeSender struct {
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func fptPosition() dto.Position {
	target := 145000.0
	drawdown := -12.0
	return dto.Position{
		Ticker:         "FPT",
		Exchange:       "HOSE",
		Shares:         1000,
		AvgPrice:       121000,
		TargetPrice:    &target,
		MaxDrawdownPct: &drawdown,
	}
}

func confidence(v float64) *float64 { return &v }
