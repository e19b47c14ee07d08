package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

type ssiRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
}

// NewSSIRepository creates the primary market data repository backed by the SSI iBoard chart API.
func NewSSIRepository(cfg *config.Config, log *logger.Logger) MarketDataRepository {
	return &ssiRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		requestLimiter: newRequestLimiter(cfg.SSI.MaxRequestPerMinute),
	}
}

func newRequestLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// GetDailyHistory returns daily bars for the ticker, the latest bar carrying the current close.
func (r *ssiRepository) GetDailyHistory(ctx context.Context, ticker, exchange string, days int) (*dto.PriceHistory, error) {
	q := url.Values{}
	q.Set("period", ssiPeriod(days))
	q.Set("type", "stock")
	endpoint := fmt.Sprintf("%s/dchart/api/chart/history/%s?%s", r.cfg.SSI.BaseURL, url.PathEscape(ticker), q.Encode())

	body, err := r.sendRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp dto.SSIChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode SSI chart response: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no chart data for %s", ticker)
	}

	bars := make([]dto.Bar, 0, len(resp.Data))
	for _, b := range resp.Data {
		if b.Date.IsZero() {
			continue
		}
		bars = append(bars, dto.Bar{
			Date:   b.Date.Time,
			Close:  normalizeVND(float64(b.Close)),
			Volume: float64(b.Volume),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no dated chart bars for %s", ticker)
	}

	history := dto.NewPriceHistory(ticker, bars)
	r.log.DebugContext(ctx, "SSI history loaded",
		logger.StringField("ticker", ticker),
		logger.StringField("exchange", exchange),
		logger.IntField("bars", history.Len()))
	return &history, nil
}

func (r *ssiRepository) sendRequest(ctx context.Context, endpoint string) ([]byte, error) {
	fields := []zap.Field{zap.String("url", endpoint)}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		r.log.ErrorContext(ctx, "Failed to wait for request limit", append(fields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to send request to SSI API", append(fields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to send request to SSI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.ErrorContext(ctx, "Received non-OK response from SSI API", append(fields, zap.Int("status_code", resp.StatusCode))...)
		return nil, fmt.Errorf("received non-OK response from SSI API: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read SSI response body: %w", err)
	}
	return body, nil
}

func ssiPeriod(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 31:
		return "1m"
	case days <= 93:
		return "3m"
	case days <= 186:
		return "6m"
	default:
		return "1y"
	}
}

// normalizeVND converts prices quoted in thousands of VND to VND. Listed
// shares never trade below 1,000 VND.
func normalizeVND(v float64) float64 {
	if v > 0 && v < 1000 {
		return v * 1000
	}
	return v
}
