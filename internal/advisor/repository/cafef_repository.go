package repository

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	cafefDateCell   = 0
	cafefCloseCell  = 5
	cafefVolumeCell = 7
)

type cafefRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	client         *http.Client
	requestLimiter *rate.Limiter
}

// NewCafeFRepository creates the scraped price repository reading the CafeF price history page.
func NewCafeFRepository(cfg *config.Config, log *logger.Logger) ScrapedPriceRepository {
	return &cafefRepository{
		cfg:            cfg,
		log:            log,
		client:         &http.Client{Timeout: 20 * time.Second},
		requestLimiter: newRequestLimiter(cfg.CafeF.MaxRequestPerMinute),
	}
}

// GetPriceHistory scrapes the history table; the first row is the latest session.
func (r *cafefRepository) GetPriceHistory(ctx context.Context, ticker, exchange string) (*dto.PriceHistory, error) {
	pageURL := fmt.Sprintf("%s/Lich-su-gia-%s-%s.chn", r.cfg.CafeF.BaseURL, strings.ToUpper(ticker), strings.ToUpper(exchange))

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "vi-VN,vi;q=0.9,en;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Error("Failed to fetch CafeF page", logger.ErrorField(err), logger.StringField("url", pageURL))
		return nil, fmt.Errorf("failed to fetch CafeF page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.Error("Failed to fetch CafeF page with non-200 status", logger.IntField("status", resp.StatusCode), logger.StringField("url", pageURL))
		return nil, fmt.Errorf("failed to fetch CafeF page, status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CafeF page: %w", err)
	}

	history, err := parseCafeFTable(ticker, doc)
	if err != nil {
		return nil, err
	}

	r.log.DebugContext(ctx, "CafeF history scraped",
		logger.StringField("ticker", ticker),
		logger.IntField("bars", history.Len()))
	return history, nil
}

func parseCafeFTable(ticker string, doc *goquery.Document) (*dto.PriceHistory, error) {
	table := doc.Find("table#tableContent")
	if table.Length() == 0 {
		return nil, fmt.Errorf("could not find price table for %s", ticker)
	}

	var bars []dto.Bar
	var parseErr error
	table.Find("tr.r, tr.r1").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() <= cafefCloseCell {
			return true
		}
		date, err := time.ParseInLocation("02/01/2006", strings.TrimSpace(cells.Eq(cafefDateCell).Text()), utils.MarketLocation())
		if err != nil {
			// the latest row may carry no date while the session is open
			if i == 0 {
				date = utils.TruncateDay(utils.TimeNowICT())
			} else {
				return true
			}
		}
		closePrice, err := parseCafeFPrice(cells.Eq(cafefCloseCell).Text())
		if err != nil {
			if i == 0 {
				parseErr = fmt.Errorf("failed to parse latest price for %s: %w", ticker, err)
				return false
			}
			return true
		}
		var volume float64
		if cells.Length() > cafefVolumeCell {
			volume = parseCafeFVolume(cells.Eq(cafefVolumeCell).Text())
		}
		bars = append(bars, dto.Bar{Date: date, Close: closePrice, Volume: volume})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("could not find price row for %s", ticker)
	}

	history := dto.NewPriceHistory(ticker, bars)
	return &history, nil
}

// parseCafeFPrice accepts "105,000", "105.000" and "105.5" (thousands of VND).
func parseCafeFPrice(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return normalizeVND(v), nil
}

func parseCafeFVolume(raw string) float64 {
	s := strings.NewReplacer(",", "", ".", "", " ", "").Replace(strings.TrimSpace(raw))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
