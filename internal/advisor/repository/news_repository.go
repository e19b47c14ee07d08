package repository

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
	"github.com/patrickmn/go-cache"
)

type googleNewsRepository struct {
	cfg           *config.Config
	log           *logger.Logger
	parser        *gofeed.Parser
	inmemoryCache *cache.Cache
}

// NewGoogleNewsRepository reads recent headlines for a ticker from the Google News RSS search feed.
func NewGoogleNewsRepository(cfg *config.Config, log *logger.Logger) NewsRepository {
	return &googleNewsRepository{
		cfg:           cfg,
		log:           log,
		parser:        gofeed.NewParser(),
		inmemoryCache: cache.New(cfg.News.CacheTTL, 10*cfg.News.CacheTTL),
	}
}

func (r *googleNewsRepository) GetHeadlines(ctx context.Context, ticker string) ([]string, error) {
	if cached, found := r.inmemoryCache.Get(ticker); found {
		return cached.([]string), nil
	}

	query := url.Values{}
	query.Set("q", fmt.Sprintf("cổ phiếu %s", ticker))
	query.Set("hl", "vi")
	query.Set("gl", "VN")
	query.Set("ceid", "VN:vi")
	feedURL := fmt.Sprintf("%s/search?%s", r.cfg.News.BaseURL, query.Encode())

	if r.cfg.News.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.News.Timeout)
		defer cancel()
	}

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to parse RSS feed", logger.ErrorField(err), logger.StringField("ticker", ticker))
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	headlines := headlinesFromFeed(feed, r.cfg.News.MaxItems)
	r.inmemoryCache.SetDefault(ticker, headlines)
	return headlines, nil
}

// headlinesFromFeed returns up to max headlines, newest first.
func headlinesFromFeed(feed *gofeed.Feed, max int) []string {
	items := append([]*gofeed.Item(nil), feed.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].PublishedParsed == nil || items[j].PublishedParsed == nil {
			return false
		}
		return items[i].PublishedParsed.After(*items[j].PublishedParsed)
	})

	headlines := make([]string, 0, max)
	for _, item := range items {
		if len(headlines) >= max {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		if snippet := plainText(item.Description); snippet != "" && !strings.Contains(title, snippet) {
			title = fmt.Sprintf("%s: %s", title, utils.Truncate(snippet, 160))
		}
		if item.PublishedParsed != nil {
			title = fmt.Sprintf("%s (%s)", title, item.PublishedParsed.In(utils.MarketLocation()).Format("2006-01-02"))
		}
		headlines = append(headlines, utils.SafeText(title))
	}
	return headlines
}

// plainText strips markup from an RSS description.
func plainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	content := html
	if doc, err := readability.NewDocument(html); err == nil {
		if c := doc.Content(); strings.TrimSpace(c) != "" {
			content = c
		}
	}
	docHTML, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(docHTML.Text()), " ")
}
