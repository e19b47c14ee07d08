package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang-stock-advisor/pkg/config"
)

// Advisor holds pipeline-level settings.
type Advisor struct {
	HoldingsSource               string        `mapstructure:"holdings_source"`
	HoldingsFile                 string        `mapstructure:"holdings_file"`
	MaxConcurrentPositions       int           `mapstructure:"max_concurrent_positions"`
	PositionTimeout              time.Duration `mapstructure:"position_timeout"`
	RunTimeout                   time.Duration `mapstructure:"run_timeout"`
	RunLockTTL                   time.Duration `mapstructure:"run_lock_ttl"`
	PriorityConfidenceThreshold  float64       `mapstructure:"priority_confidence_threshold"`
	DegradedConfidenceCap        float64       `mapstructure:"degraded_confidence_cap"`
	ConcentrationThreshold       float64       `mapstructure:"concentration_threshold"`
	SectorConcentrationThreshold float64       `mapstructure:"sector_concentration_threshold"`
	DefaultMaxDrawdownPct        float64       `mapstructure:"default_max_drawdown_pct"`
	TopMovers                    int           `mapstructure:"top_movers"`
}

// Price holds price resolver settings.
type Price struct {
	MaxDeviation     float64            `mapstructure:"max_deviation"`
	HistoryDays      int                `mapstructure:"history_days"`
	PrimaryTimeout   time.Duration      `mapstructure:"primary_timeout"`
	SecondaryTimeout time.Duration      `mapstructure:"secondary_timeout"`
	AITimeout        time.Duration      `mapstructure:"ai_timeout"`
	LastPriceTTL     time.Duration      `mapstructure:"last_price_ttl"`
	StaticPrices     map[string]float64 `mapstructure:"static_prices"`
}

// SSI holds the primary market data API configuration.
type SSI struct {
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// CafeF holds the scraped secondary source configuration.
type CafeF struct {
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// Indicator holds technical indicator parameters.
type Indicator struct {
	SMAShort              int     `mapstructure:"sma_short"`
	SMALong               int     `mapstructure:"sma_long"`
	RSIPeriod             int     `mapstructure:"rsi_period"`
	MACDFast              int     `mapstructure:"macd_fast"`
	MACDSlow              int     `mapstructure:"macd_slow"`
	MACDSignal            int     `mapstructure:"macd_signal"`
	VolumeWindow          int     `mapstructure:"volume_window"`
	VolumeZScoreThreshold float64 `mapstructure:"volume_zscore_threshold"`
	RSIOverbought         float64 `mapstructure:"rsi_overbought"`
	RSITrim               float64 `mapstructure:"rsi_trim"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute"`
	Temperature         float32       `mapstructure:"temperature"`
	MaxOutputTokens     int32         `mapstructure:"max_output_tokens"`
	MaxAttempts         int           `mapstructure:"max_attempts"`
	InitialBackoff      time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff          time.Duration `mapstructure:"max_backoff"`
	CallTimeout         time.Duration `mapstructure:"call_timeout"`
}

// Cache holds the advisor response cache configuration.
type Cache struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Bypass          bool          `mapstructure:"bypass"`
}

// News holds the RSS headline source configuration.
type News struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url"`
	MaxItems int           `mapstructure:"max_items"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Scheduler holds the cron trigger configuration.
type Scheduler struct {
	Enabled  bool   `mapstructure:"enabled"`
	Cron     string `mapstructure:"cron"`
	Timezone string `mapstructure:"timezone"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Email holds SMTP delivery configuration.
type Email struct {
	Enabled    bool     `mapstructure:"enabled"`
	Host       string   `mapstructure:"host"`
	Port       int      `mapstructure:"port"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	From       string   `mapstructure:"from"`
	Recipients []string `mapstructure:"recipients"`
	DryRun     bool     `mapstructure:"dry_run"`
	DryRunDir  string   `mapstructure:"dry_run_dir"`
}

// Config holds the full configuration for the advisor service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	API       config.API      `mapstructure:"api"`
	Advisor   Advisor         `mapstructure:"advisor"`
	Price     Price           `mapstructure:"price"`
	SSI       SSI             `mapstructure:"ssi"`
	CafeF     CafeF           `mapstructure:"cafef"`
	Indicator Indicator       `mapstructure:"indicator"`
	Gemini    Gemini          `mapstructure:"gemini"`
	Cache     Cache           `mapstructure:"cache"`
	News      News            `mapstructure:"news"`
	Scheduler Scheduler       `mapstructure:"scheduler"`
	Telegram  Telegram        `mapstructure:"telegram"`
	Email     Email           `mapstructure:"email"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		App:    config.App{Name: "stock-advisor", Env: "development"},
		Logger: config.Logger{Level: "info", Encoding: "json"},
		API:    config.API{Port: 8080},
		Advisor: Advisor{
			HoldingsSource:               "file",
			HoldingsFile:                 "configs/holdings.json",
			MaxConcurrentPositions:       4,
			PositionTimeout:              90 * time.Second,
			RunTimeout:                   15 * time.Minute,
			RunLockTTL:                   30 * time.Minute,
			PriorityConfidenceThreshold:  0.6,
			DegradedConfidenceCap:        0.5,
			ConcentrationThreshold:       0.25,
			SectorConcentrationThreshold: 0.40,
			DefaultMaxDrawdownPct:        -15,
			TopMovers:                    3,
		},
		Price: Price{
			MaxDeviation:     0.30,
			HistoryDays:      120,
			PrimaryTimeout:   10 * time.Second,
			SecondaryTimeout: 15 * time.Second,
			AITimeout:        30 * time.Second,
			LastPriceTTL:     7 * 24 * time.Hour,
			StaticPrices:     DefaultStaticPrices(),
		},
		SSI:   SSI{BaseURL: "https://iboard.ssi.com.vn", MaxRequestPerMinute: 60},
		CafeF: CafeF{BaseURL: "https://s.cafef.vn", MaxRequestPerMinute: 30},
		Indicator: Indicator{
			SMAShort:              20,
			SMALong:               50,
			RSIPeriod:             14,
			MACDFast:              12,
			MACDSlow:              26,
			MACDSignal:            9,
			VolumeWindow:          20,
			VolumeZScoreThreshold: 2.0,
			RSIOverbought:         70,
			RSITrim:               80,
		},
		Gemini: Gemini{
			Model:               "gemini-2.0-flash",
			MaxRequestPerMinute: 15,
			MaxTokenPerMinute:   1_000_000,
			Temperature:         0.3,
			MaxOutputTokens:     800,
			MaxAttempts:         3,
			InitialBackoff:      time.Second,
			MaxBackoff:          10 * time.Second,
			CallTimeout:         30 * time.Second,
		},
		Cache: Cache{TTL: 6 * time.Hour, CleanupInterval: 30 * time.Minute},
		News: News{
			BaseURL:  "https://news.google.com/rss",
			MaxItems: 5,
			CacheTTL: 30 * time.Minute,
			Timeout:  10 * time.Second,
		},
		Scheduler: Scheduler{Enabled: true, Cron: "30 7 * * *", Timezone: "Asia/Ho_Chi_Minh"},
		Email:     Email{Port: 587, DryRunDir: "reports"},
	}
}

// DefaultStaticPrices is the last-resort price table in VND.
func DefaultStaticPrices() map[string]float64 {
	return map[string]float64{
		"FPT": 101000, "VCB": 55500, "TCB": 23000, "ACB": 21800,
		"BID": 33500, "HPG": 20500, "MSN": 68000, "VNM": 54000,
		"KDH": 25500, "HDG": 23200, "CMG": 34500, "VIC": 85000,
		"VHM": 65000, "GVR": 18000, "NVL": 12000, "POW": 11000,
	}
}

// Validate checks the invariants between thresholds.
func (c *Config) Validate() error {
	var errs []error
	a := c.Advisor
	if a.MaxConcurrentPositions <= 0 {
		errs = append(errs, errors.New("advisor.max_concurrent_positions must be positive"))
	}
	if a.PositionTimeout <= 0 {
		errs = append(errs, errors.New("advisor.position_timeout must be positive"))
	}
	if a.PriorityConfidenceThreshold <= 0 || a.PriorityConfidenceThreshold > 1 {
		errs = append(errs, errors.New("advisor.priority_confidence_threshold must be in (0,1]"))
	}
	if a.DegradedConfidenceCap < 0 || a.DegradedConfidenceCap >= a.PriorityConfidenceThreshold {
		errs = append(errs, fmt.Errorf("advisor.degraded_confidence_cap (%.2f) must be below priority_confidence_threshold (%.2f)",
			a.DegradedConfidenceCap, a.PriorityConfidenceThreshold))
	}
	if a.ConcentrationThreshold <= 0 || a.ConcentrationThreshold > 1 {
		errs = append(errs, errors.New("advisor.concentration_threshold must be in (0,1]"))
	}
	if a.DefaultMaxDrawdownPct > 0 {
		errs = append(errs, errors.New("advisor.default_max_drawdown_pct must be <= 0"))
	}
	switch a.HoldingsSource {
	case "file", "postgres":
	default:
		errs = append(errs, fmt.Errorf("advisor.holdings_source %q must be file or postgres", a.HoldingsSource))
	}
	if a.HoldingsSource == "postgres" && !c.Database.Enabled {
		errs = append(errs, errors.New("advisor.holdings_source postgres requires database.enabled"))
	}
	if c.Price.MaxDeviation <= 0 {
		errs = append(errs, errors.New("price.max_deviation must be positive"))
	}
	if c.Indicator.SMAShort <= 1 || c.Indicator.SMALong <= c.Indicator.SMAShort {
		errs = append(errs, errors.New("indicator.sma_long must be greater than sma_short > 1"))
	}
	if c.Indicator.MACDSlow <= c.Indicator.MACDFast {
		errs = append(errs, errors.New("indicator.macd_slow must be greater than macd_fast"))
	}
	if c.Gemini.MaxAttempts <= 0 {
		errs = append(errs, errors.New("gemini.max_attempts must be positive"))
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("telegram.bot_token is required when telegram is enabled"))
	}
	if c.Email.Enabled && !c.Email.DryRun && (c.Email.Host == "" || len(c.Email.Recipients) == 0) {
		errs = append(errs, errors.New("email.host and email.recipients are required when email is enabled"))
	}
	return errors.Join(errs...)
}

// Load loads the advisor configuration from the given path on top of Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := config.Load(path, cfg); err != nil {
		return nil, err
	}
	cfg.Price.StaticPrices = normalizeTickers(cfg.Price.StaticPrices)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// normalizeTickers upper-cases map keys; viper lower-cases keys read from
// yaml, so entries from the file override the defaults.
func normalizeTickers(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if k == strings.ToUpper(k) {
			out[k] = v
		}
	}
	for k, v := range m {
		if k != strings.ToUpper(k) {
			out[strings.ToUpper(k)] = v
		}
	}
	return out
}
