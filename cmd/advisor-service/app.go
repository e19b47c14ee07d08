package main

import (
	"context"
	"fmt"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/repository"
	"golang-stock-advisor/internal/advisor/service"
	"golang-stock-advisor/pkg/email"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/postgres"
	"golang-stock-advisor/pkg/redis"
	"golang-stock-advisor/pkg/telegram"

	"google.golang.org/genai"
)

// app holds the wired pipeline and the resources to release on shutdown.
type app struct {
	advisoryService service.AdvisoryService
	closers         []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, dryRun bool) (*app, error) {
	a := &app{}

	// Initialize storage
	var (
		advisoryRepo  repository.AdvisoryRepository
		holdingsRepo  repository.HoldingsRepository
		lastPriceRepo repository.LastPriceRepository
		runLockRepo   repository.RunLockRepository
	)

	if cfg.Database.Enabled {
		db, err := postgres.NewDB(postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			DBName:          cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			TimeZone:        cfg.Database.TimeZone,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			LogLevel:        cfg.Database.LogLevel,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if sqlDB, err := db.DB.DB(); err == nil {
			a.closers = append(a.closers, func() { _ = sqlDB.Close() })
		}
		advisoryRepo = repository.NewAdvisoryRepository(db.DB)
		if cfg.Advisor.HoldingsSource == "postgres" {
			holdingsRepo = repository.NewPostgresHoldingsRepository(db.DB)
		}
	} else {
		advisoryRepo = repository.NewMemoryAdvisoryRepository(0)
	}
	if holdingsRepo == nil {
		holdingsRepo = repository.NewFileHoldingsRepository(cfg.Advisor.HoldingsFile)
	}

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		lastPriceRepo = repository.NewRedisLastPriceRepository(redisClient.Client, cfg.Price.LastPriceTTL)
		runLockRepo = repository.NewRedisRunLockRepository(redisClient.Client)
	} else {
		lastPriceRepo = repository.NewMemoryLastPriceRepository(cfg.Price.LastPriceTTL)
	}

	// Initialize AI provider
	llmRepo, err := newLLMRepository(ctx, cfg, appLogger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var newsRepo repository.NewsRepository
	if cfg.News.Enabled {
		newsRepo = repository.NewGoogleNewsRepository(cfg, appLogger)
	}

	// Initialize delivery channels
	var notifier telegram.Notifier
	if cfg.Telegram.Enabled && !dryRun {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize telegram notifier: %w", err)
		}
	}
	var emailSender email.Sender
	switch {
	case dryRun || (cfg.Email.Enabled && cfg.Email.DryRun):
		emailSender = email.NewDryRunSender(cfg.Email.DryRunDir)
	case cfg.Email.Enabled:
		emailSender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
	}

	// Initialize services
	cache := service.NewResponseCache(cfg.Cache)
	gateway := service.NewAdvisorGateway(cfg, appLogger, llmRepo, cache)
	resolver := service.NewPriceResolver(cfg, appLogger, lastPriceRepo,
		service.NewPrimaryTier(repository.NewSSIRepository(cfg, appLogger), cfg.Price.HistoryDays),
		service.NewScrapedTier(repository.NewCafeFRepository(cfg, appLogger)),
		service.NewAIEstimateTier(gateway),
		service.NewStaticTier(cfg.Price.StaticPrices),
	)
	synthesizer := service.NewSynthesizer(cfg, appLogger, resolver, gateway, newsRepo)
	aggregator := service.NewAggregator(cfg, appLogger, gateway)
	deliverySvc := service.NewDeliveryService(cfg, appLogger, notifier, emailSender)

	a.advisoryService = service.NewAdvisoryService(cfg, appLogger,
		holdingsRepo, advisoryRepo, runLockRepo, synthesizer, aggregator, deliverySvc)

	appLogger.Info("Advisor wired",
		logger.BoolField("database", cfg.Database.Enabled),
		logger.BoolField("redis", cfg.Redis.Enabled),
		logger.StringField("holdings_source", cfg.Advisor.HoldingsSource),
		logger.BoolField("telegram", notifier != nil),
		logger.BoolField("email", emailSender != nil),
		logger.BoolField("news", newsRepo != nil),
		logger.BoolField("cache_bypass", cfg.Cache.Bypass),
		logger.BoolField("dry_run", dryRun))
	return a, nil
}

// newLLMRepository wires Gemini. Without usable credentials it returns a
// disabled repository and the pipeline runs indicator-only.
func newLLMRepository(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (repository.LLMRepository, error) {
	genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		appLogger.Warn("Gemini client unavailable, running indicator-only", logger.ErrorField(err))
		return repository.NewDisabledLLMRepository(err.Error()), nil
	}
	llmRepo, err := repository.NewGeminiAIRepository(cfg, appLogger, genAiClient)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini repository: %w", err)
	}
	return llmRepo, nil
}
