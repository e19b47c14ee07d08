package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-stock-advisor/internal/advisor/config"
	delivery "golang-stock-advisor/internal/advisor/delivery/http"
	"golang-stock-advisor/internal/advisor/delivery/scheduler"
	_ "golang-stock-advisor/internal/advisor/docs"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/advisor/render"
	"golang-stock-advisor/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
)

var (
	configPath string
	dryRun     bool
	noCache    bool
	jsonOutput bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the scheduler and the HTTP API",
	Run:   runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the advisory pipeline once and prints the result",
	Run:   runOnce,
}

func loadConfig() (*config.Config, *logger.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if noCache {
		cfg.Cache.Bypass = true
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg, appLogger
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger := loadConfig()
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Advisor Service", logger.Field("name", cfg.App.Name), logger.Field("env", cfg.App.Env))

	application, err := buildApp(ctx, cfg, appLogger, dryRun)
	if err != nil {
		appLogger.Fatal("Failed to initialize advisor", logger.ErrorField(err))
	}
	defer application.Close()

	// Start scheduler
	var cronScheduler *scheduler.CronScheduler
	if cfg.Scheduler.Enabled {
		cronScheduler, err = scheduler.NewCronScheduler(cfg, application.advisoryService, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize scheduler", logger.ErrorField(err))
		}
		cronScheduler.Start(ctx)
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	advisoryHandler := delivery.NewAdvisoryHandler(ctx, application.advisoryService, appLogger)
	apiV1 := e.Group("/api/v1")
	advisoryHandler.RegisterRoutes(apiV1)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", swagger.WrapHandler)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down advisor...")

	if cronScheduler != nil {
		cronScheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Advisor exiting")
}

func runOnce(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger := loadConfig()
	defer func() { _ = appLogger.Sync() }()

	application, err := buildApp(ctx, cfg, appLogger, dryRun)
	if err != nil {
		appLogger.Fatal("Failed to initialize advisor", logger.ErrorField(err))
	}
	defer application.Close()

	advisory, err := application.advisoryService.Run(ctx)
	if err != nil {
		if errors.Is(err, dto.ErrRunSkipped) {
			appLogger.Warn("Run skipped, another run holds the lock")
			return
		}
		appLogger.Error("Advisory run failed", logger.ErrorField(err))
		application.Close()
		os.Exit(1)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(advisory); err != nil {
			appLogger.Error("Failed to encode advisory", logger.ErrorField(err))
		}
		return
	}
	fmt.Fprint(os.Stdout, render.Text(advisory))
}

// @title Stock Advisor API
// @version 1.0
// @description Daily portfolio advisory runs for Vietnamese equities.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "advisor-service"}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-advisor.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Write reports to disk instead of sending them")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Ignore cached advisor responses")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the advisory as JSON")

	rootCmd.AddCommand(serveCmd, runCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing advisor-service CLI: %s\n", err)
		os.Exit(1)
	}
}
