package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/advisor/service"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"github.com/robfig/cron/v3"
)

// CronScheduler triggers advisory runs on a cron schedule.
type CronScheduler struct {
	cfg             *config.Config
	advisoryService service.AdvisoryService
	logger          *logger.Logger
	cron            *cron.Cron
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
}

// NewCronScheduler creates the scheduler. The cron expression is evaluated in
// the configured timezone, falling back to the market timezone.
func NewCronScheduler(cfg *config.Config, advisoryService service.AdvisoryService, log *logger.Logger) (*CronScheduler, error) {
	loc := utils.MarketLocation()
	if cfg.Scheduler.Timezone != "" {
		l, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			return nil, fmt.Errorf("failed to load scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
		}
		loc = l
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithLogger(log.CronLogger()),
		cron.WithChain(cron.Recover(log.CronLogger())),
	)

	s := &CronScheduler{
		cfg:             cfg,
		advisoryService: advisoryService,
		logger:          log,
		cron:            c,
	}
	if _, err := c.AddFunc(cfg.Scheduler.Cron, s.trigger); err != nil {
		return nil, fmt.Errorf("failed to parse cron expression %q: %w", cfg.Scheduler.Cron, err)
	}
	return s, nil
}

// Start begins firing runs until ctx is done or Stop is called.
func (s *CronScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.logger.Info("Scheduler started",
		logger.StringField("cron", s.cfg.Scheduler.Cron),
		logger.StringField("timezone", s.cfg.Scheduler.Timezone),
		logger.Field("next_run", s.NextRun()))
}

// NextRun returns the next scheduled trigger, or the zero time before Start.
func (s *CronScheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *CronScheduler) trigger() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	s.logger.Info("Scheduled advisory run triggered")
	_, err := s.advisoryService.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, dto.ErrRunSkipped):
		s.logger.Warn("Scheduled run skipped, previous run still in progress")
	default:
		s.logger.Error("Scheduled advisory run failed", logger.ErrorField(err))
	}
}

// Stop stops scheduling and cancels any run in flight, then waits for it.
func (s *CronScheduler) Stop() {
	stopCtx := s.cron.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	<-stopCtx.Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}
