package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang-stock-advisor/internal/advisor/config"
	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/advisor/repository"
	"golang-stock-advisor/internal/entity"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// AdvisoryService runs the advisory pipeline and serves its published results.
type AdvisoryService interface {
	Run(ctx context.Context) (*dto.PortfolioAdvisory, error)
	Latest(ctx context.Context) (*dto.PortfolioAdvisory, error)
	History(ctx context.Context, limit int) ([]entity.AdvisoryRun, error)
	Holdings(ctx context.Context) (*dto.Holdings, error)
	Running() bool
}

type advisoryService struct {
	cfg          *config.Config
	log          *logger.Logger
	holdingsRepo repository.HoldingsRepository
	advisoryRepo repository.AdvisoryRepository
	runLockRepo  repository.RunLockRepository
	synthesizer  Synthesizer
	aggregator   Aggregator
	delivery     DeliveryService

	running atomic.Bool
	latest  atomic.Pointer[dto.PortfolioAdvisory]
}

// NewAdvisoryService creates the pipeline. runLockRepo and delivery may be nil.
func NewAdvisoryService(cfg *config.Config, log *logger.Logger,
	holdingsRepo repository.HoldingsRepository,
	advisoryRepo repository.AdvisoryRepository,
	runLockRepo repository.RunLockRepository,
	synthesizer Synthesizer,
	aggregator Aggregator,
	delivery DeliveryService) AdvisoryService {
	return &advisoryService{
		cfg:          cfg,
		log:          log,
		holdingsRepo: holdingsRepo,
		advisoryRepo: advisoryRepo,
		runLockRepo:  runLockRepo,
		synthesizer:  synthesizer,
		aggregator:   aggregator,
		delivery:     delivery,
	}
}

func (s *advisoryService) Running() bool {
	return s.running.Load()
}

// Run executes one full pipeline run. A run already in flight, here or in
// another process holding the lock, yields dto.ErrRunSkipped. The advisory is
// published unless ctx is cancelled; hitting the run ceiling only degrades
// the positions still in flight.
func (s *advisoryService) Run(ctx context.Context) (*dto.PortfolioAdvisory, error) {
	if !s.running.CompareAndSwap(false, true) {
		runTotal.WithLabelValues("skipped").Inc()
		s.log.WarnContext(ctx, "Run skipped, previous run still in progress")
		return nil, dto.ErrRunSkipped
	}
	defer s.running.Store(false)

	if s.runLockRepo != nil {
		release, acquired, err := s.runLockRepo.Acquire(ctx, s.cfg.Advisor.RunLockTTL)
		if err != nil {
			runTotal.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if !acquired {
			runTotal.WithLabelValues("skipped").Inc()
			s.log.WarnContext(ctx, "Run skipped, run lock held by another instance")
			return nil, dto.ErrRunSkipped
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				s.log.Error("Failed to release run lock", logger.ErrorField(err))
			}
		}()
	}

	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)

	// work stops at the run ceiling, but only parent cancellation discards the run
	workCtx := ctx
	if s.cfg.Advisor.RunTimeout > 0 {
		var cancel context.CancelFunc
		workCtx, cancel = context.WithTimeout(ctx, s.cfg.Advisor.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	runAt := utils.TimeNowICT()
	s.log.InfoContext(ctx, "Advisory run started")

	holdings, err := s.holdingsRepo.GetHoldings(ctx)
	if err != nil {
		runTotal.WithLabelValues("failed").Inc()
		s.log.ErrorContext(ctx, "Failed to load holdings", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	recs := s.synthesizeAll(workCtx, holdings.Positions)
	if err := ctx.Err(); err != nil {
		runTotal.WithLabelValues("cancelled").Inc()
		s.log.WarnContext(ctx, "Advisory run cancelled, nothing published", logger.ErrorField(err))
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	advisory := s.aggregator.Aggregate(workCtx, holdings, recs)
	advisory.RunID = runID
	advisory.RunAt = runAt
	if err := ctx.Err(); err != nil {
		runTotal.WithLabelValues("cancelled").Inc()
		s.log.WarnContext(ctx, "Advisory run cancelled, nothing published", logger.ErrorField(err))
		return nil, fmt.Errorf("run cancelled: %w", err)
	}
	if workCtx.Err() != nil {
		s.log.WarnContext(ctx, "Run ceiling reached, publishing degraded results",
			logger.DurationField("run_timeout", s.cfg.Advisor.RunTimeout))
	}

	s.publish(ctx, &advisory)

	runTotal.WithLabelValues("published").Inc()
	runDuration.Observe(time.Since(start).Seconds())
	s.log.InfoContext(ctx, "Advisory run published",
		logger.IntField("positions", len(advisory.Recommendations)),
		logger.IntField("priorities", len(advisory.Priorities)),
		logger.IntField("degraded", advisory.DegradedCount),
		logger.BoolField("narrative", advisory.NarrativeAvailable),
		logger.DurationField("duration", time.Since(start)))
	return &advisory, nil
}

// synthesizeAll processes positions concurrently, each under its own
// ceiling. The result has one entry per position, in input order.
func (s *advisoryService) synthesizeAll(ctx context.Context, positions []dto.Position) []dto.Recommendation {
	recs := make([]dto.Recommendation, len(positions))

	var g errgroup.Group
	g.SetLimit(s.cfg.Advisor.MaxConcurrentPositions)
	for i, position := range positions {
		g.Go(func() error {
			positionCtx, cancel := context.WithTimeout(ctx, s.cfg.Advisor.PositionTimeout)
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					s.log.ErrorContext(ctx, "Recovered from panic while synthesizing",
						logger.StringField("ticker", position.Ticker), logger.Field("panic", r))
					recs[i] = panicRecommendation(position, r)
				}
			}()
			recs[i] = s.synthesizer.Synthesize(positionCtx, position)
			return nil
		})
	}
	_ = g.Wait()
	return recs
}

func (s *advisoryService) publish(ctx context.Context, advisory *dto.PortfolioAdvisory) {
	s.latest.Store(advisory)

	// persistence and delivery must not be cut short by the caller going away
	publishCtx := context.WithoutCancel(ctx)
	if s.advisoryRepo != nil {
		if err := s.advisoryRepo.Save(publishCtx, advisory); err != nil {
			s.log.ErrorContext(ctx, "Failed to save advisory", logger.ErrorField(err))
		}
	}
	if s.delivery != nil {
		s.delivery.Deliver(publishCtx, advisory)
	}
}

func (s *advisoryService) Latest(ctx context.Context) (*dto.PortfolioAdvisory, error) {
	if latest := s.latest.Load(); latest != nil {
		return latest, nil
	}
	if s.advisoryRepo == nil {
		return nil, dto.ErrNoAdvisory
	}
	advisory, err := s.advisoryRepo.Latest(ctx)
	if err != nil {
		if errors.Is(err, dto.ErrNoAdvisory) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load latest advisory: %w", err)
	}
	return advisory, nil
}

func (s *advisoryService) History(ctx context.Context, limit int) ([]entity.AdvisoryRun, error) {
	if s.advisoryRepo == nil {
		return nil, nil
	}
	return s.advisoryRepo.List(ctx, limit)
}

func (s *advisoryService) Holdings(ctx context.Context) (*dto.Holdings, error) {
	return s.holdingsRepo.GetHoldings(ctx)
}

func panicRecommendation(position dto.Position, r any) dto.Recommendation {
	return dto.Recommendation{
		Ticker:           position.Ticker,
		Exchange:         position.Exchange,
		Sector:           SectorOf(position.Ticker),
		Action:           dto.ActionHold,
		Rationale:        "Insufficient data: processing failed",
		RiskNotes:        []string{fmt.Sprint(r)},
		AIStatus:         dto.AIStatusUnavailable,
		Degraded:         true,
		InsufficientData: true,
		GeneratedAt:      utils.TimeNowICT(),
	}
}
