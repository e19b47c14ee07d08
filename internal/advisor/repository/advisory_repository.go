package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/entity"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type advisoryRepository struct {
	db *gorm.DB
}

// NewAdvisoryRepository stores advisory snapshots in Postgres.
func NewAdvisoryRepository(db *gorm.DB) AdvisoryRepository {
	return &advisoryRepository{db: db}
}

// Save writes the run row and its recommendations in one transaction.
func (r *advisoryRepository) Save(ctx context.Context, advisory *dto.PortfolioAdvisory) error {
	run, err := toAdvisoryRun(advisory)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recs := run.Recommendations
		run.Recommendations = nil
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("failed to insert advisory run: %w", err)
		}
		if len(recs) == 0 {
			return nil
		}
		for i := range recs {
			recs[i].AdvisoryRunID = run.ID
		}
		if err := tx.Create(&recs).Error; err != nil {
			return fmt.Errorf("failed to insert advisory recommendations: %w", err)
		}
		return nil
	})
}

func (r *advisoryRepository) Latest(ctx context.Context) (*dto.PortfolioAdvisory, error) {
	var run entity.AdvisoryRun
	err := r.db.WithContext(ctx).Order("run_at desc").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dto.ErrNoAdvisory
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest advisory run: %w", err)
	}

	var advisory dto.PortfolioAdvisory
	if err := json.Unmarshal(run.Data, &advisory); err != nil {
		return nil, fmt.Errorf("failed to decode advisory snapshot: %w", err)
	}
	return &advisory, nil
}

func (r *advisoryRepository) List(ctx context.Context, limit int) ([]entity.AdvisoryRun, error) {
	var runs []entity.AdvisoryRun
	err := r.db.WithContext(ctx).
		Omit("data").
		Preload("Recommendations").
		Order("run_at desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list advisory runs: %w", err)
	}
	return runs, nil
}

func toAdvisoryRun(a *dto.PortfolioAdvisory) (*entity.AdvisoryRun, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode advisory snapshot: %w", err)
	}

	run := &entity.AdvisoryRun{
		RunID:                a.RunID,
		RunAt:                a.RunAt,
		TotalInvested:        a.Metrics.TotalInvested,
		TotalCurrent:         a.Metrics.TotalCurrent,
		UnrealizedPL:         a.Metrics.UnrealizedPL,
		UnrealizedPLPct:      a.Metrics.UnrealizedPLPct,
		MaxConcentration:     a.Metrics.MaxConcentration,
		ConcentrationFlagged: a.Metrics.ConcentrationFlagged,
		NarrativeAvailable:   a.NarrativeAvailable,
		Narrative:            a.Narrative,
		RiskScore:            a.RiskScore,
		DegradedCount:        a.DegradedCount,
		Data:                 datatypes.JSON(data),
	}
	for _, rec := range a.Recommendations {
		row := entity.AdvisoryRecommendation{
			Ticker:           rec.Ticker,
			Exchange:         rec.Exchange,
			Action:           string(rec.Action),
			Confidence:       rec.Confidence,
			AIStatus:         string(rec.AIStatus),
			Degraded:         rec.Degraded,
			InsufficientData: rec.InsufficientData,
			Rationale:        rec.Rationale,
			KeySignals:       rec.KeySignals,
			RiskNotes:        rec.RiskNotes,
		}
		if rec.Quote != nil {
			row.Price = rec.Quote.Price
			row.PriceSource = rec.Quote.Source
			row.PriceConfidence = string(rec.Quote.Confidence)
		}
		run.Recommendations = append(run.Recommendations, row)
	}
	return run, nil
}

type memoryAdvisoryRepository struct {
	mu    sync.RWMutex
	runs  []dto.PortfolioAdvisory
	limit int
}

// NewMemoryAdvisoryRepository keeps the most recent advisories in memory
// when no database is configured.
func NewMemoryAdvisoryRepository(limit int) AdvisoryRepository {
	if limit <= 0 {
		limit = 30
	}
	return &memoryAdvisoryRepository{limit: limit}
}

func (r *memoryAdvisoryRepository) Save(ctx context.Context, advisory *dto.PortfolioAdvisory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append([]dto.PortfolioAdvisory{*advisory}, r.runs...)
	if len(r.runs) > r.limit {
		r.runs = r.runs[:r.limit]
	}
	return nil
}

func (r *memoryAdvisoryRepository) Latest(ctx context.Context) (*dto.PortfolioAdvisory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.runs) == 0 {
		return nil, dto.ErrNoAdvisory
	}
	latest := r.runs[0]
	return &latest, nil
}

func (r *memoryAdvisoryRepository) List(ctx context.Context, limit int) ([]entity.AdvisoryRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.runs) {
		limit = len(r.runs)
	}
	out := make([]entity.AdvisoryRun, 0, limit)
	for i := 0; i < limit; i++ {
		run, err := toAdvisoryRun(&r.runs[i])
		if err != nil {
			return nil, err
		}
		run.Data = nil
		out = append(out, *run)
	}
	return out, nil
}
