package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/entity"
	"golang-stock-advisor/pkg/common"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var holdingsValidate = validator.New()

type fileHoldingsRepository struct {
	path string
}

// NewFileHoldingsRepository reads holdings from a JSON file on every call.
func NewFileHoldingsRepository(path string) HoldingsRepository {
	return &fileHoldingsRepository{path: path}
}

func (r *fileHoldingsRepository) GetHoldings(ctx context.Context) (*dto.Holdings, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings file: %w", err)
	}

	var holdings dto.Holdings
	if err := json.Unmarshal(raw, &holdings); err != nil {
		return nil, fmt.Errorf("failed to decode holdings file: %w", err)
	}
	return normalizeHoldings(&holdings)
}

type postgresHoldingsRepository struct {
	db *gorm.DB
}

// NewPostgresHoldingsRepository reads active holdings from the holdings table.
func NewPostgresHoldingsRepository(db *gorm.DB) HoldingsRepository {
	return &postgresHoldingsRepository{db: db}
}

func (r *postgresHoldingsRepository) GetHoldings(ctx context.Context) (*dto.Holdings, error) {
	var rows []entity.Holding
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}

	holdings := &dto.Holdings{Currency: common.CurrencyVND}
	for _, row := range rows {
		holdings.Positions = append(holdings.Positions, dto.Position{
			Ticker:         row.Ticker,
			Exchange:       row.Exchange,
			Shares:         row.Shares,
			AvgPrice:       row.AvgPrice,
			TargetPrice:    row.TargetPrice,
			MaxDrawdownPct: row.MaxDrawdownPct,
			Notes:          row.Notes,
		})
	}
	return normalizeHoldings(holdings)
}

// normalizeHoldings upper-cases symbols, validates every position and
// rejects duplicate ticker+exchange pairs.
func normalizeHoldings(h *dto.Holdings) (*dto.Holdings, error) {
	if h.Currency == "" {
		h.Currency = common.CurrencyVND
	}
	seen := make(map[string]struct{}, len(h.Positions))
	for i := range h.Positions {
		h.Positions[i] = h.Positions[i].Normalize()
		key := h.Positions[i].Key()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate position %s", key)
		}
		seen[key] = struct{}{}
	}

	if err := holdingsValidate.Struct(h); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return nil, fmt.Errorf("invalid holdings: %s", strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("invalid holdings: %w", err)
	}
	return h, nil
}
