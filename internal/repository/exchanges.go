package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codyseavey/tcg-exchange/internal/models"
)

// ExchangeRepository is append-only.
type ExchangeRepository struct {
	db *gorm.DB
}

func (r *ExchangeRepository) Create(ctx context.Context, e *models.ExchangeHistory) error {
	return handleError("create", "exchange", r.db.WithContext(ctx).Create(e).Error)
}

func (r *ExchangeRepository) ForCollector(ctx context.Context, collectorID uint) ([]models.ExchangeHistory, error) {
	var rows []models.ExchangeHistory
	err := r.db.WithContext(ctx).
		Where("poster_id = ? OR offerer_id = ?", collectorID, collectorID).
		Order("exchanged_at DESC, id DESC").
		Find(&rows).Error
	return rows, handleError("list", "exchanges", err)
}

func (r *ExchangeRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ExchangeHistory{}).Count(&n).Error
	return n, handleError("count", "exchanges", err)
}
