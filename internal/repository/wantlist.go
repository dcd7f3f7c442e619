package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-exchange/internal/models"
)

type WantlistRepository struct {
	db *gorm.DB
}

// Add is a no-op when the collectible is already wanted.
func (r *WantlistRepository) Add(ctx context.Context, e *models.WantlistEntry) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collector_id"}, {Name: "collectible_id"}},
			DoNothing: true,
		}).
		Create(e).Error
	return handleError("create", "wantlist entry", err)
}

// Remove reports whether a row was deleted.
func (r *WantlistRepository) Remove(ctx context.Context, collectorID, collectibleID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("collector_id = ? AND collectible_id = ?", collectorID, collectibleID).
		Delete(&models.WantlistEntry{})
	if result.Error != nil {
		return false, handleError("delete", "wantlist entry", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *WantlistRepository) List(ctx context.Context, collectorID uint) ([]models.WantlistEntry, error) {
	var entries []models.WantlistEntry
	err := r.db.WithContext(ctx).
		Preload("Collectible").
		Where("collector_id = ?", collectorID).
		Order("added_at DESC, id DESC").
		Find(&entries).Error
	return entries, handleError("list", "wantlist", err)
}
