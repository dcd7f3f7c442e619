package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/tcg-exchange/internal/models"
)

type SnapshotRepository struct {
	db *gorm.DB
}

// Upsert writes the snapshot for s.SnapshotDate, replacing that day's counts
// if a row already exists.
func (r *SnapshotRepository) Upsert(ctx context.Context, s *models.MarketSnapshot) error {
	err := r.db.WithContext(ctx).
		Where(models.MarketSnapshot{SnapshotDate: s.SnapshotDate}).
		Assign(models.MarketSnapshot{
			Collectors:         s.Collectors,
			CollectionEntries:  s.CollectionEntries,
			ActivePosts:        s.ActivePosts,
			PendingOffers:      s.PendingOffers,
			CompletedExchanges: s.CompletedExchanges,
		}).
		FirstOrCreate(s).Error
	return handleError("save", "market snapshot", err)
}

// Since lists snapshots on or after start, oldest first. A zero start lists all.
func (r *SnapshotRepository) Since(ctx context.Context, start time.Time) ([]models.MarketSnapshot, error) {
	var out []models.MarketSnapshot
	query := r.db.WithContext(ctx).Order("snapshot_date ASC")
	if !start.IsZero() {
		query = query.Where("snapshot_date >= ?", start)
	}
	if err := query.Find(&out).Error; err != nil {
		return nil, handleError("list", "market snapshots", err)
	}
	return out, nil
}

func (r *SnapshotRepository) Latest(ctx context.Context) (*models.MarketSnapshot, error) {
	var s models.MarketSnapshot
	if err := r.db.WithContext(ctx).Order("snapshot_date DESC").First(&s).Error; err != nil {
		return nil, handleError("load", "market snapshot", err)
	}
	return &s, nil
}
