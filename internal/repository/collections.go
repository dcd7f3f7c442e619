package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/models"
)

type CollectionRepository struct {
	db *gorm.DB
}

func (r *CollectionRepository) Add(ctx context.Context, e *models.CollectionEntry) error {
	return handleError("create", "collection entry", r.db.WithContext(ctx).Create(e).Error)
}

func (r *CollectionRepository) ByID(ctx context.Context, id uint) (*models.CollectionEntry, error) {
	var e models.CollectionEntry
	if err := r.db.WithContext(ctx).Preload("Collectible").First(&e, id).Error; err != nil {
		return nil, handleError("load", "collection entry", err)
	}
	return &e, nil
}

func (r *CollectionRepository) ListByOwner(ctx context.Context, collectorID uint) ([]models.CollectionEntry, error) {
	var entries []models.CollectionEntry
	err := r.db.WithContext(ctx).
		Preload("Collectible.Campaign").
		Where("collector_id = ?", collectorID).
		Order("added_at DESC, id DESC").
		Find(&entries).Error
	return entries, handleError("list", "collection", err)
}

func (r *CollectionRepository) Has(ctx context.Context, collectorID, collectibleID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CollectionEntry{}).
		Where("collector_id = ? AND collectible_id = ?", collectorID, collectibleID).
		Count(&n).Error
	return n > 0, handleError("check", "collection", err)
}

// Move reassigns an entry to a new owner, but only while from still owns it.
// The entry keeps its id.
func (r *CollectionRepository) Move(ctx context.Context, entryID, from, to uint) error {
	result := r.db.WithContext(ctx).Model(&models.CollectionEntry{}).
		Where("id = ? AND collector_id = ?", entryID, from).
		Update("collector_id", to)
	if result.Error != nil {
		return handleError("move", "collection entry", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.Input("collection entry %d is no longer owned by collector %d", entryID, from)
	}
	return nil
}

func (r *CollectionRepository) Delete(ctx context.Context, id uint) error {
	return handleError("delete", "collection entry", r.db.WithContext(ctx).Delete(&models.CollectionEntry{}, id).Error)
}

// InUse reports whether the entry is listed on a post or offered on one.
func (r *CollectionRepository) InUse(ctx context.Context, entryID uint) (listed, offered bool, err error) {
	db := r.db.WithContext(ctx)
	var posts, offers int64
	if err := db.Model(&models.TradePost{}).Where("collection_entry_id = ?", entryID).Count(&posts).Error; err != nil {
		return false, false, handleError("check", "trade posts", err)
	}
	if err := db.Model(&models.TradeOffer{}).
		Where("sender_entry_id = ? AND status = ?", entryID, models.OfferSent).
		Count(&offers).Error; err != nil {
		return false, false, handleError("check", "trade offers", err)
	}
	return posts > 0, offers > 0, nil
}

func (r *CollectionRepository) Stats(ctx context.Context, collectorID uint) (models.CollectionStats, error) {
	db := r.db.WithContext(ctx)
	var stats models.CollectionStats

	owned := db.Model(&models.CollectionEntry{}).Where("collector_id = ?", collectorID)
	if err := owned.Count(&stats.TotalEntries).Error; err != nil {
		return stats, handleError("count", "collection", err)
	}
	if err := db.Model(&models.CollectionEntry{}).Where("collector_id = ?", collectorID).
		Distinct("collectible_id").Count(&stats.UniqueItems).Error; err != nil {
		return stats, handleError("count", "collection", err)
	}
	if err := db.Model(&models.TradePost{}).Where("poster_id = ?", collectorID).
		Count(&stats.ListedForTrade).Error; err != nil {
		return stats, handleError("count", "trade posts", err)
	}
	if err := db.Model(&models.ExchangeHistory{}).Where("poster_id = ? OR offerer_id = ?", collectorID, collectorID).
		Count(&stats.CompletedTrades).Error; err != nil {
		return stats, handleError("count", "exchanges", err)
	}
	if err := db.Model(&models.WantlistEntry{}).Where("collector_id = ?", collectorID).
		Count(&stats.WantlistedTotals).Error; err != nil {
		return stats, handleError("count", "wantlist", err)
	}
	return stats, nil
}

func (r *CollectionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CollectionEntry{}).Count(&n).Error
	return n, handleError("count", "collection entries", err)
}
