package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-exchange/internal/models"
)

type TradePostRepository struct {
	db *gorm.DB
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

// Create inserts the post together with its image rows.
func (r *TradePostRepository) Create(ctx context.Context, p *models.TradePost) error {
	return handleError("create", "trade post", r.db.WithContext(ctx).Create(p).Error)
}

func (r *TradePostRepository) ByID(ctx context.Context, id uint) (*models.TradePost, error) {
	var p models.TradePost
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, handleError("load", "trade post", err)
	}
	return &p, nil
}

// Lock loads the post with SELECT ... FOR UPDATE. SQLite ignores the
// locking clause; its single connection already serializes writers.
func (r *TradePostRepository) Lock(ctx context.Context, id uint) (*models.TradePost, error) {
	var p models.TradePost
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Entry").
		First(&p, id).Error
	if err != nil {
		return nil, handleError("lock", "trade post", err)
	}
	return &p, nil
}

func (r *TradePostRepository) ByPosterAndEntry(ctx context.Context, posterID, entryID uint) (*models.TradePost, error) {
	var p models.TradePost
	err := r.db.WithContext(ctx).
		Where("poster_id = ? AND collection_entry_id = ?", posterID, entryID).
		First(&p).Error
	if err != nil {
		return nil, handleError("load", "trade post", err)
	}
	return &p, nil
}

// IDsForEntries returns posts listing any of the given entries.
func (r *TradePostRepository) IDsForEntries(ctx context.Context, entryIDs []uint) ([]uint, error) {
	var ids []uint
	if len(entryIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&models.TradePost{}).
		Where("collection_entry_id IN ?", entryIDs).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, handleError("list", "trade posts", err)
}

func (r *TradePostRepository) EntryListed(ctx context.Context, entryID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TradePost{}).Where("collection_entry_id = ?", entryID).Count(&n).Error
	return n > 0, handleError("check", "trade posts", err)
}

// ForCollectible lists every post whose entry is a unit of the collectible,
// newest first.
func (r *TradePostRepository) ForCollectible(ctx context.Context, collectibleID uint) ([]models.TradePost, error) {
	var posts []models.TradePost
	err := r.db.WithContext(ctx).
		Joins("JOIN collections ON collections.id = trade_posts.collection_entry_id").
		Where("collections.collectible_id = ?", collectibleID).
		Preload("Poster").
		Preload("Entry.Collectible").
		Preload("Images", orderedImages).
		Order("trade_posts.created_at DESC, trade_posts.id DESC").
		Find(&posts).Error
	return posts, handleError("list", "trade posts", err)
}

func (r *TradePostRepository) Detail(ctx context.Context, id uint) (*models.TradePost, error) {
	var p models.TradePost
	err := r.db.WithContext(ctx).
		Preload("Poster").
		Preload("Entry.Collectible.Campaign").
		Preload("Images", orderedImages).
		First(&p, id).Error
	if err != nil {
		return nil, handleError("load", "trade post", err)
	}
	return &p, nil
}

func (r *TradePostRepository) ByPoster(ctx context.Context, posterID uint) ([]models.TradePost, error) {
	var posts []models.TradePost
	err := r.db.WithContext(ctx).
		Preload("Poster").
		Preload("Entry.Collectible").
		Preload("Images", orderedImages).
		Where("poster_id = ?", posterID).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	return posts, handleError("list", "trade posts", err)
}

// Delete removes the post and its image rows. Offers must be archived first.
func (r *TradePostRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("trade_post_id = ?", id).Delete(&models.TradePostImage{}).Error; err != nil {
		return handleError("delete", "trade post images", err)
	}
	result := db.Delete(&models.TradePost{}, id)
	if result.Error != nil {
		return handleError("delete", "trade post", result.Error)
	}
	if result.RowsAffected == 0 {
		return handleError("delete", "trade post", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *TradePostRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TradePost{}).Count(&n).Error
	return n, handleError("count", "trade posts", err)
}

func (r *TradePostRepository) CountByPoster(ctx context.Context, posterID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TradePost{}).Where("poster_id = ?", posterID).Count(&n).Error
	return n, handleError("count", "trade posts", err)
}
