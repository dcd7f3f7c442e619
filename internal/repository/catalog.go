package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codyseavey/tcg-exchange/internal/models"
)

type CatalogRepository struct {
	db *gorm.DB
}

func (r *CatalogRepository) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	return handleError("create", "campaign", r.db.WithContext(ctx).Create(c).Error)
}

func (r *CatalogRepository) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.db.WithContext(ctx).Order("start_date DESC, id DESC").Find(&campaigns).Error
	return campaigns, handleError("list", "campaigns", err)
}

// CampaignByID loads the campaign with its collectibles sorted by name.
func (r *CatalogRepository) CampaignByID(ctx context.Context, id uint) (*models.Campaign, error) {
	var c models.Campaign
	err := r.db.WithContext(ctx).
		Preload("Collectibles", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		First(&c, id).Error
	if err != nil {
		return nil, handleError("load", "campaign", err)
	}
	return &c, nil
}

func (r *CatalogRepository) CreateCollectible(ctx context.Context, c *models.Collectible) error {
	return handleError("create", "collectible", r.db.WithContext(ctx).Create(c).Error)
}

func (r *CatalogRepository) CollectibleByID(ctx context.Context, id uint) (*models.Collectible, error) {
	var c models.Collectible
	if err := r.db.WithContext(ctx).Preload("Campaign").First(&c, id).Error; err != nil {
		return nil, handleError("load", "collectible", err)
	}
	return &c, nil
}

// CollectibleExists is a cheap check used before inserting references.
func (r *CatalogRepository) CollectibleExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Collectible{}).Where("id = ?", id).Count(&n).Error
	return n > 0, handleError("check", "collectible", err)
}

// AllCollectibles returns the whole catalog ordered by name.
func (r *CatalogRepository) AllCollectibles(ctx context.Context) ([]models.Collectible, error) {
	var out []models.Collectible
	err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&out).Error
	return out, handleError("list", "collectibles", err)
}
