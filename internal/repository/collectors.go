package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codyseavey/tcg-exchange/internal/models"
)

type CollectorRepository struct {
	db *gorm.DB
}

func (r *CollectorRepository) Create(ctx context.Context, c *models.Collector) error {
	return handleError("create", "collector", r.db.WithContext(ctx).Create(c).Error)
}

func (r *CollectorRepository) ByID(ctx context.Context, id uint) (*models.Collector, error) {
	var c models.Collector
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, handleError("load", "collector", err)
	}
	return &c, nil
}

// ByIdentifier finds a collector by email or username.
func (r *CollectorRepository) ByIdentifier(ctx context.Context, identifier string) (*models.Collector, error) {
	var c models.Collector
	err := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", identifier, identifier).
		First(&c).Error
	if err != nil {
		return nil, handleError("load", "collector", err)
	}
	return &c, nil
}

// Taken reports which of email and username already belong to an account.
func (r *CollectorRepository) Taken(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error) {
	var rows []models.Collector
	err = r.db.WithContext(ctx).
		Select("id", "email", "username").
		Where("email = ? OR username = ?", email, username).
		Find(&rows).Error
	if err != nil {
		return false, false, handleError("check", "collector", err)
	}
	for _, row := range rows {
		if row.Email == email {
			emailTaken = true
		}
		if row.Username == username {
			usernameTaken = true
		}
	}
	return emailTaken, usernameTaken, nil
}

// UpdateFields applies a partial update. Keys are column names.
func (r *CollectorRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Collector{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return handleError("update", "collector", result.Error)
	}
	if result.RowsAffected == 0 {
		return handleError("update", "collector", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *CollectorRepository) SetPrivilege(ctx context.Context, id uint, p models.Privilege) error {
	return r.UpdateFields(ctx, id, map[string]any{"privilege_id": p})
}

func (r *CollectorRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Collector{}).Count(&n).Error
	return n, handleError("count", "collectors", err)
}
