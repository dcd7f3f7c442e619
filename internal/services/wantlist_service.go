package services

import (
	"context"
	"time"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
)

type WantlistService struct {
	store *repository.Store
}

func NewWantlistService(store *repository.Store) *WantlistService {
	return &WantlistService{store: store}
}

// Add is idempotent; wanting the same collectible twice keeps one row.
func (s *WantlistService) Add(ctx context.Context, collectorID, collectibleID uint) error {
	exists, err := s.store.Catalog.CollectibleExists(ctx, collectibleID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NotFound("collectible")
	}
	return s.store.Wantlist.Add(ctx, &models.WantlistEntry{
		CollectorID:   collectorID,
		CollectibleID: collectibleID,
		AddedAt:       time.Now().UTC(),
	})
}

func (s *WantlistService) Remove(ctx context.Context, collectorID, collectibleID uint) error {
	removed, err := s.store.Wantlist.Remove(ctx, collectorID, collectibleID)
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.NotFound("wantlist entry")
	}
	return nil
}

func (s *WantlistService) List(ctx context.Context, collectorID uint) ([]models.WantlistEntry, error) {
	return s.store.Wantlist.List(ctx, collectorID)
}
