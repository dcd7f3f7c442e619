package services

import (
	"context"
	"time"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
)

// CollectionService manages the collection entries a collector owns
type CollectionService struct {
	store *repository.Store
}

func NewCollectionService(store *repository.Store) *CollectionService {
	return &CollectionService{store: store}
}

// Add records one more unit of the collectible. Units are never merged.
func (s *CollectionService) Add(ctx context.Context, collectorID, collectibleID uint) (*models.CollectionEntry, error) {
	exists, err := s.store.Catalog.CollectibleExists(ctx, collectibleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFound("collectible")
	}

	entry := &models.CollectionEntry{
		CollectorID:   collectorID,
		CollectibleID: collectibleID,
		AddedAt:       time.Now().UTC(),
	}
	if err := s.store.Collections.Add(ctx, entry); err != nil {
		return nil, err
	}
	return s.store.Collections.ByID(ctx, entry.ID)
}

// Remove deletes an entry the caller owns, unless it is tied up in trading.
func (s *CollectionService) Remove(ctx context.Context, collectorID, entryID uint) error {
	return s.store.Tx(ctx, func(tx *repository.Store) error {
		entry, err := tx.Collections.ByID(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.CollectorID != collectorID {
			return apperrors.Access("collection entry belongs to another collector")
		}

		listed, offered, err := tx.Collections.InUse(ctx, entryID)
		if err != nil {
			return err
		}
		if listed {
			return apperrors.Input("remove the trade post for this entry first")
		}
		if offered {
			return apperrors.Input("this entry is offered in a pending trade")
		}
		return tx.Collections.Delete(ctx, entryID)
	})
}

func (s *CollectionService) ListByOwner(ctx context.Context, collectorID uint) ([]models.CollectionEntry, error) {
	return s.store.Collections.ListByOwner(ctx, collectorID)
}

func (s *CollectionService) Has(ctx context.Context, collectorID, collectibleID uint) (bool, error) {
	return s.store.Collections.Has(ctx, collectorID, collectibleID)
}

func (s *CollectionService) Stats(ctx context.Context, collectorID uint) (models.CollectionStats, error) {
	return s.store.Collections.Stats(ctx, collectorID)
}
