// Package repository holds the gorm queries behind every service. Each
// repository is bound to either the shared pool or one transaction.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
)

type Store struct {
	db *gorm.DB

	Collectors  *CollectorRepository
	Catalog     *CatalogRepository
	Collections *CollectionRepository
	Wantlist    *WantlistRepository
	Posts       *TradePostRepository
	Offers      *TradeOfferRepository
	Exchanges   *ExchangeRepository
	Snapshots   *SnapshotRepository
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Collectors:  &CollectorRepository{db: db},
		Catalog:     &CatalogRepository{db: db},
		Collections: &CollectionRepository{db: db},
		Wantlist:    &WantlistRepository{db: db},
		Posts:       &TradePostRepository{db: db},
		Offers:      &TradeOfferRepository{db: db},
		Exchanges:   &ExchangeRepository{db: db},
		Snapshots:   &SnapshotRepository{db: db},
	}
}

// DB exposes the underlying handle, mainly for tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Tx runs fn inside one database transaction. Every repository on the
// Store passed to fn shares that transaction; any error rolls back all of it.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// handleError maps gorm errors onto the application error kinds.
func handleError(op, entity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Input("%s already exists", entity)
	default:
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.Internal(fmt.Errorf("%s %s: %w", op, entity, err), "%s %s", op, entity)
	}
}
