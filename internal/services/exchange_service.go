package services

import (
	"context"

	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
)

// ExchangeService reads the exchange ledger. Rows are written only by
// TradeService.AcceptOffer.
type ExchangeService struct {
	store *repository.Store
}

func NewExchangeService(store *repository.Store) *ExchangeService {
	return &ExchangeService{store: store}
}

func (s *ExchangeService) ListExchanges(ctx context.Context, collectorID uint) ([]models.ExchangeHistory, error) {
	return s.store.Exchanges.ForCollector(ctx, collectorID)
}
