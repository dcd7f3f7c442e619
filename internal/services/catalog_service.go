package services

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sahilm/fuzzy"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/metrics"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// collectibleSource implements fuzzy.Source over collectible names
type collectibleSource []models.Collectible

func (s collectibleSource) String(i int) string { return strings.ToLower(s[i].Name) }
func (s collectibleSource) Len() int            { return len(s) }

// CatalogService manages campaigns and collectibles. Single collectibles are
// served from a bounded LRU cache; the catalog is append-only so entries
// never go stale.
type CatalogService struct {
	store *repository.Store
	cache *lru.Cache[uint, models.Collectible]
}

func NewCatalogService(store *repository.Store, cacheSize int) (*CatalogService, error) {
	cache, err := lru.New[uint, models.Collectible](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create catalog cache: %w", err)
	}
	return &CatalogService{store: store, cache: cache}, nil
}

func (s *CatalogService) CreateCampaign(ctx context.Context, req models.CreateCampaignRequest) (*models.Campaign, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Input("campaign name is required")
	}
	if !req.StartDate.IsZero() && !req.EndDate.IsZero() && req.EndDate.Before(req.StartDate) {
		return nil, apperrors.Input("campaign end date is before its start date")
	}

	c := &models.Campaign{
		Name:        name,
		Description: req.Description,
		Image:       req.Image,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if err := s.store.Catalog.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	return s.store.Catalog.ListCampaigns(ctx)
}

func (s *CatalogService) GetCampaign(ctx context.Context, id uint) (*models.Campaign, error) {
	return s.store.Catalog.CampaignByID(ctx, id)
}

func (s *CatalogService) CreateCollectible(ctx context.Context, req models.CreateCollectibleRequest) (*models.Collectible, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Input("collectible name is required")
	}
	if _, err := s.store.Catalog.CampaignByID(ctx, req.CampaignID); err != nil {
		return nil, err
	}

	c := &models.Collectible{
		CampaignID:  req.CampaignID,
		Name:        name,
		Description: req.Description,
		Image:       req.Image,
	}
	if err := s.store.Catalog.CreateCollectible(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) GetCollectible(ctx context.Context, id uint) (*models.Collectible, error) {
	if c, ok := s.cache.Get(id); ok {
		metrics.CatalogCacheHits.Inc()
		return &c, nil
	}
	metrics.CatalogCacheMisses.Inc()

	c, err := s.store.Catalog.CollectibleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, *c)
	return c, nil
}

// Search ranks collectibles by fuzzy match on name, best first. An empty
// query lists the catalog alphabetically.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) (*models.CollectibleSearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	all, err := s.store.Catalog.AllCollectibles(ctx)
	if err != nil {
		return nil, err
	}

	var ranked []models.Collectible
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		ranked = all
	} else {
		matches := fuzzy.FindFrom(query, collectibleSource(all))
		ranked = make([]models.Collectible, len(matches))
		for i, m := range matches {
			ranked[i] = all[m.Index]
		}
	}

	result := &models.CollectibleSearchResult{
		Collectibles: ranked,
		TotalCount:   len(ranked),
	}
	if len(ranked) > limit {
		result.Collectibles = ranked[:limit]
		result.HasMore = true
	}
	if result.Collectibles == nil {
		result.Collectibles = []models.Collectible{}
	}
	return result, nil
}
