package services

import (
	"context"
	"strings"

	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
)

// CollectorService reads and edits collector profiles
type CollectorService struct {
	store *repository.Store
}

func NewCollectorService(store *repository.Store) *CollectorService {
	return &CollectorService{store: store}
}

func (s *CollectorService) GetProfile(ctx context.Context, id uint) (*models.Collector, error) {
	return s.store.Collectors.ByID(ctx, id)
}

// UpdateProfile applies only the fields present in req.
func (s *CollectorService) UpdateProfile(ctx context.Context, id uint, req models.UpdateProfileRequest) (*models.Collector, error) {
	fields := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	set("first_name", req.FirstName)
	set("last_name", req.LastName)
	set("phone", req.Phone)
	set("address", req.Address)
	set("picture", req.Picture)

	if err := s.store.Collectors.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.store.Collectors.ByID(ctx, id)
}

// PublicProfile is what other collectors see.
func (s *CollectorService) PublicProfile(ctx context.Context, id uint) (*models.PublicProfile, error) {
	c, err := s.store.Collectors.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	open, err := s.store.Posts.CountByPoster(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.PublicProfile{
		CollectorSummary: c.Summary(),
		FirstName:        c.FirstName,
		OpenListings:     open,
	}, nil
}
