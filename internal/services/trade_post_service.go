package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/metrics"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
)

// TradePostService lists collection entries for trade
type TradePostService struct {
	store    *repository.Store
	locks    *PostLocks
	activity ActivityLog
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewTradePostService(store *repository.Store, locks *PostLocks, activity ActivityLog, log logrus.FieldLogger) *TradePostService {
	return &TradePostService{
		store:    store,
		locks:    locks,
		activity: activity,
		log:      log.WithField("component", "trade_posts"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreatePost lists one of the collector's entries. An entry is listed at most once.
func (s *TradePostService) CreatePost(ctx context.Context, collectorID uint, req models.CreatePostRequest) (*models.TradePost, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.Input("title is required")
	}

	post := &models.TradePost{
		PosterID:          collectorID,
		CollectionEntryID: req.CollectionEntryID,
		Title:             title,
		Description:       strings.TrimSpace(req.Description),
		CreatedAt:         s.now(),
	}
	for i, url := range req.Images {
		post.Images = append(post.Images, models.TradePostImage{URL: url, Position: i})
	}

	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		entry, err := tx.Collections.ByID(ctx, req.CollectionEntryID)
		if err != nil {
			return err
		}
		if entry.CollectorID != collectorID {
			return apperrors.Input("collection entry %d is not in your collection", entry.ID)
		}
		listed, err := tx.Posts.EntryListed(ctx, entry.ID)
		if err != nil {
			return err
		}
		if listed {
			return apperrors.Input("collection entry %d is already listed for trade", entry.ID)
		}
		return tx.Posts.Create(ctx, post)
	})
	if err != nil {
		return nil, err
	}

	metrics.TradePostsTotal.WithLabelValues("created").Inc()
	s.activity.Record(ctx, models.ActivityEvent{
		Type: EventPostCreated, ActorID: collectorID, TradePostID: post.ID, At: post.CreatedAt,
	})
	return post, nil
}

// FindPostsForCollectible lists every open post for units of the collectible, newest first.
func (s *TradePostService) FindPostsForCollectible(ctx context.Context, collectibleID uint) ([]models.PostListing, error) {
	exists, err := s.store.Catalog.CollectibleExists(ctx, collectibleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFound("collectible")
	}

	posts, err := s.store.Posts.ForCollectible(ctx, collectibleID)
	if err != nil {
		return nil, err
	}
	return toListings(posts), nil
}

func (s *TradePostService) ListPostsByCollector(ctx context.Context, collectorID uint) ([]models.PostListing, error) {
	posts, err := s.store.Posts.ByPoster(ctx, collectorID)
	if err != nil {
		return nil, err
	}
	return toListings(posts), nil
}

func toListings(posts []models.TradePost) []models.PostListing {
	out := make([]models.PostListing, 0, len(posts))
	for _, p := range posts {
		l := models.PostListing{
			ID:        p.ID,
			Title:     p.Title,
			Poster:    p.Poster.Summary(),
			CreatedAt: p.CreatedAt,
		}
		if len(p.Images) > 0 {
			l.CoverImage = p.Images[0].URL
		}
		if p.Entry != nil {
			l.Collectible = p.Entry.Collectible.Summary()
		}
		out = append(out, l)
	}
	return out
}

func (s *TradePostService) GetPostDetail(ctx context.Context, postID uint) (*models.PostDetail, error) {
	post, err := s.store.Posts.Detail(ctx, postID)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.Offers.CountPendingForPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	d := &models.PostDetail{
		ID:                post.ID,
		Title:             post.Title,
		Description:       post.Description,
		Images:            make([]string, 0, len(post.Images)),
		CollectionEntryID: post.CollectionEntryID,
		Poster:            post.Poster.Summary(),
		PendingOffers:     pending,
		CreatedAt:         post.CreatedAt,
	}
	for _, img := range post.Images {
		d.Images = append(d.Images, img.URL)
	}
	if post.Entry != nil && post.Entry.Collectible != nil {
		d.Collectible = post.Entry.Collectible.Summary()
		if post.Entry.Collectible.Campaign != nil {
			d.CampaignName = post.Entry.Collectible.Campaign.Name
		}
	}
	return d, nil
}

// RemovePost withdraws the collector's listing of entryID. Pending offers
// on it are declined and archived in the same transaction that deletes it.
func (s *TradePostService) RemovePost(ctx context.Context, collectorID, entryID uint) ([]uint, error) {
	post, err := s.store.Posts.ByPosterAndEntry(ctx, collectorID, entryID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var declined []uint
	err = s.store.Tx(ctx, func(tx *repository.Store) error {
		locked, err := tx.Posts.Lock(ctx, post.ID)
		if err != nil {
			return err
		}
		if locked.PosterID != collectorID || locked.CollectionEntryID != entryID {
			return apperrors.NotFound("trade post")
		}
		declined, err = removePostTx(ctx, tx, post.ID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.TradePostsTotal.WithLabelValues("removed").Inc()
	metrics.TradeOffersTotal.WithLabelValues("invalidated").Add(float64(len(declined)))
	s.activity.Record(ctx, models.ActivityEvent{
		Type: EventPostRemoved, ActorID: collectorID, TradePostID: post.ID, At: s.now(),
	})
	s.log.WithFields(logrus.Fields{"trade_post_id": post.ID, "declined": len(declined)}).Info("trade post removed")
	return declined, nil
}
