package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/codyseavey/tcg-exchange/internal/auth"
	"github.com/codyseavey/tcg-exchange/internal/config"
	"github.com/codyseavey/tcg-exchange/internal/database"
	"github.com/codyseavey/tcg-exchange/internal/logging"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
)

type recordingActivity struct {
	mu     sync.Mutex
	events []models.ActivityEvent
}

func (r *recordingActivity) Record(_ context.Context, e models.ActivityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingActivity) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *repository.Store
	activity *recordingActivity
	locks    *PostLocks
	trades   *TradeService
	posts    *TradePostService
	campaign *models.Campaign
}

// newFixture opens a private in-memory database for the test.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: database.MemoryDSN(t.Name())}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := repository.New(db)
	activity := &recordingActivity{}
	locks := NewPostLocks()
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    store,
		activity: activity,
		locks:    locks,
		trades:   NewTradeService(store, locks, activity, logging.Discard()),
		posts:    NewTradePostService(store, locks, activity, logging.Discard()),
	}
	f.campaign = &models.Campaign{Name: "Springfield Series", StartDate: time.Now().AddDate(0, -1, 0)}
	require.NoError(t, store.Catalog.CreateCampaign(f.ctx, f.campaign))
	return f
}

func (f *fixture) collector(username string, p models.Privilege) *models.Collector {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password-"+username), bcrypt.MinCost)
	require.NoError(f.t, err)
	c := &models.Collector{
		Email:        username + "@springfield.test",
		Username:     username,
		PasswordHash: string(hash),
		PrivilegeID:  p,
	}
	require.NoError(f.t, f.store.Collectors.Create(f.ctx, c))
	return c
}

func (f *fixture) collectible(name string) *models.Collectible {
	f.t.Helper()
	c := &models.Collectible{CampaignID: f.campaign.ID, Name: name, Image: "https://img.test/" + name + ".png"}
	require.NoError(f.t, f.store.Catalog.CreateCollectible(f.ctx, c))
	return c
}

func (f *fixture) entry(owner *models.Collector, item *models.Collectible) *models.CollectionEntry {
	f.t.Helper()
	e := &models.CollectionEntry{CollectorID: owner.ID, CollectibleID: item.ID, AddedAt: time.Now().UTC()}
	require.NoError(f.t, f.store.Collections.Add(f.ctx, e))
	return e
}

func (f *fixture) post(owner *models.Collector, e *models.CollectionEntry, images ...string) *models.TradePost {
	f.t.Helper()
	p, err := f.posts.CreatePost(f.ctx, owner.ID, models.CreatePostRequest{
		CollectionEntryID: e.ID,
		Title:             "Trading my entry",
		Images:            images,
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) offer(post *models.TradePost, sender *models.Collector, e *models.CollectionEntry) *models.TradeOffer {
	f.t.Helper()
	o, err := f.trades.RegisterOffer(f.ctx, post.ID, sender.ID, models.RegisterOfferRequest{
		CollectionEntryID: e.ID,
		Message:           "how about this?",
	})
	require.NoError(f.t, err)
	return o
}

func (f *fixture) ownerOf(entryID uint) uint {
	f.t.Helper()
	e, err := f.store.Collections.ByID(f.ctx, entryID)
	require.NoError(f.t, err)
	return e.CollectorID
}

func (f *fixture) count(model any, where string, args ...any) int64 {
	f.t.Helper()
	var n int64
	q := f.store.DB().Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(f.t, q.Count(&n).Error)
	return n
}

func newTestAuth(f *fixture) *AuthService {
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	svc := NewAuthService(f.store, tokens, auth.NewMemoryRevocations(128, 7*24*time.Hour), logging.Discard())
	svc.hashCost = bcrypt.MinCost
	return svc
}
