package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/metrics"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
)

// SnapshotService records daily marketplace counts
type SnapshotService struct {
	store    *repository.Store
	log      logrus.FieldLogger
	schedule cron.Schedule
	expr     string
	mu       sync.Mutex
	now      func() time.Time
}

// NewSnapshotService parses a standard five-field cron expression.
func NewSnapshotService(store *repository.Store, expr string, log logrus.FieldLogger) (*SnapshotService, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot schedule %q: %w", expr, err)
	}
	return &SnapshotService{
		store:    store,
		log:      log.WithField("component", "snapshots"),
		schedule: schedule,
		expr:     expr,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start runs the schedule until ctx is cancelled. If today's scheduled time
// has already passed without a snapshot, one is taken immediately.
func (s *SnapshotService) Start(ctx context.Context) error {
	s.log.WithField("schedule", s.expr).Info("snapshot service started")

	if s.missedToday(ctx) {
		if err := s.TakeSnapshot(ctx); err != nil {
			s.log.WithError(err).Warn("failed to take catch-up snapshot")
		}
	}

	c := cron.New(cron.WithLocation(time.UTC))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if err := s.TakeSnapshot(ctx); err != nil {
			s.log.WithError(err).Warn("failed to take snapshot")
		}
	}))
	c.Start()

	<-ctx.Done()
	s.log.Info("snapshot service stopping")
	<-c.Stop().Done()
	return nil
}

func (s *SnapshotService) missedToday(ctx context.Context) bool {
	now := s.now()
	today := startOfDay(now)
	if !s.schedule.Next(today.Add(-time.Second)).Before(now) {
		return false
	}
	latest, err := s.store.Snapshots.Latest(ctx)
	if err != nil {
		return apperrors.Is(err, apperrors.KindInput)
	}
	return latest.SnapshotDate.Before(today)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TakeSnapshot upserts today's counts and refreshes the market gauges.
func (s *SnapshotService) TakeSnapshot(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.collect(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Snapshots.Upsert(ctx, snapshot); err != nil {
		return err
	}

	metrics.MarketCollectors.Set(float64(snapshot.Collectors))
	metrics.MarketCollectionEntries.Set(float64(snapshot.CollectionEntries))
	metrics.MarketActivePosts.Set(float64(snapshot.ActivePosts))
	metrics.MarketPendingOffers.Set(float64(snapshot.PendingOffers))
	metrics.MarketCompletedExchanges.Set(float64(snapshot.CompletedExchanges))

	s.log.WithFields(logrus.Fields{
		"date":      snapshot.SnapshotDate.Format("2006-01-02"),
		"posts":     snapshot.ActivePosts,
		"offers":    snapshot.PendingOffers,
		"exchanges": snapshot.CompletedExchanges,
	}).Info("recorded market snapshot")
	return nil
}

func (s *SnapshotService) collect(ctx context.Context) (*models.MarketSnapshot, error) {
	snap := &models.MarketSnapshot{SnapshotDate: startOfDay(s.now())}
	var err error
	if snap.Collectors, err = s.store.Collectors.Count(ctx); err != nil {
		return nil, err
	}
	if snap.CollectionEntries, err = s.store.Collections.Count(ctx); err != nil {
		return nil, err
	}
	if snap.ActivePosts, err = s.store.Posts.Count(ctx); err != nil {
		return nil, err
	}
	if snap.PendingOffers, err = s.store.Offers.CountPending(ctx); err != nil {
		return nil, err
	}
	if snap.CompletedExchanges, err = s.store.Exchanges.Count(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

// GetHistory retrieves snapshots for a period: week, month, 3month, year or all.
func (s *SnapshotService) GetHistory(ctx context.Context, period string) (*models.SnapshotHistoryResponse, error) {
	now := s.now()
	var start time.Time

	switch period {
	case "week":
		start = now.AddDate(0, 0, -7)
	case "month":
		start = now.AddDate(0, -1, 0)
	case "3month":
		start = now.AddDate(0, -3, 0)
	case "year":
		start = now.AddDate(-1, 0, 0)
	case "all":
	case "":
		period = "month"
		start = now.AddDate(0, -1, 0)
	default:
		return nil, apperrors.Input("unknown period %q", period)
	}

	snapshots, err := s.store.Snapshots.Since(ctx, start)
	if err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = []models.MarketSnapshot{}
	}
	return &models.SnapshotHistoryResponse{Snapshots: snapshots, Period: period}, nil
}
