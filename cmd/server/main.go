package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/codyseavey/tcg-exchange/internal/api"
	"github.com/codyseavey/tcg-exchange/internal/auth"
	"github.com/codyseavey/tcg-exchange/internal/config"
	"github.com/codyseavey/tcg-exchange/internal/database"
	"github.com/codyseavey/tcg-exchange/internal/logging"
	"github.com/codyseavey/tcg-exchange/internal/repository"
	"github.com/codyseavey/tcg-exchange/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()
	store := repository.New(db)

	// Token revocations live in Redis when configured so every instance
	// sees a logout; otherwise in process memory.
	var revocations auth.Revocations = auth.NewMemoryRevocations(100000, cfg.Auth.RefreshTTL)
	if cfg.Redis.URL != "" {
		redisRevocations, err := auth.NewRedisRevocations(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisRevocations.Close()
		revocations = redisRevocations
		log.Info("using redis for token revocation")
	}

	var activity services.ActivityLog = services.NewLogActivity(log)
	if cfg.Mongo.URI != "" {
		mongoActivity, err := services.NewMongoActivity(ctx, cfg.Mongo.URI, cfg.Mongo.Database, log)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoActivity.Close(closeCtx)
		}()
		activity = mongoActivity
		log.Info("writing trade activity to mongo")
	}

	backend, err := services.NewImageBackend(ctx, cfg.Images, cfg.S3)
	if err != nil {
		return fmt.Errorf("image storage: %w", err)
	}
	localImages, _ := backend.(*services.LocalImageBackend)

	catalog, err := services.NewCatalogService(store, cfg.Catalog.CacheSize)
	if err != nil {
		return err
	}
	snapshots, err := services.NewSnapshotService(store, cfg.Snapshot.Schedule, log)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenManager(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	locks := services.NewPostLocks()
	svc := api.Services{
		Auth:        services.NewAuthService(store, tokens, revocations, log),
		Collectors:  services.NewCollectorService(store),
		Catalog:     catalog,
		Collection:  services.NewCollectionService(store),
		Wantlist:    services.NewWantlistService(store),
		Posts:       services.NewTradePostService(store, locks, activity, log),
		Trades:      services.NewTradeService(store, locks, activity, log),
		Exchanges:   services.NewExchangeService(store),
		Snapshots:   snapshots,
		Images:      services.NewImageStorageService(backend, log),
		LocalImages: localImages,
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(svc, api.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CookieSecure:   cfg.Auth.CookieSecure,
		AuthRPS:        cfg.RateLimit.AuthRPS,
		AuthBurst:      cfg.RateLimit.AuthBurst,
		FrontendDir:    cfg.Server.FrontendDir,
	}, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return snapshots.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
