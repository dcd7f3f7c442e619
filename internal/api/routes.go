package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/api/handlers"
	"github.com/codyseavey/tcg-exchange/internal/api/middleware"
	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/logging"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/services"
)

// Services are the dependencies the router hands to its handlers.
type Services struct {
	Auth       *services.AuthService
	Collectors *services.CollectorService
	Catalog    *services.CatalogService
	Collection *services.CollectionService
	Wantlist   *services.WantlistService
	Posts      *services.TradePostService
	Trades     *services.TradeService
	Exchanges  *services.ExchangeService
	Snapshots  *services.SnapshotService
	Images     *services.ImageStorageService

	// LocalImages is set when uploads are kept on disk and served by this process.
	LocalImages *services.LocalImageBackend
}

// defaultOrigins are the local frontend dev servers, used when no origins are configured.
var defaultOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

type Options struct {
	AllowedOrigins []string
	CookieSecure   bool
	AuthRPS        float64
	AuthBurst      int
	FrontendDir    string
}

func SetupRouter(svc Services, opts Options, log logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(log), middleware.Metrics())

	config := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		config.AllowOrigins = opts.AllowedOrigins
	} else {
		config.AllowOrigins = defaultOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = true // auth cookies
	router.Use(cors.New(config))

	authHandler := handlers.NewAuthHandler(svc.Auth, opts.CookieSecure, log)
	collectorHandler := handlers.NewCollectorHandler(svc.Collectors, log)
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog, svc.Posts, log)
	collectionHandler := handlers.NewCollectionHandler(svc.Collection, svc.Wantlist, log)
	tradeHandler := handlers.NewTradeHandler(svc.Posts, svc.Trades, svc.Exchanges, log)
	marketHandler := handlers.NewMarketHandler(svc.Snapshots, svc.Images, log)

	if svc.LocalImages != nil {
		router.Static(svc.LocalImages.BaseURL(), svc.LocalImages.Dir())
	}

	limiter := middleware.NewIPRateLimiter(opts.AuthRPS, opts.AuthBurst, log)
	router.POST("/login", limiter.Handler(), authHandler.Login)
	router.POST("/register", limiter.Handler(), authHandler.Register)
	router.POST("/refresh", limiter.Handler(), authHandler.Refresh)

	requireAuth := middleware.RequireAuth(svc.Auth)
	authed := router.Group("/", requireAuth)
	{
		authed.POST("/logout", authHandler.Logout)

		authed.GET("/collector/profile", collectorHandler.GetProfile)
		authed.PUT("/collector/profile", collectorHandler.UpdateProfile)
		authed.GET("/collectors/:id", collectorHandler.GetPublicProfile)

		authed.POST("/admin/managers/invite", middleware.RequirePrivilege(models.PrivilegeAdmin), authHandler.InviteManager)

		// Catalog routes
		manager := middleware.RequirePrivilege(models.PrivilegeManager)
		authed.GET("/campaigns", catalogHandler.ListCampaigns)
		authed.GET("/campaigns/:id", catalogHandler.GetCampaign)
		authed.POST("/campaigns", manager, catalogHandler.CreateCampaign)
		authed.GET("/collectibles/search", catalogHandler.SearchCollectibles)
		authed.GET("/collectibles/:id", catalogHandler.GetCollectible)
		authed.GET("/collectibles/:id/posts", catalogHandler.PostsForCollectible)
		authed.POST("/collectibles", manager, catalogHandler.CreateCollectible)

		// Collection routes
		collection := authed.Group("/collection")
		{
			collection.POST("/add", collectionHandler.AddToCollection)
			collection.GET("/get", collectionHandler.GetCollection)
			collection.GET("/stats", collectionHandler.GetStats)
			collection.GET("/has/:collectible_id", collectionHandler.HasCollectible)
			collection.DELETE("/:id", collectionHandler.DeleteCollectionEntry)
		}

		wantlist := authed.Group("/wantlist")
		{
			wantlist.POST("/add", collectionHandler.AddToWantlist)
			wantlist.GET("/get", collectionHandler.GetWantlist)
			wantlist.DELETE("/:collectible_id", collectionHandler.RemoveFromWantlist)
		}

		// Trade routes
		trade := authed.Group("/trade")
		{
			trade.POST("/posts", tradeHandler.CreatePost)
			trade.GET("/posts/mine", tradeHandler.MyPosts)
			trade.POST("/posts/remove", tradeHandler.RemovePost)
			trade.GET("/posts/:id", tradeHandler.GetPost)
			trade.POST("/posts/:id/offers", tradeHandler.RegisterOffer)
			trade.GET("/posts/:id/offers", tradeHandler.ListOffersForPost)
			trade.GET("/offers/outgoing", tradeHandler.OutgoingOffers)
			trade.GET("/offers/past", tradeHandler.PastOffers)
			trade.POST("/offers/:id/accept", tradeHandler.AcceptOffer)
			trade.POST("/offers/:id/decline", tradeHandler.DeclineOffer)
		}
		authed.GET("/exchanges", tradeHandler.ListExchanges)

		authed.POST("/images", marketHandler.UploadImage)
		authed.GET("/market/snapshots", marketHandler.GetSnapshots)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apperrors.Envelope{
			Code:    http.StatusNotFound,
			Name:    apperrors.KindInput.Name(),
			Message: "route not found",
		})
	}

	// Serve the frontend build when configured. Browser navigations that match
	// no route get index.html for client-side routing.
	if opts.FrontendDir != "" && dirExists(opts.FrontendDir) {
		indexPath := filepath.Join(opts.FrontendDir, "index.html")
		router.Static("/assets", filepath.Join(opts.FrontendDir, "assets"))
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})
		router.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet || !strings.Contains(c.GetHeader("Accept"), "text/html") {
				notFound(c)
				return
			}
			c.File(indexPath)
		})
	} else {
		router.NoRoute(notFound)
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
