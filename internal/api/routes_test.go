package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-exchange/internal/api/middleware"
	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/auth"
	"github.com/codyseavey/tcg-exchange/internal/config"
	"github.com/codyseavey/tcg-exchange/internal/database"
	"github.com/codyseavey/tcg-exchange/internal/logging"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
	"github.com/codyseavey/tcg-exchange/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *repository.Store
}

func setupRouterWithDB(t *testing.T, opts Options) *testServer {
	t.Helper()
	log := logging.Discard()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: database.MemoryDSN(t.Name())}, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := repository.New(db)
	tokens := auth.NewTokenManager("test-access", "test-refresh", 15*time.Minute, time.Hour)
	revocations := auth.NewMemoryRevocations(128, time.Hour)
	catalog, err := services.NewCatalogService(store, 64)
	require.NoError(t, err)
	snapshots, err := services.NewSnapshotService(store, "0 23 * * *", log)
	require.NoError(t, err)
	backend, err := services.NewLocalImageBackend(filepath.Join(t.TempDir(), "uploads"), "/images/uploads")
	require.NoError(t, err)

	locks := services.NewPostLocks()
	activity := services.NewLogActivity(log)
	svc := Services{
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
		LocalImages: backend,
	}
	if opts.AuthRPS == 0 {
		opts.AuthRPS, opts.AuthBurst = 1000, 1000
	}
	return &testServer{t: t, router: SetupRouter(svc, opts, log), store: store}
}

func (s *testServer) do(method, path, token string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func requireEnvelope(t *testing.T, w *httptest.ResponseRecorder, status int, name string) apperrors.Envelope {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	env := decode[apperrors.Envelope](t, w)
	require.Equal(t, status, env.Code)
	require.Equal(t, name, env.Name)
	return env
}

// register signs up a collector and returns their access token.
func (s *testServer) register(username string) (string, uint) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/register", "", models.RegisterRequest{
		Email: username + "@springfield.test", Username: username, Password: "password-" + username,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[models.AuthResponse](s.t, w)
	access := cookie(w, middleware.AccessCookie)
	require.NotNil(s.t, access)
	require.True(s.t, access.HttpOnly)
	return access.Value, resp.UserID
}

func (s *testServer) seedCollectible(name string) *models.Collectible {
	s.t.Helper()
	ctx := s.t.Context()
	var campaign models.Campaign
	if err := s.store.DB().First(&campaign).Error; err != nil {
		campaign = models.Campaign{Name: "Springfield Series", StartDate: time.Now().UTC()}
		require.NoError(s.t, s.store.Catalog.CreateCampaign(ctx, &campaign))
	}
	c := &models.Collectible{CampaignID: campaign.ID, Name: name}
	require.NoError(s.t, s.store.Catalog.CreateCollectible(ctx, c))
	return c
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := setupRouterWithDB(t, Options{})

	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/nowhere", "", nil)
	requireEnvelope(t, w, http.StatusNotFound, "InputError")

	w = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "tcg_http_requests_total")
}

func TestCORSOrigins(t *testing.T) {
	preflight := func(s *testServer, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/login", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	t.Run("defaults to local dev servers", func(t *testing.T) {
		s := setupRouterWithDB(t, Options{})
		w := preflight(s, "http://localhost:5173")
		require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

		w = preflight(s, "https://evil.example")
		require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("configured origins replace defaults", func(t *testing.T) {
		s := setupRouterWithDB(t, Options{AllowedOrigins: []string{"https://market.example"}})
		w := preflight(s, "https://market.example")
		require.Equal(t, "https://market.example", w.Header().Get("Access-Control-Allow-Origin"))

		w = preflight(s, "http://localhost:5173")
		require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := setupRouterWithDB(t, Options{})
	for _, path := range []string{"/collection/get", "/trade/offers/outgoing", "/collector/profile", "/exchanges"} {
		w := s.do(http.MethodGet, path, "", nil)
		requireEnvelope(t, w, http.StatusUnauthorized, "AuthError")
	}
}

func TestAuthFlow(t *testing.T) {
	s := setupRouterWithDB(t, Options{})
	access, id := s.register("marge")

	w := s.do(http.MethodPost, "/register", "", models.RegisterRequest{
		Email: "marge@springfield.test", Username: "marge2", Password: "password-marge",
	})
	env := requireEnvelope(t, w, http.StatusBadRequest, "InputError")
	require.Equal(t, "email is already registered", env.Message)

	w = s.do(http.MethodPost, "/login", "", map[string]string{"username": "marge", "password": "nope-nope"})
	env = requireEnvelope(t, w, http.StatusBadRequest, "InputError")
	require.Equal(t, "invalid credentials", env.Message)

	w = s.do(http.MethodPost, "/login", "", map[string]string{"email": "marge@springfield.test", "password": "password-marge"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.AuthResponse{UserID: id, Privilege: "COLLECTOR"}, decode[models.AuthResponse](t, w))
	refresh := cookie(w, middleware.RefreshCookie)
	require.NotNil(t, refresh)

	w = s.do(http.MethodGet, "/collector/profile", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "marge", decode[models.Collector](t, w).Username)

	w = s.do(http.MethodPost, "/refresh", "", nil, refresh)
	require.Equal(t, http.StatusOK, w.Code)
	fresh := cookie(w, middleware.AccessCookie)
	require.NotNil(t, fresh)

	// Cookie auth works the same as a bearer header.
	w = s.do(http.MethodGet, "/collector/profile", "", nil, fresh)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/logout", fresh.Value, nil, refresh)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/collector/profile", fresh.Value, nil)
	requireEnvelope(t, w, http.StatusUnauthorized, "AuthError")
	w = s.do(http.MethodPost, "/refresh", "", nil, refresh)
	requireEnvelope(t, w, http.StatusUnauthorized, "AuthError")
}

func TestLoginIsRateLimited(t *testing.T) {
	s := setupRouterWithDB(t, Options{AuthRPS: 0.001, AuthBurst: 2})
	body := map[string]string{"username": "nobody", "password": "whatever1"}

	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/login", "", body).Code)
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/login", "", body).Code)
	w := s.do(http.MethodPost, "/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestCatalogWritesRequireManager(t *testing.T) {
	s := setupRouterWithDB(t, Options{})
	token, _ := s.register("homer")

	w := s.do(http.MethodPost, "/campaigns", token, models.CreateCampaignRequest{Name: "Itchy & Scratchy"})
	requireEnvelope(t, w, http.StatusForbidden, "AccessError")

	// Promote directly, then log in again for a token carrying the new privilege.
	var homer models.Collector
	require.NoError(t, s.store.DB().Where("username = ?", "homer").First(&homer).Error)
	require.NoError(t, s.store.Collectors.SetPrivilege(t.Context(), homer.ID, models.PrivilegeManager))
	w = s.do(http.MethodPost, "/login", "", map[string]string{"username": "homer", "password": "password-homer"})
	require.Equal(t, http.StatusOK, w.Code)
	token = cookie(w, middleware.AccessCookie).Value

	w = s.do(http.MethodPost, "/campaigns", token, models.CreateCampaignRequest{Name: "Itchy & Scratchy"})
	require.Equal(t, http.StatusCreated, w.Code)
	campaign := decode[models.Campaign](t, w)

	w = s.do(http.MethodPost, "/collectibles", token, models.CreateCollectibleRequest{CampaignID: campaign.ID, Name: "Scratchy Plush"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/collectibles/search?q=scratch", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[models.CollectibleSearchResult](t, w)
	require.Equal(t, 1, result.TotalCount)
	require.Equal(t, "Scratchy Plush", result.Collectibles[0].Name)

	w = s.do(http.MethodGet, "/campaigns/abc", token, nil)
	requireEnvelope(t, w, http.StatusBadRequest, "InputError")
}

func TestTradeLifecycleOverHTTP(t *testing.T) {
	s := setupRouterWithDB(t, Options{})
	homer, homerID := s.register("homer")
	bart, bartID := s.register("bart")
	donut := s.seedCollectible("Golden Donut")
	board := s.seedCollectible("Skateboard")

	w := s.do(http.MethodPost, "/collection/add", homer, models.AddToCollectionRequest{CollectibleID: donut.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	homerEntry := decode[models.CollectionEntry](t, w)

	w = s.do(http.MethodPost, "/collection/add", bart, models.AddToCollectionRequest{CollectibleID: board.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	bartEntry := decode[models.CollectionEntry](t, w)

	w = s.do(http.MethodPost, "/trade/posts", homer, models.CreatePostRequest{
		CollectionEntryID: homerEntry.ID, Title: "Golden Donut, barely nibbled",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[models.TradePost](t, w)

	w = s.do(http.MethodGet, fmt.Sprintf("/collectibles/%d/posts", donut.ID), bart, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]models.PostListing](t, w), 1)

	offersPath := fmt.Sprintf("/trade/posts/%d/offers", post.ID)
	w = s.do(http.MethodPost, offersPath, bart, models.RegisterOfferRequest{CollectionEntryID: bartEntry.ID, Message: "Eat my shorts"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	offer := decode[models.TradeOffer](t, w)
	require.Equal(t, models.OfferSent, offer.Status)

	w = s.do(http.MethodGet, offersPath, bart, nil)
	requireEnvelope(t, w, http.StatusForbidden, "AccessError")

	w = s.do(http.MethodGet, offersPath, homer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]models.PostOffer](t, w), 1)

	acceptPath := fmt.Sprintf("/trade/offers/%d/accept", offer.ID)
	w = s.do(http.MethodPost, acceptPath, bart, nil)
	requireEnvelope(t, w, http.StatusForbidden, "AccessError")

	w = s.do(http.MethodPost, acceptPath, homer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	receipt := decode[models.TradeReceipt](t, w)
	require.Equal(t, homerID, receipt.PosterID)
	require.Equal(t, bartID, receipt.OffererID)
	require.Len(t, receipt.Transfers, 2)

	w = s.do(http.MethodPost, acceptPath, homer, nil)
	env := requireEnvelope(t, w, http.StatusBadRequest, "InputError")
	require.Equal(t, "offer is no longer pending", env.Message)

	// Bart now owns the donut entry, Homer the skateboard entry.
	w = s.do(http.MethodGet, "/collection/get", bart, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]models.CollectionEntry](t, w)
	require.Len(t, entries, 1)
	require.Equal(t, homerEntry.ID, entries[0].ID)
	require.Equal(t, "Golden Donut", entries[0].Collectible.Name)

	w = s.do(http.MethodGet, fmt.Sprintf("/collection/has/%d", board.ID), homer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, map[string]bool{"has": true}, decode[map[string]bool](t, w))

	w = s.do(http.MethodGet, fmt.Sprintf("/trade/posts/%d", post.ID), homer, nil)
	requireEnvelope(t, w, http.StatusBadRequest, "InputError")

	w = s.do(http.MethodGet, "/trade/offers/outgoing", bart, nil)
	require.Equal(t, http.StatusOK, w.Code)
	outgoing := decode[[]models.OfferSummary](t, w)
	require.Len(t, outgoing, 1)
	require.Equal(t, models.OfferAccepted, outgoing[0].Status)
	require.True(t, outgoing[0].Archived)

	w = s.do(http.MethodGet, "/exchanges", homer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]models.ExchangeHistory](t, w), 1)

	w = s.do(http.MethodGet, "/collection/stats", homer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(1), decode[models.CollectionStats](t, w).CompletedTrades)
}

func TestDeclineAndRemoveOverHTTP(t *testing.T) {
	s := setupRouterWithDB(t, Options{})
	homer, _ := s.register("homer")
	bart, _ := s.register("bart")
	lisa, _ := s.register("lisa")
	donut := s.seedCollectible("Golden Donut")

	add := func(token string) models.CollectionEntry {
		w := s.do(http.MethodPost, "/collection/add", token, models.AddToCollectionRequest{CollectibleID: donut.ID})
		require.Equal(t, http.StatusCreated, w.Code)
		return decode[models.CollectionEntry](t, w)
	}
	homerEntry, bartEntry, lisaEntry := add(homer), add(bart), add(lisa)

	w := s.do(http.MethodPost, "/trade/posts", homer, models.CreatePostRequest{CollectionEntryID: homerEntry.ID, Title: "Donut"})
	require.Equal(t, http.StatusCreated, w.Code)
	post := decode[models.TradePost](t, w)
	offersPath := fmt.Sprintf("/trade/posts/%d/offers", post.ID)

	w = s.do(http.MethodPost, offersPath, bart, models.RegisterOfferRequest{CollectionEntryID: bartEntry.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	bartOffer := decode[models.TradeOffer](t, w)
	w = s.do(http.MethodPost, offersPath, lisa, models.RegisterOfferRequest{CollectionEntryID: lisaEntry.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	lisaOffer := decode[models.TradeOffer](t, w)

	// Lisa cannot decline Bart's offer.
	w = s.do(http.MethodPost, fmt.Sprintf("/trade/offers/%d/decline", bartOffer.ID), lisa, nil)
	requireEnvelope(t, w, http.StatusForbidden, "AccessError")

	w = s.do(http.MethodPost, fmt.Sprintf("/trade/offers/%d/decline", bartOffer.ID), homer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.OfferDeclined, decode[models.PastTradeOffer](t, w).Status)

	w = s.do(http.MethodDelete, fmt.Sprintf("/collection/%d", homerEntry.ID), homer, nil)
	requireEnvelope(t, w, http.StatusBadRequest, "InputError")

	w = s.do(http.MethodPost, "/trade/posts/remove", homer, models.RemovePostRequest{CollectionEntryID: homerEntry.ID})
	require.Equal(t, http.StatusOK, w.Code)
	removed := decode[map[string][]uint](t, w)
	require.Equal(t, []uint{lisaOffer.ID}, removed["declined_offer_ids"])

	w = s.do(http.MethodGet, "/trade/offers/past", lisa, nil)
	require.Equal(t, http.StatusOK, w.Code)
	past := decode[[]models.OfferSummary](t, w)
	require.Len(t, past, 1)
	require.Equal(t, models.OfferDeclined, past[0].Status)

	w = s.do(http.MethodDelete, fmt.Sprintf("/collection/%d", homerEntry.ID), homer, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestWantlistOverHTTP(t *testing.T) {
	s := setupRouterWithDB(t, Options{})
	lisa, _ := s.register("lisa")
	sax := s.seedCollectible("Saxophone")

	w := s.do(http.MethodPost, "/wantlist/add", lisa, models.AddToWantlistRequest{CollectibleID: sax.ID})
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/wantlist/get", lisa, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]models.WantlistEntry](t, w), 1)

	w = s.do(http.MethodDelete, fmt.Sprintf("/wantlist/%d", sax.ID), lisa, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodDelete, fmt.Sprintf("/wantlist/%d", sax.ID), lisa, nil)
	requireEnvelope(t, w, http.StatusBadRequest, "InputError")
}

func TestImageUploadAndServe(t *testing.T) {
	s := setupRouterWithDB(t, Options{})
	token, _ := s.register("lisa")

	upload := func(data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/images", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	w := upload(png)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	url := decode[map[string]string](t, w)["url"]
	require.Regexp(t, `^/images/uploads/[0-9a-f-]+\.png$`, url)

	w = s.do(http.MethodGet, url, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, png, w.Body.Bytes())

	w = upload([]byte("plain text is not an image"))
	requireEnvelope(t, w, http.StatusBadRequest, "InputError")
}

func TestMarketSnapshots(t *testing.T) {
	s := setupRouterWithDB(t, Options{})
	token, _ := s.register("lisa")

	w := s.do(http.MethodGet, "/market/snapshots?period=week", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[models.SnapshotHistoryResponse](t, w)
	require.Equal(t, "week", history.Period)
	require.NotNil(t, history.Snapshots)

	w = s.do(http.MethodGet, "/market/snapshots?period=century", token, nil)
	requireEnvelope(t, w, http.StatusBadRequest, "InputError")
}
