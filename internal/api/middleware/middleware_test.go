package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/auth"
	"github.com/codyseavey/tcg-exchange/internal/logging"
	"github.com/codyseavey/tcg-exchange/internal/models"
)

type fakeAuthenticator map[string]*auth.Claims

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (*auth.Claims, error) {
	if claims, ok := f[token]; ok {
		return claims, nil
	}
	return nil, apperrors.Auth("invalid or expired token")
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	a := fakeAuthenticator{
		"collector": {CollectorID: 7, Privilege: models.PrivilegeCollector},
		"manager":   {CollectorID: 8, Privilege: models.PrivilegeManager},
	}
	r := gin.New()
	r.Use(Metrics())
	authed := r.Group("/", RequireAuth(a))
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CollectorID(c), "privilege": Privilege(c).String(), "claims": Claims(c) != nil})
	})
	authed.GET("/manage", RequirePrivilege(models.PrivilegeManager), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized},
		{"bearer", func(req *http.Request) { req.Header.Set("Authorization", "Bearer collector") }, http.StatusOK},
		{"lowercase scheme", func(req *http.Request) { req.Header.Set("Authorization", "bearer collector") }, http.StatusOK},
		{"cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "collector"}) }, http.StatusOK},
		{"bad token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"basic scheme", func(req *http.Request) { req.Header.Set("Authorization", "Basic collector") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tt.status, w.Code)

			if tt.status == http.StatusOK {
				var body struct {
					ID        uint   `json:"id"`
					Privilege string `json:"privilege"`
					Claims    bool   `json:"claims"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				require.Equal(t, uint(7), body.ID)
				require.Equal(t, "COLLECTOR", body.Privilege)
				require.True(t, body.Claims)
				return
			}
			var env apperrors.Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			require.Equal(t, "AuthError", env.Name)
			require.Equal(t, http.StatusUnauthorized, env.Code)
		})
	}
}

func TestRequirePrivilege(t *testing.T) {
	r := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/manage", nil)
	req.Header.Set("Authorization", "Bearer collector")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
	var env apperrors.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, "AccessError", env.Name)

	req = httptest.NewRequest(http.MethodGet, "/manage", nil)
	req.Header.Set("Authorization", "Bearer manager")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 2, logging.Discard())
	r := gin.New()
	r.POST("/login", limiter.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":40000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, do("10.0.0.1"))
	require.Equal(t, http.StatusOK, do("10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	// Buckets are per client.
	require.Equal(t, http.StatusOK, do("10.0.0.2"))
}
