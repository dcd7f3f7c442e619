// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/auth"
	"github.com/codyseavey/tcg-exchange/internal/models"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"

	collectorIDKey = "collector_id"
	privilegeKey   = "privilege"
	claimsKey      = "claims"
)

// Authenticator validates an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// Abort writes the error envelope and stops the chain.
func Abort(c *gin.Context, err error) {
	env := apperrors.ToEnvelope(err)
	c.AbortWithStatusJSON(env.Code, env)
}

// RequireAuth accepts the access token from the access_token cookie or an
// Authorization: Bearer header, in that order.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.Authenticate(c.Request.Context(), tokenFrom(c))
		if err != nil {
			Abort(c, err)
			return
		}
		c.Set(collectorIDKey, claims.CollectorID)
		c.Set(privilegeKey, claims.Privilege)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func tokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequirePrivilege must run after RequireAuth.
func RequirePrivilege(required models.Privilege) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Privilege(c).AtLeast(required) {
			Abort(c, apperrors.Access("%s privilege required", required))
			return
		}
		c.Next()
	}
}

func CollectorID(c *gin.Context) uint {
	return c.GetUint(collectorIDKey)
}

func Privilege(c *gin.Context) models.Privilege {
	if p, ok := c.Get(privilegeKey); ok {
		if priv, ok := p.(models.Privilege); ok {
			return priv
		}
	}
	return 0
}

// Claims returns the verified access token claims, or nil on public routes.
func Claims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
