package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/api/middleware"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/services"
)

type AuthHandler struct {
	auth         *services.AuthService
	cookieSecure bool
	log          logrus.FieldLogger
}

func NewAuthHandler(auth *services.AuthService, cookieSecure bool, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{auth: auth, cookieSecure: cookieSecure, log: log}
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if value == "" {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.cookieSecure, true)
}

func (h *AuthHandler) writeSession(c *gin.Context, status int, s *services.Session) {
	h.setCookie(c, middleware.AccessCookie, s.Tokens.Access, s.Tokens.AccessExpires)
	h.setCookie(c, middleware.RefreshCookie, s.Tokens.Refresh, s.Tokens.RefreshExpires)
	c.JSON(status, s.Response())
}

// Login accepts {email|username, password}.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	session, err := h.auth.Login(c.Request.Context(), req.Identifier(), req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.writeSession(c, http.StatusOK, session)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	session, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.writeSession(c, http.StatusCreated, session)
}

// Refresh reads the refresh_token cookie and issues a new access cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, _ := c.Cookie(middleware.RefreshCookie)
	token, expires, err := h.auth.Refresh(c.Request.Context(), refresh)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.setCookie(c, middleware.AccessCookie, token, expires)
	c.JSON(http.StatusOK, gin.H{"expires_at": expires})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	refresh, _ := c.Cookie(middleware.RefreshCookie)
	if err := h.auth.Logout(c.Request.Context(), middleware.Claims(c), refresh); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.setCookie(c, middleware.AccessCookie, "", time.Time{})
	h.setCookie(c, middleware.RefreshCookie, "", time.Time{})
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) InviteManager(c *gin.Context) {
	var req models.InviteManagerRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	collector, err := h.auth.InviteManager(c.Request.Context(), middleware.CollectorID(c), req.CollectorID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, collector)
}
