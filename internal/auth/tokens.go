// Package auth issues and verifies the JWTs carried in the access_token and
// refresh_token cookies, and tracks revoked token ids.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/codyseavey/tcg-exchange/internal/models"
)

const (
	issuer = "tcg-exchange"

	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongType    = errors.New("wrong token type")
)

type Claims struct {
	CollectorID uint             `json:"cid"`
	Privilege   models.Privilege `json:"priv"`
	Type        string           `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is what a successful login or registration hands to the client.
type Pair struct {
	Access         string
	AccessID       string
	AccessExpires  time.Time
	Refresh        string
	RefreshID      string
	RefreshExpires time.Time
}

type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (m *TokenManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// Issue signs a fresh access and refresh token for the collector.
func (m *TokenManager) Issue(c *models.Collector) (*Pair, error) {
	access, accessID, accessExp, err := m.sign(c.ID, c.PrivilegeID, TypeAccess)
	if err != nil {
		return nil, err
	}
	refresh, refreshID, refreshExp, err := m.sign(c.ID, c.PrivilegeID, TypeRefresh)
	if err != nil {
		return nil, err
	}
	return &Pair{
		Access:         access,
		AccessID:       accessID,
		AccessExpires:  accessExp,
		Refresh:        refresh,
		RefreshID:      refreshID,
		RefreshExpires: refreshExp,
	}, nil
}

// IssueAccess signs only an access token, used by refresh.
func (m *TokenManager) IssueAccess(collectorID uint, p models.Privilege) (token, id string, expires time.Time, err error) {
	return m.sign(collectorID, p, TypeAccess)
}

func (m *TokenManager) sign(collectorID uint, p models.Privilege, typ string) (string, string, time.Time, error) {
	secret, ttl := m.accessSecret, m.accessTTL
	if typ == TypeRefresh {
		secret, ttl = m.refreshSecret, m.refreshTTL
	}

	now := m.now()
	expires := now.Add(ttl)
	id := uuid.NewString()
	claims := &Claims{
		CollectorID: collectorID,
		Privilege:   p,
		Type:        typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatUint(uint64(collectorID), 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, id, expires, nil
}

func (m *TokenManager) ParseAccess(token string) (*Claims, error) {
	return m.parse(token, m.accessSecret, TypeAccess)
}

func (m *TokenManager) ParseRefresh(token string) (*Claims, error) {
	return m.parse(token, m.refreshSecret, TypeRefresh)
}

func (m *TokenManager) parse(token string, secret []byte, typ string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != typ {
		return nil, ErrWrongType
	}
	return claims, nil
}
