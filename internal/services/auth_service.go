package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/auth"
	"github.com/codyseavey/tcg-exchange/internal/metrics"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
)

// dummyHash is compared against when the identifier is unknown so that a
// missing account costs the same bcrypt work as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// Session is the result of a successful login or registration
type Session struct {
	Collector *models.Collector
	Tokens    *auth.Pair
}

func (s *Session) Response() models.AuthResponse {
	return models.AuthResponse{UserID: s.Collector.ID, Privilege: s.Collector.PrivilegeID.String()}
}

// AuthService handles credentials, token issuance and revocation
type AuthService struct {
	store       *repository.Store
	tokens      *auth.TokenManager
	revocations auth.Revocations
	log         logrus.FieldLogger
	hashCost    int
}

func NewAuthService(store *repository.Store, tokens *auth.TokenManager, revocations auth.Revocations, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		store:       store,
		tokens:      tokens,
		revocations: revocations,
		log:         log.WithField("component", "auth"),
		hashCost:    bcrypt.DefaultCost,
	}
}

// Login accepts either an email or a username as identifier. A collector
// invited as manager is promoted on their first login after the invite.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.Input("email or username and password are required")
	}

	collector, err := s.store.Collectors.ByIdentifier(ctx, normalizeIdentifier(identifier))
	if err != nil {
		if !apperrors.Is(err, apperrors.KindInput) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failed").Inc()
		return nil, apperrors.Input("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(collector.PasswordHash), []byte(password)); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failed").Inc()
		return nil, apperrors.Input("invalid credentials")
	}

	if collector.PrivilegeID == models.PrivilegeManagerPending {
		if err := s.store.Collectors.SetPrivilege(ctx, collector.ID, models.PrivilegeManager); err != nil {
			return nil, err
		}
		collector.PrivilegeID = models.PrivilegeManager
		s.log.WithField("collector_id", collector.ID).Info("promoted pending manager on login")
	}

	pair, err := s.tokens.Issue(collector)
	if err != nil {
		return nil, apperrors.Internal(err, "issue tokens")
	}
	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return &Session{Collector: collector, Tokens: pair}, nil
}

// Register creates a COLLECTOR account. Taken emails and usernames are
// rejected before anything is inserted.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*Session, error) {
	email := normalizeIdentifier(req.Email)
	username := strings.TrimSpace(req.Username)
	if email == "" || username == "" || req.Password == "" {
		return nil, apperrors.Input("email, username and password are required")
	}
	if strings.Contains(username, "@") {
		return nil, apperrors.Input("username may not contain @")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, apperrors.Input("password cannot be used: %v", err)
	}

	collector := &models.Collector{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		PrivilegeID:  models.PrivilegeCollector,
	}
	err = s.store.Tx(ctx, func(tx *repository.Store) error {
		emailTaken, usernameTaken, err := tx.Collectors.Taken(ctx, email, username)
		if err != nil {
			return err
		}
		if emailTaken {
			return apperrors.Input("email is already registered")
		}
		if usernameTaken {
			return apperrors.Input("username is already taken")
		}
		return tx.Collectors.Create(ctx, collector)
	})
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "failed").Inc()
		return nil, err
	}

	pair, err := s.tokens.Issue(collector)
	if err != nil {
		return nil, apperrors.Internal(err, "issue tokens")
	}
	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	s.log.WithField("collector_id", collector.ID).Info("collector registered")
	return &Session{Collector: collector, Tokens: pair}, nil
}

// Authenticate validates an access token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, apperrors.Auth("authentication required")
	}
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		return nil, apperrors.Auth("invalid or expired token")
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.Internal(err, "check token revocation")
	}
	if revoked {
		return nil, apperrors.Auth("token has been revoked")
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new access token carrying the
// collector's current privilege.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	if refreshToken == "" {
		return "", time.Time{}, apperrors.Auth("refresh token required")
	}
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("refresh", "failed").Inc()
		return "", time.Time{}, apperrors.Auth("invalid or expired refresh token")
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", time.Time{}, apperrors.Internal(err, "check token revocation")
	}
	if revoked {
		metrics.AuthAttemptsTotal.WithLabelValues("refresh", "failed").Inc()
		return "", time.Time{}, apperrors.Auth("refresh token has been revoked")
	}

	collector, err := s.store.Collectors.ByID(ctx, claims.CollectorID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindInput) {
			return "", time.Time{}, apperrors.Auth("collector no longer exists")
		}
		return "", time.Time{}, err
	}

	token, _, expires, err := s.tokens.IssueAccess(collector.ID, collector.PrivilegeID)
	if err != nil {
		return "", time.Time{}, apperrors.Internal(err, "issue access token")
	}
	metrics.AuthAttemptsTotal.WithLabelValues("refresh", "success").Inc()
	return token, expires, nil
}

// Logout revokes the access token and, when it is valid, the refresh token.
func (s *AuthService) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if access != nil {
		if err := s.revocations.Revoke(ctx, access.ID, access.ExpiresAt.Time); err != nil {
			return apperrors.Internal(err, "revoke access token")
		}
	}
	if refreshToken == "" {
		return nil
	}
	refresh, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, refresh.ID, refresh.ExpiresAt.Time); err != nil {
		return apperrors.Internal(err, "revoke refresh token")
	}
	return nil
}

// InviteManager marks a collector MANAGER_PENDING. Delivering the invitation
// happens outside this service.
func (s *AuthService) InviteManager(ctx context.Context, adminID, collectorID uint) (*models.Collector, error) {
	admin, err := s.store.Collectors.ByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.PrivilegeID.AtLeast(models.PrivilegeAdmin) {
		return nil, apperrors.Access("only admins can invite managers")
	}

	target, err := s.store.Collectors.ByID(ctx, collectorID)
	if err != nil {
		return nil, err
	}
	if target.PrivilegeID.AtLeast(models.PrivilegeManagerPending) {
		return nil, apperrors.Input("collector already has privilege %s", target.PrivilegeID)
	}
	if err := s.store.Collectors.SetPrivilege(ctx, target.ID, models.PrivilegeManagerPending); err != nil {
		return nil, err
	}
	target.PrivilegeID = models.PrivilegeManagerPending
	s.log.WithFields(logrus.Fields{"admin_id": adminID, "collector_id": collectorID}).Info("manager invited")
	return target, nil
}

// Emails are matched case-insensitively; usernames are left as typed.
func normalizeIdentifier(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "@") {
		return strings.ToLower(s)
	}
	return s
}
