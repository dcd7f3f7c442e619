package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/models"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuth(f)

	session, err := svc.Register(f.ctx, models.RegisterRequest{
		Email: "Marge@Springfield.test", Username: "marge", Password: "blue-hair-1",
	})
	require.NoError(t, err)
	require.Equal(t, "marge@springfield.test", session.Collector.Email)
	require.Equal(t, models.PrivilegeCollector, session.Collector.PrivilegeID)
	require.NotEmpty(t, session.Tokens.Access)
	require.NotEmpty(t, session.Tokens.Refresh)
	require.Equal(t, models.AuthResponse{UserID: session.Collector.ID, Privilege: "COLLECTOR"}, session.Response())

	t.Run("login by email", func(t *testing.T) {
		s, err := svc.Login(f.ctx, "MARGE@springfield.test", "blue-hair-1")
		require.NoError(t, err)
		require.Equal(t, session.Collector.ID, s.Collector.ID)
	})

	t.Run("login by username", func(t *testing.T) {
		s, err := svc.Login(f.ctx, "marge", "blue-hair-1")
		require.NoError(t, err)
		claims, err := svc.Authenticate(f.ctx, s.Tokens.Access)
		require.NoError(t, err)
		require.Equal(t, session.Collector.ID, claims.CollectorID)
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		_, wrong := svc.Login(f.ctx, "marge", "pink-hair-1")
		_, unknown := svc.Login(f.ctx, "maggie", "blue-hair-1")
		require.True(t, apperrors.Is(wrong, apperrors.KindInput))
		require.Equal(t, wrong.Error(), unknown.Error())
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(f.ctx, "  ", "x")
		require.True(t, apperrors.Is(err, apperrors.KindInput))
	})
}

func TestRegisterRejectsTakenCredentials(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuth(f)
	_, err := svc.Register(f.ctx, models.RegisterRequest{Email: "ned@springfield.test", Username: "ned", Password: "okily-dokily"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  models.RegisterRequest
		want string
	}{
		{"email", models.RegisterRequest{Email: "NED@springfield.test", Username: "flanders", Password: "okily-dokily"}, "email is already registered"},
		{"username", models.RegisterRequest{Email: "other@springfield.test", Username: "ned", Password: "okily-dokily"}, "username is already taken"},
		{"at sign in username", models.RegisterRequest{Email: "rod@springfield.test", Username: "rod@home", Password: "okily-dokily"}, "may not contain @"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(f.ctx, tt.req)
			require.True(t, apperrors.Is(err, apperrors.KindInput), "got %v", err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
	require.Equal(t, int64(1), f.count(&models.Collector{}, ""))
}

func TestManagerInviteIsPromotedOnLogin(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuth(f)
	burns := f.collector("burns", models.PrivilegeAdmin)
	smithers := f.collector("smithers", models.PrivilegeCollector)
	homer := f.collector("homer", models.PrivilegeCollector)

	_, err := svc.InviteManager(f.ctx, homer.ID, smithers.ID)
	require.True(t, apperrors.Is(err, apperrors.KindAccess))

	invited, err := svc.InviteManager(f.ctx, burns.ID, smithers.ID)
	require.NoError(t, err)
	require.Equal(t, models.PrivilegeManagerPending, invited.PrivilegeID)

	_, err = svc.InviteManager(f.ctx, burns.ID, smithers.ID)
	require.True(t, apperrors.Is(err, apperrors.KindInput))

	session, err := svc.Login(f.ctx, "smithers", "password-smithers")
	require.NoError(t, err)
	require.Equal(t, models.PrivilegeManager, session.Collector.PrivilegeID)

	stored, err := f.store.Collectors.ByID(f.ctx, smithers.ID)
	require.NoError(t, err)
	require.Equal(t, models.PrivilegeManager, stored.PrivilegeID)
}

func TestRefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuth(f)
	f.collector("lisa", models.PrivilegeManager)

	session, err := svc.Login(f.ctx, "lisa", "password-lisa")
	require.NoError(t, err)

	access, _, err := svc.Refresh(f.ctx, session.Tokens.Refresh)
	require.NoError(t, err)
	claims, err := svc.Authenticate(f.ctx, access)
	require.NoError(t, err)
	require.Equal(t, models.PrivilegeManager, claims.Privilege)

	// An access token is not a refresh token.
	_, _, err = svc.Refresh(f.ctx, session.Tokens.Access)
	require.True(t, apperrors.Is(err, apperrors.KindAuth))

	require.NoError(t, svc.Logout(f.ctx, claims, session.Tokens.Refresh))

	_, err = svc.Authenticate(f.ctx, access)
	require.True(t, apperrors.Is(err, apperrors.KindAuth))
	_, _, err = svc.Refresh(f.ctx, session.Tokens.Refresh)
	require.True(t, apperrors.Is(err, apperrors.KindAuth))

	_, err = svc.Authenticate(f.ctx, "")
	require.True(t, apperrors.Is(err, apperrors.KindAuth))
}
