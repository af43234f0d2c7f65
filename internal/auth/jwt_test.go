package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestao-publica/procurement-api/internal/auth"
	"github.com/gestao-publica/procurement-api/internal/config"
)

func newValidator() *auth.JWTValidator {
	return auth.NewJWTValidator(&config.AuthConfig{
		JWTSecret: "test-secret-key-for-jwt-validation",
		Issuer:    "procurement-api-test",
	})
}

func TestJWTValidator_RoundTrip(t *testing.T) {
	validator := newValidator()

	user := &auth.UserContext{
		UserID:      uuid.New(),
		DisplayName: "Maria Souza",
		Email:       "maria.souza@prefeitura.gov.br",
		Role:        auth.RoleOperator,
		TenantID:    "prefeitura-exemplo",
	}

	token, err := validator.IssueToken(user, time.Hour)
	require.NoError(t, err)

	got, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, got.UserID)
	assert.Equal(t, user.DisplayName, got.DisplayName)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, auth.RoleOperator, got.Role)
	assert.Equal(t, "prefeitura-exemplo", got.TenantID)
}

func TestJWTValidator_Rejections(t *testing.T) {
	validator := newValidator()
	user := &auth.UserContext{
		UserID:   uuid.New(),
		Role:     auth.RoleAdmin,
		TenantID: "prefeitura-exemplo",
	}

	t.Run("expired token", func(t *testing.T) {
		token, err := validator.IssueToken(user, -time.Minute)
		require.NoError(t, err)

		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := auth.NewJWTValidator(&config.AuthConfig{
			JWTSecret: "a-completely-different-secret",
			Issuer:    "procurement-api-test",
		})
		token, err := other.IssueToken(user, time.Hour)
		require.NoError(t, err)

		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := auth.NewJWTValidator(&config.AuthConfig{
			JWTSecret: "test-secret-key-for-jwt-validation",
			Issuer:    "some-other-service",
		})
		token, err := other.IssueToken(user, time.Hour)
		require.NoError(t, err)

		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("missing tenant claim", func(t *testing.T) {
		claims := &auth.Claims{
			Role: string(auth.RoleOperator),
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "procurement-api-test",
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		token, err := raw.SignedString([]byte("test-secret-key-for-jwt-validation"))
		require.NoError(t, err)

		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrMissingTenant)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := validator.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestJWTValidator_UnknownRoleDowngradesToViewer(t *testing.T) {
	validator := newValidator()

	token, err := validator.IssueToken(&auth.UserContext{
		UserID:   uuid.New(),
		Role:     auth.Role("superuser"),
		TenantID: "prefeitura-exemplo",
	}, time.Hour)
	require.NoError(t, err)

	got, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleViewer, got.Role)
	assert.False(t, got.CanWrite())
}

func TestUserContext_Roundtrip(t *testing.T) {
	user := &auth.UserContext{UserID: uuid.New(), Role: auth.RoleViewer, TenantID: "prefeitura-exemplo"}
	ctx := auth.WithUserContext(context.Background(), user)

	got, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user, got)
	assert.Equal(t, "prefeitura-exemplo", auth.TenantFromContext(ctx))

	_, ok = auth.FromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, auth.TenantFromContext(context.Background()))
}

func TestUserContext_Permissions(t *testing.T) {
	admin := &auth.UserContext{Role: auth.RoleAdmin}
	operator := &auth.UserContext{Role: auth.RoleOperator}
	viewer := &auth.UserContext{Role: auth.RoleViewer}

	assert.True(t, admin.CanWrite())
	assert.True(t, admin.IsAdmin())
	assert.True(t, operator.CanWrite())
	assert.False(t, operator.IsAdmin())
	assert.False(t, viewer.CanWrite())
	assert.False(t, viewer.IsAdmin())
}
