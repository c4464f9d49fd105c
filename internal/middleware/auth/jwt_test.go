package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runMiddleware(t *testing.T, authHeader string) (*AuthUser, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var seen *AuthUser
	handler := OptionalJWT(JWTConfig{Secret: testSecret, Issuer: "restore", Logger: zap.NewNop()})(func(c echo.Context) error {
		seen = GetUserFromContext(c)
		return nil
	})
	return seen, handler(c)
}

func validClaims() Claims {
	return Claims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "restore",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func assertUnauthenticated(t *testing.T, err error) {
	t.Helper()
	var appErr *pkgerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.KindAuthorization, appErr.Kind())
}

func TestOptionalJWT(t *testing.T) {
	t.Run("anonymous request passes", func(t *testing.T) {
		user, err := runMiddleware(t, "")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("valid token", func(t *testing.T) {
		user, err := runMiddleware(t, "Bearer "+signToken(t, testSecret, validClaims()))
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "user-1", user.UserID)
		assert.Equal(t, "user@example.com", user.Email)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := runMiddleware(t, "Bearer "+signToken(t, "other", validClaims()))
		assertUnauthenticated(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := runMiddleware(t, "Bearer "+signToken(t, testSecret, claims))
		assertUnauthenticated(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := validClaims()
		claims.Issuer = "someone-else"
		_, err := runMiddleware(t, "Bearer "+signToken(t, testSecret, claims))
		assertUnauthenticated(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		claims := validClaims()
		claims.Subject = ""
		_, err := runMiddleware(t, "Bearer "+signToken(t, testSecret, claims))
		assertUnauthenticated(t, err)
	})

	t.Run("not a bearer header", func(t *testing.T) {
		_, err := runMiddleware(t, "Basic dXNlcjpwYXNz")
		assertUnauthenticated(t, err)
	})
}
