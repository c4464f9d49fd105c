package auth

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

// AuthUser represents an authenticated user from JWT
type AuthUser struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type contextKey string

const userContextKey contextKey = "authenticated_user"

// Claims are the token claims the service reads.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Secret string
	// Issuer is checked when set.
	Issuer string
	Logger *zap.Logger
}

// OptionalJWT authenticates requests that carry a bearer token and lets
// anonymous requests through. A token that is present but invalid is rejected.
func OptionalJWT(config JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}
			path := c.Request().URL.Path

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader || config.Secret == "" {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return pkgerrors.Unauthorized(pkgerrors.ErrUnauthenticated,
					"invalid authorization header, expected: Bearer <token>", nil)
			}

			var claims Claims
			_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(config.Secret), nil
			})
			if err != nil {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return pkgerrors.Unauthorized(pkgerrors.ErrUnauthenticated, "invalid or expired token", err)
			}
			if claims.Subject == "" {
				return pkgerrors.Unauthorized(pkgerrors.ErrUnauthenticated, "token has no subject", nil)
			}

			user := &AuthUser{UserID: claims.Subject, Email: claims.Email}
			c.SetRequest(c.Request().WithContext(WithUser(c.Request().Context(), user)))
			c.Set("user_id", user.UserID)

			config.Logger.Debug("User authenticated",
				zap.String("user_id", user.UserID),
				zap.String("path", path))
			return next(c)
		}
	}
}

// GetUserFromContext returns the authenticated user, or nil for anonymous requests
func GetUserFromContext(c echo.Context) *AuthUser {
	user, _ := c.Request().Context().Value(userContextKey).(*AuthUser)
	return user
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
