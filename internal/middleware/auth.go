package middleware

import (
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/soaringjerry/modern360/internal/services"
	"github.com/soaringjerry/modern360/internal/utils"
)

const (
	issuer       = "modern360"
	adminCtxKey  = "admin"
	bearerPrefix = "Bearer "
)

type Claims struct {
	jwt.RegisteredClaims
}

// NewTokenSigner returns the signer the auth service uses to mint admin
// tokens: HS256 with the subject set to the admin username.
func NewTokenSigner(secret []byte) services.TokenSigner {
	return func(subject string, ttl time.Duration) (string, error) {
		now := time.Now()
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		}}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		return token.SignedString(secret)
	}
}

func parseToken(secret []byte, tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid && c.Subject != "" {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// RequireAdmin rejects requests without a valid bearer token issued to admin.
// An empty admin username closes every route behind it.
func RequireAdmin(secret []byte, admin string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if admin == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "admin access is not configured")
			}
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(h, bearerPrefix) {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			claims, err := parseToken(secret, strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix)))
			if err == nil && claims.Subject != admin {
				err = errors.Errorf("token subject %q is not the admin", claims.Subject)
			}
			if err != nil {
				locale := LocaleFromContext(c.Request().Context())
				return echo.NewHTTPError(http.StatusUnauthorized, utils.T(locale, "error.unauthorized")).WithInternal(err)
			}
			c.Set(adminCtxKey, claims.Subject)
			return next(c)
		}
	}
}

// AdminFromContext returns the username of the authenticated admin.
func AdminFromContext(c echo.Context) (string, bool) {
	s, ok := c.Get(adminCtxKey).(string)
	return s, ok && s != ""
}
