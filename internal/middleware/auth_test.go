package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef")

func serveAdmin(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	return serveAdminAs(t, "admin", header)
}

func serveAdminAs(t *testing.T, admin, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	var seen string
	e.GET("/admin", func(c echo.Context) error {
		seen, _ = AdminFromContext(c)
		return c.NoContent(http.StatusOK)
	}, RequireAdmin(testSecret, admin))
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAdminAcceptsSignedToken(t *testing.T) {
	tok, err := NewTokenSigner(testSecret)("admin", time.Hour)
	require.NoError(t, err)

	rec, seen := serveAdmin(t, "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", seen)
}

func TestRequireAdminRejects(t *testing.T) {
	expired, err := NewTokenSigner(testSecret)("admin", -time.Minute)
	require.NoError(t, err)
	foreign, err := NewTokenSigner([]byte("another-secret-value"))("admin", time.Hour)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer: issuer, Subject: "admin",
	}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":  "",
		"scheme":   "Basic abc",
		"garbage":  "Bearer nope",
		"expired":  "Bearer " + expired,
		"foreign":  "Bearer " + foreign,
		"unsigned": "Bearer " + unsigned,
	} {
		rec, seen := serveAdmin(t, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.Empty(t, seen, name)
	}
}

func TestRequireAdminChecksSubject(t *testing.T) {
	tok, err := NewTokenSigner(testSecret)("mallory", time.Hour)
	require.NoError(t, err)

	rec, seen := serveAdmin(t, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)
}

func TestRequireAdminClosedWithoutAdmin(t *testing.T) {
	tok, err := NewTokenSigner(testSecret)("admin", time.Hour)
	require.NoError(t, err)

	rec, seen := serveAdminAs(t, "", "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
	assert.Empty(t, seen)
}

func TestTokensCarryUniqueIDs(t *testing.T) {
	sign := NewTokenSigner(testSecret)
	a, err := sign("admin", time.Hour)
	require.NoError(t, err)
	b, err := sign("admin", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	claims, err := parseToken(testSecret, a)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, issuer, claims.Issuer)
}
