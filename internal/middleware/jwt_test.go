package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventbook/event-booking-api/internal/utils"
)

const testSecret = "test-secret"

func runJWT(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen echo.Context
	h := JWTAuth(testSecret)(func(c echo.Context) error {
		seen = c
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, seen
}

func TestJWTAuthValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, "admin", 5)
	require.NoError(t, err)

	rec, seen := runJWT(t, "Bearer "+tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)

	// JWT numeric claims come back as float64.
	assert.Equal(t, float64(42), seen.Get("user_id"))
	assert.Equal(t, "admin", seen.Get("role"))
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _ := runJWT(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")
}

func TestJWTAuthWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("another-secret", 42, "user", 5)
	require.NoError(t, err)

	rec, _ := runJWT(t, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthExpiredToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, "user", -5)
	require.NoError(t, err)

	rec, _ := runJWT(t, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthGarbageToken(t *testing.T) {
	rec, _ := runJWT(t, "Bearer not.a.token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	call := func(role any) *httptest.ResponseRecorder {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != nil {
			c.Set("role", role)
		}
		h := RequireRole("admin")(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, h(c))
		return rec
	}

	assert.Equal(t, http.StatusOK, call("admin").Code)
	assert.Equal(t, http.StatusForbidden, call("user").Code)
	assert.Equal(t, http.StatusForbidden, call(nil).Code)
}
