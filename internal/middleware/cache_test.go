package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventbook/event-booking-api/internal/config"
)

func cacheTestConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{"GET": true},
		TTL:         30 * time.Second,
		KeyStrategy: "route_query",
		Prefix:      "cache",
	}
}

func keyFor(cfg config.CacheConfig, target string) string {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return cacheKeyFrom(cfg, e.NewContext(req, rec))
}

func TestCacheKeyDistinctPerPath(t *testing.T) {
	cfg := cacheTestConfig()

	// Two requests matching the same /:id route must not share an entry.
	k1 := keyFor(cfg, "/api/events/1")
	k2 := keyFor(cfg, "/api/events/2")
	assert.NotEqual(t, k1, k2)

	// The same URL must key identically across requests.
	assert.Equal(t, k1, keyFor(cfg, "/api/events/1"))
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	cfg := cacheTestConfig()
	assert.NotEqual(t,
		keyFor(cfg, "/api/events?page=1"),
		keyFor(cfg, "/api/events?page=2"))
}

func TestCacheServesPerEventEntries(t *testing.T) {
	cfg := cacheTestConfig()
	rdb, rmock := redismock.NewClientMock()

	e := echo.New()
	e.GET("/api/events/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "event-"+c.Param("id"))
	}, NewRedisCache(cfg, rdb))

	key1 := keyFor(cfg, "/api/events/1")
	key2 := keyFor(cfg, "/api/events/2")
	require.NotEqual(t, key1, key2)

	cached, err := encodePayload(http.StatusOK,
		http.Header{"Content-Type": {"text/plain; charset=UTF-8"}}, []byte("event-1"))
	require.NoError(t, err)

	// Event 1 is already cached and must be served from Redis.
	rmock.ExpectGet(key1).SetVal(string(cached))
	rec1 := httptest.NewRecorder()
	e.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/api/events/1", nil))
	assert.Equal(t, http.StatusOK, rec1.Code)
	assert.Equal(t, "event-1", rec1.Body.String())
	assert.Equal(t, "HIT", rec1.Header().Get("X-Cache"))

	// Event 2 misses under its own key and reaches the handler; event 1's
	// entry must never be served for it.
	rmock.ExpectGet(key2).RedisNil()
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/api/events/2", nil))
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "event-2", rec2.Body.String())
	assert.Equal(t, "MISS", rec2.Header().Get("X-Cache"))

	require.NoError(t, rmock.ExpectationsWereMet())
}

func TestCacheSkipsUncachedMethods(t *testing.T) {
	cfg := cacheTestConfig()
	rdb, rmock := redismock.NewClientMock()

	e := echo.New()
	e.POST("/api/events", func(c echo.Context) error {
		return c.String(http.StatusOK, "created")
	}, NewRedisCache(cfg, rdb))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events", nil))
	assert.Equal(t, "created", rec.Body.String())
	require.NoError(t, rmock.ExpectationsWereMet())
}
