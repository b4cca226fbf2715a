package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, mw echo.MiddlewareFunc, headers http.Header) int {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := mw(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	require.NoError(t, h(c))
	return rec.Code
}

func TestAdminKeyMiddleware(t *testing.T) {
	mw := AdminKeyMiddleware("s3cret")

	assert.Equal(t, http.StatusUnauthorized, run(t, mw, http.Header{}))
	assert.Equal(t, http.StatusUnauthorized, run(t, mw, http.Header{"X-Admin-Key": {"wrong"}}))
	assert.Equal(t, http.StatusOK, run(t, mw, http.Header{"X-Admin-Key": {"s3cret"}}))
}

func TestAdminKeyMiddlewareUnsetKeyLocksRoute(t *testing.T) {
	mw := AdminKeyMiddleware("")

	assert.Equal(t, http.StatusUnauthorized, run(t, mw, http.Header{"X-Admin-Key": {""}}))
	assert.Equal(t, http.StatusUnauthorized, run(t, mw, http.Header{"X-Admin-Key": {"anything"}}))
}

func TestRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	mw := RateLimitMiddleware(RateLimitConfig{
		Redis:  rdb,
		RPS:    2,
		Window: time.Second,
	})

	// five requests against rps=2 can span at most two one-second
	// windows, so at least one must be limited
	ok, limited := 0, 0
	for i := 0; i < 5; i++ {
		switch run(t, mw, nil) {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			limited++
		}
	}
	assert.GreaterOrEqual(t, ok, 2)
	assert.GreaterOrEqual(t, limited, 1)
}

func TestRateLimitMiddlewareAllowsWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	mw := RateLimitMiddleware(RateLimitConfig{Redis: rdb, RPS: 1, Window: time.Second})

	// webhook delivery wins over throttling when redis is unavailable
	assert.Equal(t, http.StatusOK, run(t, mw, nil))
	assert.Equal(t, http.StatusOK, run(t, mw, nil))
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitConfig{RPS: 0})

	assert.Equal(t, http.StatusOK, run(t, mw, nil))
}
