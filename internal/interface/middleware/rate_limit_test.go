package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func limitedRouter(rdb *redis.Client, max int, allow AllowFunc) *gin.Engine {
	r := gin.New()
	r.Use(RealIP(true))
	lim := RateLimit(rdb, max, time.Minute, KeyByIPAndPath(), allow)
	r.POST("/auth/login", lim, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/auth/register", lim, func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func post(r http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("X-Forwarded-For", ip)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_FixedWindow(t *testing.T) {
	t.Parallel()
	mr, rdb := newRedis(t)
	r := limitedRouter(rdb, 2, nil)

	w := post(r, "/auth/login", "203.0.113.7")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, post(r, "/auth/login", "203.0.113.7").Code)

	w = post(r, "/auth/login", "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")

	// separate budgets per route and per client
	assert.Equal(t, http.StatusOK, post(r, "/auth/register", "203.0.113.7").Code)
	assert.Equal(t, http.StatusOK, post(r, "/auth/login", "203.0.113.8").Code)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, post(r, "/auth/login", "203.0.113.7").Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	t.Parallel()
	mr, rdb := newRedis(t)
	r := limitedRouter(rdb, 1, nil)
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(r, "/auth/login", "203.0.113.7").Code)
	}
}

func TestRateLimit_Bypass(t *testing.T) {
	t.Parallel()
	_, rdb := newRedis(t)
	r := limitedRouter(rdb, 1, AllowPrivateIP())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(r, "/auth/login", "10.1.2.3").Code)
	}
	assert.Equal(t, http.StatusOK, post(r, "/auth/login", "203.0.113.7").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(r, "/auth/login", "203.0.113.7").Code)
}

func TestRateLimit_NilClientDisabled(t *testing.T) {
	t.Parallel()
	r := limitedRouter(nil, 1, nil)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, post(r, "/auth/login", "203.0.113.7").Code)
	}
}

func TestRateLimit_KeyByUserID(t *testing.T) {
	t.Parallel()
	_, rdb := newRedis(t)
	r := gin.New()
	r.Use(RealIP(true), func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set(CtxUserIDKey, uid)
		}
	})
	r.GET("/users/search", RateLimit(rdb, 1, time.Minute, KeyByUserID(), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	get := func(user, ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/users/search", nil)
		req.Header.Set("X-Forwarded-For", ip)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("u1", "203.0.113.7"))
	// same user from another address shares the budget
	assert.Equal(t, http.StatusTooManyRequests, get("u1", "203.0.113.8"))
	assert.Equal(t, http.StatusOK, get("u2", "203.0.113.7"))

	assert.Equal(t, http.StatusOK, get("", "203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, get("", "203.0.113.7"))
	assert.Equal(t, http.StatusOK, get("", "203.0.113.9"))
}
