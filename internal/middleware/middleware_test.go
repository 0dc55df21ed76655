package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cabdispatch/internal/auth"
	"cabdispatch/internal/domain"
)

const testSecret = "middleware-test-secret"

var testToken string

func newIdempotentRouter(t *testing.T, client *redis.Client, calls *int32) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	resolver, err := auth.NewResolver(testSecret, "cabdispatch", time.Hour)
	require.NoError(t, err)
	testToken, err = resolver.Issue("pass-1", domain.RolePassenger)
	require.NoError(t, err)

	counted := func(code int) gin.HandlerFunc {
		return func(c *gin.Context) {
			n := atomic.AddInt32(calls, 1)
			c.JSON(code, gin.H{"call": n})
		}
	}

	router := gin.New()
	router.POST("/v1/users", auth.OptionalMiddleware(resolver), IdempotencyMiddleware(client), counted(http.StatusCreated))

	authed := router.Group("/v1", auth.Middleware(resolver), IdempotencyMiddleware(client))
	authed.POST("/bookings/:id/cancel", counted(http.StatusOK))
	authed.POST("/fail", counted(http.StatusServiceUnavailable))
	return router
}

func post(router http.Handler, path, key string) *httptest.ResponseRecorder {
	return send(router, path, key, testToken)
}

func send(router http.Handler, path, key, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotencyMiddleware_ReplaysResponse(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	router := newIdempotentRouter(t, client, &calls)

	first := post(router, "/v1/bookings/b1/cancel", "key-1")
	require.Equal(t, http.StatusOK, first.Code)

	second := post(router, "/v1/bookings/b1/cancel", "key-1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(replayHeader))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Same key on another booking is a different request.
	post(router, "/v1/bookings/b2/cancel", "key-1")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// No key, no deduplication.
	post(router, "/v1/bookings/b1/cancel", "")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_DoesNotCacheServerErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	router := newIdempotentRouter(t, client, &calls)

	post(router, "/v1/fail", "key-2")
	post(router, "/v1/fail", "key-2")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_RejectsConcurrentDuplicate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	router := newIdempotentRouter(t, client, &calls)

	require.NoError(t, mr.Set("idempotency:pass-1:POST:/v1/bookings/:id/cancel:b1:key-3:inflight", "1"))

	w := post(router, "/v1/bookings/b1/cancel", "key-3")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_AnonymousCallersAreNotReplayed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	router := newIdempotentRouter(t, client, &calls)

	first := send(router, "/v1/users", "shared-key", "")
	second := send(router, "/v1/users", "shared-key", "")
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Empty(t, second.Header().Get(replayHeader))
	assert.NotEqual(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Empty(t, mr.Keys())

	// An authenticated caller on the same route is still deduplicated.
	send(router, "/v1/users", "shared-key", testToken)
	replay := send(router, "/v1/users", "shared-key", testToken)
	assert.Equal(t, "true", replay.Header().Get(replayHeader))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_NilClient(t *testing.T) {
	var calls int32
	router := newIdempotentRouter(t, nil, &calls)

	post(router, "/v1/bookings/b1/cancel", "key-1")
	post(router, "/v1/bookings/b1/cancel", "key-1")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/health", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
