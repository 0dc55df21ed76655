package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cabdispatch/internal/domain"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver("test-secret", "cabdispatch", time.Hour)
	require.NoError(t, err)
	return r
}

func TestResolver_RoundTrip(t *testing.T) {
	r := newTestResolver(t)

	token, err := r.Issue("user-1", domain.RolePassenger, domain.RoleDriver)
	require.NoError(t, err)

	actor, err := r.ResolveActor(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.ID)
	assert.Equal(t, []domain.Role{domain.RolePassenger, domain.RoleDriver}, actor.Roles)
}

func TestResolver_RejectsUnknownRole(t *testing.T) {
	r := newTestResolver(t)

	claims := Claims{
		Roles:            []string{"PASSENGER", "ROOT"},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: "cabdispatch"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = r.ResolveActor(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolver_RejectsBadTokens(t *testing.T) {
	r := newTestResolver(t)

	other, err := NewResolver("other-secret", "cabdispatch", time.Hour)
	require.NoError(t, err)
	wrongKey, err := other.Issue("user-1", domain.RoleAdmin)
	require.NoError(t, err)

	expired, err := (&Resolver{secret: []byte("test-secret"), issuer: "cabdispatch", ttl: -time.Minute}).Issue("user-1", domain.RoleAdmin)
	require.NoError(t, err)

	noRoles, err := r.Issue("user-1")
	require.NoError(t, err)

	noSubject, err := r.Issue("", domain.RoleAdmin)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":    "not-a-jwt",
		"wrong key":  wrongKey,
		"expired":    expired,
		"no roles":   noRoles,
		"no subject": noSubject,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := r.ResolveActor(token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestNewResolver_RequiresSecret(t *testing.T) {
	_, err := NewResolver("", "", 0)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newTestResolver(t)

	router := gin.New()
	router.Use(Middleware(r))
	router.GET("/whoami", func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, actor.ID)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := r.Issue("admin-1", domain.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", w.Body.String())
}

func TestOptionalMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newTestResolver(t)

	router := gin.New()
	router.Use(OptionalMiddleware(r))
	router.GET("/whoami", func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, actor.ID)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := r.Issue("pass-1", domain.RolePassenger)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "pass-1", w.Body.String())
}
