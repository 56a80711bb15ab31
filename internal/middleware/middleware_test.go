package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newProtectedRouter(tokens *token.Manager) *gin.Engine {
	r := gin.New()
	r.GET("/me", Auth(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c)})
	})
	r.GET("/admin", Auth(tokens), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Envelope {
	t.Helper()
	var env dto.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestAuth(t *testing.T) {
	tokens := token.NewManager("secret", time.Hour)
	r := newProtectedRouter(tokens)

	t.Run("missing token", func(t *testing.T) {
		w := do(r, http.MethodGet, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		env := decode(t, w)
		assert.False(t, env.Success)
		assert.Equal(t, "unauthorized", env.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := do(r, http.MethodGet, "/me", "not-a-jwt")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "forbidden", decode(t, w).Code)
	})

	t.Run("foreign secret", func(t *testing.T) {
		other := token.NewManager("other", time.Hour)
		raw, err := other.Issue(&model.User{ID: 1, Username: "alice", Role: model.RoleUser})
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/me", raw).Code)
	})

	t.Run("valid token", func(t *testing.T) {
		raw, err := tokens.Issue(&model.User{ID: 12, Username: "alice", Role: model.RoleUser})
		require.NoError(t, err)
		w := do(r, http.MethodGet, "/me", raw)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":12}`, w.Body.String())
	})
}

func TestAdminOnly(t *testing.T) {
	tokens := token.NewManager("secret", time.Hour)
	r := newProtectedRouter(tokens)

	user, err := tokens.Issue(&model.User{ID: 1, Username: "alice", Role: model.RoleUser})
	require.NoError(t, err)
	admin, err := tokens.Issue(&model.User{ID: 2, Username: "root", Role: model.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/admin", user).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/admin", admin).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/admin", "").Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 2)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/login", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/login", "").Code)
	w := do(r, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decode(t, w).Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/login", "").Code)
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	now = now.Add(time.Hour)
	assert.True(t, rl.allow("10.0.0.2"))
	assert.Len(t, rl.ips, 1)
}

func TestRequestIDAndLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), RequestLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := do(r, http.MethodGet, "/ok", "")
	rid := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, rid)

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, rid, entries[0].ContextMap()["request_id"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "abc-123", entries[1].ContextMap()["request_id"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := do(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", decode(t, w).Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestCORS_AllowAll(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"*"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://client.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
