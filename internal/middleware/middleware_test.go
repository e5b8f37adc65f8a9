package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizbank-backend/internal/model"
	"github.com/stemsi/quizbank-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTokens map[string]*service.Claims

func (f fakeTokens) ValidateToken(tokenStr string) (*service.Claims, error) {
	if c, ok := f[tokenStr]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

type fakeSessions map[int]string

func (f fakeSessions) ValidateSession(_ context.Context, userID int, jti string) error {
	if f[userID] != jti {
		return service.ErrSessionInvalidated
	}
	return nil
}

var (
	learner = &service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-learner"},
		UserID:           2,
		Permissions:      []string{string(model.PermissionAttemptsTake)},
	}
	admin = &service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-admin"},
		UserID:           1,
		IsAdmin:          true,
		Permissions:      []string{string(model.PermissionQuestionsUpload)},
	}
	tokens   = fakeTokens{"learner": learner, "admin": admin}
	sessions = fakeSessions{1: "jti-admin", 2: "jti-learner"}
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/x", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequireJWT(t *testing.T) {
	r := newRouter(RequireJWT(tokens))

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "forged").Code)
	assert.Equal(t, http.StatusOK, do(r, "learner").Code)
}

func TestRequireJWT_QueryToken(t *testing.T) {
	r := newRouter(RequireJWT(tokens))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?token=learner", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter(RequireJWT(tokens), RequireAdmin())

	assert.Equal(t, http.StatusForbidden, do(r, "learner").Code)
	assert.Equal(t, http.StatusOK, do(r, "admin").Code)
}

func TestRequirePermission(t *testing.T) {
	r := newRouter(RequireJWT(tokens), RequirePermission(model.PermissionQuestionsUpload))

	w := do(r, "learner")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "PERMISSION_DENIED")
	assert.Equal(t, http.StatusOK, do(r, "admin").Code)
}

func TestCheckSingleDeviceSession(t *testing.T) {
	r := newRouter(RequireJWT(tokens), CheckSingleDeviceSession(sessions))
	assert.Equal(t, http.StatusOK, do(r, "learner").Code)

	stale := fakeSessions{2: "newer-login"}
	r = newRouter(RequireJWT(tokens), CheckSingleDeviceSession(stale))
	w := do(r, "learner")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_INVALIDATED")
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "buckets are per key")

	now = now.Add(90 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()
	r := newRouter(rl.Middleware())

	assert.Equal(t, http.StatusOK, do(r, "").Code)
	w := do(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestBrotli(t *testing.T) {
	body := strings.Repeat("quiz ", 500)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, body) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "tiny") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/big", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	r.ServeHTTP(w, req)

	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(w.Body))
	require.NoError(t, err)
	assert.Equal(t, body, string(plain))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "tiny", w.Body.String())
}

func TestNoStore(t *testing.T) {
	w := do(newRouter(NoStore()), "")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
