package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/notebookrag/internal/pkg/jwt"
	"github.com/xxxsen/notebookrag/internal/ratelimit"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		uid, _ := c.Get(ContextUserIDKey)
		c.String(http.StatusOK, "pong %v", uid)
	})
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	secret := []byte("s")
	r := newEngine(JWTAuth(secret))

	w := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Basic abc")
	require.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	require.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	token, err := jwt.GenerateToken("u1", secret, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "pong u1", w.Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(RateLimit(ratelimit.New(), 2, time.Minute))
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)
	}
	w := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	r := newEngine(RateLimit(ratelimit.New(), 1, 0))
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)
	}
}

func TestCORS(t *testing.T) {
	r := newEngine(CORS([]string{"https://app.example"}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example")
	w := do(r, req)
	require.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Retry-After", w.Header().Get("Access-Control-Expose-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = do(r, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	require.Equal(t, http.StatusNoContent, do(r, req).Code)

	w = do(newEngine(CORS(nil)), httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
