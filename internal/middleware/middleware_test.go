package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"monetization-ledger/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r *gin.Engine, method, ip string) int {
	req := httptest.NewRequest(method, "/ping", nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiterPerIP(t *testing.T) {
	r := newRouter(NewRateLimiter(0.001, 2).Middleware())

	assert.Equal(t, http.StatusOK, get(r, http.MethodGet, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, get(r, http.MethodGet, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, get(r, http.MethodGet, "10.0.0.1"))

	assert.Equal(t, http.StatusOK, get(r, http.MethodGet, "10.0.0.2"))
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(CORSMiddleware())
	r.OPTIONS("/ping", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	r := newRouter(LoggingMiddleware(logger.Discard()))
	assert.Equal(t, http.StatusOK, get(r, http.MethodGet, "10.0.0.3"))
}
