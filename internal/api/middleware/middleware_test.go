package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/session", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"pending_operation": false}) })
	return r
}

type request struct {
	method string
	origin string
	ip     string
}

func (rq request) send(r http.Handler) *httptest.ResponseRecorder {
	method := rq.method
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, "/session", nil)
	if rq.origin != "" {
		req.Header.Set("Origin", rq.origin)
		if method == http.MethodOptions {
			req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		}
	}
	if rq.ip != "" {
		req.RemoteAddr = rq.ip + ":40000"
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSAnyOrigin(t *testing.T) {
	r := newRouter(CORS(DefaultCORSConfig()))

	tests := []struct {
		name       string
		rq         request
		wantStatus int
		wantOrigin bool
	}{
		{name: "browser GET", rq: request{origin: "http://localhost:5173"}, wantStatus: http.StatusOK, wantOrigin: true},
		{name: "preflight", rq: request{method: http.MethodOptions, origin: "http://localhost:5173"}, wantStatus: http.StatusNoContent, wantOrigin: true},
		{name: "same origin", rq: request{}, wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.rq.send(r)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantOrigin {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestCORSExplicitOrigins(t *testing.T) {
	cfg := DefaultCORSConfig().WithOrigins("https://studio.example.com")
	require.False(t, cfg.AllowsAny())
	r := newRouter(CORS(cfg))

	w := request{origin: "https://studio.example.com"}.send(r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://studio.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = request{origin: "https://elsewhere.example.com"}.send(r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.True(t, cfg.AllowsAny())
	assert.Subset(t, cfg.AllowMethods, []string{"GET", "POST", "PUT", "OPTIONS"})
	assert.NotContains(t, cfg.AllowMethods, "DELETE")
	assert.Contains(t, cfg.AllowHeaders, RequestIDHeader)
	assert.Contains(t, cfg.ExposeHeaders, "X-Trace-ID")
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)

	assert.True(t, cfg.WithOrigins().AllowsAny(), "no origins keeps the wildcard")
}

func TestRateLimitPerClient(t *testing.T) {
	r := newRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))

	codes := func(ip string, n int) []int {
		var out []int
		for i := 0; i < n; i++ {
			out = append(out, request{ip: ip}.send(r).Code)
		}
		return out
	}

	assert.Equal(t, []int{200, 200, 429}, codes("10.0.0.1", 3))
	assert.Equal(t, []int{200}, codes("10.0.0.2", 1), "another client has its own bucket")

	w := request{ip: "10.0.0.1"}.send(r)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
}

func TestGlobalRateLimit(t *testing.T) {
	r := newRouter(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))

	assert.Equal(t, http.StatusOK, request{ip: "10.0.0.1"}.send(r).Code)
	assert.Equal(t, http.StatusOK, request{ip: "10.0.0.2"}.send(r).Code)
	assert.Equal(t, http.StatusTooManyRequests, request{ip: "10.0.0.3"}.send(r).Code)
}

func TestBucketsForgetIdleClients(t *testing.T) {
	b := newBuckets(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Now()

	assert.True(t, b.allow("a", now))
	assert.False(t, b.allow("a", now))
	assert.True(t, b.allow("b", now.Add(30*time.Second)))

	// Sweeping at +2m drops both idle clients; a starts with a fresh bucket.
	assert.True(t, b.allow("a", now.Add(2*time.Minute)))
	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Len(t, b.byKey, 1)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	assert.Equal(t, RateLimitConfig{RequestsPerSecond: 20, Burst: 40, IdleTTL: 10 * time.Minute}, cfg)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/session", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	w := request{}.send(r)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(&logging.Logger{Logger: zap.New(core)}))
	for path, status := range map[string]int{"/ok": 200, "/bad": 400, "/boom": 502} {
		status := status
		r.GET(path, func(c *gin.Context) { c.Status(status) })
	}

	for _, path := range []string{"/ok", "/bad", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
	assert.Equal(t, "http", entries[0].LoggerName)
}

func BenchmarkRateLimit(b *testing.B) {
	r := newRouter(RateLimit(DefaultRateLimitConfig()))
	rq := request{ip: "10.0.0.1"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rq.send(r)
	}
}
