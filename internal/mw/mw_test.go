package mw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestCache_ServesHitsUntilFlushed(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	calls := 0

	r := gin.New()
	r.GET("/availability", rc.Cache(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.POST("/allot", rc.FlushOnSuccess(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	r.POST("/fail", rc.FlushOnSuccess(), func(c *gin.Context) {
		c.JSON(http.StatusConflict, gin.H{"success": false})
	})

	first := do(r, http.MethodGet, "/availability")
	second := do(r, http.MethodGet, "/availability")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	do(r, http.MethodPost, "/fail")
	do(r, http.MethodGet, "/availability")
	assert.Equal(t, 1, calls, "failed mutations keep the cache")

	do(r, http.MethodPost, "/allot")
	third := do(r, http.MethodGet, "/availability")
	assert.Equal(t, 2, calls)
	assert.Empty(t, third.Header().Get("X-Cache"))
}

func TestCache_SkipsErrors(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	r := gin.New()
	r.GET("/broken", rc.Cache(), func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	do(r, http.MethodGet, "/broken")
	assert.Zero(t, rc.Len())
}

func TestCache_DisabledWithZeroTTL(t *testing.T) {
	rc := NewResponseCache(0)
	calls := 0
	r := gin.New()
	r.GET("/availability", rc.Cache(), func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})

	do(r, http.MethodGet, "/availability")
	do(r, http.MethodGet, "/availability")
	assert.Equal(t, 2, calls)
	assert.Zero(t, rc.Len())
}

func TestCache_ReadInFlightDuringFlushIsNotServed(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	r := gin.New()
	r.GET("/availability", rc.Cache(), func(c *gin.Context) {
		n := calls.Add(1)
		if n == 1 {
			close(entered)
			<-release
		}
		c.JSON(http.StatusOK, gin.H{"calls": n})
	})
	r.POST("/allot", rc.FlushOnSuccess(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		do(r, http.MethodGet, "/availability")
	}()

	<-entered
	do(r, http.MethodPost, "/allot")
	close(release)
	<-done

	w := do(r, http.MethodGet, "/availability")
	assert.Empty(t, w.Header().Get("X-Cache"), "pre-mutation response must not be served")
	assert.JSONEq(t, `{"calls":2}`, w.Body.String())
	assert.EqualValues(t, 2, calls.Load())
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/").Code)

	w := do(r, http.MethodGet, "/")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.True(t, strings.Contains(w.Body.String(), `"success":false`))
}

func TestIPRateLimiter_PerIP(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute)
	assert.Same(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.1"))
	assert.NotSame(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.2"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(zap.NewNop()))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := do(r, http.MethodGet, "/")
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	w = httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 100))
	r.ServeHTTP(w, req)
	assert.Len(t, w.Body.String(), 36)
}
