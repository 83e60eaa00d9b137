package mw

import (
	"bytes"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

// recordingWriter tees the response body so it can be cached once the handler returns.
type recordingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache holds successful GET responses until they expire or a
// mutation succeeds. Entries are keyed by generation: a read that began
// before a flush stores under the old generation and is never served.
type ResponseCache struct {
	items *cache.Cache
	ttl   time.Duration
	gen   atomic.Uint64
}

// NewResponseCache returns a cache whose entries live for ttl. A ttl of zero
// or less disables caching.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	cleanup := 2 * ttl
	if ttl <= 0 {
		cleanup = 0
	}
	return &ResponseCache{items: cache.New(ttl, cleanup), ttl: ttl}
}

func (rc *ResponseCache) key(gen uint64, uri string) string {
	return strconv.FormatUint(gen, 10) + "|" + uri
}

// Len reports the number of stored responses, including expired ones not yet evicted.
func (rc *ResponseCache) Len() int {
	return rc.items.ItemCount()
}

// Cache serves GET requests from the cache. Hits carry an X-Cache: HIT header.
func (rc *ResponseCache) Cache() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rc.ttl <= 0 || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := rc.key(rc.gen.Load(), c.Request.RequestURI)
		if v, found := rc.items.Get(key); found {
			hit := v.(cachedResponse)
			h := c.Writer.Header()
			for name, values := range hit.headers {
				h[name] = values
			}
			h.Set("X-Cache", "HIT")
			c.Writer.WriteHeader(hit.status)
			_, _ = c.Writer.Write(hit.body)
			c.Abort()
			return
		}

		rw := &recordingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rw
		c.Next()

		if s := rw.Status(); s >= 200 && s < 300 {
			rc.items.Set(key, cachedResponse{
				status:  s,
				headers: rw.Header().Clone(),
				body:    append([]byte(nil), rw.body.Bytes()...),
			}, rc.ttl)
		}
	}
}

// FlushOnSuccess invalidates every cached response after a mutation
// succeeds, so the next read sees the new allotments.
func (rc *ResponseCache) FlushOnSuccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if s := c.Writer.Status(); s >= 200 && s < 300 {
			rc.gen.Add(1)
			rc.items.Flush()
		}
	}
}
