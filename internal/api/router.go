package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hostel-allotment-backend/config"
	"hostel-allotment-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Logger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Reads are cached until the TTL passes or a mutation succeeds.
	responses := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	caching := responses.Cache()
	flush := responses.FlushOnSuccess()

	g := r.Group("/allotment")
	g.Use(rateLimiter)
	{
		g.POST("/allot-rooms", flush, h.AllotRooms)
		g.GET("/availability", caching, h.GetAvailability)
		g.GET("/allotted-students", caching, h.GetAllottedStudents)
		g.GET("/allotted-students/export", h.ExportAllottedStudents)
		g.GET("/hostels", h.GetHostels)
		g.GET("/runs/last", h.GetLastRun)
		g.POST("/withdraw/:studentId", flush, h.Withdraw)
		g.POST("/reconcile", flush, h.Reconcile)

		g.PUT("/subscriptions", h.PutSubscription)
		g.DELETE("/subscriptions", h.DeleteSubscription)
		g.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
