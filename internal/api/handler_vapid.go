package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetVAPIDPublicKey returns the VAPID public key browsers subscribe with.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "push notifications are not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "publicKey": h.webpush.VAPIDPublicKey})
}
