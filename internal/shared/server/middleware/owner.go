package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-hub/internal/shared/server/respond"
)

const ownerIDKey = "ownerId"

// Owner resolves the owner ID for the request. Authentication proper lives
// upstream; this trusts the X-Owner-Id header the gateway injects.
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := strings.TrimSpace(c.GetHeader("X-Owner-Id"))
		if ownerID == "" {
			respond.Error(c, http.StatusUnauthorized, "owner_required", "X-Owner-Id header is required", nil)
			return
		}
		c.Set(ownerIDKey, ownerID)
		c.Next()
	}
}

// OwnerIDFromContext fetches the owner ID stored by Owner middleware.
func OwnerIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(ownerIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
