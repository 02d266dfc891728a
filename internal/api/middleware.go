package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// userIDKey is the context key the identity middleware sets for handlers.
const userIDKey = "userID"

// RequireUser extracts the authenticated user id placed in the X-User-ID
// header by the upstream auth gateway. Token verification happens there;
// this service only requires that an identity is present.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-User-ID")
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   kindAuth,
				"message": "missing user identity",
			})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}
