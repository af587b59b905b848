package service

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyAuth accepts the service key via the apikey query parameter, the
// X-API-KEY header, or an Authorization bearer token. An empty expected key
// disables the check for local development.
func APIKeyAuth(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}
		if presentedKey(c) != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func presentedKey(c *gin.Context) string {
	if key := c.Query("apikey"); key != "" {
		return key
	}
	if key := c.GetHeader("X-API-KEY"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return token
	}
	return ""
}
