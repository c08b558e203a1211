package middleware

import (
	"crypto/subtle" // Constant-time comparison
	"net/http"      // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// APIKeyHeader carries the static service credential
const APIKeyHeader = "api-key"

// APIKeyMiddleware admits only requests presenting the service credential.
// An empty configured key admits nobody.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(APIKeyHeader) // Get the credential header
		// Reject missing, unconfigured or mismatching keys
		if provided == "" || apiKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "Unauthorized: Invalid API key", "status_code": http.StatusUnauthorized})
			return
		}
		c.Next() // Credential matches, proceed
	}
}
