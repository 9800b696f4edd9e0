package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

// WebhookAuthRequired checks the static bearer secret shared with the
// voice-agent platform. An unconfigured secret fails closed.
func WebhookAuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || secret == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// TokensEqual is a constant-time string compare for access tokens.
func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
