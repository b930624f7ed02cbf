// internal/interfaces/http/middleware/security.go
package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders hardens every API response. The API serves JSON and PDF
// receipts to POS frontends only, so the policy can be strict: nothing is
// embeddable and nothing is cacheable. Transactions and customer lookups
// carry personal data that a shared register must not keep around.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Cache-Control", "no-store")
		c.Header("Server", "retail-pos")

		c.Next()
	}
}
