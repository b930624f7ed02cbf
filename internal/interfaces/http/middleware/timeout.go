// internal/interfaces/http/middleware/timeout.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// receiptBudgetFactor widens the deadline for receipt routes. Rendering
// shells out to wkhtmltopdf, which routinely outlives the normal request
// budget on a loaded store server.
const receiptBudgetFactor = 4

// Timeout bounds request handling so a stuck till cannot pin a worker.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		budget := timeout
		if strings.HasSuffix(c.Request.URL.Path, "/receipt") {
			budget = timeout * receiptBudgetFactor
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), budget)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.Next()
		}()

		select {
		case <-done:
		case <-ctx.Done():
			c.JSON(http.StatusRequestTimeout, gin.H{
				"error": "Request timeout",
			})
			c.Abort()
		}
	}
}
