// internal/interfaces/http/handlers/respond.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
)

// respondError translates a service error into an HTTP status. Business
// rejections keep their message; everything else becomes an opaque 500.
func respondError(c *gin.Context, err error) {
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, apperrors.ErrInsufficientStock),
		errors.Is(err, apperrors.ErrInsufficientPoints):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
	case apperrors.IsRetryable(err):
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"retryable": true,
		})
	case apperrors.IsClientError(err):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

// respondBindError reports a malformed request body or query string
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}
