// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/retail-pos-backend/internal/config"
	"github.com/your-org/retail-pos-backend/internal/domain/user"
	"github.com/your-org/retail-pos-backend/internal/interfaces/http/middleware"
	"github.com/your-org/retail-pos-backend/internal/pkg/auth"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	users      user.Store
	passwords  *auth.PasswordManager
	jwtManager *auth.JWTManager
	config     *config.Config
	logger     *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users user.Store, cfg *config.Config, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		passwords:  auth.NewPasswordManager(cfg),
		jwtManager: auth.NewJWTManager(cfg),
		config:     cfg,
		logger:     logger,
	}
}

// LoginRequest carries staff credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries a fresh token pair and the authenticated user
type LoginResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int64      `json:"expires_in"`
	User         *user.User `json:"user"`
}

// Login authenticates a staff member and issues a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	u, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid email or password",
		})
		return
	}
	if !u.IsActive {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Account is deactivated",
		})
		return
	}
	if err := h.passwords.VerifyPassword(req.Password, u.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid email or password",
		})
		return
	}

	branchID := uuid.Nil
	if u.BranchID != nil {
		branchID = *u.BranchID
	}
	accessToken, err := h.jwtManager.GenerateAccessToken(u.ID, u.Email, u.Role, branchID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}
	refreshToken, err := h.jwtManager.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate refresh token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	now := time.Now()
	u.LastLoginAt = &now
	if err := h.users.Update(c.Request.Context(), u); err != nil {
		h.logger.WithError(err).WithField("user_id", u.ID).Warn("Failed to record login time")
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"data": LoginResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    int64(h.config.JWT.AccessTokenExpiry.Seconds()),
			User:         u,
		},
	})
}

// RefreshToken exchanges a valid refresh token for a new token pair
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	claims, err := h.jwtManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid refresh token",
		})
		return
	}

	u, err := h.users.Get(c.Request.Context(), claims.UserID)
	if err != nil || !u.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Account is no longer valid",
		})
		return
	}

	branchID := uuid.Nil
	if u.BranchID != nil {
		branchID = *u.BranchID
	}
	accessToken, err := h.jwtManager.GenerateAccessToken(u.ID, u.Email, u.Role, branchID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}
	refreshToken, err := h.jwtManager.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate refresh token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Token refreshed successfully",
		"data": LoginResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    int64(h.config.JWT.AccessTokenExpiry.Seconds()),
			User:         u,
		},
	})
}

// GetProfile returns the authenticated staff member
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	u, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": u,
	})
}
