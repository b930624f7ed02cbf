// internal/interfaces/http/handlers/loyalty.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/retail-pos-backend/internal/domain/customer"
	"github.com/your-org/retail-pos-backend/internal/domain/loyalty"
)

// LoyaltyHandler handles loyalty account endpoints
type LoyaltyHandler struct {
	service   *loyalty.Service
	customers customer.Store
	logger    *logrus.Logger
}

// NewLoyaltyHandler creates a new loyalty handler
func NewLoyaltyHandler(service *loyalty.Service, customers customer.Store, logger *logrus.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{
		service:   service,
		customers: customers,
		logger:    logger,
	}
}

// Enroll creates a loyalty account for a customer
func (h *LoyaltyHandler) Enroll(c *gin.Context) {
	var req loyalty.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if _, err := h.customers.Get(c.Request.Context(), req.CustomerID); err != nil {
		respondError(c, err)
		return
	}

	account, err := h.service.Enroll(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Customer enrolled successfully",
		"data":    account,
	})
}

// GetAccount returns one loyalty account by ID
func (h *LoyaltyHandler) GetAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid account ID",
		})
		return
	}

	account, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": account,
	})
}

// GetAccountByCustomer returns the loyalty account of a customer
func (h *LoyaltyHandler) GetAccountByCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid customer ID",
		})
		return
	}

	account, err := h.service.GetByCustomer(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": account,
	})
}

// GetHistory returns the points ledger for an account
func (h *LoyaltyHandler) GetHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid account ID",
		})
		return
	}

	entries, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": entries,
	})
}

// EarnPoints credits points outside a sale, for promotions and corrections
func (h *LoyaltyHandler) EarnPoints(c *gin.Context) {
	var req loyalty.PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	account, err := h.service.Earn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Points credited successfully",
		"data":    account,
	})
}

// RedeemPoints debits points from an account balance
func (h *LoyaltyHandler) RedeemPoints(c *gin.Context) {
	var req loyalty.PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	account, err := h.service.Redeem(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Points redeemed successfully",
		"data":    account,
	})
}

// CreateCustomer registers a walk-in customer
func (h *LoyaltyHandler) CreateCustomer(c *gin.Context) {
	var cust customer.Customer
	if err := c.ShouldBindJSON(&cust); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.customers.Create(c.Request.Context(), &cust); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Customer created successfully",
		"data":    cust,
	})
}

// GetCustomer returns one customer by ID, or by phone via query parameter
func (h *LoyaltyHandler) GetCustomer(c *gin.Context) {
	if phone := c.Query("phone"); phone != "" {
		cust, err := h.customers.GetByPhone(c.Request.Context(), phone)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"data": cust,
		})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid customer ID",
		})
		return
	}

	cust, err := h.customers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": cust,
	})
}
