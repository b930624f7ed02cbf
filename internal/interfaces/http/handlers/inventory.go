// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/retail-pos-backend/internal/config"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/infrastructure/database/redis"
	"github.com/your-org/retail-pos-backend/internal/interfaces/http/middleware"
)

const stockCacheTTL = 30 * time.Second

// InventoryHandler handles stock record and transfer endpoints
type InventoryHandler struct {
	service   *inventory.Service
	ledger    *inventory.Ledger
	transfers *inventory.TransferCoordinator
	cache     *redis.Client
	config    *config.Config
	logger    *logrus.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(service *inventory.Service, ledger *inventory.Ledger,
	transfers *inventory.TransferCoordinator, cache *redis.Client,
	cfg *config.Config, logger *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{
		service:   service,
		ledger:    ledger,
		transfers: transfers,
		cache:     cache,
		config:    cfg,
		logger:    logger,
	}
}

// CreateStockRecord creates a stock record with an opening quantity
func (h *InventoryHandler) CreateStockRecord(c *gin.Context) {
	var req inventory.CreateStockRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.ActorID, _ = middleware.GetUserIDFromContext(c)

	record, err := h.service.CreateStockRecord(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Stock record created successfully",
		"data":    record,
	})
}

// GetStockRecord returns one stock record, served from cache when fresh
func (h *InventoryHandler) GetStockRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid stock record ID",
		})
		return
	}

	cacheKey := stockCacheKey(id)
	if h.cache != nil {
		var cached inventory.StockRecord
		if err := h.cache.GetJSON(c.Request.Context(), cacheKey, &cached); err == nil {
			c.JSON(http.StatusOK, gin.H{
				"data": cached,
			})
			return
		}
	}

	record, err := h.service.GetStockRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(c.Request.Context(), cacheKey, record, stockCacheTTL); err != nil {
			h.logger.WithError(err).Debug("Failed to cache stock record")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": record,
	})
}

// ListByBranch returns all stock records at a branch
func (h *InventoryHandler) ListByBranch(c *gin.Context) {
	branchID, err := uuid.Parse(c.Param("branchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid branch ID",
		})
		return
	}

	records, err := h.service.ListByBranch(c.Request.Context(), branchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": records,
	})
}

// ListByProduct returns stock levels for a product across locations
func (h *InventoryHandler) ListByProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	records, err := h.service.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": records,
	})
}

// ListLowStock returns records at or below the low stock threshold
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	branchID, err := uuid.Parse(c.Param("branchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid branch ID",
		})
		return
	}

	threshold := h.config.Inventory.LowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid threshold",
			})
			return
		}
		threshold = parsed
	}

	records, err := h.service.ListLowStock(c.Request.Context(), branchID, threshold)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": records,
		"meta": gin.H{
			"threshold": threshold,
		},
	})
}

// GetHistory returns the transaction log for one stock record
func (h *InventoryHandler) GetHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid stock record ID",
		})
		return
	}

	entries, err := h.ledger.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": entries,
	})
}

// Reserve places a hold on available stock
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req inventory.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.ActorID, _ = middleware.GetUserIDFromContext(c)

	entry, err := h.ledger.Reserve(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidateStock(c, req.StockRecordID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock reserved successfully",
		"data":    entry,
	})
}

// Release returns held stock to the available pool
func (h *InventoryHandler) Release(c *gin.Context) {
	var req inventory.ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.ActorID, _ = middleware.GetUserIDFromContext(c)

	entry, err := h.ledger.Release(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidateStock(c, req.StockRecordID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Reservation released successfully",
		"data":    entry,
	})
}

// Deduct removes stock, optionally consuming a reservation
func (h *InventoryHandler) Deduct(c *gin.Context) {
	var req inventory.DeductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.ActorID, _ = middleware.GetUserIDFromContext(c)

	entry, err := h.ledger.Deduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidateStock(c, req.StockRecordID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock deducted successfully",
		"data":    entry,
	})
}

// Restore puts stock back after a return or compensation
func (h *InventoryHandler) Restore(c *gin.Context) {
	var req inventory.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.ActorID, _ = middleware.GetUserIDFromContext(c)

	entry, err := h.ledger.Restore(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidateStock(c, req.StockRecordID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock restored successfully",
		"data":    entry,
	})
}

// SetQuantity adjusts on-hand quantity to an absolute count
func (h *InventoryHandler) SetQuantity(c *gin.Context) {
	var req inventory.SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.ActorID, _ = middleware.GetUserIDFromContext(c)

	entry, err := h.ledger.SetQuantity(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidateStock(c, req.StockRecordID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock quantity adjusted successfully",
		"data":    entry,
	})
}

// Transfer moves stock between locations
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req inventory.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.ActorID, _ = middleware.GetUserIDFromContext(c)

	result, err := h.transfers.Transfer(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidateStock(c, result.FromStockRecordID)
	h.invalidateStock(c, result.ToStockRecordID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock transferred successfully",
		"data":    result,
	})
}

// BulkTransfer moves stock for many requests, reporting per-item outcomes
func (h *InventoryHandler) BulkTransfer(c *gin.Context) {
	var req struct {
		Transfers []inventory.TransferRequest `json:"transfers" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	actorID, _ := middleware.GetUserIDFromContext(c)
	for i := range req.Transfers {
		req.Transfers[i].ActorID = actorID
	}

	result, err := h.transfers.BulkTransfer(c.Request.Context(), req.Transfers)
	if err != nil {
		respondError(c, err)
		return
	}
	for _, item := range result.Items {
		if item.Result != nil {
			h.invalidateStock(c, item.Result.FromStockRecordID)
			h.invalidateStock(c, item.Result.ToStockRecordID)
		}
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"message": "Bulk transfer processed",
		"data":    result,
	})
}

// DeleteStockRecord soft deletes an empty stock record
func (h *InventoryHandler) DeleteStockRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid stock record ID",
		})
		return
	}

	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		respondBindError(c, err)
		return
	}
	actorID, _ := middleware.GetUserIDFromContext(c)

	if err := h.service.DeleteStockRecord(c.Request.Context(), id, req.Reason, actorID); err != nil {
		respondError(c, err)
		return
	}
	h.invalidateStock(c, id)

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock record deleted successfully",
	})
}

func (h *InventoryHandler) invalidateStock(c *gin.Context, id uuid.UUID) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Del(c.Request.Context(), stockCacheKey(id)); err != nil {
		h.logger.WithError(err).Debug("Failed to invalidate stock cache")
	}
}

func stockCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("stock:record:%s", id)
}
