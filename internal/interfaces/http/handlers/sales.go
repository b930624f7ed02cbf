// internal/interfaces/http/handlers/sales.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/retail-pos-backend/internal/config"
	"github.com/your-org/retail-pos-backend/internal/domain/product"
	"github.com/your-org/retail-pos-backend/internal/domain/sales"
	"github.com/your-org/retail-pos-backend/internal/interfaces/http/middleware"
	"github.com/your-org/retail-pos-backend/internal/pkg/pdf"
)

// SalesHandler handles sale, return, exchange and receipt endpoints
type SalesHandler struct {
	pipeline *sales.Pipeline
	products product.Store
	receipts *pdf.Service
	config   *config.Config
	logger   *logrus.Logger
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(pipeline *sales.Pipeline, products product.Store,
	cfg *config.Config, logger *logrus.Logger) *SalesHandler {
	return &SalesHandler{
		pipeline: pipeline,
		products: products,
		receipts: pdf.NewService(cfg),
		config:   cfg,
		logger:   logger,
	}
}

// ProcessSale creates and completes a sale transaction
func (h *SalesHandler) ProcessSale(c *gin.Context) {
	var req sales.ProcessSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.ActorID, _ = middleware.GetUserIDFromContext(c)
	if req.BranchID == uuid.Nil {
		req.BranchID, _ = middleware.GetBranchIDFromContext(c)
	}

	transaction, err := h.pipeline.ProcessSale(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Sale completed successfully",
		"data":    transaction,
	})
}

// ProcessReturn refunds items from a completed sale
func (h *SalesHandler) ProcessReturn(c *gin.Context) {
	var req sales.ProcessReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.ActorID, _ = middleware.GetUserIDFromContext(c)

	transaction, err := h.pipeline.ProcessReturn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Return processed successfully",
		"data":    transaction,
	})
}

// ProcessExchange returns items and sells replacements in one flow
func (h *SalesHandler) ProcessExchange(c *gin.Context) {
	var req sales.ProcessExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.ActorID, _ = middleware.GetUserIDFromContext(c)

	result, err := h.pipeline.ProcessExchange(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Exchange processed successfully",
		"data":    result,
	})
}

// CancelTransaction cancels a transaction still in pending state
func (h *SalesHandler) CancelTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid transaction ID",
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

	transaction, err := h.pipeline.CancelTransaction(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction cancelled successfully",
		"data":    transaction,
	})
}

// GetTransaction returns one transaction with items and payments
func (h *SalesHandler) GetTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid transaction ID",
		})
		return
	}

	transaction, err := h.pipeline.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": transaction,
	})
}

// GetTransactionByNumber looks a transaction up by its printed number
func (h *SalesHandler) GetTransactionByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Transaction number is required",
		})
		return
	}

	transaction, err := h.pipeline.GetTransactionByNumber(c.Request.Context(), number)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": transaction,
	})
}

// ListTransactions returns a paged, filtered transaction list
func (h *SalesHandler) ListTransactions(c *gin.Context) {
	var req sales.ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.pipeline.ListTransactions(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": response,
	})
}

// GetReceipt renders a transaction as a PDF receipt
func (h *SalesHandler) GetReceipt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid transaction ID",
		})
		return
	}

	transaction, err := h.pipeline.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	lines := make([]pdf.ReceiptLine, 0, len(transaction.Items))
	for _, item := range transaction.Items {
		lines = append(lines, pdf.ReceiptLine{
			Description: h.describeItem(c, &item),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Total:       item.TotalPrice.StringFixed(2),
		})
	}

	buf, err := h.receipts.GenerateReceipt(transaction, lines)
	if err != nil {
		h.logger.WithError(err).WithField("transaction_id", id).Error("Failed to render receipt")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to render receipt",
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", pdf.FileName(transaction)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// describeItem resolves a printable product name, falling back to the SKU
// or the raw product ID when lookups fail.
func (h *SalesHandler) describeItem(c *gin.Context, item *sales.TransactionItem) string {
	p, err := h.products.Get(c.Request.Context(), item.ProductID)
	if err != nil {
		return item.ProductID.String()
	}
	name := p.Name
	if name == "" {
		name = p.SKU
	}
	if item.ProductVariationID != nil {
		if v, err := h.products.GetVariation(c.Request.Context(), *item.ProductVariationID); err == nil {
			if v.Size != "" {
				name += " " + v.Size
			}
			if v.Color != "" {
				name += " " + v.Color
			}
		}
	}
	return name
}
