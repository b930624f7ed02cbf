// internal/domain/sales/service.go
package sales

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/domain/loyalty"
	"github.com/your-org/retail-pos-backend/internal/domain/product"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
)

// Pipeline processes sales, returns, exchanges, and cancellations. Stock
// moves only through the inventory ledger so every sale leaves an audit
// trail.
type Pipeline struct {
	ds              Datastore
	ledger          *inventory.Ledger
	loyalty         *loyalty.Service
	logger          *logrus.Logger
	defaultTaxRate  decimal.Decimal
	conflictRetries int
}

// NewPipeline creates a new sales pipeline.
func NewPipeline(ds Datastore, ledger *inventory.Ledger, loyaltySvc *loyalty.Service,
	logger *logrus.Logger, defaultTaxRate decimal.Decimal, conflictRetries int) *Pipeline {
	if conflictRetries < 1 {
		conflictRetries = 1
	}
	return &Pipeline{
		ds:              ds,
		ledger:          ledger,
		loyalty:         loyaltySvc,
		logger:          logger,
		defaultTaxRate:  defaultTaxRate,
		conflictRetries: conflictRetries,
	}
}

// SaleItemRequest is one line of a sale.
type SaleItemRequest struct {
	ProductID          uuid.UUID       `json:"product_id" binding:"required"`
	ProductVariationID *uuid.UUID      `json:"product_variation_id,omitempty"`
	StockRecordID      uuid.UUID       `json:"stock_record_id" binding:"required"`
	Quantity           int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	Notes              string          `json:"notes,omitempty"`
}

// PaymentRequest is one tender offered for a sale.
type PaymentRequest struct {
	PaymentMethod   string          `json:"payment_method" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Currency        string          `json:"currency"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	CardLastFour    string          `json:"card_last_four,omitempty"`
	CardType        string          `json:"card_type,omitempty"`
	GiftCardNumber  string          `json:"gift_card_number,omitempty"`
}

// ProcessSaleRequest creates and completes a sale.
type ProcessSaleRequest struct {
	BranchID   uuid.UUID         `json:"branch_id" binding:"required"`
	CustomerID *uuid.UUID        `json:"customer_id,omitempty"`
	Items      []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	Payments   []PaymentRequest  `json:"payments" binding:"required,min=1,dive"`
	Notes      string            `json:"notes,omitempty"`
	ActorID    uuid.UUID         `json:"-"`
}

// ReturnItemRequest returns part or all of one original line.
type ReturnItemRequest struct {
	OriginalItemID uuid.UUID `json:"original_item_id" binding:"required"`
	Quantity       int       `json:"quantity" binding:"required,gt=0"`
	Reason         string    `json:"reason,omitempty"`
}

// ProcessReturnRequest refunds items from a completed sale.
type ProcessReturnRequest struct {
	OriginalTransactionNumber string              `json:"original_transaction_number" binding:"required"`
	Items                     []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
	RefundPayment             *PaymentRequest     `json:"refund_payment,omitempty"`
	Reason                    string              `json:"reason,omitempty"`
	ActorID                   uuid.UUID           `json:"-"`
}

// ProcessExchangeRequest returns items and sells replacements in one flow.
type ProcessExchangeRequest struct {
	OriginalTransactionNumber string              `json:"original_transaction_number" binding:"required"`
	ReturnItems               []ReturnItemRequest `json:"return_items" binding:"required,min=1,dive"`
	NewItems                  []SaleItemRequest   `json:"new_items" binding:"required,min=1,dive"`
	Payments                  []PaymentRequest    `json:"payments" binding:"required,min=1,dive"`
	Reason                    string              `json:"reason,omitempty"`
	ActorID                   uuid.UUID           `json:"-"`
}

// ExchangeResult carries both legs of a completed exchange.
type ExchangeResult struct {
	ReturnTransaction *Transaction `json:"return_transaction"`
	SaleTransaction   *Transaction `json:"sale_transaction"`
}

// ListTransactionsRequest is a paged, filtered transaction query.
type ListTransactionsRequest struct {
	BranchID   *uuid.UUID        `form:"branch_id"`
	CustomerID *uuid.UUID        `form:"customer_id"`
	Type       TransactionType   `form:"type"`
	Status     TransactionStatus `form:"status"`
	DateFrom   *time.Time        `form:"date_from" time_format:"2006-01-02"`
	DateTo     *time.Time        `form:"date_to" time_format:"2006-01-02"`
	Page       int               `form:"page"`
	Limit      int               `form:"limit"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// TransactionListResponse is a page of transactions.
type TransactionListResponse struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

const numberAttempts = 5

// ProcessSale runs a sale in two phases. Phase one validates and persists
// the PENDING transaction with its items and payments. Phase two deducts
// stock and credits loyalty points atomically and marks the transaction
// COMPLETED. If phase two fails the transaction is marked FAILED, never left
// PENDING, and no stock moves.
func (p *Pipeline) ProcessSale(ctx context.Context, req *ProcessSaleRequest) (*Transaction, error) {
	transaction, err := p.persistPendingSale(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := p.completeSale(ctx, transaction); err != nil {
		p.markFailed(ctx, transaction, err)
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"transaction_number": transaction.TransactionNumber,
		"total_amount":       transaction.TotalAmount,
		"items":              len(transaction.Items),
	}).Info("Sale processed")
	return transaction, nil
}

// persistPendingSale is phase one: the priced PENDING transaction is durable
// before any stock moves.
func (p *Pipeline) persistPendingSale(ctx context.Context, req *ProcessSaleRequest) (*Transaction, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.Validationf("sale requires at least one item")
	}
	if len(req.Payments) == 0 {
		return nil, apperrors.Validationf("sale requires at least one payment")
	}

	tx, err := p.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	var loyaltyAccount *loyalty.Account
	if req.CustomerID != nil {
		if _, err := tx.Customers().Get(ctx, *req.CustomerID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.Validationf("customer %s not found", *req.CustomerID)
			}
			return nil, err
		}
		loyaltyAccount, err = tx.LoyaltyAccounts().GetByCustomer(ctx, *req.CustomerID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	now := time.Now().UTC()
	transaction := &Transaction{
		ID:         uuid.New(),
		BranchID:   req.BranchID,
		CustomerID: req.CustomerID,
		UserID:     req.ActorID,
		Type:       TransactionTypeSale,
		Status:     StatusPending,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	subtotal := decimal.Zero
	taxTotal := decimal.Zero
	discountTotal := decimal.Zero
	items := make([]TransactionItem, 0, len(req.Items))
	for i := range req.Items {
		item, err := p.priceSaleItem(ctx, tx, &req.Items[i], transaction.ID)
		if err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(item.PriceAfterDiscount())
		taxTotal = taxTotal.Add(item.TaxAmount)
		discountTotal = discountTotal.Add(item.DiscountAmount)
		items = append(items, *item)
	}

	transaction.Subtotal = subtotal
	transaction.TaxAmount = taxTotal
	transaction.DiscountAmount = discountTotal
	transaction.TotalAmount = subtotal.Add(taxTotal)

	paid := decimal.Zero
	for _, payment := range req.Payments {
		paid = paid.Add(payment.Amount)
	}
	transaction.AmountPaid = paid
	// Underpayment is a till-level concern, not ours to reject. The shortfall
	// stays visible as AmountPaid < TotalAmount and change never goes negative.
	change := paid.Sub(transaction.TotalAmount)
	if change.IsNegative() {
		change = decimal.Zero
	}
	transaction.ChangeGiven = change

	if loyaltyAccount != nil && loyaltyAccount.IsActive {
		transaction.LoyaltyPointsEarned = loyalty.CalculatePoints(
			transaction.TotalAmount, loyaltyAccount.TierDiscountPct)
	}

	if err := p.createWithFreshNumber(ctx, tx, transaction); err != nil {
		return nil, err
	}
	for i := range items {
		if err := tx.Transactions().AddItem(ctx, &items[i]); err != nil {
			return nil, fmt.Errorf("failed to add transaction item: %w", err)
		}
	}
	for _, paymentReq := range req.Payments {
		payment := newPayment(transaction.ID, &paymentReq, paymentReq.Amount)
		if err := tx.Transactions().AddPayment(ctx, payment); err != nil {
			return nil, fmt.Errorf("failed to add transaction payment: %w", err)
		}
		transaction.Payments = append(transaction.Payments, *payment)
	}
	transaction.Items = items

	if err := p.commit(ctx, tx); err != nil {
		return nil, err
	}
	return transaction, nil
}

// completeSale is phase two, replayed on version conflicts up to the
// configured budget. A conflicted attempt rolled everything back, so the
// next one starts from clean committed state.
func (p *Pipeline) completeSale(ctx context.Context, transaction *Transaction) error {
	var lastErr error
	for attempt := 0; attempt < p.conflictRetries; attempt++ {
		err := p.completeSaleOnce(ctx, transaction)
		if err == nil {
			return nil
		}
		if errors.Is(err, apperrors.ErrConcurrencyConflict) {
			lastErr = err
			continue
		}
		return err
	}

	p.logger.WithField("transaction_number", transaction.TransactionNumber).
		Warn("Sale completion exhausted conflict retries")
	return lastErr
}

// completeSaleOnce runs all deductions and the loyalty credit in one unit of
// work, so a failure on the third item undoes the first two.
func (p *Pipeline) completeSaleOnce(ctx context.Context, transaction *Transaction) error {
	tx, err := p.ds.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	for i := range transaction.Items {
		item := &transaction.Items[i]
		_, err := p.ledger.DeductTx(ctx, tx, &inventory.DeductRequest{
			StockRecordID: item.StockRecordID,
			Quantity:      item.Quantity,
			Reference:     transaction.TransactionNumber,
			Reason:        fmt.Sprintf("Sale of %d units", item.Quantity),
			ActorID:       transaction.UserID,
		})
		if err != nil {
			return err
		}
	}

	if transaction.LoyaltyPointsEarned > 0 && transaction.CustomerID != nil {
		_, err := p.loyalty.EarnTx(ctx, tx, &loyalty.PointsRequest{
			CustomerID:         *transaction.CustomerID,
			Points:             transaction.LoyaltyPointsEarned,
			Reason:             fmt.Sprintf("Purchase %s", transaction.TransactionNumber),
			SalesTransactionID: &transaction.ID,
		})
		if err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	transaction.Status = StatusCompleted
	transaction.CompletedAt = &now
	transaction.UpdatedAt = now
	if err := tx.Transactions().Update(ctx, transaction); err != nil {
		return err
	}
	return p.commit(ctx, tx)
}

// markFailed records the failure in a fresh short unit so a broken sale is
// never left PENDING.
func (p *Pipeline) markFailed(ctx context.Context, transaction *Transaction, cause error) {
	tx, err := p.ds.Begin(ctx)
	if err != nil {
		p.logger.WithError(err).Error("Could not open unit of work to mark sale failed")
		return
	}
	defer tx.Rollback()

	transaction.Status = StatusFailed
	transaction.UpdatedAt = time.Now().UTC()
	if err := tx.Transactions().Update(ctx, transaction); err != nil {
		p.logger.WithError(err).WithField("transaction_number", transaction.TransactionNumber).
			Error("Could not mark sale failed")
		return
	}
	if err := tx.Commit(); err != nil {
		p.logger.WithError(err).WithField("transaction_number", transaction.TransactionNumber).
			Error("Could not commit failed sale status")
		return
	}

	p.logger.WithError(cause).WithField("transaction_number", transaction.TransactionNumber).
		Warn("Sale failed, stock deductions rolled back")
}

func (p *Pipeline) priceSaleItem(ctx context.Context, tx Tx, req *SaleItemRequest, transactionID uuid.UUID) (*TransactionItem, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Validationf("item quantity must be positive, got %d", req.Quantity)
	}
	if req.DiscountAmount.IsNegative() {
		return nil, apperrors.Validationf("item discount cannot be negative")
	}

	prod, err := tx.Products().Get(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Validationf("product %s not found", req.ProductID)
		}
		return nil, err
	}
	var variation *product.ProductVariation
	if req.ProductVariationID != nil {
		variation, err = tx.Products().GetVariation(ctx, *req.ProductVariationID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.Validationf("product variation %s not found", *req.ProductVariationID)
			}
			return nil, err
		}
	}

	record, err := tx.StockRecords().Get(ctx, req.StockRecordID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Validationf("stock record %s not found", req.StockRecordID)
		}
		return nil, err
	}
	if record.ProductID != req.ProductID {
		return nil, apperrors.Validationf("stock record %s does not hold product %s", record.ID, req.ProductID)
	}
	if !record.CanFulfill(req.Quantity) {
		return nil, &apperrors.InsufficientStockError{
			StockRecordID: record.ID,
			Available:     record.AvailableQuantity,
			Requested:     req.Quantity,
		}
	}

	unitPrice := req.UnitPrice
	if unitPrice.IsZero() {
		unitPrice = prod.SellingPrice(variation)
	}
	taxRate := req.TaxRate
	if taxRate.IsZero() {
		taxRate = p.defaultTaxRate
	}

	item := &TransactionItem{
		ID:                 uuid.New(),
		TransactionID:      transactionID,
		ProductID:          req.ProductID,
		ProductVariationID: req.ProductVariationID,
		StockRecordID:      req.StockRecordID,
		Quantity:           req.Quantity,
		UnitPrice:          unitPrice,
		DiscountAmount:     req.DiscountAmount,
		Notes:              req.Notes,
		CreatedAt:          time.Now().UTC(),
	}
	item.TaxAmount = item.PriceAfterDiscount().Mul(taxRate).Div(decimal.NewFromInt(100))
	item.TotalPrice = item.PriceAfterDiscount().Add(item.TaxAmount)
	return item, nil
}

// ProcessReturn refunds items from a completed sale. Monetary fields on the
// return transaction are negative. The whole return is one unit of work.
func (p *Pipeline) ProcessReturn(ctx context.Context, req *ProcessReturnRequest) (*Transaction, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.Validationf("return requires at least one item")
	}

	tx, err := p.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	original, err := tx.Transactions().GetByNumber(ctx, req.OriginalTransactionNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Validationf("original transaction %q not found", req.OriginalTransactionNumber)
		}
		return nil, err
	}
	if original.Status != StatusCompleted {
		return nil, apperrors.Validationf("cannot return transaction with status %s", original.Status)
	}
	if original.Type == TransactionTypeReturn {
		return nil, apperrors.Validationf("cannot return a return transaction")
	}

	now := time.Now().UTC()
	returnTx := &Transaction{
		ID:                    uuid.New(),
		BranchID:              original.BranchID,
		CustomerID:            original.CustomerID,
		UserID:                req.ActorID,
		Type:                  TransactionTypeReturn,
		Status:                StatusPending,
		OriginalTransactionID: &original.ID,
		Notes:                 req.Reason,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	refund := decimal.Zero
	taxRefund := decimal.Zero
	items := make([]TransactionItem, 0, len(req.Items))
	for _, itemReq := range req.Items {
		originalItem := findItem(original.Items, itemReq.OriginalItemID)
		if originalItem == nil {
			return nil, apperrors.Validationf("original item %s not found on transaction %s",
				itemReq.OriginalItemID, original.TransactionNumber)
		}
		if itemReq.Quantity > originalItem.Quantity {
			return nil, apperrors.Validationf("cannot return %d units, only %d were purchased",
				itemReq.Quantity, originalItem.Quantity)
		}

		qty := decimal.NewFromInt(int64(itemReq.Quantity))
		origQty := decimal.NewFromInt(int64(originalItem.Quantity))
		item := TransactionItem{
			ID:                 uuid.New(),
			TransactionID:      returnTx.ID,
			ProductID:          originalItem.ProductID,
			ProductVariationID: originalItem.ProductVariationID,
			StockRecordID:      originalItem.StockRecordID,
			Quantity:           itemReq.Quantity,
			UnitPrice:          originalItem.UnitPrice,
			DiscountAmount:     originalItem.DiscountAmount.Div(origQty).Mul(qty),
			TaxAmount:          originalItem.TaxAmount.Div(origQty).Mul(qty),
			Notes:              itemReq.Reason,
			CreatedAt:          now,
		}
		item.TotalPrice = item.LineSubtotal().Sub(item.DiscountAmount).Add(item.TaxAmount).Neg()
		refund = refund.Add(item.TotalPrice.Abs())
		taxRefund = taxRefund.Add(item.TaxAmount)
		items = append(items, item)
	}

	returnTx.Subtotal = refund.Neg().Sub(taxRefund.Neg())
	returnTx.TaxAmount = taxRefund.Neg()
	returnTx.TotalAmount = refund.Neg()
	returnTx.AmountPaid = refund.Neg()

	if err := p.createWithFreshNumber(ctx, tx, returnTx); err != nil {
		return nil, err
	}
	for i := range items {
		if err := tx.Transactions().AddItem(ctx, &items[i]); err != nil {
			return nil, fmt.Errorf("failed to add return item: %w", err)
		}
	}
	if req.RefundPayment != nil {
		payment := newPayment(returnTx.ID, req.RefundPayment, refund.Neg())
		if err := tx.Transactions().AddPayment(ctx, payment); err != nil {
			return nil, fmt.Errorf("failed to add refund payment: %w", err)
		}
		returnTx.Payments = append(returnTx.Payments, *payment)
	}
	returnTx.Items = items

	for i := range items {
		item := &items[i]
		_, err := p.ledger.RestoreTx(ctx, tx, &inventory.RestoreRequest{
			StockRecordID: item.StockRecordID,
			Quantity:      item.Quantity,
			Reference:     returnTx.TransactionNumber,
			Reason:        fmt.Sprintf("Return of %d units", item.Quantity),
			ActorID:       req.ActorID,
		})
		if err != nil {
			return nil, err
		}
	}

	if original.LoyaltyPointsEarned > 0 && original.CustomerID != nil {
		_, err := p.loyalty.ReverseTx(ctx, tx, &loyalty.PointsRequest{
			CustomerID:         *original.CustomerID,
			Points:             original.LoyaltyPointsEarned,
			Reason:             fmt.Sprintf("Return of transaction %s", original.TransactionNumber),
			SalesTransactionID: &returnTx.ID,
		})
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	returnTx.Status = StatusCompleted
	returnTx.CompletedAt = &now
	if err := tx.Transactions().Update(ctx, returnTx); err != nil {
		return nil, err
	}
	if err := p.commit(ctx, tx); err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"transaction_number": returnTx.TransactionNumber,
		"original":           original.TransactionNumber,
		"refund":             refund,
	}).Info("Return processed")
	return returnTx, nil
}

// ProcessExchange runs a return leg and then a sale leg linked to it. The
// return commits first; if the sale leg then fails the return stands and the
// caller retries the sale separately.
func (p *Pipeline) ProcessExchange(ctx context.Context, req *ProcessExchangeRequest) (*ExchangeResult, error) {
	returnTx, err := p.ProcessReturn(ctx, &ProcessReturnRequest{
		OriginalTransactionNumber: req.OriginalTransactionNumber,
		Items:                     req.ReturnItems,
		Reason:                    req.Reason,
		ActorID:                   req.ActorID,
	})
	if err != nil {
		return nil, err
	}

	notes := fmt.Sprintf("Exchange for transaction %s", req.OriginalTransactionNumber)
	if req.Reason != "" {
		notes += " - " + req.Reason
	}
	saleTx, err := p.ProcessSale(ctx, &ProcessSaleRequest{
		BranchID:   returnTx.BranchID,
		CustomerID: returnTx.CustomerID,
		Items:      req.NewItems,
		Payments:   req.Payments,
		Notes:      notes,
		ActorID:    req.ActorID,
	})
	if err != nil {
		p.logger.WithError(err).WithField("return_transaction", returnTx.TransactionNumber).
			Error("Exchange sale leg failed after committed return, needs manual reconciliation")
		return nil, fmt.Errorf("exchange sale leg failed, return %s stands: %w",
			returnTx.TransactionNumber, err)
	}

	if err := p.linkExchange(ctx, saleTx, returnTx.ID); err != nil {
		return nil, err
	}
	return &ExchangeResult{ReturnTransaction: returnTx, SaleTransaction: saleTx}, nil
}

func (p *Pipeline) linkExchange(ctx context.Context, saleTx *Transaction, returnID uuid.UUID) error {
	tx, err := p.ds.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	saleTx.OriginalTransactionID = &returnID
	saleTx.UpdatedAt = time.Now().UTC()
	if err := tx.Transactions().Update(ctx, saleTx); err != nil {
		return err
	}
	return tx.Commit()
}

// CancelTransaction cancels a PENDING transaction. Completed transactions
// must go through ProcessReturn instead.
func (p *Pipeline) CancelTransaction(ctx context.Context, id uuid.UUID, reason string) (*Transaction, error) {
	tx, err := p.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	transaction, err := tx.Transactions().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if transaction.Status != StatusPending {
		return nil, apperrors.Validationf("cannot cancel transaction with status %s, only pending transactions can be cancelled",
			transaction.Status)
	}

	transaction.Status = StatusCancelled
	transaction.Notes = reason
	transaction.UpdatedAt = time.Now().UTC()
	if err := tx.Transactions().Update(ctx, transaction); err != nil {
		return nil, err
	}
	if err := p.commit(ctx, tx); err != nil {
		return nil, err
	}

	p.logger.WithField("transaction_number", transaction.TransactionNumber).Info("Transaction cancelled")
	return transaction, nil
}

// GetTransaction retrieves a single transaction by ID.
func (p *Pipeline) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	tx, err := p.ds.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return tx.Transactions().Get(ctx, id)
}

// GetTransactionByNumber retrieves a single transaction by its number.
func (p *Pipeline) GetTransactionByNumber(ctx context.Context, number string) (*Transaction, error) {
	tx, err := p.ds.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return tx.Transactions().GetByNumber(ctx, number)
}

// ListTransactions retrieves a filtered page of transactions.
func (p *Pipeline) ListTransactions(ctx context.Context, req *ListTransactionsRequest) (*TransactionListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	tx, err := p.ds.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	transactions, total, err := tx.Transactions().List(ctx, ListFilter{
		BranchID:   req.BranchID,
		CustomerID: req.CustomerID,
		Type:       req.Type,
		Status:     req.Status,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		Page:       req.Page,
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve transactions: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &TransactionListResponse{
		Transactions: transactions,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// createWithFreshNumber regenerates the transaction number on a collision.
func (p *Pipeline) createWithFreshNumber(ctx context.Context, tx Tx, transaction *Transaction) error {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		transaction.TransactionNumber = generateTransactionNumber()
		err := tx.Transactions().Create(ctx, transaction)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrDuplicateTransactionNumber) {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
	}
	return fmt.Errorf("failed to allocate a unique transaction number: %w",
		apperrors.ErrDuplicateTransactionNumber)
}

func (p *Pipeline) commit(ctx context.Context, tx Tx) error {
	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func newPayment(transactionID uuid.UUID, req *PaymentRequest, amount decimal.Decimal) *TransactionPayment {
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	return &TransactionPayment{
		ID:              uuid.New(),
		TransactionID:   transactionID,
		PaymentMethod:   req.PaymentMethod,
		Amount:          amount,
		Currency:        currency,
		ReferenceNumber: req.ReferenceNumber,
		CardLastFour:    req.CardLastFour,
		CardType:        req.CardType,
		GiftCardNumber:  req.GiftCardNumber,
		IsApproved:      true,
		ProcessedAt:     time.Now().UTC(),
	}
}

func findItem(items []TransactionItem, id uuid.UUID) *TransactionItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

func generateTransactionNumber() string {
	return fmt.Sprintf("TXN%s%04d", time.Now().UTC().Format("20060102150405"), 1000+rand.Intn(9000))
}
