// internal/domain/loyalty/service.go
package loyalty

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
)

// Service manages loyalty enrollment and point movements.
type Service struct {
	ds     Datastore
	logger *logrus.Logger
}

// NewService creates a new loyalty service.
func NewService(ds Datastore, logger *logrus.Logger) *Service {
	return &Service{ds: ds, logger: logger}
}

// EnrollRequest opens a loyalty account for a customer.
type EnrollRequest struct {
	CustomerID uuid.UUID `json:"customer_id" binding:"required"`
}

// PointsRequest earns or redeems points against an account.
type PointsRequest struct {
	CustomerID         uuid.UUID  `json:"customer_id" binding:"required"`
	Points             int        `json:"points" binding:"required,gt=0"`
	Reason             string     `json:"reason,omitempty"`
	SalesTransactionID *uuid.UUID `json:"sales_transaction_id,omitempty"`
}

// Enroll creates an account with a fresh card number. A customer can hold at
// most one account.
func (s *Service) Enroll(ctx context.Context, req *EnrollRequest) (*Account, error) {
	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	existing, err := tx.LoyaltyAccounts().GetByCustomer(ctx, req.CustomerID)
	if err == nil && existing != nil {
		return nil, apperrors.Validationf("customer %s is already enrolled", req.CustomerID)
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	account := &Account{
		ID:              uuid.New(),
		CustomerID:      req.CustomerID,
		CardNumber:      generateCardNumber(),
		Tier:            TierBronze,
		TierDiscountPct: decimal.Zero,
		IsActive:        true,
		JoinedAt:        now,
		LastActivityAt:  now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.LoyaltyAccounts().Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create loyalty account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"customer_id": req.CustomerID,
		"card_number": account.CardNumber,
	}).Info("Customer enrolled in loyalty program")
	return account, nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return tx.LoyaltyAccounts().Get(ctx, id)
}

// GetByCustomer returns a customer's account.
func (s *Service) GetByCustomer(ctx context.Context, customerID uuid.UUID) (*Account, error) {
	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return tx.LoyaltyAccounts().GetByCustomer(ctx, customerID)
}

// History lists the point ledger for an account.
func (s *Service) History(ctx context.Context, accountID uuid.UUID) ([]Entry, error) {
	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return tx.LoyaltyAccounts().ListEntries(ctx, accountID)
}

// Earn credits points in its own unit of work.
func (s *Service) Earn(ctx context.Context, req *PointsRequest) (*Account, error) {
	return s.inOwnUnit(ctx, func(tx Tx) (*Account, error) {
		return s.EarnTx(ctx, tx, req)
	})
}

// EarnTx credits points inside an open unit of work. Lifetime totals and the
// tier follow the balance.
func (s *Service) EarnTx(ctx context.Context, tx Tx, req *PointsRequest) (*Account, error) {
	if req.Points <= 0 {
		return nil, apperrors.Validationf("points to earn must be positive, got %d", req.Points)
	}
	account, err := s.activeAccount(ctx, tx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account.PointsBalance += req.Points
	account.TotalEarned += req.Points
	s.maybeUpgrade(account, now)
	account.LastActivityAt = now
	account.UpdatedAt = now

	if err := tx.LoyaltyAccounts().Save(ctx, account, account.Version); err != nil {
		return nil, err
	}
	if err := tx.LoyaltyAccounts().AppendEntry(ctx, s.newEntry(account, req.Points, EntryTypeEarned, req)); err != nil {
		return nil, fmt.Errorf("failed to append loyalty entry: %w", err)
	}
	return account, nil
}

// Redeem debits points in its own unit of work.
func (s *Service) Redeem(ctx context.Context, req *PointsRequest) (*Account, error) {
	return s.inOwnUnit(ctx, func(tx Tx) (*Account, error) {
		return s.RedeemTx(ctx, tx, req)
	})
}

// RedeemTx debits points inside an open unit of work. Fails closed when the
// balance cannot cover the request.
func (s *Service) RedeemTx(ctx context.Context, tx Tx, req *PointsRequest) (*Account, error) {
	if req.Points <= 0 {
		return nil, apperrors.Validationf("points to redeem must be positive, got %d", req.Points)
	}
	account, err := s.activeAccount(ctx, tx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if account.PointsBalance < req.Points {
		return nil, &apperrors.InsufficientPointsError{
			AccountID: account.ID,
			Balance:   account.PointsBalance,
			Requested: req.Points,
		}
	}

	now := time.Now().UTC()
	account.PointsBalance -= req.Points
	account.TotalRedeemed += req.Points
	account.LastActivityAt = now
	account.UpdatedAt = now

	if err := tx.LoyaltyAccounts().Save(ctx, account, account.Version); err != nil {
		return nil, err
	}
	if err := tx.LoyaltyAccounts().AppendEntry(ctx, s.newEntry(account, -req.Points, EntryTypeRedeemed, req)); err != nil {
		return nil, fmt.Errorf("failed to append loyalty entry: %w", err)
	}
	return account, nil
}

// ReverseTx takes back points earned by a sale that was later returned. The
// balance floors at zero when the points were already spent.
func (s *Service) ReverseTx(ctx context.Context, tx Tx, req *PointsRequest) (*Account, error) {
	if req.Points <= 0 {
		return nil, apperrors.Validationf("points to reverse must be positive, got %d", req.Points)
	}
	account, err := s.activeAccount(ctx, tx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	reversed := req.Points
	if reversed > account.PointsBalance {
		reversed = account.PointsBalance
	}

	now := time.Now().UTC()
	account.PointsBalance -= reversed
	account.TotalEarned -= req.Points
	if account.TotalEarned < 0 {
		account.TotalEarned = 0
	}
	account.LastActivityAt = now
	account.UpdatedAt = now

	if err := tx.LoyaltyAccounts().Save(ctx, account, account.Version); err != nil {
		return nil, err
	}
	if err := tx.LoyaltyAccounts().AppendEntry(ctx, s.newEntry(account, -reversed, EntryTypeReversed, req)); err != nil {
		return nil, fmt.Errorf("failed to append loyalty entry: %w", err)
	}
	return account, nil
}

// CalculatePoints converts a sale total into earned points: one point per
// currency unit, reduced by the tier discount already granted, never negative.
func CalculatePoints(total decimal.Decimal, tierDiscountPct decimal.Decimal) int {
	factor := decimal.NewFromInt(1).Sub(tierDiscountPct.Div(decimal.NewFromInt(100)))
	points := int(total.Mul(factor).IntPart())
	if points < 0 {
		return 0
	}
	return points
}

func (s *Service) activeAccount(ctx context.Context, tx Tx, customerID uuid.UUID) (*Account, error) {
	account, err := tx.LoyaltyAccounts().GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, apperrors.Validationf("loyalty account %s is inactive", account.ID)
	}
	return account, nil
}

func (s *Service) maybeUpgrade(account *Account, now time.Time) {
	tier, discount := tierFor(account.TotalEarned)
	if tier != account.Tier {
		account.Tier = tier
		account.TierDiscountPct = discount
		account.LastUpgradeAt = &now
		s.logger.WithFields(logrus.Fields{
			"account_id": account.ID,
			"tier":       tier,
		}).Info("Loyalty tier upgraded")
	}
}

func (s *Service) newEntry(account *Account, points int, typ EntryType, req *PointsRequest) *Entry {
	return &Entry{
		ID:                 uuid.New(),
		AccountID:          account.ID,
		Points:             points,
		Type:               typ,
		Reason:             req.Reason,
		SalesTransactionID: req.SalesTransactionID,
		CreatedAt:          time.Now().UTC(),
	}
}

func (s *Service) inOwnUnit(ctx context.Context, op func(tx Tx) (*Account, error)) (*Account, error) {
	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	account, err := op(tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return account, nil
}

func generateCardNumber() string {
	return fmt.Sprintf("LOY%s%04d", time.Now().UTC().Format("20060102150405"), rand.Intn(10000))
}
