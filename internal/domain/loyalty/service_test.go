// internal/domain/loyalty/service_test.go
package loyalty_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/retail-pos-backend/internal/domain/loyalty"
	"github.com/your-org/retail-pos-backend/internal/infrastructure/repository/memory"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newService(t *testing.T) (*loyalty.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return loyalty.NewService(store.Loyalty(), testLogger()), store
}

func TestEnrollCreatesBronzeAccount(t *testing.T) {
	service, _ := newService(t)
	customerID := uuid.New()

	account, err := service.Enroll(context.Background(), &loyalty.EnrollRequest{CustomerID: customerID})
	require.NoError(t, err)

	assert.Equal(t, customerID, account.CustomerID)
	assert.Equal(t, loyalty.TierBronze, account.Tier)
	assert.Equal(t, 0, account.PointsBalance)
	assert.True(t, account.IsActive)
	assert.True(t, strings.HasPrefix(account.CardNumber, "LOY"))
}

func TestEnrollTwiceRejected(t *testing.T) {
	service, _ := newService(t)
	customerID := uuid.New()
	ctx := context.Background()

	_, err := service.Enroll(ctx, &loyalty.EnrollRequest{CustomerID: customerID})
	require.NoError(t, err)

	_, err = service.Enroll(ctx, &loyalty.EnrollRequest{CustomerID: customerID})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestEarnUpgradesTier(t *testing.T) {
	service, _ := newService(t)
	customerID := uuid.New()
	ctx := context.Background()

	_, err := service.Enroll(ctx, &loyalty.EnrollRequest{CustomerID: customerID})
	require.NoError(t, err)

	account, err := service.Earn(ctx, &loyalty.PointsRequest{
		CustomerID: customerID, Points: 1200, Reason: "promotion",
	})
	require.NoError(t, err)

	assert.Equal(t, 1200, account.PointsBalance)
	assert.Equal(t, 1200, account.TotalEarned)
	assert.Equal(t, loyalty.TierSilver, account.Tier)
	assert.True(t, account.TierDiscountPct.Equal(decimal.NewFromInt(5)))
	assert.NotNil(t, account.LastUpgradeAt)

	account, err = service.Earn(ctx, &loyalty.PointsRequest{
		CustomerID: customerID, Points: 9000, Reason: "promotion",
	})
	require.NoError(t, err)
	assert.Equal(t, loyalty.TierPlatinum, account.Tier)
	assert.True(t, account.TierDiscountPct.Equal(decimal.NewFromInt(15)))
}

func TestRedeemDebitsBalance(t *testing.T) {
	service, _ := newService(t)
	customerID := uuid.New()
	ctx := context.Background()

	_, err := service.Enroll(ctx, &loyalty.EnrollRequest{CustomerID: customerID})
	require.NoError(t, err)
	_, err = service.Earn(ctx, &loyalty.PointsRequest{CustomerID: customerID, Points: 500})
	require.NoError(t, err)

	account, err := service.Redeem(ctx, &loyalty.PointsRequest{
		CustomerID: customerID, Points: 200, Reason: "discount",
	})
	require.NoError(t, err)

	assert.Equal(t, 300, account.PointsBalance)
	assert.Equal(t, 200, account.TotalRedeemed)
	assert.Equal(t, 500, account.TotalEarned)
}

func TestRedeemInsufficientPointsFailsClosed(t *testing.T) {
	service, _ := newService(t)
	customerID := uuid.New()
	ctx := context.Background()

	_, err := service.Enroll(ctx, &loyalty.EnrollRequest{CustomerID: customerID})
	require.NoError(t, err)
	_, err = service.Earn(ctx, &loyalty.PointsRequest{CustomerID: customerID, Points: 100})
	require.NoError(t, err)

	_, err = service.Redeem(ctx, &loyalty.PointsRequest{CustomerID: customerID, Points: 101})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPoints)

	var shortage *apperrors.InsufficientPointsError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, 100, shortage.Balance)
	assert.Equal(t, 101, shortage.Requested)

	// the failed redemption must not have moved the balance
	account, err := service.GetByCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, 100, account.PointsBalance)
}

func TestConcurrentRedemptionsCannotBothSpend(t *testing.T) {
	service, store := newService(t)
	customerID := uuid.New()
	ctx := context.Background()

	_, err := service.Enroll(ctx, &loyalty.EnrollRequest{CustomerID: customerID})
	require.NoError(t, err)
	_, err = service.Earn(ctx, &loyalty.PointsRequest{CustomerID: customerID, Points: 100, Reason: "Signup promotion"})
	require.NoError(t, err)

	// Two tills read the same balance before either commits. The first
	// write wins; the second unit is stale and conflicts at commit.
	tx1, err := store.Begin(ctx)
	require.NoError(t, err)
	tx2, err := store.Begin(ctx)
	require.NoError(t, err)

	first, err := tx1.LoyaltyAccounts().GetByCustomer(ctx, customerID)
	require.NoError(t, err)
	second, err := tx2.LoyaltyAccounts().GetByCustomer(ctx, customerID)
	require.NoError(t, err)

	first.PointsBalance -= 100
	require.NoError(t, tx1.LoyaltyAccounts().Save(ctx, first, first.Version))
	require.NoError(t, tx1.Commit())

	second.PointsBalance -= 100
	require.NoError(t, tx2.LoyaltyAccounts().Save(ctx, second, second.Version))
	assert.ErrorIs(t, tx2.Commit(), apperrors.ErrConcurrencyConflict)

	account, err := service.GetByCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, 0, account.PointsBalance)
}

func TestRedeemWithoutAccountRejected(t *testing.T) {
	service, _ := newService(t)

	_, err := service.Redeem(context.Background(), &loyalty.PointsRequest{
		CustomerID: uuid.New(), Points: 10,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHistoryRecordsEveryMovement(t *testing.T) {
	service, _ := newService(t)
	customerID := uuid.New()
	ctx := context.Background()

	account, err := service.Enroll(ctx, &loyalty.EnrollRequest{CustomerID: customerID})
	require.NoError(t, err)
	_, err = service.Earn(ctx, &loyalty.PointsRequest{CustomerID: customerID, Points: 300})
	require.NoError(t, err)
	_, err = service.Redeem(ctx, &loyalty.PointsRequest{CustomerID: customerID, Points: 100})
	require.NoError(t, err)

	entries, err := service.History(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	types := []loyalty.EntryType{entries[0].Type, entries[1].Type}
	assert.Contains(t, types, loyalty.EntryTypeEarned)
	assert.Contains(t, types, loyalty.EntryTypeRedeemed)
}

func TestCalculatePoints(t *testing.T) {
	// one point per currency unit, reduced by the tier discount
	assert.Equal(t, 100, loyalty.CalculatePoints(decimal.NewFromInt(100), decimal.Zero))
	assert.Equal(t, 95, loyalty.CalculatePoints(decimal.NewFromInt(100), decimal.NewFromInt(5)))
	assert.Equal(t, 85, loyalty.CalculatePoints(decimal.NewFromInt(100), decimal.NewFromInt(15)))
	assert.Equal(t, 0, loyalty.CalculatePoints(decimal.Zero, decimal.Zero))
	assert.Equal(t, 0, loyalty.CalculatePoints(decimal.NewFromInt(-20), decimal.Zero))
}
