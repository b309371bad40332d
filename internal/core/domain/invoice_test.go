package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
	"github.com/akschools/fee_ledger_app/internal/core/domain"
)

func items(amounts ...int64) []domain.InvoiceItem {
	result := make([]domain.InvoiceItem, len(amounts))
	for i, amount := range amounts {
		result[i] = domain.InvoiceItem{
			ItemID:      "item",
			Description: "Fee",
			Amount:      decimal.NewFromInt(amount),
			Quantity:    1,
			Position:    i,
		}
	}
	return result
}

func TestInvoiceRecalculate(t *testing.T) {
	t.Run("derives subtotal, total and status", func(t *testing.T) {
		inv := domain.Invoice{
			Items:    items(500, 1500),
			Discount: decimal.NewFromInt(200),
		}

		require.NoError(t, inv.Recalculate())

		assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(2000)))
		assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(1800)))
		assert.True(t, inv.PendingAmount.Equal(decimal.NewFromInt(1800)))
		assert.Equal(t, domain.StatusPending, inv.Status)
	})

	t.Run("quantity multiplies the line amount", func(t *testing.T) {
		inv := domain.Invoice{
			Items: []domain.InvoiceItem{
				{Description: "Monthly Fee", Amount: decimal.NewFromInt(1500), Quantity: 3},
			},
		}

		require.NoError(t, inv.Recalculate())

		assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(4500)))
	})

	t.Run("discount exceeding subtotal is rejected", func(t *testing.T) {
		inv := domain.Invoice{
			Items:    items(500),
			Discount: decimal.NewFromInt(600),
		}

		assert.ErrorIs(t, inv.Recalculate(), apperrors.ErrValidation)
	})

	t.Run("negative discount is rejected", func(t *testing.T) {
		inv := domain.Invoice{
			Items:    items(500),
			Discount: decimal.NewFromInt(-1),
		}

		assert.ErrorIs(t, inv.Recalculate(), apperrors.ErrValidation)
	})
}

func TestInvoiceApplyPayment(t *testing.T) {
	paymentDate := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	t.Run("partial payment", func(t *testing.T) {
		inv := domain.Invoice{TotalAmount: decimal.NewFromInt(2000)}

		require.NoError(t, inv.ApplyPayment(decimal.NewFromInt(800), paymentDate))

		assert.True(t, inv.PaidAmount.Equal(decimal.NewFromInt(800)))
		assert.True(t, inv.PendingAmount.Equal(decimal.NewFromInt(1200)))
		assert.Equal(t, domain.StatusPartial, inv.Status)
		require.NotNil(t, inv.PaymentDate)
		assert.True(t, inv.PaymentDate.Equal(paymentDate))
	})

	t.Run("overpayment settles and keeps negative pending", func(t *testing.T) {
		inv := domain.Invoice{TotalAmount: decimal.NewFromInt(2000)}

		require.NoError(t, inv.ApplyPayment(decimal.NewFromInt(2500), paymentDate))

		assert.Equal(t, domain.StatusPaid, inv.Status)
		assert.True(t, inv.PendingAmount.Equal(decimal.NewFromInt(-500)))
	})

	t.Run("last payment date wins", func(t *testing.T) {
		inv := domain.Invoice{TotalAmount: decimal.NewFromInt(2000)}
		later := paymentDate.Add(48 * time.Hour)

		require.NoError(t, inv.ApplyPayment(decimal.NewFromInt(500), paymentDate))
		require.NoError(t, inv.ApplyPayment(decimal.NewFromInt(1500), later))

		assert.True(t, inv.PaymentDate.Equal(later))
		assert.Equal(t, domain.StatusPaid, inv.Status)
	})

	t.Run("non-positive amount is rejected", func(t *testing.T) {
		inv := domain.Invoice{TotalAmount: decimal.NewFromInt(2000)}

		assert.ErrorIs(t, inv.ApplyPayment(decimal.Zero, paymentDate), apperrors.ErrInvalidAmount)
		assert.ErrorIs(t, inv.ApplyPayment(decimal.NewFromInt(-5), paymentDate), apperrors.ErrInvalidAmount)
	})
}

func TestValidateItems(t *testing.T) {
	t.Run("valid items pass", func(t *testing.T) {
		assert.NoError(t, domain.ValidateItems(items(500, 1500)))
	})

	t.Run("empty list is rejected", func(t *testing.T) {
		assert.ErrorIs(t, domain.ValidateItems(nil), apperrors.ErrValidation)
	})

	t.Run("missing description is rejected", func(t *testing.T) {
		bad := []domain.InvoiceItem{{Amount: decimal.NewFromInt(100), Quantity: 1}}
		assert.ErrorIs(t, domain.ValidateItems(bad), apperrors.ErrValidation)
	})

	t.Run("negative amount is rejected", func(t *testing.T) {
		bad := []domain.InvoiceItem{{Description: "Fee", Amount: decimal.NewFromInt(-100), Quantity: 1}}
		assert.ErrorIs(t, domain.ValidateItems(bad), apperrors.ErrValidation)
	})

	t.Run("zero quantity is rejected", func(t *testing.T) {
		bad := []domain.InvoiceItem{{Description: "Fee", Amount: decimal.NewFromInt(100)}}
		assert.ErrorIs(t, domain.ValidateItems(bad), apperrors.ErrValidation)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name  string
		paid  int64
		total int64
		want  domain.InvoiceStatus
	}{
		{"nothing paid", 0, 1000, domain.StatusPending},
		{"partially paid", 400, 1000, domain.StatusPartial},
		{"fully paid", 1000, 1000, domain.StatusPaid},
		{"overpaid", 1200, 1000, domain.StatusPaid},
		{"zero total", 0, 0, domain.StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.StatusFor(decimal.NewFromInt(tt.paid), decimal.NewFromInt(tt.total))
			assert.Equal(t, tt.want, got)
		})
	}
}
