package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
)

// InvoiceStatus is the derived payment state of an invoice.
type InvoiceStatus string

const (
	StatusPending InvoiceStatus = "pending"
	StatusPartial InvoiceStatus = "partial"
	StatusPaid    InvoiceStatus = "paid"
)

// InvoiceSource records how an invoice came to exist.
type InvoiceSource string

const (
	SourceAdmission InvoiceSource = "admission" // auto-created when a student is admitted
	SourceManual    InvoiceSource = "manual"    // created by staff from the fee entry screen
)

// InvoiceItem is a single billable line on an invoice.
type InvoiceItem struct {
	ItemID      string          `json:"itemID"`
	InvoiceID   string          `json:"invoiceID"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int             `json:"quantity"`
	Position    int             `json:"position"` // preserves the order items were entered in
}

// LineTotal returns amount * quantity.
func (i InvoiceItem) LineTotal() decimal.Decimal {
	return i.Amount.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Invoice is a billable record of owed/paid amounts for a student.
// Subtotal, TotalAmount, PendingAmount and Status are derived; Recalculate
// must be called after any change to items, discount or paid amount.
type Invoice struct {
	InvoiceID     string          `json:"invoiceID"` // Primary key (UUID)
	InvoiceNo     string          `json:"invoiceNo"` // Human-readable, e.g. INV-2026-000042
	StudentID     string          `json:"studentID"`
	Items         []InvoiceItem   `json:"items,omitempty"`
	Discount      decimal.Decimal `json:"discount"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
	Status        InvoiceStatus   `json:"status"`
	InvoiceDate   time.Time       `json:"invoiceDate"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	PaymentDate   *time.Time      `json:"paymentDate,omitempty"` // most recent payment wins
	CollectedBy   string          `json:"collectedBy"`
	Source        InvoiceSource   `json:"source"`
	IsActive      bool            `json:"isActive"` // the invoice mirrored by the student's fee aggregate
	Payments      []Payment       `json:"payments,omitempty"`
	Version       int64           `json:"version"`
	AuditFields
}

// CalculateSubtotal sums amount * quantity over the given items.
func CalculateSubtotal(items []InvoiceItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

// StatusFor derives the invoice status from its amounts.
func StatusFor(paidAmount, totalAmount decimal.Decimal) InvoiceStatus {
	switch {
	case totalAmount.Sub(paidAmount).LessThanOrEqual(decimal.Zero):
		return StatusPaid
	case paidAmount.GreaterThan(decimal.Zero):
		return StatusPartial
	default:
		return StatusPending
	}
}

// ValidateItems checks line items for negative amounts and non-positive quantities.
func ValidateItems(items []InvoiceItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: invoice must have at least one line item", apperrors.ErrValidation)
	}
	for _, item := range items {
		if item.Description == "" {
			return fmt.Errorf("%w: line item description is required", apperrors.ErrValidation)
		}
		if item.Amount.IsNegative() {
			return fmt.Errorf("%w: line item %q amount must not be negative", apperrors.ErrValidation, item.Description)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: line item %q quantity must be at least 1", apperrors.ErrValidation, item.Description)
		}
	}
	return nil
}

// Recalculate refreshes all derived fields from items, discount and paid amount.
// Returns ErrValidation when the discount exceeds the subtotal (totalAmount
// must stay non-negative).
func (inv *Invoice) Recalculate() error {
	if inv.Discount.IsNegative() {
		return fmt.Errorf("%w: discount must not be negative", apperrors.ErrValidation)
	}
	inv.Subtotal = CalculateSubtotal(inv.Items)
	if inv.Discount.GreaterThan(inv.Subtotal) {
		return fmt.Errorf("%w: discount %s exceeds subtotal %s", apperrors.ErrValidation, inv.Discount, inv.Subtotal)
	}
	inv.TotalAmount = inv.Subtotal.Sub(inv.Discount)
	inv.PendingAmount = inv.TotalAmount.Sub(inv.PaidAmount)
	inv.Status = StatusFor(inv.PaidAmount, inv.TotalAmount)
	return nil
}

// ApplyPayment records the effect of a payment on the invoice's derived
// fields. The payment row itself is appended by the repository.
func (inv *Invoice) ApplyPayment(amount decimal.Decimal, paymentDate time.Time) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: amount must be positive, got %s", apperrors.ErrInvalidAmount, amount)
	}
	inv.PaidAmount = inv.PaidAmount.Add(amount)
	inv.PendingAmount = inv.TotalAmount.Sub(inv.PaidAmount)
	inv.Status = StatusFor(inv.PaidAmount, inv.TotalAmount)
	// Last transaction date wins, regardless of whether it settles the invoice.
	d := paymentDate
	inv.PaymentDate = &d
	return nil
}
