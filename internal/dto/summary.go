package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
)

// FeeTotals is the headline summary block for a student.
type FeeTotals struct {
	TotalFeeAmount     decimal.Decimal `json:"totalFeeAmount"`
	TotalPaidAmount    decimal.Decimal `json:"totalPaidAmount"`
	TotalPendingAmount decimal.Decimal `json:"totalPendingAmount"`
	// PaymentPercentage is round(100 * paid / total), 0 when total is zero.
	PaymentPercentage int64 `json:"paymentPercentage"`
}

// PaymentConfirmation aggregates payment facts across all of a student's
// invoices, most recent first.
type PaymentConfirmation struct {
	TotalPaidOverall decimal.Decimal `json:"totalPaidOverall"`
	TotalDueOverall  decimal.Decimal `json:"totalDueOverall"`
	PaymentCount     int             `json:"paymentCount"`
	LastPaymentDate  *time.Time      `json:"lastPaymentDate,omitempty"`
}

// PaymentStatusCounts counts invoices by classifier outcome.
type PaymentStatusCounts struct {
	PaidOnTime    int `json:"paidOnTime"`
	Overdue       int `json:"overdue"`
	Pending       int `json:"pending"`
	TotalInvoices int `json:"totalInvoices"`
}

// InvoiceProjection is a per-invoice view row with classifier flags.
type InvoiceProjection struct {
	InvoiceResponse
	Timeliness   domain.Timeliness `json:"timeliness"`
	IsOverdue    bool              `json:"isOverdue"`
	IsPaidOnTime bool              `json:"isPaidOnTime"`
}

// FeeSummaryResponse is the read-side aggregation consumed by student-facing
// and staff-facing fee screens.
type FeeSummaryResponse struct {
	StudentID           string              `json:"studentID"`
	Summary             FeeTotals           `json:"summary"`
	Confirmation        PaymentConfirmation `json:"confirmation"`
	PaymentStatus       PaymentStatusCounts `json:"paymentStatus"`
	Invoices            []InvoiceProjection `json:"invoices"`
	AggregateConsistent bool                `json:"aggregateConsistent"`
	Overpaid            bool                `json:"overpaid,omitempty"`
}

// PaymentPercentage computes round(100 * paid / total), guarding the
// zero-total boundary.
func PaymentPercentage(paid, total decimal.Decimal) int64 {
	if total.IsZero() {
		return 0
	}
	return paid.Mul(decimal.NewFromInt(100)).Div(total).Round(0).IntPart()
}
