package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
)

// InvoiceItemRequest is one billable line on an invoice being created.
type InvoiceItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
}

// InitialPaymentRequest captures a payment collected at invoice creation time.
// Fee entry screens routinely create invoices already partially paid.
type InitialPaymentRequest struct {
	Amount decimal.Decimal      `json:"amount"`
	Method domain.PaymentMethod `json:"paymentMethod" binding:"required,oneof=cash card bank_transfer online cheque"`
	Date   *time.Time           `json:"paymentDate,omitempty"`
}

// CreateInvoiceRequest creates a manual invoice for a student.
type CreateInvoiceRequest struct {
	StudentID      string                 `json:"studentID" binding:"required"`
	Items          []InvoiceItemRequest   `json:"items" binding:"required,min=1,dive"`
	Discount       decimal.Decimal        `json:"discount"`
	InvoiceDate    *time.Time             `json:"invoiceDate,omitempty"`
	DueDate        *time.Time             `json:"dueDate,omitempty"`
	InitialPayment *InitialPaymentRequest `json:"initialPayment,omitempty"`
}

// RecordPaymentRequest applies a payment against an existing invoice.
type RecordPaymentRequest struct {
	Amount decimal.Decimal      `json:"amount"`
	Method domain.PaymentMethod `json:"paymentMethod" binding:"required,oneof=cash card bank_transfer online cheque"`
	Date   *time.Time           `json:"paymentDate,omitempty"`
}

// PaymentResponse is a recorded payment as exposed to views.
type PaymentResponse struct {
	PaymentID     string               `json:"paymentID"`
	InvoiceID     string               `json:"invoiceID"`
	Amount        decimal.Decimal      `json:"amount"`
	Method        domain.PaymentMethod `json:"paymentMethod"`
	PaymentDate   time.Time            `json:"paymentDate"`
	ReceiptNo     string               `json:"receiptNo"`
	TransactionNo string               `json:"transactionNo"`
	CollectedBy   string               `json:"collectedBy"`
}

// InvoiceResponse is an invoice with derived totals and its payment list.
type InvoiceResponse struct {
	InvoiceID     string               `json:"invoiceID"`
	InvoiceNo     string               `json:"invoiceNo"`
	StudentID     string               `json:"studentID"`
	Items         []domain.InvoiceItem `json:"items"`
	Discount      decimal.Decimal      `json:"discount"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	TotalAmount   decimal.Decimal      `json:"totalAmount"`
	PaidAmount    decimal.Decimal      `json:"paidAmount"`
	PendingAmount decimal.Decimal      `json:"pendingAmount"`
	Status        domain.InvoiceStatus `json:"status"`
	InvoiceDate   time.Time            `json:"invoiceDate"`
	DueDate       *time.Time           `json:"dueDate,omitempty"`
	PaymentDate   *time.Time           `json:"paymentDate,omitempty"`
	CollectedBy   string               `json:"collectedBy"`
	Source        domain.InvoiceSource `json:"source"`
	IsActive      bool                 `json:"isActive"`
	Payments      []PaymentResponse    `json:"payments"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// DeleteInvoiceResponse reports the outcome of a hard delete. Warning carries
// the inconsistency notice when the student's aggregate still mirrors the
// deleted invoice.
type DeleteInvoiceResponse struct {
	Deleted bool   `json:"deleted"`
	Warning string `json:"warning,omitempty"`
}

// ToPaymentResponses maps payments newest-first into API form. The input is
// assumed already sorted by the repository.
func ToPaymentResponses(payments []domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = PaymentResponse{
			PaymentID:     p.PaymentID,
			InvoiceID:     p.InvoiceID,
			Amount:        p.Amount,
			Method:        p.Method,
			PaymentDate:   p.PaymentDate,
			ReceiptNo:     p.ReceiptNo,
			TransactionNo: p.TransactionNo,
			CollectedBy:   p.CollectedBy,
		}
	}
	return out
}

// ToInvoiceResponse maps a domain invoice, recomputing the derived amounts so
// a stale stored pending amount is never served.
func ToInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	pending := inv.TotalAmount.Sub(inv.PaidAmount)
	return InvoiceResponse{
		InvoiceID:     inv.InvoiceID,
		InvoiceNo:     inv.InvoiceNo,
		StudentID:     inv.StudentID,
		Items:         inv.Items,
		Discount:      inv.Discount,
		Subtotal:      inv.Subtotal,
		TotalAmount:   inv.TotalAmount,
		PaidAmount:    inv.PaidAmount,
		PendingAmount: pending,
		Status:        domain.StatusFor(inv.PaidAmount, inv.TotalAmount),
		InvoiceDate:   inv.InvoiceDate,
		DueDate:       inv.DueDate,
		PaymentDate:   inv.PaymentDate,
		CollectedBy:   inv.CollectedBy,
		Source:        inv.Source,
		IsActive:      inv.IsActive,
		Payments:      ToPaymentResponses(inv.Payments),
		CreatedAt:     inv.CreatedAt,
	}
}
