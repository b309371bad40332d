package services

import (
	"context"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
	"github.com/akschools/fee_ledger_app/internal/dto"
)

// InvoiceSvcFacade exposes the invoice ledger: creation, payment recording,
// and the explicit destructive delete.
type InvoiceSvcFacade interface {
	// CreateInvoice creates a manual invoice, optionally already partially
	// paid, and refreshes the student's fee aggregate atomically.
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest, collectedBy string) (*domain.Invoice, error)

	// RecordPayment appends a payment to an invoice and recomputes its
	// derived state. Fails with ErrInvalidAmount when amount <= 0.
	RecordPayment(ctx context.Context, invoiceID string, req dto.RecordPaymentRequest, collectedBy string) (*domain.Invoice, error)

	// DeleteInvoice hard-deletes an invoice. confirm must be true; the
	// response carries an inconsistency warning when the student's aggregate
	// still mirrors the deleted invoice.
	DeleteInvoice(ctx context.Context, invoiceID string, confirm bool, requestedBy string) (*dto.DeleteInvoiceResponse, error)

	// GetInvoiceByID retrieves an invoice with items and payments.
	GetInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// ListInvoicesByStudent retrieves a student's invoices, most recent first.
	ListInvoicesByStudent(ctx context.Context, studentID string) ([]domain.Invoice, error)
}
