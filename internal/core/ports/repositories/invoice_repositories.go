package repositories

import (
	"context"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
)

// InvoiceReader defines read operations for invoice and payment data.
// All reads return invoices with items and payments populated.
type InvoiceReader interface {
	// FindInvoiceByID retrieves an invoice with its items and payments.
	FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// ListInvoicesByStudent retrieves all invoices for a student, most recent
	// first (createdAt descending, invoiceDate as tie-break).
	ListInvoicesByStudent(ctx context.Context, studentID string) ([]domain.Invoice, error)

	// FindActiveInvoice retrieves the invoice currently mirrored by the
	// student's fee aggregate. Returns ErrNotFound when the student has none.
	FindActiveInvoice(ctx context.Context, studentID string) (*domain.Invoice, error)

	// FindAdmissionInvoice retrieves the admission-source invoice for a
	// student, if one was ever linked. Returns ErrNotFound when absent.
	FindAdmissionInvoice(ctx context.Context, studentID string) (*domain.Invoice, error)
}

// InvoiceWriter defines write operations for invoice and payment data.
// Multi-table writes happen inside a single database transaction so the
// ledger and the student's fee aggregate cannot drift through a partial write.
type InvoiceWriter interface {
	// NextInvoiceNumber reserves the next human-readable invoice number.
	NextInvoiceNumber(ctx context.Context) (string, error)

	// SaveInvoice persists an invoice, its items, and any payments already
	// attached (invoices are frequently created already partially paid). It
	// marks the invoice active, clears the active flag on the student's other
	// invoices, and CAS-refreshes the student's fee aggregate, all in one
	// transaction. A stale studentVersion yields ErrConflict.
	SaveInvoice(ctx context.Context, invoice domain.Invoice, fee domain.FeeAggregate, studentVersion int64) error

	// AddPayment appends a payment row and updates the invoice's paid totals,
	// guarded by invoice.Version. When fee is non-nil the student's aggregate
	// is CAS-refreshed in the same transaction.
	AddPayment(ctx context.Context, payment domain.Payment, invoice domain.Invoice, fee *domain.FeeAggregate, studentVersion int64) error

	// DeleteInvoice hard-deletes an invoice with its items and payments.
	// The student's fee aggregate is deliberately left untouched; the caller
	// owns surfacing the resulting inconsistency.
	DeleteInvoice(ctx context.Context, invoiceID string) error
}

// InvoiceRepositoryFacade combines all invoice-related repository interfaces.
type InvoiceRepositoryFacade interface {
	InvoiceReader
	InvoiceWriter
}

// PendingLinkQueue stores admission-linking attempts that failed after the
// student record was already created, so the reconciler can retry them.
type PendingLinkQueue interface {
	// Enqueue records (or refreshes) a failed linking attempt for a student.
	Enqueue(ctx context.Context, link domain.PendingLink) error

	// List retrieves queued links, oldest first.
	List(ctx context.Context, limit int) ([]domain.PendingLink, error)

	// Remove drops a queued link after a successful retry.
	Remove(ctx context.Context, studentID string) error

	// RecordAttempt bumps the attempt counter and stores the latest error.
	RecordAttempt(ctx context.Context, studentID string, lastError string) error
}
