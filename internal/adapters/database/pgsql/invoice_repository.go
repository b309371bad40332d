package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
	"github.com/akschools/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/akschools/fee_ledger_app/internal/core/ports/repositories"
)

type PgxInvoiceRepository struct {
	BaseRepository
}

// NewPgxInvoiceRepository creates a new repository for invoice, item and
// payment data.
func NewPgxInvoiceRepository(pool *pgxpool.Pool) portsrepo.InvoiceRepositoryFacade {
	return &PgxInvoiceRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.InvoiceRepositoryFacade = (*PgxInvoiceRepository)(nil)

const invoiceColumns = `
	invoice_id, invoice_no, student_id, discount, subtotal, total_amount, paid_amount,
	pending_amount, status, invoice_date, due_date, payment_date, collected_by, source,
	is_active, version, created_at, created_by, last_updated_at, last_updated_by`

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(
		&inv.InvoiceID,
		&inv.InvoiceNo,
		&inv.StudentID,
		&inv.Discount,
		&inv.Subtotal,
		&inv.TotalAmount,
		&inv.PaidAmount,
		&inv.PendingAmount,
		&inv.Status,
		&inv.InvoiceDate,
		&inv.DueDate,
		&inv.PaymentDate,
		&inv.CollectedBy,
		&inv.Source,
		&inv.IsActive,
		&inv.Version,
		&inv.CreatedAt,
		&inv.CreatedBy,
		&inv.LastUpdatedAt,
		&inv.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// NextInvoiceNumber reserves the next value of the invoice number sequence and
// formats it as INV-<year>-<seq>.
func (r *PgxInvoiceRepository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := r.Pool.QueryRow(ctx, `SELECT nextval('invoice_no_seq');`).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to reserve invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%d-%06d", time.Now().UTC().Year(), seq), nil
}

// SaveInvoice persists an invoice with its items and payments, makes it the
// student's single active invoice, and refreshes the student's fee aggregate,
// all within one database transaction.
func (r *PgxInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice, fee domain.FeeAggregate, studentVersion int64) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	// A student has at most one active invoice; demote any previous one first.
	_, err = tx.Exec(ctx, `UPDATE invoices SET is_active = FALSE WHERE student_id = $1 AND is_active;`, invoice.StudentID)
	if err != nil {
		return fmt.Errorf("failed to demote active invoices for student %s: %w", invoice.StudentID, err)
	}

	invoiceQuery := `
		INSERT INTO invoices (
			invoice_id, invoice_no, student_id, discount, subtotal, total_amount, paid_amount,
			pending_amount, status, invoice_date, due_date, payment_date, collected_by, source,
			is_active, version, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20);
	`
	_, err = tx.Exec(ctx, invoiceQuery,
		invoice.InvoiceID,
		invoice.InvoiceNo,
		invoice.StudentID,
		invoice.Discount,
		invoice.Subtotal,
		invoice.TotalAmount,
		invoice.PaidAmount,
		invoice.PendingAmount,
		invoice.Status,
		invoice.InvoiceDate,
		invoice.DueDate,
		invoice.PaymentDate,
		invoice.CollectedBy,
		invoice.Source,
		invoice.IsActive,
		invoice.Version,
		invoice.CreatedAt,
		invoice.CreatedBy,
		invoice.LastUpdatedAt,
		invoice.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice conflicts with an existing one for student %s: %w", invoice.StudentID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert invoice %s: %w", invoice.InvoiceID, err)
	}

	batch := &pgx.Batch{}
	itemQuery := `
		INSERT INTO invoice_items (item_id, invoice_id, description, amount, quantity, position)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	for _, item := range invoice.Items {
		batch.Queue(itemQuery,
			item.ItemID,
			item.InvoiceID,
			item.Description,
			item.Amount,
			item.Quantity,
			item.Position,
		)
	}
	for _, payment := range invoice.Payments {
		batch.Queue(insertPaymentQuery,
			payment.PaymentID,
			payment.InvoiceID,
			payment.Amount,
			payment.Method,
			payment.PaymentDate,
			payment.ReceiptNo,
			payment.TransactionNo,
			payment.CollectedBy,
			payment.CreatedAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to execute item batch for invoice %s: %w", invoice.InvoiceID, err)
	}

	if err := r.casUpdateAggregate(ctx, tx, invoice.StudentID, fee, studentVersion, invoice.LastUpdatedBy, invoice.LastUpdatedAt); err != nil {
		return err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return fmt.Errorf("failed to commit invoice %s: %w", invoice.InvoiceID, err)
	}

	return nil
}

const insertPaymentQuery = `
	INSERT INTO payments (payment_id, invoice_id, amount, method, payment_date, receipt_no, transaction_no, collected_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`

// casUpdateAggregate refreshes the student's fee snapshot inside an existing
// transaction, guarded by the student's version.
func (r *PgxInvoiceRepository) casUpdateAggregate(ctx context.Context, tx pgx.Tx, studentID string, fee domain.FeeAggregate, expectedVersion int64, updatedBy string, updatedAt time.Time) error {
	tag, err := tx.Exec(ctx, updateFeeAggregateQuery,
		studentID,
		fee.AdmissionFee,
		fee.MonthlyFee,
		fee.TotalFee,
		fee.PaidFee,
		fee.PendingFee,
		fee.FeeStructureID,
		updatedAt,
		updatedBy,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to refresh fee aggregate for student %s: %w", studentID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE student_id = $1);`, studentID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check student %s after stale write: %w", studentID, err)
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("student %s was modified concurrently: %w", studentID, apperrors.ErrConflict)
	}
	return nil
}

// AddPayment appends a payment row and refreshes the invoice's paid totals,
// guarded by the invoice's version. When fee is non-nil, the student's
// aggregate is refreshed in the same transaction.
func (r *PgxInvoiceRepository) AddPayment(ctx context.Context, payment domain.Payment, invoice domain.Invoice, fee *domain.FeeAggregate, studentVersion int64) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	_, err = tx.Exec(ctx, insertPaymentQuery,
		payment.PaymentID,
		payment.InvoiceID,
		payment.Amount,
		payment.Method,
		payment.PaymentDate,
		payment.ReceiptNo,
		payment.TransactionNo,
		payment.CollectedBy,
		payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment %s: %w", payment.PaymentID, err)
	}

	invoiceQuery := `
		UPDATE invoices
		SET paid_amount = $2, pending_amount = $3, status = $4, payment_date = $5,
		    version = version + 1, last_updated_at = $6, last_updated_by = $7
		WHERE invoice_id = $1 AND version = $8;
	`
	tag, err := tx.Exec(ctx, invoiceQuery,
		invoice.InvoiceID,
		invoice.PaidAmount,
		invoice.PendingAmount,
		invoice.Status,
		invoice.PaymentDate,
		payment.CreatedAt,
		payment.CollectedBy,
		invoice.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice %s totals: %w", invoice.InvoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s was modified concurrently: %w", invoice.InvoiceID, apperrors.ErrConflict)
	}

	if fee != nil {
		if err := r.casUpdateAggregate(ctx, tx, invoice.StudentID, *fee, studentVersion, payment.CollectedBy, payment.CreatedAt); err != nil {
			return err
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return fmt.Errorf("failed to commit payment %s: %w", payment.PaymentID, err)
	}

	return nil
}

// DeleteInvoice hard-deletes an invoice. Items and payments go with it via
// foreign key cascade. The student's aggregate is deliberately not touched.
func (r *PgxInvoiceRepository) DeleteInvoice(ctx context.Context, invoiceID string) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM invoices WHERE invoice_id = $1;`, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", invoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindInvoiceByID retrieves an invoice with its items and payments.
func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_id = $1;`
	return r.findOne(ctx, query, invoiceID)
}

// FindActiveInvoice retrieves the student's currently active invoice.
func (r *PgxInvoiceRepository) FindActiveInvoice(ctx context.Context, studentID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE student_id = $1 AND is_active;`
	return r.findOne(ctx, query, studentID)
}

// FindAdmissionInvoice retrieves the admission-source invoice for a student.
func (r *PgxInvoiceRepository) FindAdmissionInvoice(ctx context.Context, studentID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE student_id = $1 AND source = 'admission';`
	return r.findOne(ctx, query, studentID)
}

func (r *PgxInvoiceRepository) findOne(ctx context.Context, query string, arg string) (*domain.Invoice, error) {
	invoice, err := scanInvoice(r.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}

	if err := r.loadLines(ctx, []*domain.Invoice{invoice}); err != nil {
		return nil, err
	}
	return invoice, nil
}

// ListInvoicesByStudent retrieves all invoices for a student, most recent first.
func (r *PgxInvoiceRepository) ListInvoicesByStudent(ctx context.Context, studentID string) ([]domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE student_id = $1
		ORDER BY created_at DESC, invoice_date DESC;
	`
	rows, err := r.Pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices for student %s: %w", studentID, err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row for student %s: %w", studentID, err)
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice rows for student %s: %w", studentID, err)
	}

	refs := make([]*domain.Invoice, len(invoices))
	for i := range invoices {
		refs[i] = &invoices[i]
	}
	if err := r.loadLines(ctx, refs); err != nil {
		return nil, err
	}

	return invoices, nil
}

// loadLines attaches items and payments to the given invoices with two set
// queries instead of a query per invoice.
func (r *PgxInvoiceRepository) loadLines(ctx context.Context, invoices []*domain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	ids := make([]string, len(invoices))
	byID := make(map[string]*domain.Invoice, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.InvoiceID
		byID[inv.InvoiceID] = inv
	}

	itemQuery := `
		SELECT item_id, invoice_id, description, amount, quantity, position
		FROM invoice_items
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, position;
	`
	rows, err := r.Pool.Query(ctx, itemQuery, ids)
	if err != nil {
		return fmt.Errorf("failed to query invoice items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.InvoiceItem
		if err := rows.Scan(
			&item.ItemID,
			&item.InvoiceID,
			&item.Description,
			&item.Amount,
			&item.Quantity,
			&item.Position,
		); err != nil {
			return fmt.Errorf("failed to scan invoice item row: %w", err)
		}
		if inv, ok := byID[item.InvoiceID]; ok {
			inv.Items = append(inv.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating invoice item rows: %w", err)
	}

	paymentQuery := `
		SELECT payment_id, invoice_id, amount, method, payment_date, receipt_no, transaction_no, collected_by, created_at
		FROM payments
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, payment_date DESC, created_at DESC;
	`
	payRows, err := r.Pool.Query(ctx, paymentQuery, ids)
	if err != nil {
		return fmt.Errorf("failed to query payments: %w", err)
	}
	defer payRows.Close()

	for payRows.Next() {
		var payment domain.Payment
		if err := payRows.Scan(
			&payment.PaymentID,
			&payment.InvoiceID,
			&payment.Amount,
			&payment.Method,
			&payment.PaymentDate,
			&payment.ReceiptNo,
			&payment.TransactionNo,
			&payment.CollectedBy,
			&payment.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to scan payment row: %w", err)
		}
		if inv, ok := byID[payment.InvoiceID]; ok {
			inv.Payments = append(inv.Payments, payment)
		}
	}
	if err := payRows.Err(); err != nil {
		return fmt.Errorf("error iterating payment rows: %w", err)
	}

	return nil
}
