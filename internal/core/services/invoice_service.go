package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
	"github.com/akschools/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/akschools/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/akschools/fee_ledger_app/internal/core/ports/services"
	"github.com/akschools/fee_ledger_app/internal/dto"
	"github.com/akschools/fee_ledger_app/internal/middleware"
	"github.com/akschools/fee_ledger_app/internal/utils"
)

// maxCASRetries bounds how often a service re-reads and retries after a
// version conflict before giving up with ErrConflict.
const maxCASRetries = 3

// invoiceService implements the invoice ledger operations.
type invoiceService struct {
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	studentRepo portsrepo.StudentRepositoryFacade
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(invoiceRepo portsrepo.InvoiceRepositoryFacade, studentRepo portsrepo.StudentRepositoryFacade) portssvc.InvoiceSvcFacade {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		studentRepo: studentRepo,
	}
}

var _ portssvc.InvoiceSvcFacade = (*invoiceService)(nil)

// buildPayment assembles a payment row with generated receipt and transaction
// references.
func buildPayment(invoiceID string, amount decimal.Decimal, method domain.PaymentMethod, paymentDate time.Time, collectedBy string, now time.Time) (domain.Payment, error) {
	receiptNo, err := utils.GenerateReference("RCPT")
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to generate receipt number: %w", err)
	}
	transactionNo, err := utils.GenerateReference("TXN")
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to generate transaction number: %w", err)
	}
	if method == "" {
		method = domain.MethodCash
	}
	return domain.Payment{
		PaymentID:     uuid.NewString(),
		InvoiceID:     invoiceID,
		Amount:        amount,
		Method:        method,
		PaymentDate:   paymentDate,
		ReceiptNo:     receiptNo,
		TransactionNo: transactionNo,
		CollectedBy:   collectedBy,
		CreatedAt:     now,
	}, nil
}

// CreateInvoice creates a manual invoice for a student, optionally with an
// initial payment ("create already-partially-paid"), and refreshes the
// student's fee aggregate in the same database transaction.
func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest, collectedBy string) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	invoiceID := uuid.NewString()

	items := make([]domain.InvoiceItem, len(req.Items))
	for i, itemReq := range req.Items {
		items[i] = domain.InvoiceItem{
			ItemID:      uuid.NewString(),
			InvoiceID:   invoiceID,
			Description: itemReq.Description,
			Amount:      itemReq.Amount,
			Quantity:    itemReq.Quantity,
			Position:    i,
		}
	}
	if err := domain.ValidateItems(items); err != nil {
		return nil, err
	}

	invoiceNo, err := s.invoiceRepo.NextInvoiceNumber(ctx)
	if err != nil {
		logger.Error("Failed to reserve invoice number", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to reserve invoice number: %w", err)
	}

	invoiceDate := now
	if req.InvoiceDate != nil {
		invoiceDate = *req.InvoiceDate
	}

	invoice := domain.Invoice{
		InvoiceID:   invoiceID,
		InvoiceNo:   invoiceNo,
		StudentID:   req.StudentID,
		Items:       items,
		Discount:    req.Discount,
		InvoiceDate: invoiceDate,
		DueDate:     req.DueDate,
		CollectedBy: collectedBy,
		Source:      domain.SourceManual,
		IsActive:    true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     collectedBy,
			LastUpdatedAt: now,
			LastUpdatedBy: collectedBy,
		},
	}
	if err := invoice.Recalculate(); err != nil {
		return nil, err
	}

	if req.InitialPayment != nil && !req.InitialPayment.Amount.IsZero() {
		paymentDate := invoiceDate
		if req.InitialPayment.Date != nil {
			paymentDate = *req.InitialPayment.Date
		}
		payment, err := buildPayment(invoiceID, req.InitialPayment.Amount, req.InitialPayment.Method, paymentDate, collectedBy, now)
		if err != nil {
			return nil, err
		}
		if err := invoice.ApplyPayment(payment.Amount, payment.PaymentDate); err != nil {
			return nil, err
		}
		invoice.Payments = []domain.Payment{payment}
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		student, err := s.studentRepo.FindStudentByID(ctx, req.StudentID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				logger.Error("Failed to fetch student for invoice creation", slog.String("error", err.Error()), slog.String("student_id", req.StudentID))
			}
			return nil, fmt.Errorf("failed to find student %s: %w", req.StudentID, err)
		}

		// The new invoice becomes the active one; the aggregate mirrors it.
		fee := student.FeeInfo
		fee.MirrorInvoice(invoice.TotalAmount, invoice.PaidAmount)

		err = s.invoiceRepo.SaveInvoice(ctx, invoice, fee, student.Version)
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Version conflict saving invoice, retrying", slog.String("student_id", req.StudentID), slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			logger.Error("Failed to save invoice", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
			return nil, fmt.Errorf("failed to save invoice: %w", err)
		}

		logger.Info("Invoice created", slog.String("invoice_id", invoiceID), slog.String("invoice_no", invoiceNo), slog.String("student_id", req.StudentID))
		return &invoice, nil
	}

	return nil, fmt.Errorf("failed to save invoice after %d attempts: %w", maxCASRetries, apperrors.ErrConflict)
}

// RecordPayment appends a payment against an invoice and recomputes its
// derived state. The student's aggregate is refreshed when the invoice is the
// active one.
func (s *invoiceService) RecordPayment(ctx context.Context, invoiceID string, req dto.RecordPaymentRequest, collectedBy string) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", apperrors.ErrInvalidAmount, req.Amount)
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				logger.Error("Failed to fetch invoice for payment", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
			}
			return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
		}

		now := time.Now().UTC()
		paymentDate := now
		if req.Date != nil {
			paymentDate = *req.Date
		}
		payment, err := buildPayment(invoiceID, req.Amount, req.Method, paymentDate, collectedBy, now)
		if err != nil {
			return nil, err
		}
		if err := invoice.ApplyPayment(payment.Amount, payment.PaymentDate); err != nil {
			return nil, err
		}
		invoice.LastUpdatedAt = now
		invoice.LastUpdatedBy = collectedBy

		// Only the active invoice is mirrored by the student's aggregate;
		// payments on historical invoices leave it untouched.
		var fee *domain.FeeAggregate
		var studentVersion int64
		if invoice.IsActive {
			student, err := s.studentRepo.FindStudentByID(ctx, invoice.StudentID)
			if err != nil {
				return nil, fmt.Errorf("failed to find student %s: %w", invoice.StudentID, err)
			}
			updated := student.FeeInfo
			updated.MirrorInvoice(invoice.TotalAmount, invoice.PaidAmount)
			fee = &updated
			studentVersion = student.Version
		}

		err = s.invoiceRepo.AddPayment(ctx, payment, *invoice, fee, studentVersion)
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Version conflict recording payment, retrying", slog.String("invoice_id", invoiceID), slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			logger.Error("Failed to record payment", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
			return nil, fmt.Errorf("failed to record payment: %w", err)
		}

		invoice.Payments = append([]domain.Payment{payment}, invoice.Payments...)
		logger.Info("Payment recorded",
			slog.String("invoice_id", invoiceID),
			slog.String("amount", payment.Amount.String()),
			slog.String("receipt_no", payment.ReceiptNo),
			slog.String("status", string(invoice.Status)))
		return invoice, nil
	}

	return nil, fmt.Errorf("failed to record payment after %d attempts: %w", maxCASRetries, apperrors.ErrConflict)
}

// DeleteInvoice hard-deletes an invoice with its items and payments. The
// student's fee aggregate is deliberately not cascade-adjusted; when the
// deleted invoice was the active one, the returned warning tells the operator
// the summary is now out of step until reconciled or corrected.
func (s *invoiceService) DeleteInvoice(ctx context.Context, invoiceID string, confirm bool, requestedBy string) (*dto.DeleteInvoiceResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !confirm {
		return nil, fmt.Errorf("%w: invoice deletion requires explicit confirmation", apperrors.ErrValidation)
	}

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}

	if err := s.invoiceRepo.DeleteInvoice(ctx, invoiceID); err != nil {
		logger.Error("Failed to delete invoice", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
		return nil, fmt.Errorf("failed to delete invoice: %w", err)
	}

	resp := &dto.DeleteInvoiceResponse{Deleted: true}
	if invoice.IsActive {
		resp.Warning = fmt.Sprintf(
			"fee aggregate of student %s still reflects deleted invoice %s; run reconciliation or apply a fee correction",
			invoice.StudentID, invoice.InvoiceNo)
		logger.Warn("Active invoice deleted without aggregate adjustment",
			slog.String("invoice_id", invoiceID),
			slog.String("student_id", invoice.StudentID),
			slog.String("deleted_by", requestedBy))
	} else {
		logger.Info("Invoice deleted", slog.String("invoice_id", invoiceID), slog.String("deleted_by", requestedBy))
	}
	return resp, nil
}

// GetInvoiceByID retrieves an invoice with its items and payments.
func (s *invoiceService) GetInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	return invoice, nil
}

// ListInvoicesByStudent retrieves a student's invoices, most recent first.
func (s *invoiceService) ListInvoicesByStudent(ctx context.Context, studentID string) ([]domain.Invoice, error) {
	if _, err := s.studentRepo.FindStudentByID(ctx, studentID); err != nil {
		return nil, fmt.Errorf("failed to find student %s: %w", studentID, err)
	}
	invoices, err := s.invoiceRepo.ListInvoicesByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices for student %s: %w", studentID, err)
	}
	return invoices, nil
}
