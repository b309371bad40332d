package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
	"github.com/akschools/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/akschools/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/akschools/fee_ledger_app/internal/core/ports/services"
	"github.com/akschools/fee_ledger_app/internal/dto"
	"github.com/akschools/fee_ledger_app/internal/middleware"
	"github.com/akschools/fee_ledger_app/internal/utils"
)

// maxLinkAttempts bounds reconciler retries per queue entry. Failures that
// survive this many sweeps will not fix themselves; staff link manually.
const maxLinkAttempts = 5

// admissionService creates student records and links them to auto-generated
// fee invoices.
type admissionService struct {
	studentRepo portsrepo.StudentRepositoryFacade
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	linkQueue   portsrepo.PendingLinkQueue
}

// NewAdmissionService creates a new AdmissionService.
func NewAdmissionService(studentRepo portsrepo.StudentRepositoryFacade, invoiceRepo portsrepo.InvoiceRepositoryFacade, linkQueue portsrepo.PendingLinkQueue) portssvc.AdmissionSvcFacade {
	return &admissionService{
		studentRepo: studentRepo,
		invoiceRepo: invoiceRepo,
		linkQueue:   linkQueue,
	}
}

var _ portssvc.AdmissionSvcFacade = (*admissionService)(nil)

// AdmitStudent creates the student record with its admission-time fee
// aggregate, then attempts to link a fee invoice. A linking failure is a
// warning, never a rollback: the admission is an accepted terminal state on
// its own.
func (s *admissionService) AdmitStudent(ctx context.Context, req dto.AdmitStudentRequest, admittedBy string) (*dto.AdmissionResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	fee := domain.FeeAggregate{
		AdmissionFee: req.AdmissionFee,
		MonthlyFee:   req.MonthlyFee,
		PaidFee:      req.InitialPaid,
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	fee.RecalculateFromAdmission()

	admissionNo := req.AdmissionNo
	if admissionNo == "" {
		generated, err := utils.GenerateReference("ADM")
		if err != nil {
			return nil, fmt.Errorf("failed to generate admission number: %w", err)
		}
		admissionNo = generated
	}

	now := time.Now().UTC()
	student := domain.Student{
		StudentID:    uuid.NewString(),
		AdmissionNo:  admissionNo,
		PersonalInfo: req.PersonalInfo,
		ContactInfo:  req.ContactInfo,
		ParentInfo:   req.ParentInfo,
		AcademicInfo: req.AcademicInfo,
		FeeInfo:      fee,
		AdmittedBy:   admittedBy,
		Version:      1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     admittedBy,
			LastUpdatedAt: now,
			LastUpdatedBy: admittedBy,
		},
	}

	if err := s.studentRepo.SaveStudent(ctx, student); err != nil {
		logger.Error("Failed to save admitted student", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save student: %w", err)
	}
	logger.Info("Student admitted", slog.String("student_id", student.StudentID), slog.String("admission_no", admissionNo))

	result := &dto.AdmissionResult{Student: dto.ToStudentResponse(&student)}
	if req.SkipInvoice {
		return result, nil
	}

	linkReq := dto.LinkFeesRequest{
		AdmissionFee:  req.AdmissionFee,
		MonthlyFee:    req.MonthlyFee,
		InitialPaid:   req.InitialPaid,
		PaymentMethod: req.PaymentMethod,
		DueDate:       req.DueDate,
	}
	link, err := s.LinkAdmissionToFees(ctx, student.StudentID, linkReq, admittedBy)
	if err != nil {
		// The student is already persisted; even a hard linking error must
		// not unwind the admission.
		logger.Warn("Admission linking failed", slog.String("student_id", student.StudentID), slog.String("error", err.Error()))
		s.deferLink(ctx, student.StudentID, linkReq, err.Error())
		result.Warning = fmt.Sprintf("admission succeeded but fee linking failed: %s; queued for retry", err.Error())
		return result, nil
	}

	result.Linked = link.Linked
	result.InvoiceID = link.InvoiceID
	result.Warning = link.Warning
	return result, nil
}

// LinkAdmissionToFees creates the admission-source invoice for a student:
// two line items whose subtotal equals admissionFee + monthlyFee. The
// operation is idempotent per student; a repeat call returns the existing
// invoice instead of creating a duplicate.
func (s *admissionService) LinkAdmissionToFees(ctx context.Context, studentID string, req dto.LinkFeesRequest, actor string) (*dto.LinkResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	fee := domain.FeeAggregate{
		AdmissionFee: req.AdmissionFee,
		MonthlyFee:   req.MonthlyFee,
		PaidFee:      req.InitialPaid,
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}

	// Idempotence guard: one admission invoice per student.
	existing, err := s.invoiceRepo.FindAdmissionInvoice(ctx, studentID)
	if err == nil {
		logger.Info("Admission invoice already linked", slog.String("student_id", studentID), slog.String("invoice_id", existing.InvoiceID))
		id := existing.InvoiceID
		return &dto.LinkResult{Linked: true, InvoiceID: &id}, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return s.deferLink(ctx, studentID, req, err.Error()), nil
	}

	invoiceNo, err := s.invoiceRepo.NextInvoiceNumber(ctx)
	if err != nil {
		return s.deferLink(ctx, studentID, req, err.Error()), nil
	}

	now := time.Now().UTC()
	invoiceID := uuid.NewString()
	invoice := domain.Invoice{
		InvoiceID: invoiceID,
		InvoiceNo: invoiceNo,
		StudentID: studentID,
		Items: []domain.InvoiceItem{
			{ItemID: uuid.NewString(), InvoiceID: invoiceID, Description: "Admission Fee", Amount: req.AdmissionFee, Quantity: 1, Position: 0},
			{ItemID: uuid.NewString(), InvoiceID: invoiceID, Description: "Monthly Fee", Amount: req.MonthlyFee, Quantity: 1, Position: 1},
		},
		InvoiceDate: now,
		DueDate:     req.DueDate,
		CollectedBy: actor,
		Source:      domain.SourceAdmission,
		IsActive:    true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor,
			LastUpdatedAt: now,
			LastUpdatedBy: actor,
		},
	}
	if err := invoice.Recalculate(); err != nil {
		return nil, err
	}

	if req.InitialPaid.IsPositive() {
		payment, err := buildPayment(invoiceID, req.InitialPaid, req.PaymentMethod, now, actor, now)
		if err != nil {
			return s.deferLink(ctx, studentID, req, err.Error()), nil
		}
		if err := invoice.ApplyPayment(payment.Amount, payment.PaymentDate); err != nil {
			return nil, err
		}
		invoice.Payments = []domain.Payment{payment}
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		student, err := s.studentRepo.FindStudentByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("failed to find student %s: %w", studentID, err)
			}
			return s.deferLink(ctx, studentID, req, err.Error()), nil
		}

		aggregate := student.FeeInfo
		aggregate.AdmissionFee = req.AdmissionFee
		aggregate.MonthlyFee = req.MonthlyFee
		aggregate.MirrorInvoice(invoice.TotalAmount, invoice.PaidAmount)

		err = s.invoiceRepo.SaveInvoice(ctx, invoice, aggregate, student.Version)
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Version conflict linking admission invoice, retrying", slog.String("student_id", studentID), slog.Int("attempt", attempt+1))
			continue
		}
		if errors.Is(err, apperrors.ErrDuplicate) {
			// A concurrent link won the race; fetch and return the winner.
			if winner, findErr := s.invoiceRepo.FindAdmissionInvoice(ctx, studentID); findErr == nil {
				id := winner.InvoiceID
				return &dto.LinkResult{Linked: true, InvoiceID: &id}, nil
			}
			return s.deferLink(ctx, studentID, req, err.Error()), nil
		}
		if err != nil {
			return s.deferLink(ctx, studentID, req, err.Error()), nil
		}

		logger.Info("Admission linked to fee invoice", slog.String("student_id", studentID), slog.String("invoice_id", invoiceID), slog.String("invoice_no", invoiceNo))
		id := invoiceID
		return &dto.LinkResult{Linked: true, InvoiceID: &id}, nil
	}

	return s.deferLink(ctx, studentID, req, "version conflict persisted across retries"), nil
}

// deferLink records a failed linking attempt on the retry queue and returns
// the non-fatal result the caller reports to staff.
func (s *admissionService) deferLink(ctx context.Context, studentID string, req dto.LinkFeesRequest, cause string) *dto.LinkResult {
	logger := middleware.GetLoggerFromCtx(ctx)

	link := domain.PendingLink{
		StudentID:    studentID,
		AdmissionFee: req.AdmissionFee,
		MonthlyFee:   req.MonthlyFee,
		InitialPaid:  req.InitialPaid,
		Method:       req.PaymentMethod,
		LastError:    cause,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.linkQueue.Enqueue(ctx, link); err != nil {
		logger.Error("Failed to enqueue pending admission link", slog.String("student_id", studentID), slog.String("error", err.Error()))
	}
	logger.Warn("Admission fee linking deferred", slog.String("student_id", studentID), slog.String("cause", cause))
	return &dto.LinkResult{
		Linked:  false,
		Warning: fmt.Sprintf("fee invoice could not be linked (%s); queued for retry, or link manually", cause),
	}
}

// RetryPendingLinks re-attempts queued linking failures, oldest first.
// Called by the background reconciler.
func (s *admissionService) RetryPendingLinks(ctx context.Context) (int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	links, err := s.linkQueue.List(ctx, 50)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending links: %w", err)
	}

	linked := 0
	for _, link := range links {
		if link.Attempts >= maxLinkAttempts {
			logger.Warn("Dropping pending link after repeated failures",
				slog.String("student_id", link.StudentID),
				slog.Int("attempts", link.Attempts),
				slog.String("last_error", link.LastError))
			if rmErr := s.linkQueue.Remove(ctx, link.StudentID); rmErr != nil {
				logger.Error("Failed to drop exhausted pending link", slog.String("student_id", link.StudentID), slog.String("error", rmErr.Error()))
			}
			continue
		}

		req := dto.LinkFeesRequest{
			AdmissionFee:  link.AdmissionFee,
			MonthlyFee:    link.MonthlyFee,
			InitialPaid:   link.InitialPaid,
			PaymentMethod: link.Method,
		}
		result, err := s.LinkAdmissionToFees(ctx, link.StudentID, req, "system")
		switch {
		case err != nil && errors.Is(err, apperrors.ErrNotFound):
			// Student no longer exists; drop the queue entry.
			if rmErr := s.linkQueue.Remove(ctx, link.StudentID); rmErr != nil {
				logger.Error("Failed to drop stale pending link", slog.String("student_id", link.StudentID), slog.String("error", rmErr.Error()))
			}
		case err != nil:
			if recErr := s.linkQueue.RecordAttempt(ctx, link.StudentID, err.Error()); recErr != nil {
				logger.Error("Failed to record link attempt", slog.String("student_id", link.StudentID), slog.String("error", recErr.Error()))
			}
		case result.Linked:
			if rmErr := s.linkQueue.Remove(ctx, link.StudentID); rmErr != nil {
				logger.Error("Failed to remove completed pending link", slog.String("student_id", link.StudentID), slog.String("error", rmErr.Error()))
			}
			linked++
		default:
			if recErr := s.linkQueue.RecordAttempt(ctx, link.StudentID, result.Warning); recErr != nil {
				logger.Error("Failed to record link attempt", slog.String("student_id", link.StudentID), slog.String("error", recErr.Error()))
			}
		}
	}

	if len(links) > 0 {
		logger.Info("Pending admission links retried", slog.Int("attempted", len(links)), slog.Int("linked", linked))
	}
	return linked, nil
}
